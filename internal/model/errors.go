package model

import "errors"

var (
	ErrNotFound            = errors.New("not_found")
	ErrLimitReached        = errors.New("limit_reached")
	ErrAlreadySelected     = errors.New("already_selected")
	ErrAlreadyOwned        = errors.New("already_owned")
	ErrProjectMismatch     = errors.New("project_mismatch")
	ErrInvalidPackage      = errors.New("invalid_package")
	ErrAmountMismatch      = errors.New("amount_mismatch")
	ErrPaymentNotSucceeded = errors.New("payment_not_succeeded")
	ErrPaymentProcessor    = errors.New("payment_processor_error")
	ErrSignatureInvalid    = errors.New("signature_invalid")
	ErrForbidden           = errors.New("forbidden")
)
