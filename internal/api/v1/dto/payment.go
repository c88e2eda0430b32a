package dto

import "time"

// PackagePaymentRequest starts a package purchase. Amount is optional; when
// non-zero it must equal the server-side price.
type PackagePaymentRequest struct {
	PackageType string `json:"packageType" validate:"required"`
	Amount      int64  `json:"amount" validate:"gte=0"`
}

// PaymentIntentResponseDTO carries what the client needs to complete the charge.
type PaymentIntentResponseDTO struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentID       string `json:"paymentId"`
	PaymentIntentID string `json:"paymentIntentId"`
	Amount          int64  `json:"amount"`
}

// VerifyPaymentRequest asks the server to re-check a payment with the processor.
type VerifyPaymentRequest struct {
	PaymentIntentID string `json:"paymentIntentId" validate:"required"`
}

// VerifyPaymentResponseDTO reports the confirmed payment.
type VerifyPaymentResponseDTO struct {
	PaymentID string `json:"paymentId"`
	Status    string `json:"status"`
	Granted   bool   `json:"granted"`
}

// WebhookResponseDTO acknowledges a processor delivery.
type WebhookResponseDTO struct {
	Received bool `json:"received"`
}

// PaymentResponseDTO is the admin view of a payment.
type PaymentResponseDTO struct {
	PaymentID         string    `json:"paymentId"`
	UserID            string    `json:"userId"`
	ProjectID         *string   `json:"projectId,omitempty"`
	ContentItemID     *string   `json:"contentItemId,omitempty"`
	PackageType       *string   `json:"packageType,omitempty"`
	ProcessorIntentID string    `json:"paymentIntentId"`
	Amount            int64     `json:"amount"`
	Currency          string    `json:"currency"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// ErrorResponseDTO is the body of every error response.
type ErrorResponseDTO struct {
	Error string `json:"error"`
	// Selection is set on already_selected so a retried click can be treated as success.
	Selection *SelectionResponseDTO `json:"selection,omitempty"`
}
