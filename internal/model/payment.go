package model

import "time"

// PaymentStatus moves only pending -> succeeded or pending -> failed.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusSucceeded || s == PaymentStatusFailed
}

// PackageType identifies a purchasable bundle.
type PackageType string

const (
	PackageAdditional3Videos   PackageType = "additional_3_videos"
	PackageAllRemainingContent PackageType = "all_remaining_content"
)

// Payment is the local record of one processor payment intent. It targets
// either a single content item or a project package, never both.
type Payment struct {
	PaymentID         string        `db:"id" json:"payment_id"`
	UserID            string        `db:"user_id" json:"user_id"`
	ProjectID         *string       `db:"project_id" json:"project_id,omitempty"`
	ContentItemID     *string       `db:"content_item_id" json:"content_item_id,omitempty"`
	PackageType       *PackageType  `db:"package_type" json:"package_type,omitempty"`
	ProcessorIntentID string        `db:"processor_intent_id" json:"processor_intent_id"`
	AmountCents       int64         `db:"amount_cents" json:"amount_cents"`
	Currency          string        `db:"currency" json:"currency"`
	Status            PaymentStatus `db:"status" json:"status"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`
}

// IsPackage reports whether the payment buys a project package.
func (p *Payment) IsPackage() bool {
	return p.PackageType != nil
}

// PaymentTarget names what a payment is expected to buy: a content item or a
// project package. An empty target matches any payment.
type PaymentTarget struct {
	ContentItemID string
	ProjectID     string
}

// Matches reports whether the payment buys the given target.
func (p *Payment) Matches(t PaymentTarget) bool {
	switch {
	case t.ContentItemID != "":
		return !p.IsPackage() && p.ContentItemID != nil && *p.ContentItemID == t.ContentItemID
	case t.ProjectID != "":
		return p.IsPackage() && p.ProjectID != nil && *p.ProjectID == t.ProjectID
	}
	return true
}

// Purchase is the grant created when an individual content payment succeeds.
type Purchase struct {
	PurchaseID    string    `db:"id" json:"purchase_id"`
	UserID        string    `db:"user_id" json:"user_id"`
	ContentItemID string    `db:"content_item_id" json:"content_item_id"`
	PaymentID     string    `db:"payment_id" json:"payment_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
