package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"studiovault/internal/model"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/webhook"
)

// IntentStatus is the processor's view of a payment intent, collapsed to what
// the payment lifecycle cares about.
type IntentStatus string

const (
	IntentStatusPending   IntentStatus = "pending"
	IntentStatusSucceeded IntentStatus = "succeeded"
	IntentStatusFailed    IntentStatus = "failed"
)

// Intent is a processor payment intent.
type Intent struct {
	ID           string
	ClientSecret string
	Status       IntentStatus
	AmountCents  int64
	Metadata     map[string]string
}

// ProcessorEvent is an authenticated webhook delivery.
type ProcessorEvent struct {
	ID       string
	Type     string
	IntentID string
	// Status is empty for events that do not concern a payment intent.
	Status   IntentStatus
	Metadata map[string]string
}

// PaymentProcessor is the external payment processor client.
type PaymentProcessor interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string, idempotencyKey string) (*Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*Intent, error)
	CancelIntent(ctx context.Context, intentID string) error
	// ParseWebhook authenticates and decodes a webhook payload. Returns
	// model.ErrSignatureInvalid when the signature does not verify.
	ParseWebhook(payload []byte, signature string) (*ProcessorEvent, error)
}

// StripeProcessor implements PaymentProcessor with Stripe PaymentIntents.
type StripeProcessor struct {
	webhookSecret string
	timeout       time.Duration
	logger        zerolog.Logger
}

// NewStripeProcessor sets the Stripe key and returns a processor whose calls
// are bounded by timeout.
func NewStripeProcessor(secretKey, webhookSecret string, timeout time.Duration, logger zerolog.Logger) *StripeProcessor {
	stripe.Key = secretKey
	lg := logger.With().Str("service", "StripeProcessor").Logger()
	return &StripeProcessor{webhookSecret: webhookSecret, timeout: timeout, logger: lg}
}

func (p *StripeProcessor) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string, idempotencyKey string) (*Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}
	pi, err := paymentintent.New(params)
	if err != nil {
		p.logger.Error().Err(err).Int64("amount_cents", amountCents).Msg("Failed to create Stripe payment intent")
		return nil, fmt.Errorf("create payment intent: %w: %v", model.ErrPaymentProcessor, err)
	}
	return fromStripeIntent(pi), nil
}

func (p *StripeProcessor) RetrieveIntent(ctx context.Context, intentID string) (*Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := paymentintent.Get(intentID, params)
	if err != nil {
		p.logger.Error().Err(err).Str("intent_id", intentID).Msg("Failed to retrieve Stripe payment intent")
		return nil, fmt.Errorf("retrieve payment intent %s: %w: %v", intentID, model.ErrPaymentProcessor, err)
	}
	return fromStripeIntent(pi), nil
}

func (p *StripeProcessor) CancelIntent(ctx context.Context, intentID string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	if _, err := paymentintent.Cancel(intentID, params); err != nil {
		return fmt.Errorf("cancel payment intent %s: %w: %v", intentID, model.ErrPaymentProcessor, err)
	}
	return nil
}

func (p *StripeProcessor) ParseWebhook(payload []byte, signature string) (*ProcessorEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		p.logger.Error().Err(err).Msg("Signature verification failed for Stripe webhook")
		return nil, fmt.Errorf("%w: %v", model.ErrSignatureInvalid, err)
	}

	ev := &ProcessorEvent{ID: event.ID, Type: string(event.Type)}
	switch ev.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed", "payment_intent.canceled":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("decode payment intent from event %s: %w", event.ID, err)
		}
		ev.IntentID = pi.ID
		ev.Metadata = pi.Metadata
		if ev.Type == "payment_intent.succeeded" {
			ev.Status = IntentStatusSucceeded
		} else {
			ev.Status = IntentStatusFailed
		}
	}
	return ev, nil
}

func fromStripeIntent(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       intentStatusFromStripe(pi.Status),
		AmountCents:  pi.Amount,
		Metadata:     pi.Metadata,
	}
}

// A failed card attempt leaves the intent in requires_payment_method, which is
// still retryable on the same intent, so only cancellation counts as failure.
func intentStatusFromStripe(s stripe.PaymentIntentStatus) IntentStatus {
	switch s {
	case stripe.PaymentIntentStatusSucceeded:
		return IntentStatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return IntentStatusFailed
	default:
		return IntentStatusPending
	}
}

// intentMetadata is attached to every intent so webhook deliveries can be
// traced back to the local payment.
func intentMetadata(p *model.Payment) map[string]string {
	md := map[string]string{
		"payment_id":   p.PaymentID,
		"user_id":      p.UserID,
		"amount_cents": strconv.FormatInt(p.AmountCents, 10),
	}
	if p.ProjectID != nil {
		md["project_id"] = *p.ProjectID
	}
	if p.ContentItemID != nil {
		md["content_item_id"] = *p.ContentItemID
	}
	if p.PackageType != nil {
		md["package_type"] = string(*p.PackageType)
	}
	return md
}

// isProcessorError reports whether err came from the processor rather than local state.
func isProcessorError(err error) bool {
	return errors.Is(err, model.ErrPaymentProcessor)
}
