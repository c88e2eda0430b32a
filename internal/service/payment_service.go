package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studiovault/internal/catalog"
	"studiovault/internal/model"
	"studiovault/internal/pubsub"
	"studiovault/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PaymentIntentResult is handed to the client to complete the charge.
type PaymentIntentResult struct {
	PaymentID    string `json:"paymentId"`
	IntentID     string `json:"paymentIntentId"`
	ClientSecret string `json:"clientSecret"`
	AmountCents  int64  `json:"amount"`
}

// ConfirmResult reports the state of a payment after confirmation.
// Granted is true only for the call that performed the entitlement grant.
type ConfirmResult struct {
	Payment *model.Payment
	Granted bool
}

// ReconcileReport summarises one reconciliation pass.
type ReconcileReport struct {
	Checked   int
	Succeeded int
	Failed    int
	Pending   int
	Errors    int
}

// PaymentService manages the payment lifecycle: pending on intent creation,
// then exactly one terminal transition.
type PaymentService interface {
	CreateContentPaymentIntent(ctx context.Context, userID, contentItemID string) (*PaymentIntentResult, error)
	// CreatePackagePaymentIntent ignores a zero clientAmountCents; any other value must match the catalog price.
	CreatePackagePaymentIntent(ctx context.Context, userID, projectID string, pkg model.PackageType, clientAmountCents int64) (*PaymentIntentResult, error)
	// ConfirmPayment re-queries the processor and applies its authoritative status.
	ConfirmPayment(ctx context.Context, intentID string) (*ConfirmResult, error)
	// VerifyPayment is ConfirmPayment restricted to the payment's owner and
	// expected target, both checked before the processor is queried. Returns
	// model.ErrPaymentNotSucceeded unless the payment ends up succeeded.
	VerifyPayment(ctx context.Context, userID, intentID string, target model.PaymentTarget) (*ConfirmResult, error)
	// HandleWebhook authenticates the delivery before touching any state.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	ReconcileStale(ctx context.Context, staleAfter time.Duration, limit int) (ReconcileReport, error)
}

type paymentService struct {
	users     repository.UserRepository
	projects  repository.ProjectRepository
	content   repository.ContentRepository
	payments  repository.PaymentRepository
	events    repository.WebhookEventRepository
	access    AccessService
	catalog   *catalog.Catalog
	processor PaymentProcessor
	publisher pubsub.Publisher
	topic     string
	currency  string
	logger    zerolog.Logger
	now       func() time.Time
}

// PaymentServiceDeps bundles the collaborators of the payment service.
type PaymentServiceDeps struct {
	Users     repository.UserRepository
	Projects  repository.ProjectRepository
	Content   repository.ContentRepository
	Payments  repository.PaymentRepository
	Events    repository.WebhookEventRepository
	Access    AccessService
	Catalog   *catalog.Catalog
	Processor PaymentProcessor
	// Publisher may be nil, which disables entitlement events.
	Publisher pubsub.Publisher
	Topic     string
	Currency  string
}

func NewPaymentService(deps PaymentServiceDeps, logger zerolog.Logger) PaymentService {
	lg := logger.With().Str("service", "PaymentService").Logger()
	return &paymentService{
		users:     deps.Users,
		projects:  deps.Projects,
		content:   deps.Content,
		payments:  deps.Payments,
		events:    deps.Events,
		access:    deps.Access,
		catalog:   deps.Catalog,
		processor: deps.Processor,
		publisher: deps.Publisher,
		topic:     deps.Topic,
		currency:  deps.Currency,
		logger:    lg,
		now:       time.Now,
	}
}

func (s *paymentService) requireUser(ctx context.Context, userID string) error {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("user %s: %w", userID, model.ErrNotFound)
	}
	return nil
}

func (s *paymentService) CreateContentPaymentIntent(ctx context.Context, userID, contentItemID string) (*PaymentIntentResult, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	item, err := s.content.GetContentItemByID(ctx, contentItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("content item %s: %w", contentItemID, model.ErrNotFound)
	}
	owned, _, err := s.access.Explain(ctx, userID, item)
	if err != nil {
		return nil, err
	}
	if owned {
		return nil, model.ErrAlreadyOwned
	}

	p := &model.Payment{
		UserID:        userID,
		ContentItemID: &item.ContentItemID,
		AmountCents:   item.PriceCents,
	}
	return s.startPayment(ctx, p)
}

func (s *paymentService) CreatePackagePaymentIntent(ctx context.Context, userID, projectID string, pkg model.PackageType, clientAmountCents int64) (*PaymentIntentResult, error) {
	if _, ok := s.catalog.Lookup(pkg); !ok {
		return nil, fmt.Errorf("package %q: %w", pkg, model.ErrInvalidPackage)
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	project, err := s.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", projectID, model.ErrNotFound)
	}
	owned, err := s.access.HasPackage(ctx, userID, projectID, pkg)
	if err != nil {
		return nil, err
	}
	if owned {
		return nil, model.ErrAlreadyOwned
	}
	price, err := s.catalog.PriceFor(pkg, project)
	if err != nil {
		return nil, err
	}
	if clientAmountCents != 0 && clientAmountCents != price {
		return nil, fmt.Errorf("client amount %d, price %d: %w", clientAmountCents, price, model.ErrAmountMismatch)
	}

	p := &model.Payment{
		UserID:      userID,
		ProjectID:   &project.ProjectID,
		PackageType: &pkg,
		AmountCents: price,
	}
	return s.startPayment(ctx, p)
}

// startPayment creates the processor intent and the pending row that links to it.
func (s *paymentService) startPayment(ctx context.Context, p *model.Payment) (*PaymentIntentResult, error) {
	p.PaymentID = uuid.NewString()
	p.Currency = s.currency

	intent, err := s.processor.CreateIntent(ctx, p.AmountCents, p.Currency, intentMetadata(p), p.PaymentID)
	if err != nil {
		return nil, err
	}
	p.ProcessorIntentID = intent.ID
	if err := s.payments.CreatePayment(ctx, p); err != nil {
		s.logger.Error().Err(err).Str("intent_id", intent.ID).Msg("Failed to persist payment for created intent")
		return nil, err
	}
	s.logger.Info().
		Str("payment_id", p.PaymentID).
		Str("intent_id", intent.ID).
		Str("user_id", p.UserID).
		Int64("amount_cents", p.AmountCents).
		Msg("Payment intent created")
	return &PaymentIntentResult{
		PaymentID:    p.PaymentID,
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		AmountCents:  p.AmountCents,
	}, nil
}

func (s *paymentService) ConfirmPayment(ctx context.Context, intentID string) (*ConfirmResult, error) {
	p, err := s.payments.GetPaymentByIntentID(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("payment for intent %s: %w", intentID, model.ErrNotFound)
	}
	if p.Status.Terminal() {
		return &ConfirmResult{Payment: p}, nil
	}

	intent, err := s.processor.RetrieveIntent(ctx, intentID)
	if err != nil {
		// Leave the row pending; the caller may retry.
		return nil, err
	}
	return s.applyStatus(ctx, intentID, intent.Status)
}

func (s *paymentService) VerifyPayment(ctx context.Context, userID, intentID string, target model.PaymentTarget) (*ConfirmResult, error) {
	p, err := s.payments.GetPaymentByIntentID(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if p == nil || p.UserID != userID || !p.Matches(target) {
		return nil, fmt.Errorf("payment for intent %s: %w", intentID, model.ErrNotFound)
	}
	res, err := s.ConfirmPayment(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if res.Payment.Status != model.PaymentStatusSucceeded {
		return res, model.ErrPaymentNotSucceeded
	}
	return res, nil
}

// applyStatus performs the single allowed transition for a terminal processor
// status. Pending statuses change nothing.
func (s *paymentService) applyStatus(ctx context.Context, intentID string, status IntentStatus) (*ConfirmResult, error) {
	switch status {
	case IntentStatusSucceeded:
		p, granted, err := s.payments.CompleteSucceeded(ctx, intentID)
		if err != nil {
			return nil, err
		}
		if granted {
			s.logger.Info().
				Str("payment_id", p.PaymentID).
				Str("intent_id", intentID).
				Str("user_id", p.UserID).
				Msg("Payment succeeded, entitlement granted")
			s.publishGrant(ctx, p)
		} else if p.Status == model.PaymentStatusFailed {
			// The customer was charged after the row was marked failed, e.g. a
			// retry on an intent whose cancel did not go through.
			s.logger.Error().
				Str("payment_id", p.PaymentID).
				Str("intent_id", intentID).
				Str("user_id", p.UserID).
				Msg("Processor reports success for a failed payment, refund or grant manually")
		} else {
			s.logger.Debug().Str("intent_id", intentID).Str("status", string(p.Status)).Msg("Payment already terminal, skipping grant")
		}
		return &ConfirmResult{Payment: p, Granted: granted}, nil
	case IntentStatusFailed:
		p, failed, err := s.payments.MarkFailed(ctx, intentID)
		if err != nil {
			return nil, err
		}
		if failed {
			s.logger.Info().Str("payment_id", p.PaymentID).Str("intent_id", intentID).Msg("Payment failed")
		}
		return &ConfirmResult{Payment: p}, nil
	default:
		p, err := s.payments.GetPaymentByIntentID(ctx, intentID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("payment for intent %s: %w", intentID, model.ErrNotFound)
		}
		return &ConfirmResult{Payment: p}, nil
	}
}

func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.processor.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}
	log := s.logger.With().Str("event_id", event.ID).Str("event_type", event.Type).Logger()
	log.Info().Msg("Payment webhook received")

	if event.Status == "" {
		log.Debug().Msg("Ignoring webhook event")
		return nil
	}

	firstSeen, err := s.events.RecordEvent(ctx, &model.WebhookEvent{
		ProcessorEventID: event.ID,
		EventType:        event.Type,
		IntentID:         event.IntentID,
	})
	if err != nil {
		return err
	}
	if !firstSeen {
		// Still applied: the previous delivery may have failed after recording.
		log.Info().Str("intent_id", event.IntentID).Msg("Duplicate webhook delivery")
	}

	res, err := s.applyStatus(ctx, event.IntentID, event.Status)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			log.Warn().Str("intent_id", event.IntentID).Msg("Webhook for unknown payment intent")
			return nil
		}
		return err
	}

	// A payment_failed intent could still be retried by the client on the same
	// intent; cancel it so it cannot succeed after we recorded the failure.
	if event.Type == "payment_intent.payment_failed" && res.Payment.Status == model.PaymentStatusFailed {
		if err := s.processor.CancelIntent(ctx, event.IntentID); err != nil {
			log.Warn().Err(err).Str("intent_id", event.IntentID).Msg("Failed to cancel failed payment intent")
		}
	}
	return nil
}

func (s *paymentService) ReconcileStale(ctx context.Context, staleAfter time.Duration, limit int) (ReconcileReport, error) {
	var report ReconcileReport
	stale, err := s.payments.ListStalePending(ctx, s.now().Add(-staleAfter), limit)
	if err != nil {
		return report, err
	}
	for _, p := range stale {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Checked++
		res, err := s.ConfirmPayment(ctx, p.ProcessorIntentID)
		if err != nil {
			report.Errors++
			lvl := zerolog.ErrorLevel
			if isProcessorError(err) {
				lvl = zerolog.WarnLevel
			}
			s.logger.WithLevel(lvl).Err(err).Str("intent_id", p.ProcessorIntentID).Msg("Failed to reconcile payment")
			continue
		}
		switch res.Payment.Status {
		case model.PaymentStatusSucceeded:
			report.Succeeded++
		case model.PaymentStatusFailed:
			report.Failed++
		default:
			report.Pending++
		}
	}
	return report, nil
}

func (s *paymentService) publishGrant(ctx context.Context, p *model.Payment) {
	if s.publisher == nil || s.topic == "" {
		return
	}
	ev := pubsub.EntitlementGranted{
		PaymentID:   p.PaymentID,
		UserID:      p.UserID,
		AmountCents: p.AmountCents,
		GrantedAt:   s.now().UTC(),
	}
	if p.ProjectID != nil {
		ev.ProjectID = *p.ProjectID
	}
	if p.ContentItemID != nil {
		ev.ContentItemID = *p.ContentItemID
	}
	if p.PackageType != nil {
		ev.PackageType = string(*p.PackageType)
	}
	payload, err := ev.Marshal()
	if err != nil {
		s.logger.Error().Err(err).Str("payment_id", p.PaymentID).Msg("Failed to encode entitlement event")
		return
	}
	if _, err := s.publisher.Publish(ctx, s.topic, payload); err != nil {
		s.logger.Error().Err(err).Str("payment_id", p.PaymentID).Msg("Failed to publish entitlement event")
	}
}
