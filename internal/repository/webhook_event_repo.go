package repository

import (
	"context"
	"fmt"

	"studiovault/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// WebhookEventRepository keeps one row per processor event id.
type WebhookEventRepository interface {
	// RecordEvent stores the event and reports whether this is its first delivery.
	RecordEvent(ctx context.Context, e *model.WebhookEvent) (bool, error)
}

type webhookEventRepo struct {
	pool *pgxpool.Pool
}

func NewWebhookEventRepo(pool *pgxpool.Pool) WebhookEventRepository {
	return &webhookEventRepo{pool: pool}
}

func (r *webhookEventRepo) RecordEvent(ctx context.Context, e *model.WebhookEvent) (bool, error) {
	const q = `
		INSERT INTO webhook_events (processor_event_id, event_type, intent_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (processor_event_id) DO NOTHING
	`
	tag, err := r.pool.Exec(ctx, q, e.ProcessorEventID, e.EventType, e.IntentID)
	if err != nil {
		return false, fmt.Errorf("recording webhook event %s: %w", e.ProcessorEventID, err)
	}
	return tag.RowsAffected() == 1, nil
}
