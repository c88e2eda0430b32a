package repository

import (
	"context"
	"fmt"
	"time"

	"studiovault/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentRepository persists payment attempts and performs the one-time
// entitlement grant tied to a successful charge.
type PaymentRepository interface {
	CreatePayment(ctx context.Context, p *model.Payment) error
	// GetPaymentByIntentID returns nil, nil when no payment carries the intent id.
	GetPaymentByIntentID(ctx context.Context, intentID string) (*model.Payment, error)
	ListPaymentsByProject(ctx context.Context, projectID string) ([]model.Payment, error)
	// ListStalePending returns pending payments created before olderThan, oldest first.
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]model.Payment, error)
	// CompleteSucceeded moves the payment from pending to succeeded and, only if
	// this call performed the transition, grants the entitlement in the same
	// transaction. granted is false when the payment was already terminal.
	CompleteSucceeded(ctx context.Context, intentID string) (p *model.Payment, granted bool, err error)
	// MarkFailed moves the payment from pending to failed. failed is false when
	// the payment was already terminal.
	MarkFailed(ctx context.Context, intentID string) (p *model.Payment, failed bool, err error)
}

type paymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) PaymentRepository {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, user_id, project_id, content_item_id, package_type, processor_intent_id,
	amount_cents, currency, status, created_at, updated_at`

func scanPayment(row pgx.Row, p *model.Payment) error {
	return row.Scan(
		&p.PaymentID,
		&p.UserID,
		&p.ProjectID,
		&p.ContentItemID,
		&p.PackageType,
		&p.ProcessorIntentID,
		&p.AmountCents,
		&p.Currency,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

func (r *paymentRepo) CreatePayment(ctx context.Context, p *model.Payment) error {
	if p.PaymentID == "" {
		p.PaymentID = uuid.NewString()
	}
	p.Status = model.PaymentStatusPending
	q := `
		INSERT INTO payments (id, user_id, project_id, content_item_id, package_type,
		                      processor_intent_id, amount_cents, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + paymentColumns
	row := r.pool.QueryRow(ctx, q,
		p.PaymentID, p.UserID, p.ProjectID, p.ContentItemID, p.PackageType,
		p.ProcessorIntentID, p.AmountCents, p.Currency, p.Status,
	)
	if err := scanPayment(row, p); err != nil {
		return fmt.Errorf("creating payment for intent %s: %w", p.ProcessorIntentID, err)
	}
	return nil
}

func (r *paymentRepo) GetPaymentByIntentID(ctx context.Context, intentID string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE processor_intent_id = $1`
	var p model.Payment
	if err := scanPayment(r.pool.QueryRow(ctx, q, intentID), &p); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch payment for intent %s: %w", intentID, err)
	}
	return &p, nil
}

func (r *paymentRepo) ListPaymentsByProject(ctx context.Context, projectID string) ([]model.Payment, error) {
	q := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE project_id = $1
		   OR content_item_id IN (SELECT id FROM content_items WHERE project_id = $1)
		ORDER BY created_at DESC
	`
	return r.list(ctx, q, projectID)
}

func (r *paymentRepo) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]model.Payment, error) {
	q := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`
	return r.list(ctx, q, olderThan, limit)
}

func (r *paymentRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Payment, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	defer rows.Close()

	payments := []model.Payment{}
	for rows.Next() {
		var p model.Payment
		if err := scanPayment(rows, &p); err != nil {
			return nil, fmt.Errorf("scanning payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating payments: %w", err)
	}
	return payments, nil
}

func (r *paymentRepo) CompleteSucceeded(ctx context.Context, intentID string) (*model.Payment, bool, error) {
	var (
		p       model.Payment
		granted bool
	)
	err := inTx(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		granted = false
		casQ := `
			UPDATE payments
			SET status = 'succeeded', updated_at = NOW()
			WHERE processor_intent_id = $1 AND status = 'pending'
			RETURNING ` + paymentColumns
		err := scanPayment(tx.QueryRow(ctx, casQ, intentID), &p)
		if IsNotFound(err) {
			// Lost the race or already terminal: report current state without side effects.
			getQ := `SELECT ` + paymentColumns + ` FROM payments WHERE processor_intent_id = $1`
			if err := scanPayment(tx.QueryRow(ctx, getQ, intentID), &p); err != nil {
				if IsNotFound(err) {
					return model.ErrNotFound
				}
				return fmt.Errorf("fetch payment for intent %s: %w", intentID, err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("marking payment %s succeeded: %w", intentID, err)
		}
		if err := grantEntitlement(ctx, tx, &p); err != nil {
			return err
		}
		granted = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &p, granted, nil
}

func grantEntitlement(ctx context.Context, tx pgx.Tx, p *model.Payment) error {
	switch {
	case p.PackageType != nil && p.ProjectID != nil:
		var q string
		switch *p.PackageType {
		case model.PackageAdditional3Videos:
			q = `
				INSERT INTO project_entitlements (user_id, project_id, has_additional_3_videos)
				VALUES ($1, $2, TRUE)
				ON CONFLICT (user_id, project_id) DO UPDATE
				SET has_additional_3_videos = TRUE, updated_at = NOW()
			`
		case model.PackageAllRemainingContent:
			q = `
				INSERT INTO project_entitlements (user_id, project_id, has_all_remaining_content)
				VALUES ($1, $2, TRUE)
				ON CONFLICT (user_id, project_id) DO UPDATE
				SET has_all_remaining_content = TRUE, updated_at = NOW()
			`
		default:
			return fmt.Errorf("payment %s: %w", p.PaymentID, model.ErrInvalidPackage)
		}
		if _, err := tx.Exec(ctx, q, p.UserID, *p.ProjectID); err != nil {
			return fmt.Errorf("granting %s to user %s: %w", *p.PackageType, p.UserID, err)
		}
	case p.ContentItemID != nil:
		const q = `
			INSERT INTO purchases (id, user_id, content_item_id, payment_id)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, content_item_id) DO NOTHING
		`
		if _, err := tx.Exec(ctx, q, uuid.NewString(), p.UserID, *p.ContentItemID, p.PaymentID); err != nil {
			return fmt.Errorf("recording purchase of %s for user %s: %w", *p.ContentItemID, p.UserID, err)
		}
	default:
		return fmt.Errorf("payment %s has no target", p.PaymentID)
	}
	return nil
}

func (r *paymentRepo) MarkFailed(ctx context.Context, intentID string) (*model.Payment, bool, error) {
	var p model.Payment
	casQ := `
		UPDATE payments
		SET status = 'failed', updated_at = NOW()
		WHERE processor_intent_id = $1 AND status = 'pending'
		RETURNING ` + paymentColumns
	err := scanPayment(r.pool.QueryRow(ctx, casQ, intentID), &p)
	if err == nil {
		return &p, true, nil
	}
	if !IsNotFound(err) {
		return nil, false, fmt.Errorf("marking payment %s failed: %w", intentID, err)
	}
	existing, err := r.GetPaymentByIntentID(ctx, intentID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, model.ErrNotFound
	}
	return existing, false, nil
}
