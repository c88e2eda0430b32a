package repository

import (
	"context"
	"fmt"

	"studiovault/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SelectionRepository stores free selections.
type SelectionRepository interface {
	// CountFreeSelections counts the user's free selections of one content type in a project.
	CountFreeSelections(ctx context.Context, userID, projectID string, contentType model.ContentType) (int, error)
	// GetSelection returns nil, nil when the user has not selected the item.
	GetSelection(ctx context.Context, userID, contentItemID string) (*model.Selection, error)
	// CreateFreeSelection atomically checks for a duplicate, checks the quota and
	// records the selection. Returns model.ErrAlreadySelected or model.ErrLimitReached.
	CreateFreeSelection(ctx context.Context, sel *model.Selection, limit int) error
}

type selectionRepo struct {
	pool *pgxpool.Pool
}

func NewSelectionRepo(pool *pgxpool.Pool) SelectionRepository {
	return &selectionRepo{pool: pool}
}

const countFreeSelectionsQ = `
	SELECT COUNT(*)
	FROM selections
	WHERE user_id = $1
	  AND project_id = $2
	  AND content_type = $3
	  AND selection_type = 'free'
`

func (r *selectionRepo) CountFreeSelections(ctx context.Context, userID, projectID string, contentType model.ContentType) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, countFreeSelectionsQ, userID, projectID, contentType).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting %s selections for user %s: %w", contentType, userID, err)
	}
	return count, nil
}

func (r *selectionRepo) GetSelection(ctx context.Context, userID, contentItemID string) (*model.Selection, error) {
	const q = `
		SELECT id, user_id, project_id, content_item_id, content_type, selection_type, created_at
		FROM selections
		WHERE user_id = $1 AND content_item_id = $2
	`
	var s model.Selection
	err := r.pool.QueryRow(ctx, q, userID, contentItemID).Scan(
		&s.SelectionID,
		&s.UserID,
		&s.ProjectID,
		&s.ContentItemID,
		&s.ContentType,
		&s.SelectionType,
		&s.CreatedAt,
	)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch selection for user %s item %s: %w", userID, contentItemID, err)
	}
	return &s, nil
}

// CreateFreeSelection re-counts inside a serializable transaction so that two
// concurrent requests racing for the last slot cannot both commit.
func (r *selectionRepo) CreateFreeSelection(ctx context.Context, sel *model.Selection, limit int) error {
	if sel.SelectionID == "" {
		sel.SelectionID = uuid.NewString()
	}
	sel.SelectionType = model.SelectionTypeFree

	err := inTx(ctx, r.pool, pgx.Serializable, func(tx pgx.Tx) error {
		var exists bool
		const existsQ = `SELECT EXISTS (SELECT 1 FROM selections WHERE user_id = $1 AND content_item_id = $2)`
		if err := tx.QueryRow(ctx, existsQ, sel.UserID, sel.ContentItemID).Scan(&exists); err != nil {
			return fmt.Errorf("checking existing selection for user %s: %w", sel.UserID, err)
		}
		if exists {
			return model.ErrAlreadySelected
		}

		var count int
		if err := tx.QueryRow(ctx, countFreeSelectionsQ, sel.UserID, sel.ProjectID, sel.ContentType).Scan(&count); err != nil {
			return fmt.Errorf("counting selections for user %s: %w", sel.UserID, err)
		}
		if count >= limit {
			return model.ErrLimitReached
		}

		const insertQ = `
			INSERT INTO selections (id, user_id, project_id, content_item_id, content_type, selection_type)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at
		`
		err := tx.QueryRow(ctx, insertQ, sel.SelectionID, sel.UserID, sel.ProjectID, sel.ContentItemID, sel.ContentType, sel.SelectionType).
			Scan(&sel.CreatedAt)
		if err != nil {
			if IsUniqueViolation(err) {
				return model.ErrAlreadySelected
			}
			return fmt.Errorf("recording selection for user %s: %w", sel.UserID, err)
		}
		return nil
	})
	return err
}
