package repository

import (
	"context"
	"fmt"

	"studiovault/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ContentRepository provides content item lookups and the admin removal cascade.
type ContentRepository interface {
	GetContentItemByID(ctx context.Context, contentItemID string) (*model.ContentItem, error)
	// DeleteContentItem removes the item together with every selection, purchase,
	// download and payment that references it. Returns false if the item did not exist.
	DeleteContentItem(ctx context.Context, contentItemID string) (bool, error)
}

type contentRepo struct {
	pool *pgxpool.Pool
}

func NewContentRepo(pool *pgxpool.Pool) ContentRepository {
	return &contentRepo{pool: pool}
}

// GetContentItemByID returns nil, nil when the item does not exist.
func (r *contentRepo) GetContentItemByID(ctx context.Context, contentItemID string) (*model.ContentItem, error) {
	const q = `
		SELECT id, project_id, owner_user_id, type, title, price_cents, file_path,
		       thumbnail_url, width, height, created_at
		FROM content_items
		WHERE id = $1
	`
	var c model.ContentItem
	err := r.pool.QueryRow(ctx, q, contentItemID).Scan(
		&c.ContentItemID,
		&c.ProjectID,
		&c.OwnerUserID,
		&c.Type,
		&c.Title,
		&c.PriceCents,
		&c.FilePath,
		&c.ThumbnailURL,
		&c.Width,
		&c.Height,
		&c.CreatedAt,
	)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch content item %s: %w", contentItemID, err)
	}
	return &c, nil
}

func (r *contentRepo) DeleteContentItem(ctx context.Context, contentItemID string) (bool, error) {
	var deleted bool
	err := inTx(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		// Children first: purchases reference payments, everything references the item.
		cascade := []string{
			`DELETE FROM selections WHERE content_item_id = $1`,
			`DELETE FROM purchases WHERE content_item_id = $1`,
			`DELETE FROM downloads WHERE content_item_id = $1`,
			`DELETE FROM payments WHERE content_item_id = $1`,
		}
		for _, q := range cascade {
			if _, err := tx.Exec(ctx, q, contentItemID); err != nil {
				return fmt.Errorf("cascade delete for content item %s: %w", contentItemID, err)
			}
		}
		tag, err := tx.Exec(ctx, `DELETE FROM content_items WHERE id = $1`, contentItemID)
		if err != nil {
			return fmt.Errorf("delete content item %s: %w", contentItemID, err)
		}
		deleted = tag.RowsAffected() == 1
		return nil
	})
	return deleted, err
}
