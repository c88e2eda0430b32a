package repository

import (
	"context"
	"fmt"

	"studiovault/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DownloadRepository is the append-only download audit log.
type DownloadRepository interface {
	RecordDownload(ctx context.Context, d *model.Download) error
	ListDownloadsByUser(ctx context.Context, userID string, limit int) ([]model.Download, error)
}

type downloadRepo struct {
	pool *pgxpool.Pool
}

func NewDownloadRepo(pool *pgxpool.Pool) DownloadRepository {
	return &downloadRepo{pool: pool}
}

func (r *downloadRepo) RecordDownload(ctx context.Context, d *model.Download) error {
	if d.DownloadID == "" {
		d.DownloadID = uuid.NewString()
	}
	const q = `
		INSERT INTO downloads (id, user_id, content_item_id)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	if err := r.pool.QueryRow(ctx, q, d.DownloadID, d.UserID, d.ContentItemID).Scan(&d.CreatedAt); err != nil {
		return fmt.Errorf("recording download of %s for user %s: %w", d.ContentItemID, d.UserID, err)
	}
	return nil
}

func (r *downloadRepo) ListDownloadsByUser(ctx context.Context, userID string, limit int) ([]model.Download, error) {
	const q = `
		SELECT id, user_id, content_item_id, created_at
		FROM downloads
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing downloads for user %s: %w", userID, err)
	}
	defer rows.Close()

	downloads := []model.Download{}
	for rows.Next() {
		var d model.Download
		if err := rows.Scan(&d.DownloadID, &d.UserID, &d.ContentItemID, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning download: %w", err)
		}
		downloads = append(downloads, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating downloads: %w", err)
	}
	return downloads, nil
}
