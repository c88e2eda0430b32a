package repository

import (
	"context"
	"fmt"

	"studiovault/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ProjectRepository is a read-only view of client projects.
type ProjectRepository interface {
	GetProjectByID(ctx context.Context, projectID string) (*model.Project, error)
}

type projectRepo struct {
	pool                     *pgxpool.Pool
	defaultFreeVideoLimit    int
	defaultFreeHeadshotLimit int
}

// NewProjectRepo creates a ProjectRepository. Projects without explicit free
// limits get the given defaults.
func NewProjectRepo(pool *pgxpool.Pool, defaultFreeVideoLimit, defaultFreeHeadshotLimit int) ProjectRepository {
	return &projectRepo{
		pool:                     pool,
		defaultFreeVideoLimit:    defaultFreeVideoLimit,
		defaultFreeHeadshotLimit: defaultFreeHeadshotLimit,
	}
}

// GetProjectByID returns nil, nil when the project does not exist.
func (r *projectRepo) GetProjectByID(ctx context.Context, projectID string) (*model.Project, error) {
	const q = `
		SELECT id,
		       name,
		       owner_user_id,
		       COALESCE(free_video_limit, $2),
		       COALESCE(free_headshot_limit, $3),
		       additional_3_videos_price_cents,
		       all_content_price_cents,
		       created_at
		FROM projects
		WHERE id = $1
	`
	var p model.Project
	err := r.pool.QueryRow(ctx, q, projectID, r.defaultFreeVideoLimit, r.defaultFreeHeadshotLimit).Scan(
		&p.ProjectID,
		&p.Name,
		&p.OwnerUserID,
		&p.FreeVideoLimit,
		&p.FreeHeadshotLimit,
		&p.Additional3VideosPriceCents,
		&p.AllContentPriceCents,
		&p.CreatedAt,
	)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch project %s: %w", projectID, err)
	}
	return &p, nil
}
