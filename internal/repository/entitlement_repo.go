package repository

import (
	"context"
	"fmt"

	"studiovault/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EntitlementRepository reads package flags and individual purchases.
type EntitlementRepository interface {
	// GetProjectEntitlement returns a zero-valued entitlement when the user owns nothing in the project.
	GetProjectEntitlement(ctx context.Context, userID, projectID string) (*model.ProjectEntitlement, error)
	HasPurchase(ctx context.Context, userID, contentItemID string) (bool, error)
	// RevokePackages clears both package flags. Admin use only.
	RevokePackages(ctx context.Context, userID, projectID string) (bool, error)
}

type entitlementRepo struct {
	pool *pgxpool.Pool
}

func NewEntitlementRepo(pool *pgxpool.Pool) EntitlementRepository {
	return &entitlementRepo{pool: pool}
}

func (r *entitlementRepo) GetProjectEntitlement(ctx context.Context, userID, projectID string) (*model.ProjectEntitlement, error) {
	const q = `
		SELECT user_id, project_id, has_additional_3_videos, has_all_remaining_content, updated_at
		FROM project_entitlements
		WHERE user_id = $1 AND project_id = $2
	`
	var e model.ProjectEntitlement
	err := r.pool.QueryRow(ctx, q, userID, projectID).Scan(
		&e.UserID,
		&e.ProjectID,
		&e.HasAdditional3Videos,
		&e.HasAllRemainingContent,
		&e.UpdatedAt,
	)
	if err != nil {
		if IsNotFound(err) {
			return &model.ProjectEntitlement{UserID: userID, ProjectID: projectID}, nil
		}
		return nil, fmt.Errorf("fetch entitlement for user %s project %s: %w", userID, projectID, err)
	}
	return &e, nil
}

func (r *entitlementRepo) HasPurchase(ctx context.Context, userID, contentItemID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM purchases WHERE user_id = $1 AND content_item_id = $2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, q, userID, contentItemID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking purchase for user %s item %s: %w", userID, contentItemID, err)
	}
	return exists, nil
}

func (r *entitlementRepo) RevokePackages(ctx context.Context, userID, projectID string) (bool, error) {
	const q = `
		UPDATE project_entitlements
		SET has_additional_3_videos = FALSE, has_all_remaining_content = FALSE, updated_at = NOW()
		WHERE user_id = $1 AND project_id = $2
	`
	tag, err := r.pool.Exec(ctx, q, userID, projectID)
	if err != nil {
		return false, fmt.Errorf("revoking packages for user %s project %s: %w", userID, projectID, err)
	}
	return tag.RowsAffected() > 0, nil
}
