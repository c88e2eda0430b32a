package service

import (
	"context"
	"fmt"

	"studiovault/internal/model"
	"studiovault/internal/repository"

	"github.com/rs/zerolog"
)

// AdminService holds the only operations allowed to undo entitlement.
// Callers must have passed the admin capability check.
type AdminService interface {
	RevokePackages(ctx context.Context, projectID, userID string) error
	RemoveContent(ctx context.Context, contentItemID string) error
	ListProjectPayments(ctx context.Context, projectID string) ([]model.Payment, error)
}

type adminService struct {
	projects     repository.ProjectRepository
	content      repository.ContentRepository
	payments     repository.PaymentRepository
	entitlements repository.EntitlementRepository
	logger       zerolog.Logger
}

func NewAdminService(
	projects repository.ProjectRepository,
	content repository.ContentRepository,
	payments repository.PaymentRepository,
	entitlements repository.EntitlementRepository,
	logger zerolog.Logger,
) AdminService {
	lg := logger.With().Str("service", "AdminService").Logger()
	return &adminService{projects: projects, content: content, payments: payments, entitlements: entitlements, logger: lg}
}

func (s *adminService) RevokePackages(ctx context.Context, projectID, userID string) error {
	revoked, err := s.entitlements.RevokePackages(ctx, userID, projectID)
	if err != nil {
		return err
	}
	if !revoked {
		return fmt.Errorf("entitlement for user %s project %s: %w", userID, projectID, model.ErrNotFound)
	}
	s.logger.Warn().Str("user_id", userID).Str("project_id", projectID).Msg("Package entitlement revoked by admin")
	return nil
}

func (s *adminService) RemoveContent(ctx context.Context, contentItemID string) error {
	deleted, err := s.content.DeleteContentItem(ctx, contentItemID)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("content item %s: %w", contentItemID, model.ErrNotFound)
	}
	s.logger.Warn().Str("content_item_id", contentItemID).Msg("Content item removed by admin")
	return nil
}

func (s *adminService) ListProjectPayments(ctx context.Context, projectID string) ([]model.Payment, error) {
	project, err := s.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", projectID, model.ErrNotFound)
	}
	return s.payments.ListPaymentsByProject(ctx, projectID)
}
