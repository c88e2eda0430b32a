package service

import (
	"context"
	"fmt"

	"studiovault/internal/access"
	"studiovault/internal/catalog"
	"studiovault/internal/model"
	"studiovault/internal/repository"
)

// AccessService answers download-permission questions from live entitlement state.
// Results are never cached: a purchase may complete between page load and click.
type AccessService interface {
	// HasAccess reports whether the user may download the item. Unknown users or items are denied.
	HasAccess(ctx context.Context, userID, contentItemID string) (bool, error)
	// Explain is HasAccess plus the rule that decided it.
	Explain(ctx context.Context, userID string, item *model.ContentItem) (bool, access.Reason, error)
	// HasPackage reports whether the user owns pkg in the project, directly or via a superseding package.
	HasPackage(ctx context.Context, userID, projectID string, pkg model.PackageType) (bool, error)
}

type accessService struct {
	users        repository.UserRepository
	content      repository.ContentRepository
	selections   repository.SelectionRepository
	entitlements repository.EntitlementRepository
	catalog      *catalog.Catalog
}

func NewAccessService(
	users repository.UserRepository,
	content repository.ContentRepository,
	selections repository.SelectionRepository,
	entitlements repository.EntitlementRepository,
	cat *catalog.Catalog,
) AccessService {
	return &accessService{users: users, content: content, selections: selections, entitlements: entitlements, catalog: cat}
}

func (s *accessService) HasAccess(ctx context.Context, userID, contentItemID string) (bool, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}
	item, err := s.content.GetContentItemByID(ctx, contentItemID)
	if err != nil {
		return false, err
	}
	if item == nil {
		return false, nil
	}
	allowed, _, err := s.Explain(ctx, userID, item)
	return allowed, err
}

func (s *accessService) Explain(ctx context.Context, userID string, item *model.ContentItem) (bool, access.Reason, error) {
	in := access.Input{ContentType: item.Type, Covers: s.catalog.ScopeCovers}

	sel, err := s.selections.GetSelection(ctx, userID, item.ContentItemID)
	if err != nil {
		return false, access.ReasonDenied, fmt.Errorf("loading selection: %w", err)
	}
	in.HasSelection = sel != nil

	if !in.HasSelection {
		if in.HasPurchase, err = s.entitlements.HasPurchase(ctx, userID, item.ContentItemID); err != nil {
			return false, access.ReasonDenied, fmt.Errorf("loading purchase: %w", err)
		}
		if !in.HasPurchase {
			if in.Entitlement, err = s.entitlements.GetProjectEntitlement(ctx, userID, item.ProjectID); err != nil {
				return false, access.ReasonDenied, fmt.Errorf("loading entitlement: %w", err)
			}
		}
	}

	allowed, reason := access.Decide(in)
	return allowed, reason, nil
}

func (s *accessService) HasPackage(ctx context.Context, userID, projectID string, pkg model.PackageType) (bool, error) {
	if _, ok := s.catalog.Lookup(pkg); !ok {
		return false, model.ErrInvalidPackage
	}
	ent, err := s.entitlements.GetProjectEntitlement(ctx, userID, projectID)
	if err != nil {
		return false, err
	}
	return s.catalog.Owned(pkg, ent), nil
}
