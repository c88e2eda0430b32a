package service

import (
	"context"
	"errors"
	"fmt"

	"studiovault/internal/model"
	"studiovault/internal/repository"

	"github.com/rs/zerolog"
)

// SelectionService enforces the per-project free selection quota.
type SelectionService interface {
	CanSelectFree(ctx context.Context, userID, projectID string, contentType model.ContentType) (bool, error)
	// SelectFree grants the item for free. An empty projectID means the item's own project.
	// On model.ErrAlreadySelected the existing selection is returned alongside the error.
	SelectFree(ctx context.Context, userID, projectID, contentItemID string) (*model.Selection, error)
	Summary(ctx context.Context, userID, projectID string) (*model.FreeSelectionSummary, error)
}

type selectionService struct {
	users      repository.UserRepository
	projects   repository.ProjectRepository
	content    repository.ContentRepository
	selections repository.SelectionRepository
	logger     zerolog.Logger
}

func NewSelectionService(
	users repository.UserRepository,
	projects repository.ProjectRepository,
	content repository.ContentRepository,
	selections repository.SelectionRepository,
	logger zerolog.Logger,
) SelectionService {
	lg := logger.With().Str("service", "SelectionService").Logger()
	return &selectionService{users: users, projects: projects, content: content, selections: selections, logger: lg}
}

func (s *selectionService) getProject(ctx context.Context, projectID string) (*model.Project, error) {
	project, err := s.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", projectID, model.ErrNotFound)
	}
	return project, nil
}

func (s *selectionService) CanSelectFree(ctx context.Context, userID, projectID string, contentType model.ContentType) (bool, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return false, err
	}
	return s.canSelect(ctx, userID, project, contentType)
}

func (s *selectionService) canSelect(ctx context.Context, userID string, project *model.Project, contentType model.ContentType) (bool, error) {
	limit := project.FreeLimit(contentType)
	if limit <= 0 {
		return false, nil
	}
	used, err := s.selections.CountFreeSelections(ctx, userID, project.ProjectID, contentType)
	if err != nil {
		return false, err
	}
	return used < limit, nil
}

func (s *selectionService) SelectFree(ctx context.Context, userID, projectID, contentItemID string) (*model.Selection, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", userID, model.ErrNotFound)
	}
	item, err := s.content.GetContentItemByID(ctx, contentItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("content item %s: %w", contentItemID, model.ErrNotFound)
	}
	if projectID == "" {
		projectID = item.ProjectID
	}
	if item.ProjectID != projectID {
		return nil, model.ErrProjectMismatch
	}
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	existing, err := s.selections.GetSelection(ctx, userID, contentItemID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, model.ErrAlreadySelected
	}
	ok, err := s.canSelect(ctx, userID, project, item.Type)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrLimitReached
	}

	// The store re-checks both conditions atomically; the checks above only
	// give cheap early answers.
	sel := &model.Selection{
		UserID:        userID,
		ProjectID:     projectID,
		ContentItemID: contentItemID,
		ContentType:   item.Type,
	}
	if err := s.selections.CreateFreeSelection(ctx, sel, project.FreeLimit(item.Type)); err != nil {
		if errors.Is(err, model.ErrAlreadySelected) {
			existing, getErr := s.selections.GetSelection(ctx, userID, contentItemID)
			if getErr != nil {
				return nil, getErr
			}
			return existing, model.ErrAlreadySelected
		}
		return nil, err
	}
	s.logger.Info().
		Str("user_id", userID).
		Str("project_id", projectID).
		Str("content_item_id", contentItemID).
		Str("content_type", string(item.Type)).
		Msg("Free selection recorded")
	return sel, nil
}

func (s *selectionService) Summary(ctx context.Context, userID, projectID string) (*model.FreeSelectionSummary, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	videos, err := s.selections.CountFreeSelections(ctx, userID, projectID, model.ContentTypeVideo)
	if err != nil {
		return nil, err
	}
	headshots, err := s.selections.CountFreeSelections(ctx, userID, projectID, model.ContentTypeHeadshot)
	if err != nil {
		return nil, err
	}
	return &model.FreeSelectionSummary{
		ProjectID:     projectID,
		VideosUsed:    videos,
		VideoLimit:    project.FreeVideoLimit,
		HeadshotsUsed: headshots,
		HeadshotLimit: project.FreeHeadshotLimit,
	}, nil
}
