package service

import (
	"context"
	"fmt"

	"studiovault/internal/access"
	"studiovault/internal/model"
	"studiovault/internal/repository"

	"github.com/rs/zerolog"
)

const downloadHistoryLimit = 100

// DownloadGrant describes a permitted download for the file-serving layer.
type DownloadGrant struct {
	Download *model.Download
	Item     *model.ContentItem
	Reason   access.Reason
}

// DownloadService gates every download on a fresh access decision and audits it.
type DownloadService interface {
	// Download returns model.ErrForbidden when the user has no access.
	Download(ctx context.Context, userID, contentItemID string) (*DownloadGrant, error)
	History(ctx context.Context, userID string) ([]model.Download, error)
}

type downloadService struct {
	content   repository.ContentRepository
	downloads repository.DownloadRepository
	access    AccessService
	logger    zerolog.Logger
}

func NewDownloadService(content repository.ContentRepository, downloads repository.DownloadRepository, access AccessService, logger zerolog.Logger) DownloadService {
	lg := logger.With().Str("service", "DownloadService").Logger()
	return &downloadService{content: content, downloads: downloads, access: access, logger: lg}
}

func (s *downloadService) Download(ctx context.Context, userID, contentItemID string) (*DownloadGrant, error) {
	item, err := s.content.GetContentItemByID(ctx, contentItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("content item %s: %w", contentItemID, model.ErrNotFound)
	}
	allowed, reason, err := s.access.Explain(ctx, userID, item)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, model.ErrForbidden
	}
	d := &model.Download{UserID: userID, ContentItemID: contentItemID}
	if err := s.downloads.RecordDownload(ctx, d); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("user_id", userID).
		Str("content_item_id", contentItemID).
		Str("reason", string(reason)).
		Msg("Download granted")
	return &DownloadGrant{Download: d, Item: item, Reason: reason}, nil
}

func (s *downloadService) History(ctx context.Context, userID string) ([]model.Download, error) {
	return s.downloads.ListDownloadsByUser(ctx, userID, downloadHistoryLimit)
}
