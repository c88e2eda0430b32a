package dto

import "time"

// SelectFreeRequest is the optional body of a free selection. When ProjectID
// is set it must match the item's project.
type SelectFreeRequest struct {
	ProjectID string `json:"projectId,omitempty" validate:"omitempty,uuid"`
}

// SelectionResponseDTO is returned for a free selection.
type SelectionResponseDTO struct {
	SelectionID   string    `json:"selectionId"`
	ProjectID     string    `json:"projectId"`
	ContentItemID string    `json:"contentItemId"`
	ContentType   string    `json:"contentType"`
	SelectionType string    `json:"selectionType"`
	CreatedAt     time.Time `json:"createdAt"`
}

// AccessResponseDTO answers an access or package ownership query.
type AccessResponseDTO struct {
	HasAccess bool   `json:"hasAccess"`
	Reason    string `json:"reason,omitempty"`
}

// DownloadResponseDTO tells the file-serving layer what to serve.
type DownloadResponseDTO struct {
	DownloadID    string    `json:"downloadId"`
	ContentItemID string    `json:"contentItemId"`
	Title         string    `json:"title"`
	FilePath      string    `json:"filePath"`
	Reason        string    `json:"reason"`
	CreatedAt     time.Time `json:"createdAt"`
}

// DownloadHistoryItemDTO is one entry of the caller's download history.
type DownloadHistoryItemDTO struct {
	DownloadID    string    `json:"downloadId"`
	ContentItemID string    `json:"contentItemId"`
	CreatedAt     time.Time `json:"createdAt"`
}

// FreeSelectionSummaryDTO reports free selection usage in one project.
type FreeSelectionSummaryDTO struct {
	ProjectID     string `json:"projectId"`
	VideosUsed    int    `json:"videosUsed"`
	VideoLimit    int    `json:"videoLimit"`
	HeadshotsUsed int    `json:"headshotsUsed"`
	HeadshotLimit int    `json:"headshotLimit"`
}
