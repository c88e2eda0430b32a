package model

import "time"

const SelectionTypeFree = "free"

// Selection records a free grant of one content item to one user.
// At most one exists per (user, content item).
type Selection struct {
	SelectionID   string      `db:"id" json:"selection_id"`
	UserID        string      `db:"user_id" json:"user_id"`
	ProjectID     string      `db:"project_id" json:"project_id"`
	ContentItemID string      `db:"content_item_id" json:"content_item_id"`
	ContentType   ContentType `db:"content_type" json:"content_type"`
	SelectionType string      `db:"selection_type" json:"selection_type"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
}

// FreeSelectionSummary reports used and allowed free selections for one user in one project.
type FreeSelectionSummary struct {
	ProjectID     string `json:"project_id"`
	VideosUsed    int    `json:"videos_used"`
	VideoLimit    int    `json:"video_limit"`
	HeadshotsUsed int    `json:"headshots_used"`
	HeadshotLimit int    `json:"headshot_limit"`
}
