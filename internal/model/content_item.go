package model

import "time"

// ContentType is the kind of a content item.
type ContentType string

const (
	ContentTypeVideo    ContentType = "video"
	ContentTypeHeadshot ContentType = "headshot"
)

// Valid reports whether t is a known content type.
func (t ContentType) Valid() bool {
	return t == ContentTypeVideo || t == ContentTypeHeadshot
}

// ContentItem belongs to exactly one project. Only metadata fields
// (thumbnail, dimensions) change after creation.
type ContentItem struct {
	ContentItemID string      `db:"id" json:"content_item_id"`
	ProjectID     string      `db:"project_id" json:"project_id"`
	OwnerUserID   string      `db:"owner_user_id" json:"owner_user_id"`
	Type          ContentType `db:"type" json:"type"`
	Title         string      `db:"title" json:"title"`
	PriceCents    int64       `db:"price_cents" json:"price_cents"`
	FilePath      string      `db:"file_path" json:"file_path"`
	ThumbnailURL  *string     `db:"thumbnail_url" json:"thumbnail_url,omitempty"`
	Width         *int        `db:"width" json:"width,omitempty"`
	Height        *int        `db:"height" json:"height,omitempty"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
}
