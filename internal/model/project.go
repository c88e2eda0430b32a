package model

import "time"

// Project groups the content items delivered to one client.
type Project struct {
	ProjectID         string    `db:"id" json:"project_id"`
	Name              string    `db:"name" json:"name"`
	OwnerUserID       string    `db:"owner_user_id" json:"owner_user_id"`
	FreeVideoLimit    int       `db:"free_video_limit" json:"free_video_limit"`
	FreeHeadshotLimit int       `db:"free_headshot_limit" json:"free_headshot_limit"`
	// Package price overrides; nil means the catalog default applies.
	Additional3VideosPriceCents *int64    `db:"additional_3_videos_price_cents" json:"additional_3_videos_price_cents,omitempty"`
	AllContentPriceCents        *int64    `db:"all_content_price_cents" json:"all_content_price_cents,omitempty"`
	CreatedAt                   time.Time `db:"created_at" json:"created_at"`
}

// FreeLimit returns the number of free selections allowed for the given content type.
func (p *Project) FreeLimit(t ContentType) int {
	switch t {
	case ContentTypeVideo:
		return p.FreeVideoLimit
	case ContentTypeHeadshot:
		return p.FreeHeadshotLimit
	default:
		return 0
	}
}
