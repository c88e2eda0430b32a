package model

import "time"

// ProjectEntitlement holds the package flags a user owns in one project.
// Flags only flip back to false through an explicit admin revoke.
type ProjectEntitlement struct {
	UserID                 string    `db:"user_id" json:"user_id"`
	ProjectID              string    `db:"project_id" json:"project_id"`
	HasAdditional3Videos   bool      `db:"has_additional_3_videos" json:"has_additional_3_videos"`
	HasAllRemainingContent bool      `db:"has_all_remaining_content" json:"has_all_remaining_content"`
	UpdatedAt              time.Time `db:"updated_at" json:"updated_at"`
}

// Owns reports whether the flag for pkg is set.
func (e *ProjectEntitlement) Owns(pkg PackageType) bool {
	if e == nil {
		return false
	}
	switch pkg {
	case PackageAdditional3Videos:
		return e.HasAdditional3Videos
	case PackageAllRemainingContent:
		return e.HasAllRemainingContent
	default:
		return false
	}
}

// Download is an append-only audit record of a served file.
type Download struct {
	DownloadID    string    `db:"id" json:"download_id"`
	UserID        string    `db:"user_id" json:"user_id"`
	ContentItemID string    `db:"content_item_id" json:"content_item_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
