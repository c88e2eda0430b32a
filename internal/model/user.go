package model

import "time"

// Roles carried in the JWT role claim and mirrored on the users table.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an authenticated customer of the content library.
// Free-selection usage is derived from the selections table, not stored here.
type User struct {
	UserID    string    `db:"id" json:"user_id"`
	Email     string    `db:"email" json:"email"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// IsAdmin reports whether the user holds the admin capability.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
