package dto

import "time"

// UserCreateDTO is used for incoming registration requests. The user ID comes from the token.
type UserCreateDTO struct {
	Email string `json:"email" validate:"omitempty,email"`
}

// UserResponseDTO is returned in API responses
type UserResponseDTO struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}
