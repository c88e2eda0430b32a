package repository

import (
	"context"
	"fmt"

	"studiovault/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository interface {
	// UpsertUser creates the profile on first sight of a token subject; an existing role is kept.
	UpsertUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepo{pool: pool}
}

func (r *userRepo) UpsertUser(ctx context.Context, u *model.User) error {
	const q = `
		INSERT INTO users (id, email, role)
		VALUES ($1, $2, 'user')
		ON CONFLICT (id) DO UPDATE SET email = COALESCE(NULLIF(EXCLUDED.email, ''), users.email)
		RETURNING id, email, role, created_at
	`
	if err := r.pool.QueryRow(ctx, q, u.UserID, u.Email).Scan(&u.UserID, &u.Email, &u.Role, &u.CreatedAt); err != nil {
		return fmt.Errorf("upsert user %s: %w", u.UserID, err)
	}
	return nil
}

// GetUserByID returns nil, nil when the user does not exist.
func (r *userRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	const q = `SELECT id, email, role, created_at FROM users WHERE id = $1`
	var u model.User
	if err := r.pool.QueryRow(ctx, q, id).Scan(&u.UserID, &u.Email, &u.Role, &u.CreatedAt); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch user %s: %w", id, err)
	}
	return &u, nil
}
