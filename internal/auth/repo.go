package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mercato-admin/mercato-admin/internal/shared"
)

// Repository provides account lookup and session bookkeeping.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
}

type repo struct {
	pool *pgxpool.Pool
}

// NewRepository creates a Postgres-backed auth repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repo{pool: pool}
}

func (r *repo) FindByUsername(ctx context.Context, username string) (*User, error) {
	query := `SELECT id, username, password_hash, is_active FROM accounts WHERE LOWER(username) = LOWER($1)`
	var u User
	err := r.pool.QueryRow(ctx, query, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	query := `INSERT INTO account_sessions (id, account_id, expires_at, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET account_id = $2, expires_at = $3`
	_, err := r.pool.Exec(ctx, query, id, userID, expiresAt, ip, ua)
	return err
}

func (r *repo) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM account_sessions WHERE id = $1`, id)
	return err
}
