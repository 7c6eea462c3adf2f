package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"wachat-service/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = `wa_id, name, email, profile_image, is_online, last_seen, created_at`

// UserRepository resolves and upserts phone-identified users.
type UserRepository interface {
	GetByWaID(ctx context.Context, waID string) (models.User, error)
	Upsert(ctx context.Context, waID, name string, at time.Time) (models.User, error)
	SetOnline(ctx context.Context, waID string, online bool, at time.Time) error
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// GetByWaID fetches a user by identifier.
func (r *UserRepo) GetByWaID(ctx context.Context, waID string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE wa_id=$1`, waID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// Upsert creates the user at first sighting or refreshes name and last_seen.
// Webhook contacts funnel through here, so replayed payloads stay idempotent.
func (r *UserRepo) Upsert(ctx context.Context, waID, name string, at time.Time) (models.User, error) {
	if name == "" {
		name = "Unknown User"
	}
	var user models.User
	err := r.db.QueryRowxContext(ctx, `INSERT INTO users (wa_id, name, last_seen)
        VALUES ($1, $2, $3)
        ON CONFLICT (wa_id) DO UPDATE SET name = EXCLUDED.name, last_seen = EXCLUDED.last_seen
        RETURNING `+userColumns, waID, name, at).StructScan(&user)
	return user, err
}

// SetOnline persists the online flag and last-seen timestamp on websocket
// connect/disconnect.
func (r *UserRepo) SetOnline(ctx context.Context, waID string, online bool, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET is_online=$2, last_seen=$3 WHERE wa_id=$1`, waID, online, at)
	return err
}
