package repositories

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"wachat-service/internal/models"
)

var (
	ErrAlreadyBlocked = errors.New("user already blocked")
	ErrNotBlocked     = errors.New("user not blocked")
)

// BlockRepository persists directional block relationships. Symmetric
// enforcement (either direction blocks a send) lives at the check site.
type BlockRepository interface {
	Block(ctx context.Context, by, target, reason string) error
	Unblock(ctx context.Context, by, target string) error
	IsBlockedEitherDirection(ctx context.Context, a, b string) (bool, error)
	ListBlocked(ctx context.Context, by string) ([]models.BlockRelation, error)
}

// BlockRepo is a sqlx implementation of BlockRepository.
type BlockRepo struct {
	db *sqlx.DB
}

// NewBlockRepo constructs a BlockRepo.
func NewBlockRepo(db *sqlx.DB) *BlockRepo {
	return &BlockRepo{db: db}
}

// Block inserts the ordered pair, failing when it already exists.
func (r *BlockRepo) Block(ctx context.Context, by, target, reason string) error {
	if reason == "" {
		reason = "User blocked"
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO blocked_users (blocked_by, blocked_user, reason)
        VALUES ($1, $2, $3)`, by, target, reason)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrAlreadyBlocked
		}
		return err
	}
	return nil
}

// Unblock removes the ordered pair, failing when it is absent.
func (r *BlockRepo) Unblock(ctx context.Context, by, target string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blocked_users WHERE blocked_by=$1 AND blocked_user=$2`, by, target)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotBlocked
	}
	return nil
}

// IsBlockedEitherDirection is the pre-send check: a block in either direction
// disallows the message.
func (r *BlockRepo) IsBlockedEitherDirection(ctx context.Context, a, b string) (bool, error) {
	var blocked bool
	err := r.db.GetContext(ctx, &blocked, `SELECT EXISTS(SELECT 1 FROM blocked_users
        WHERE (blocked_by=$1 AND blocked_user=$2) OR (blocked_by=$2 AND blocked_user=$1))`, a, b)
	return blocked, err
}

// ListBlocked returns everyone the user blocked, newest first.
func (r *BlockRepo) ListBlocked(ctx context.Context, by string) ([]models.BlockRelation, error) {
	var blocks []models.BlockRelation
	err := r.db.SelectContext(ctx, &blocks, `SELECT blocked_by, blocked_user, blocked_at, reason
        FROM blocked_users WHERE blocked_by=$1 ORDER BY blocked_at DESC`, by)
	return blocks, err
}
