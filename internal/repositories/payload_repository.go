package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// PayloadRepository tracks which webhook payload envelopes have been seen and
// processed, keying on the payload's own _id for replay idempotency.
type PayloadRepository interface {
	Insert(ctx context.Context, payloadID, payloadType string) (bool, error)
	MarkProcessed(ctx context.Context, payloadID string, at time.Time) error
}

// PayloadRepo is a sqlx implementation of PayloadRepository.
type PayloadRepo struct {
	db *sqlx.DB
}

// NewPayloadRepo constructs a PayloadRepo.
func NewPayloadRepo(db *sqlx.DB) *PayloadRepo {
	return &PayloadRepo{db: db}
}

// Insert records the envelope. Returns false when the id was already seen.
func (r *PayloadRepo) Insert(ctx context.Context, payloadID, payloadType string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO webhook_payloads (payload_id, payload_type)
        VALUES ($1, $2) ON CONFLICT (payload_id) DO NOTHING`, payloadID, payloadType)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkProcessed flags the envelope once its contents were applied.
func (r *PayloadRepo) MarkProcessed(ctx context.Context, payloadID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE webhook_payloads SET processed=TRUE, processed_at=$2 WHERE payload_id=$1`, payloadID, at)
	return err
}
