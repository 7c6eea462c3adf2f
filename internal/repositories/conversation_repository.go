package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"wachat-service/internal/models"
)

var ErrConversationNotFound = errors.New("conversation not found")

const conversationColumns = `conversation_id, participant_one, participant_two, created_by, last_activity, created_at`

// ArchivedConversation joins a conversation with the viewer's archive entry.
type ArchivedConversation struct {
	models.Conversation
	ArchivedAt time.Time `db:"archived_at"`
}

// ConversationRepository abstracts per-conversation metadata persistence.
// Archive and mute state are per-participant set memberships; aggregate flags
// are always computed from those sets.
type ConversationRepository interface {
	GetOrCreate(ctx context.Context, conversationID string, participantOne, participantTwo, createdBy string, at time.Time) (models.Conversation, error)
	Get(ctx context.Context, conversationID string) (models.Conversation, error)
	SetArchived(ctx context.Context, conversationID string, userID string, archived bool, at time.Time) error
	SetMuted(ctx context.Context, conversationID string, userID string, muted bool, until *time.Time, at time.Time) error
	IsMuted(ctx context.Context, conversationID string, userID string, now time.Time) (bool, error)
	ListArchived(ctx context.Context, userID string) ([]ArchivedConversation, error)
	Delete(ctx context.Context, conversationID string) error
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// GetOrCreate upserts the conversation row and bumps last_activity on every
// call, so the upsert doubles as the activity touch on the send path.
func (r *ConversationRepo) GetOrCreate(ctx context.Context, conversationID string, participantOne, participantTwo, createdBy string, at time.Time) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.QueryRowxContext(ctx, `INSERT INTO conversations
            (conversation_id, participant_one, participant_two, created_by, last_activity)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (conversation_id) DO UPDATE SET last_activity = EXCLUDED.last_activity
        RETURNING `+conversationColumns, conversationID, participantOne, participantTwo, createdBy, at).
		StructScan(&conv)
	return conv, err
}

// Get fetches a conversation by id.
func (r *ConversationRepo) Get(ctx context.Context, conversationID string) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM conversations WHERE conversation_id=$1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// SetArchived toggles the participant's archive entry. Both directions are
// idempotent: re-archiving keeps the original entry, un-archiving an absent
// entry is a no-op.
func (r *ConversationRepo) SetArchived(ctx context.Context, conversationID string, userID string, archived bool, at time.Time) error {
	if archived {
		_, err := r.db.ExecContext(ctx, `INSERT INTO conversation_archives (conversation_id, user_id, archived_at)
            VALUES ($1, $2, $3) ON CONFLICT (conversation_id, user_id) DO NOTHING`, conversationID, userID, at)
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM conversation_archives WHERE conversation_id=$1 AND user_id=$2`, conversationID, userID)
	return err
}

// SetMuted toggles the participant's mute entry. until is nil for an
// indefinite mute.
func (r *ConversationRepo) SetMuted(ctx context.Context, conversationID string, userID string, muted bool, until *time.Time, at time.Time) error {
	if muted {
		_, err := r.db.ExecContext(ctx, `INSERT INTO conversation_mutes (conversation_id, user_id, muted_at, muted_until)
            VALUES ($1, $2, $3, $4) ON CONFLICT (conversation_id, user_id) DO NOTHING`, conversationID, userID, at, until)
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM conversation_mutes WHERE conversation_id=$1 AND user_id=$2`, conversationID, userID)
	return err
}

// IsMuted reports whether the participant has an active mute entry.
func (r *ConversationRepo) IsMuted(ctx context.Context, conversationID string, userID string, now time.Time) (bool, error) {
	var muted bool
	err := r.db.GetContext(ctx, &muted, `SELECT EXISTS(SELECT 1 FROM conversation_mutes
        WHERE conversation_id=$1 AND user_id=$2 AND (muted_until IS NULL OR muted_until > $3))`, conversationID, userID, now)
	return muted, err
}

// ListArchived returns conversations the participant archived, most recently
// active first.
func (r *ConversationRepo) ListArchived(ctx context.Context, userID string) ([]ArchivedConversation, error) {
	var convs []ArchivedConversation
	err := r.db.SelectContext(ctx, &convs, `SELECT c.conversation_id, c.participant_one, c.participant_two,
            c.created_by, c.last_activity, c.created_at, a.archived_at
        FROM conversations c
        JOIN conversation_archives a ON a.conversation_id = c.conversation_id AND a.user_id = $1
        ORDER BY c.last_activity DESC`, userID)
	return convs, err
}

// Delete removes the conversation row; archive and mute entries cascade.
func (r *ConversationRepo) Delete(ctx context.Context, conversationID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE conversation_id=$1`, conversationID)
	return err
}
