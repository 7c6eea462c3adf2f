package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"wachat-service/internal/models"
)

var (
	ErrMessageNotFound  = errors.New("message not found")
	ErrDuplicateMessage = errors.New("duplicate message")
)

const messageColumns = `id, message_id, conversation_id, wa_id, from_number, to_number, sender_name,
    message_type, body, media_url, caption, filename, size, reply_to, status, delivered_at, read_at,
    deleted_for_everyone, deleted_for_everyone_at, from_api, created_at`

// MessageRepository defines interactions for chat messages. Both the live
// delivery path and webhook ingestion funnel through Create, so idempotency
// and status monotonicity are enforced here once.
type MessageRepository interface {
	Create(ctx context.Context, msg models.Message) (models.Message, error)
	GetMessage(ctx context.Context, messageID string) (models.Message, error)
	AppendStatus(ctx context.Context, messageID string, status string, at time.Time) error
	SoftDeleteForViewer(ctx context.Context, messageID string, viewerID string) error
	MarkDeletedForEveryone(ctx context.Context, messageID string, at time.Time) error
	ListByConversation(ctx context.Context, conversationID string, viewerID string, page, pageSize int) ([]models.Message, int, error)
	ListChronological(ctx context.Context, conversationID string) ([]models.Message, error)
	Search(ctx context.Context, viewerID string, query string, conversationID string, page, pageSize int) ([]models.Message, int, error)
	MarkConversationDelivered(ctx context.Context, conversationID string, viewerID string, at time.Time) (int64, error)
	MarkConversationRead(ctx context.Context, conversationID string, viewerID string, at time.Time) (int64, error)
	HasConversationAccess(ctx context.Context, conversationID string, viewerID string) (bool, error)
	DeleteByConversation(ctx context.Context, conversationID string) error
	ListConversationSummaries(ctx context.Context, viewerID string) ([]models.ConversationSummary, error)
	LatestVisibleMessage(ctx context.Context, conversationID string, viewerID string) (models.Message, error)
	UnreadCount(ctx context.Context, conversationID string, viewerID string) (int, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create inserts a message. The unique message_id constraint gives both
// producers idempotent-insert semantics; a replayed external id surfaces as
// ErrDuplicateMessage without creating a second row.
func (r *MessageRepo) Create(ctx context.Context, msg models.Message) (models.Message, error) {
	query := `INSERT INTO messages (message_id, conversation_id, wa_id, from_number, to_number, sender_name,
            message_type, body, media_url, caption, filename, size, reply_to, status, delivered_at, read_at, from_api, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
        RETURNING ` + messageColumns
	var created models.Message
	err := r.db.QueryRowxContext(ctx, query,
		msg.MessageID, msg.ConversationID, msg.WaID, msg.FromNumber, msg.ToNumber, msg.SenderName,
		msg.MessageType, msg.Body, msg.MediaURL, msg.Caption, msg.Filename, msg.Size, msg.ReplyTo,
		msg.Status, msg.DeliveredAt, msg.ReadAt, msg.FromAPI, msg.CreatedAt,
	).StructScan(&created)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return models.Message{}, ErrDuplicateMessage
		}
		return models.Message{}, err
	}
	return created, nil
}

// GetMessage retrieves a single message by its external id.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE message_id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// AppendStatus advances the delivery status in a single conditional update.
// Transports redeliver status callbacks out of order, so a non-forward
// transition is a silent no-op rather than an error; status never regresses.
// Failed is terminal and only reachable from sent. Read backfills
// delivered_at when the delivery ack was never seen.
func (r *MessageRepo) AppendStatus(ctx context.Context, messageID string, status string, at time.Time) error {
	query := `UPDATE messages SET
            status = $2,
            delivered_at = CASE WHEN $2 IN ('delivered','read') AND delivered_at IS NULL THEN $3 ELSE delivered_at END,
            read_at = CASE WHEN $2 = 'read' AND read_at IS NULL THEN $3 ELSE read_at END
        WHERE message_id = $1
          AND status NOT IN ('failed','read')
          AND (($2 = 'failed' AND status = 'sent')
            OR ($2 <> 'failed'
                AND (CASE status WHEN 'sent' THEN 0 WHEN 'delivered' THEN 1 ELSE 2 END)
                  < (CASE $2 WHEN 'sent' THEN 0 WHEN 'delivered' THEN 1 ELSE 2 END)))`
	res, err := r.db.ExecContext(ctx, query, messageID, status, at)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM messages WHERE message_id=$1)`, messageID); err != nil {
		return err
	}
	if !exists {
		return ErrMessageNotFound
	}
	return nil
}

// SoftDeleteForViewer records a per-viewer deletion. Repeat calls are no-ops
// and the entry is never visible to the other participant.
func (r *MessageRepo) SoftDeleteForViewer(ctx context.Context, messageID string, viewerID string) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO message_deletions (message_id, user_id) VALUES ($1, $2)
        ON CONFLICT (message_id, user_id) DO NOTHING`, messageID, viewerID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return ErrMessageNotFound
		}
		return err
	}
	_, err = res.RowsAffected()
	return err
}

// MarkDeletedForEveryone replaces content with the placeholder and flips the
// irreversible flag. Sender and time-window checks happen in the coordinator;
// the flag guard keeps concurrent requests from double-applying.
func (r *MessageRepo) MarkDeletedForEveryone(ctx context.Context, messageID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE messages SET
            message_type = 'deleted',
            body = $3,
            media_url = NULL, caption = NULL, filename = NULL, size = NULL,
            deleted_for_everyone = TRUE,
            deleted_for_everyone_at = $2
        WHERE message_id = $1 AND deleted_for_everyone = FALSE`, messageID, at, models.DeletedPlaceholder)
	return err
}

// ListByConversation returns one page of messages for display. Storage order
// is reverse chronological; the page is re-ordered to chronological before it
// is returned. Messages the viewer soft-deleted are filtered out unless they
// were deleted for everyone, which always shows the placeholder.
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID string, viewerID string, page, pageSize int) ([]models.Message, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	query := `SELECT ` + prefixed("m") + ` FROM messages m
        LEFT JOIN message_deletions d ON d.message_id = m.message_id AND d.user_id = $2
        WHERE m.conversation_id = $1 AND (d.user_id IS NULL OR m.deleted_for_everyone = TRUE)
        ORDER BY m.created_at DESC
        LIMIT $3 OFFSET $4`
	var msgs []models.Message
	if err := r.db.SelectContext(ctx, &msgs, query, conversationID, viewerID, pageSize, (page-1)*pageSize); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM messages WHERE conversation_id=$1`, conversationID); err != nil {
		return nil, 0, err
	}

	// Reverse the page into chronological order for delivery.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, total, nil
}

// ListChronological returns every message of a conversation, oldest first.
// Used by the transcript exporter.
func (r *MessageRepo) ListChronological(ctx context.Context, conversationID string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages
        WHERE conversation_id=$1 ORDER BY created_at ASC`, conversationID)
	return msgs, err
}

// Search matches body text case-insensitively, scoped to conversations the
// viewer participates in.
func (r *MessageRepo) Search(ctx context.Context, viewerID string, query string, conversationID string, page, pageSize int) ([]models.Message, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	where := `(from_number = $1 OR to_number = $1) AND body ILIKE '%' || $2 || '%'`
	args := []interface{}{viewerID, query}
	if conversationID != "" {
		where += ` AND conversation_id = $3`
		args = append(args, conversationID)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM messages WHERE `+where, args...); err != nil {
		return nil, 0, err
	}

	limitPos := len(args) + 1
	listQuery := `SELECT ` + messageColumns + ` FROM messages WHERE ` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(limitPos) + ` OFFSET $` + strconv.Itoa(limitPos+1)
	args = append(args, pageSize, (page-1)*pageSize)

	var msgs []models.Message
	if err := r.db.SelectContext(ctx, &msgs, listQuery, args...); err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

// MarkConversationDelivered bulk-advances sent messages addressed to the
// viewer.
func (r *MessageRepo) MarkConversationDelivered(ctx context.Context, conversationID string, viewerID string, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET status='delivered', delivered_at=COALESCE(delivered_at, $3)
        WHERE conversation_id=$1 AND to_number=$2 AND status='sent'`, conversationID, viewerID, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkConversationRead bulk-advances all eligible messages addressed to the
// viewer, backfilling delivered_at.
func (r *MessageRepo) MarkConversationRead(ctx context.Context, conversationID string, viewerID string, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET status='read', read_at=COALESCE(read_at, $3),
            delivered_at=COALESCE(delivered_at, $3)
        WHERE conversation_id=$1 AND to_number=$2 AND status IN ('sent','delivered')`, conversationID, viewerID, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// HasConversationAccess reports whether the viewer participates in the
// conversation, derived from message membership.
func (r *MessageRepo) HasConversationAccess(ctx context.Context, conversationID string, viewerID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM messages
        WHERE conversation_id=$1 AND (from_number=$2 OR to_number=$2))`, conversationID, viewerID)
	return exists, err
}

// DeleteByConversation removes every message of a conversation. Used by the
// delete- and clear-conversation bulk operations.
func (r *MessageRepo) DeleteByConversation(ctx context.Context, conversationID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id=$1`, conversationID)
	return err
}

// ListConversationSummaries aggregates the viewer's conversations with the
// last message and unread count, most recent first.
func (r *MessageRepo) ListConversationSummaries(ctx context.Context, viewerID string) ([]models.ConversationSummary, error) {
	type lastRow struct {
		ConversationID string    `db:"conversation_id"`
		Body           string    `db:"body"`
		MessageType    string    `db:"message_type"`
		Status         string    `db:"status"`
		CreatedAt      time.Time `db:"created_at"`
	}
	var lasts []lastRow
	err := r.db.SelectContext(ctx, &lasts, `SELECT DISTINCT ON (conversation_id)
            conversation_id, body, message_type, status, created_at
        FROM messages
        WHERE from_number=$1 OR to_number=$1
        ORDER BY conversation_id, created_at DESC`, viewerID)
	if err != nil {
		return nil, err
	}

	type unreadRow struct {
		ConversationID string `db:"conversation_id"`
		Unread         int    `db:"unread"`
	}
	var unreads []unreadRow
	err = r.db.SelectContext(ctx, &unreads, `SELECT conversation_id, COUNT(*) AS unread
        FROM messages
        WHERE to_number=$1 AND status IN ('sent','delivered')
        GROUP BY conversation_id`, viewerID)
	if err != nil {
		return nil, err
	}
	unreadByConv := make(map[string]int, len(unreads))
	for _, row := range unreads {
		unreadByConv[row.ConversationID] = row.Unread
	}

	summaries := make([]models.ConversationSummary, 0, len(lasts))
	for _, row := range lasts {
		summaries = append(summaries, models.ConversationSummary{
			ConversationID:    row.ConversationID,
			LastMessage:       row.Body,
			LastMessageTime:   row.CreatedAt,
			LastMessageType:   row.MessageType,
			LastMessageStatus: row.Status,
			UnreadCount:       unreadByConv[row.ConversationID],
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastMessageTime.After(summaries[j].LastMessageTime)
	})
	return summaries, nil
}

// LatestVisibleMessage returns the most recent message the viewer has not
// soft-deleted.
func (r *MessageRepo) LatestVisibleMessage(ctx context.Context, conversationID string, viewerID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+prefixed("m")+` FROM messages m
        LEFT JOIN message_deletions d ON d.message_id = m.message_id AND d.user_id = $2
        WHERE m.conversation_id = $1 AND (d.user_id IS NULL OR m.deleted_for_everyone = TRUE)
        ORDER BY m.created_at DESC LIMIT 1`, conversationID, viewerID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// UnreadCount counts messages addressed to the viewer that are not yet read,
// excluding ones the viewer soft-deleted.
func (r *MessageRepo) UnreadCount(ctx context.Context, conversationID string, viewerID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages m
        LEFT JOIN message_deletions d ON d.message_id = m.message_id AND d.user_id = $2
        WHERE m.conversation_id = $1 AND m.to_number = $2 AND m.status IN ('sent','delivered')
          AND d.user_id IS NULL`, conversationID, viewerID)
	return count, err
}

func prefixed(alias string) string {
	return alias + `.id, ` + alias + `.message_id, ` + alias + `.conversation_id, ` + alias + `.wa_id, ` +
		alias + `.from_number, ` + alias + `.to_number, ` + alias + `.sender_name, ` + alias + `.message_type, ` +
		alias + `.body, ` + alias + `.media_url, ` + alias + `.caption, ` + alias + `.filename, ` + alias + `.size, ` +
		alias + `.reply_to, ` + alias + `.status, ` + alias + `.delivered_at, ` + alias + `.read_at, ` +
		alias + `.deleted_for_everyone, ` + alias + `.deleted_for_everyone_at, ` + alias + `.from_api, ` + alias + `.created_at`
}
