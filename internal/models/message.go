package models

import (
	"database/sql"
	"time"
)

// Message statuses in lifecycle order. Failed is terminal and only reachable
// from sent.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
	StatusFailed    = "failed"
)

// Message kinds.
const (
	TypeText     = "text"
	TypeImage    = "image"
	TypeDocument = "document"
	TypeAudio    = "audio"
	TypeVideo    = "video"
	TypeDeleted  = "deleted"
)

// DeletedPlaceholder replaces the body of a message deleted for everyone.
const DeletedPlaceholder = "This message was deleted"

// Message is a single chat message. MessageID is the externally visible,
// globally unique identifier; ID is the storage row id.
type Message struct {
	ID                 int            `db:"id" json:"-"`
	MessageID          string         `db:"message_id" json:"message_id"`
	ConversationID     string         `db:"conversation_id" json:"conversation_id"`
	WaID               string         `db:"wa_id" json:"wa_id"`
	FromNumber         string         `db:"from_number" json:"from_number"`
	ToNumber           string         `db:"to_number" json:"to_number"`
	SenderName         string         `db:"sender_name" json:"sender_name"`
	MessageType        string         `db:"message_type" json:"message_type"`
	Body               string         `db:"body" json:"body"`
	MediaURL           sql.NullString `db:"media_url" json:"media_url,omitempty"`
	Caption            sql.NullString `db:"caption" json:"caption,omitempty"`
	Filename           sql.NullString `db:"filename" json:"filename,omitempty"`
	Size               sql.NullInt64  `db:"size" json:"size,omitempty"`
	ReplyTo            sql.NullString `db:"reply_to" json:"reply_to,omitempty"`
	Status             string         `db:"status" json:"status"`
	DeliveredAt        sql.NullTime   `db:"delivered_at" json:"delivered_at,omitempty"`
	ReadAt             sql.NullTime   `db:"read_at" json:"read_at,omitempty"`
	DeletedForEveryone bool           `db:"deleted_for_everyone" json:"deleted_for_everyone"`
	DeletedForEveryoneAt sql.NullTime `db:"deleted_for_everyone_at" json:"deleted_for_everyone_at,omitempty"`
	FromAPI            bool           `db:"from_api" json:"from_api"`
	CreatedAt          time.Time      `db:"created_at" json:"timestamp"`
}

// IsParticipant reports whether waID is the sender or recipient.
func (m Message) IsParticipant(waID string) bool {
	return m.FromNumber == waID || m.ToNumber == waID
}

// StatusRank orders statuses along the forward lifecycle. Unknown statuses
// rank below sent so they can never overwrite anything.
func StatusRank(status string) int {
	switch status {
	case StatusSent:
		return 0
	case StatusDelivered:
		return 1
	case StatusRead:
		return 2
	case StatusFailed:
		return 3
	default:
		return -1
	}
}

// ValidStatus reports whether status is one of the four lifecycle values.
func ValidStatus(status string) bool {
	return StatusRank(status) >= 0
}

// StatusAdvances reports whether moving from current to next is a forward
// transition. Failed is sticky and only reachable from sent. The store's
// conditional update in AppendStatus applies the same rule and stays
// authoritative under concurrent writers; callers use this to short-circuit
// before touching the store.
func StatusAdvances(current, next string) bool {
	if current == StatusFailed || current == StatusRead {
		return false
	}
	if next == StatusFailed {
		return current == StatusSent
	}
	return StatusRank(next) > StatusRank(current)
}
