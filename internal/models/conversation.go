package models

import (
	"database/sql"
	"time"
)

// Conversation holds per-pair metadata. Archive and mute state live in
// per-participant entry tables; the aggregate "is archived"/"is muted"
// booleans are computed from those entries, never stored.
type Conversation struct {
	ConversationID string    `db:"conversation_id" json:"conversation_id"`
	ParticipantOne string    `db:"participant_one" json:"participant_one"`
	ParticipantTwo string    `db:"participant_two" json:"participant_two"`
	CreatedBy      string    `db:"created_by" json:"created_by"`
	LastActivity   time.Time `db:"last_activity" json:"last_activity"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Participants returns both participant identifiers.
func (c Conversation) Participants() []string {
	return []string{c.ParticipantOne, c.ParticipantTwo}
}

// HasParticipant reports whether waID belongs to the conversation.
func (c Conversation) HasParticipant(waID string) bool {
	return c.ParticipantOne == waID || c.ParticipantTwo == waID
}

// OtherParticipant returns the peer of waID.
func (c Conversation) OtherParticipant(waID string) string {
	if c.ParticipantOne == waID {
		return c.ParticipantTwo
	}
	return c.ParticipantOne
}

// ArchiveEntry is one participant's archive record for a conversation.
type ArchiveEntry struct {
	ConversationID string    `db:"conversation_id" json:"conversation_id"`
	UserID         string    `db:"user_id" json:"user_id"`
	ArchivedAt     time.Time `db:"archived_at" json:"archived_at"`
}

// MuteEntry is one participant's mute record. MutedUntil is null for an
// indefinite mute.
type MuteEntry struct {
	ConversationID string       `db:"conversation_id" json:"conversation_id"`
	UserID         string       `db:"user_id" json:"user_id"`
	MutedAt        time.Time    `db:"muted_at" json:"muted_at"`
	MutedUntil     sql.NullTime `db:"muted_until" json:"muted_until,omitempty"`
}

// ConversationSummary is the API-facing view of one conversation for a viewer.
type ConversationSummary struct {
	ConversationID    string     `json:"conversation_id"`
	User              *User      `json:"user,omitempty"`
	LastMessage       string     `json:"last_message"`
	LastMessageTime   time.Time  `json:"last_message_time"`
	LastMessageType   string     `json:"last_message_type"`
	LastMessageStatus string     `json:"last_message_status"`
	UnreadCount       int        `json:"unread_count"`
	IsArchived        bool       `json:"is_archived"`
	ArchivedAt        *time.Time `json:"archived_at,omitempty"`
	IsMuted           bool       `json:"is_muted"`
}
