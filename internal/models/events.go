package models

import "time"

// Realtime event names broadcast through the hub.
const (
	EventNewMessage          = "new_message"
	EventMessageNotification = "message_notification"
	EventStatusUpdate        = "message_status_update"
	EventDeletedForEveryone  = "message_deleted_for_everyone"
	EventConversationDeleted = "conversation_deleted"
	EventConversationCleared = "conversation_cleared"
	EventMessagesRead        = "messages_read"
	EventUserTyping          = "user_typing"
	EventUserStopTyping      = "user_stop_typing"
	EventPresenceUpdate      = "user_presence_update"
)

// RealtimeEvent is the wire envelope written to websocket clients.
type RealtimeEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// NewMessagePayload accompanies EventNewMessage in a conversation room.
type NewMessagePayload struct {
	Message        *Message `json:"message"`
	ConversationID string   `json:"conversationId"`
}

// NotificationPayload goes to the recipient's personal channel.
type NotificationPayload struct {
	From           string    `json:"from"`
	Message        string    `json:"message"`
	ConversationID string    `json:"conversationId"`
	Timestamp      time.Time `json:"timestamp"`
}

// StatusUpdatePayload accompanies EventStatusUpdate.
type StatusUpdatePayload struct {
	MessageID string    `json:"messageId"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// DeletionPayload accompanies EventDeletedForEveryone.
type DeletionPayload struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
}

// ConversationPayload accompanies conversation-scoped lifecycle events.
type ConversationPayload struct {
	ConversationID string `json:"conversationId"`
}

// TypingPayload accompanies typing start/stop relays.
type TypingPayload struct {
	UserID         string `json:"userId"`
	UserName       string `json:"userName,omitempty"`
	WaID           string `json:"wa_id"`
	ConversationID string `json:"conversationId"`
}

// ReadReceiptPayload accompanies EventMessagesRead.
type ReadReceiptPayload struct {
	ReadBy         string    `json:"readBy"`
	ConversationID string    `json:"conversationId"`
	Timestamp      time.Time `json:"timestamp"`
}

// PresencePayload is broadcast to all clients on presence changes.
type PresencePayload struct {
	UserID   string    `json:"userId"`
	WaID     string    `json:"wa_id"`
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
}
