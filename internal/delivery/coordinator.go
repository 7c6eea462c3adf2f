package delivery

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"wachat-service/internal/config"
	"wachat-service/internal/conversation"
	"wachat-service/internal/models"
	"wachat-service/internal/observability"
	"wachat-service/internal/rabbitmq"
	"wachat-service/internal/repositories"
)

var (
	ErrBlocked           = errors.New("messaging blocked between users")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrForbidden         = errors.New("not allowed")
	ErrWindowExpired     = errors.New("delete window expired")
	ErrInvalidStatus     = errors.New("invalid status")
)

// Broadcaster is the hub surface the coordinator fans out through.
type Broadcaster interface {
	ToConversation(conversationID string, event string, data any)
	ToUser(waID string, event string, data any)
	ToAll(event string, data any)
}

// SendRequest carries the caller-supplied fields of an outbound message.
type SendRequest struct {
	To          string
	MessageType string
	Body        string
	MediaURL    string
	Caption     string
	Filename    string
	Size        int64
	ReplyTo     string
}

// Coordinator drives the full message lifecycle: admission checks, durable
// write, then realtime fan-out. Fan-out failures never fail the operation;
// storage is the source of truth and clients resync on reconnect.
type Coordinator struct {
	users     repositories.UserRepository
	messages  repositories.MessageRepository
	convs     repositories.ConversationRepository
	blocks    repositories.BlockRepository
	hub       Broadcaster
	publisher rabbitmq.Publisher
	cfg       config.Config
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(
	users repositories.UserRepository,
	messages repositories.MessageRepository,
	convs repositories.ConversationRepository,
	blocks repositories.BlockRepository,
	hub Broadcaster,
	publisher rabbitmq.Publisher,
	cfg config.Config,
) *Coordinator {
	return &Coordinator{
		users:     users,
		messages:  messages,
		convs:     convs,
		blocks:    blocks,
		hub:       hub,
		publisher: publisher,
		cfg:       cfg,
	}
}

// Send validates, persists and fans out a new message. The write happens
// before any broadcast so a crash between the two can only lose the realtime
// notification, never the message.
func (c *Coordinator) Send(ctx context.Context, senderID, senderName string, req SendRequest) (models.Message, error) {
	if _, err := c.users.GetByWaID(ctx, req.To); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.Message{}, ErrRecipientNotFound
		}
		return models.Message{}, err
	}

	blocked, err := c.blocks.IsBlockedEitherDirection(ctx, senderID, req.To)
	if err != nil {
		return models.Message{}, err
	}
	if blocked {
		return models.Message{}, ErrBlocked
	}

	messageType := req.MessageType
	if messageType == "" {
		messageType = models.TypeText
	}

	now := time.Now().UTC()
	conversationID := conversation.CanonicalID(senderID, req.To)
	msg := models.Message{
		MessageID:      newMessageID(now),
		ConversationID: conversationID,
		WaID:           senderID,
		FromNumber:     senderID,
		ToNumber:       req.To,
		SenderName:     senderName,
		MessageType:    messageType,
		Body:           req.Body,
		MediaURL:       nullString(req.MediaURL),
		Caption:        nullString(req.Caption),
		Filename:       nullString(req.Filename),
		Size:           nullInt64(req.Size),
		ReplyTo:        nullString(req.ReplyTo),
		Status:         models.StatusSent,
		CreatedAt:      now,
	}

	storeCtx, cancel := context.WithTimeout(ctx, c.cfg.StoreTimeout)
	defer cancel()

	one, two, _ := conversation.Participants(conversationID)
	if _, err := c.convs.GetOrCreate(storeCtx, conversationID, one, two, senderID, now); err != nil {
		return models.Message{}, err
	}

	created, err := c.messages.Create(storeCtx, msg)
	if err != nil {
		return models.Message{}, err
	}

	observability.IncMessageSent(messageType)
	c.hub.ToConversation(conversationID, models.EventNewMessage, models.NewMessagePayload{
		Message:        &created,
		ConversationID: conversationID,
	})
	c.hub.ToUser(req.To, models.EventMessageNotification, models.NotificationPayload{
		From:           senderID,
		Message:        created.Body,
		ConversationID: conversationID,
		Timestamp:      created.CreatedAt,
	})
	c.publish(ctx, "message.sent", created)

	return created, nil
}

// UpdateStatus applies a single status transition and notifies both the
// conversation room and the sender's personal channel. Non-forward
// transitions are silently absorbed by the store.
func (c *Coordinator) UpdateStatus(ctx context.Context, actorID, messageID, status string) (models.Message, error) {
	if !models.ValidStatus(status) {
		return models.Message{}, ErrInvalidStatus
	}

	msg, err := c.messages.GetMessage(ctx, messageID)
	if err != nil {
		return models.Message{}, err
	}
	if !msg.IsParticipant(actorID) {
		return models.Message{}, ErrForbidden
	}
	// Mirror the store's conditional update: a non-forward transition is a
	// silent no-op and must not re-broadcast the unchanged status.
	if !models.StatusAdvances(msg.Status, status) {
		return msg, nil
	}

	now := time.Now().UTC()
	storeCtx, cancel := context.WithTimeout(ctx, c.cfg.StoreTimeout)
	defer cancel()
	if err := c.messages.AppendStatus(storeCtx, messageID, status, now); err != nil {
		return models.Message{}, err
	}

	updated, err := c.messages.GetMessage(ctx, messageID)
	if err != nil {
		return models.Message{}, err
	}

	payload := models.StatusUpdatePayload{MessageID: messageID, Status: updated.Status, Timestamp: now}
	c.hub.ToConversation(updated.ConversationID, models.EventStatusUpdate, payload)
	c.hub.ToUser(updated.FromNumber, models.EventStatusUpdate, payload)
	c.publish(ctx, "message.status", payload)
	return updated, nil
}

// DeleteMessage removes a message either for the caller only or, within the
// sender's window, for everyone. Delete-for-me leaves the other participant
// untouched and emits nothing.
func (c *Coordinator) DeleteMessage(ctx context.Context, actorID, messageID string, forEveryone bool) error {
	msg, err := c.messages.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if !msg.IsParticipant(actorID) {
		return ErrForbidden
	}

	storeCtx, cancel := context.WithTimeout(ctx, c.cfg.StoreTimeout)
	defer cancel()

	if !forEveryone {
		return c.messages.SoftDeleteForViewer(storeCtx, messageID, actorID)
	}

	if msg.FromNumber != actorID {
		return ErrForbidden
	}
	if msg.DeletedForEveryone {
		return nil
	}
	now := time.Now().UTC()
	if now.Sub(msg.CreatedAt) > c.cfg.DeleteForEveryoneWindow {
		return ErrWindowExpired
	}

	if err := c.messages.MarkDeletedForEveryone(storeCtx, messageID, now); err != nil {
		return err
	}

	payload := models.DeletionPayload{MessageID: messageID, ConversationID: msg.ConversationID}
	c.hub.ToConversation(msg.ConversationID, models.EventDeletedForEveryone, payload)
	c.hub.ToUser(msg.ToNumber, models.EventDeletedForEveryone, payload)
	c.publish(ctx, "message.deleted", payload)
	return nil
}

// Forward copies an existing message to each recipient as a fresh send.
// Unknown and blocked recipients are skipped rather than failing the batch;
// the count of successful forwards is returned.
func (c *Coordinator) Forward(ctx context.Context, actorID, actorName, messageID string, recipients []string) (int, error) {
	original, err := c.messages.GetMessage(ctx, messageID)
	if err != nil {
		return 0, err
	}
	if !original.IsParticipant(actorID) {
		return 0, ErrForbidden
	}
	if original.DeletedForEveryone {
		return 0, ErrForbidden
	}

	forwarded := 0
	for _, to := range recipients {
		req := SendRequest{
			To:          to,
			MessageType: original.MessageType,
			Body:        original.Body,
			MediaURL:    original.MediaURL.String,
			Caption:     original.Caption.String,
			Filename:    original.Filename.String,
			Size:        original.Size.Int64,
		}
		if _, err := c.Send(ctx, actorID, actorName, req); err != nil {
			if errors.Is(err, ErrBlocked) || errors.Is(err, ErrRecipientNotFound) {
				continue
			}
			return forwarded, err
		}
		forwarded++
	}
	return forwarded, nil
}

// MarkConversationRead bulk-advances unread messages addressed to the reader
// and emits a single read receipt for the conversation.
func (c *Coordinator) MarkConversationRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	conv, err := c.convs.Get(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	if !conv.HasParticipant(readerID) {
		return 0, ErrForbidden
	}

	now := time.Now().UTC()
	storeCtx, cancel := context.WithTimeout(ctx, c.cfg.StoreTimeout)
	defer cancel()
	count, err := c.messages.MarkConversationRead(storeCtx, conversationID, readerID, now)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	payload := models.ReadReceiptPayload{ReadBy: readerID, ConversationID: conversationID, Timestamp: now}
	c.hub.ToConversation(conversationID, models.EventMessagesRead, payload)
	c.hub.ToUser(conv.OtherParticipant(readerID), models.EventMessagesRead, payload)
	return count, nil
}

// DeleteConversation removes the conversation and all its messages for both
// participants.
func (c *Coordinator) DeleteConversation(ctx context.Context, conversationID, actorID string) error {
	conv, err := c.convs.Get(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(actorID) {
		return ErrForbidden
	}

	storeCtx, cancel := context.WithTimeout(ctx, c.cfg.StoreTimeout)
	defer cancel()
	if err := c.messages.DeleteByConversation(storeCtx, conversationID); err != nil {
		return err
	}
	if err := c.convs.Delete(storeCtx, conversationID); err != nil {
		return err
	}

	payload := models.ConversationPayload{ConversationID: conversationID}
	c.hub.ToConversation(conversationID, models.EventConversationDeleted, payload)
	c.hub.ToUser(conv.OtherParticipant(actorID), models.EventConversationDeleted, payload)
	c.publish(ctx, "conversation.deleted", payload)
	return nil
}

// ClearConversation wipes message history but keeps the conversation row and
// its archive/mute state.
func (c *Coordinator) ClearConversation(ctx context.Context, conversationID, actorID string) error {
	conv, err := c.convs.Get(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(actorID) {
		return ErrForbidden
	}

	storeCtx, cancel := context.WithTimeout(ctx, c.cfg.StoreTimeout)
	defer cancel()
	if err := c.messages.DeleteByConversation(storeCtx, conversationID); err != nil {
		return err
	}

	payload := models.ConversationPayload{ConversationID: conversationID}
	c.hub.ToConversation(conversationID, models.EventConversationCleared, payload)
	c.hub.ToUser(conv.OtherParticipant(actorID), models.EventConversationCleared, payload)
	return nil
}

// ExportConversation renders the full history as a plain-text transcript,
// oldest first. The viewer's own lines are attributed to "You".
func (c *Coordinator) ExportConversation(ctx context.Context, conversationID, viewerID string) (string, error) {
	conv, err := c.convs.Get(ctx, conversationID)
	if err != nil {
		return "", err
	}
	if !conv.HasParticipant(viewerID) {
		return "", ErrForbidden
	}

	msgs, err := c.messages.ListChronological(ctx, conversationID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, msg := range msgs {
		sender := msg.SenderName
		if msg.FromNumber == viewerID {
			sender = "You"
		} else if sender == "" {
			sender = msg.FromNumber
		}
		body := msg.Body
		if msg.DeletedForEveryone {
			body = models.DeletedPlaceholder
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", msg.CreatedAt.Format("2006-01-02 15:04:05"), sender, body)
	}
	return b.String(), nil
}

func (c *Coordinator) publish(ctx context.Context, routingKey string, event any) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, routingKey, event); err != nil {
		observability.IncAMQPPublishError()
		log.Printf("delivery: publish %s failed: %v", routingKey, err)
	}
}

func newMessageID(now time.Time) string {
	return fmt.Sprintf("msg_%d_%s", now.UnixNano(), uuid.NewString()[:8])
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v > 0}
}
