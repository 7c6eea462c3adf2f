package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"wachat-service/internal/delivery"
	"wachat-service/internal/middleware"
	"wachat-service/internal/models"
	"wachat-service/internal/repositories"
)

// Coordinator is the delivery surface handlers depend on.
type Coordinator interface {
	Send(ctx context.Context, senderID, senderName string, req delivery.SendRequest) (models.Message, error)
	UpdateStatus(ctx context.Context, actorID, messageID, status string) (models.Message, error)
	DeleteMessage(ctx context.Context, actorID, messageID string, forEveryone bool) error
	Forward(ctx context.Context, actorID, actorName, messageID string, recipients []string) (int, error)
	MarkConversationRead(ctx context.Context, conversationID, readerID string) (int64, error)
	DeleteConversation(ctx context.Context, conversationID, actorID string) error
	ClearConversation(ctx context.Context, conversationID, actorID string) error
	ExportConversation(ctx context.Context, conversationID, viewerID string) (string, error)
}

// Handler bundles the HTTP endpoints. One instance is built in main and its
// methods are registered route by route.
type Handler struct {
	users    repositories.UserRepository
	messages repositories.MessageRepository
	convs    repositories.ConversationRepository
	blocks   repositories.BlockRepository
	coord    Coordinator
}

// New constructs a Handler.
func New(
	users repositories.UserRepository,
	messages repositories.MessageRepository,
	convs repositories.ConversationRepository,
	blocks repositories.BlockRepository,
	coord Coordinator,
) *Handler {
	return &Handler{
		users:    users,
		messages: messages,
		convs:    convs,
		blocks:   blocks,
		coord:    coord,
	}
}

func identity(c *gin.Context) (string, string) {
	return c.GetString(middleware.ContextWaID), c.GetString(middleware.ContextUserName)
}

// respondError maps core sentinel errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repositories.ErrMessageNotFound),
		errors.Is(err, repositories.ErrConversationNotFound),
		errors.Is(err, repositories.ErrUserNotFound),
		errors.Is(err, repositories.ErrNotBlocked),
		errors.Is(err, delivery.ErrRecipientNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, delivery.ErrForbidden),
		errors.Is(err, delivery.ErrBlocked):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, repositories.ErrAlreadyBlocked),
		errors.Is(err, repositories.ErrDuplicateMessage):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, delivery.ErrWindowExpired),
		errors.Is(err, delivery.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
