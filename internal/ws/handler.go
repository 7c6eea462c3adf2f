package ws

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"wachat-service/internal/middleware"
	"wachat-service/internal/models"
	"wachat-service/internal/observability"
	"wachat-service/internal/repositories"
)

// ClientFrame is a client-originated websocket action.
type ClientFrame struct {
	Action         string `json:"action"`
	ConversationID string `json:"conversationId"`
	Status         string `json:"status"`
}

// Client actions.
const (
	ActionJoinConversation  = "join_conversation"
	ActionLeaveConversation = "leave_conversation"
	ActionTypingStart       = "typing_start"
	ActionTypingStop        = "typing_stop"
	ActionMarkMessagesRead  = "mark_messages_read"
	ActionUpdatePresence    = "update_presence"
)

// Handler upgrades websocket connections and runs the per-connection loop.
type Handler struct {
	hub      *Hub
	tokens   *middleware.TokenParser
	userRepo repositories.UserRepository
	messages repositories.MessageRepository
}

// NewHandler constructs a websocket Handler.
func NewHandler(hub *Hub, tokens *middleware.TokenParser, userRepo repositories.UserRepository, messages repositories.MessageRepository) *Handler {
	return &Handler{hub: hub, tokens: tokens, userRepo: userRepo, messages: messages}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates, upgrades the connection, joins the personal channel
// and relays client actions until disconnect.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("wachat-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		if q := c.Query("token"); q != "" {
			token = "Bearer " + q
		}
	}

	identity, err := h.tokens.ParseHeader(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		WaID:        identity.WaID,
		UserName:    identity.Name,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(identity.WaID, conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	h.publishLifecycle(ctx, info, "ws_connect", "")

	now := time.Now()
	if err := h.userRepo.SetOnline(ctx, identity.WaID, true, now); err == nil {
		h.hub.ToAll(models.EventPresenceUpdate, models.PresencePayload{
			UserID: identity.WaID, WaID: identity.WaID, IsOnline: true, LastSeen: now,
		})
	}

	go h.readLoop(conn, info)
}

func (h *Handler) readLoop(conn *websocket.Conn, info ConnInfo) {
	var closeReason string
	defer func() {
		h.hub.RemoveClient(info.WaID, conn)
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		h.publishLifecycle(context.Background(), info, "ws_disconnect", closeReason)

		now := time.Now()
		if err := h.userRepo.SetOnline(context.Background(), info.WaID, false, now); err == nil {
			h.hub.ToAll(models.EventPresenceUpdate, models.PresencePayload{
				UserID: info.WaID, WaID: info.WaID, IsOnline: false, LastSeen: now,
			})
		}
		conn.Close()
	}()

	for {
		var frame ClientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				h.publishLifecycle(context.Background(), info, "ws_error", closeReason)
			}
			return
		}
		h.handleFrame(conn, info, frame)
	}
}

func (h *Handler) handleFrame(conn *websocket.Conn, info ConnInfo, frame ClientFrame) {
	switch frame.Action {
	case ActionJoinConversation:
		if frame.ConversationID != "" {
			h.hub.JoinRoom(frame.ConversationID, conn)
			// Opening a conversation is the delivery signal for anything
			// still pending. Senders observe the new status on their next
			// fetch; per-message receipts stay on the explicit status path.
			if _, err := h.messages.MarkConversationDelivered(context.Background(), frame.ConversationID, info.WaID, time.Now()); err != nil {
				log.Printf("websocket mark delivered: %v", err)
			}
		}
	case ActionLeaveConversation:
		if frame.ConversationID != "" {
			h.hub.LeaveRoom(frame.ConversationID, conn)
		}
	case ActionTypingStart:
		// Relay only. Typing state is ephemeral and expires client-side.
		h.hub.ToConversationExcept(frame.ConversationID, conn, models.EventUserTyping, models.TypingPayload{
			UserID: info.WaID, UserName: info.UserName, WaID: info.WaID, ConversationID: frame.ConversationID,
		})
	case ActionTypingStop:
		h.hub.ToConversationExcept(frame.ConversationID, conn, models.EventUserStopTyping, models.TypingPayload{
			UserID: info.WaID, WaID: info.WaID, ConversationID: frame.ConversationID,
		})
	case ActionMarkMessagesRead:
		h.hub.ToConversationExcept(frame.ConversationID, conn, models.EventMessagesRead, models.ReadReceiptPayload{
			ReadBy: info.WaID, ConversationID: frame.ConversationID, Timestamp: time.Now(),
		})
	case ActionUpdatePresence:
		if frame.Status != "online" && frame.Status != "away" && frame.Status != "busy" {
			return
		}
		online := frame.Status == "online"
		now := time.Now()
		if err := h.userRepo.SetOnline(context.Background(), info.WaID, online, now); err != nil {
			return
		}
		h.hub.ToAll(models.EventPresenceUpdate, models.PresencePayload{
			UserID: info.WaID, WaID: info.WaID, IsOnline: online, LastSeen: now,
		})
	default:
		observability.IncWSEvent("ws_unknown_action")
	}
}

func (h *Handler) publishLifecycle(ctx context.Context, info ConnInfo, event string, reason string) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"wa_id":     info.WaID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
	_ = observability.PublishEvent(ctx, "ws_events.chat",
		observability.NewEnvelope("ws_events", event, payload),
		observability.BuildHeaders(info.RequestID, info.TraceID))
}
