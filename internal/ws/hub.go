package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"wachat-service/internal/models"
	"wachat-service/internal/observability"
)

// Hub maintains active websocket connections: one personal channel per user
// plus explicitly joined conversation rooms. A single Hub instance is
// constructed in main and injected wherever fan-out is needed.
type Hub struct {
	rooms       map[string]map[*websocket.Conn]bool
	users       map[string]map[*websocket.Conn]bool
	connInfo    map[*websocket.Conn]ConnInfo
	roomsByConn map[*websocket.Conn]map[string]bool
	mu          sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:       make(map[string]map[*websocket.Conn]bool),
		users:       make(map[string]map[*websocket.Conn]bool),
		connInfo:    make(map[*websocket.Conn]ConnInfo),
		roomsByConn: make(map[*websocket.Conn]map[string]bool),
	}
}

// AddClient registers a connection on its owner's personal channel.
func (h *Hub) AddClient(waID string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.users[waID]; !ok {
		h.users[waID] = make(map[*websocket.Conn]bool)
	}
	h.users[waID][conn] = true
	h.connInfo[conn] = info
}

// RemoveClient drops a connection from its personal channel and every room it
// joined.
func (h *Hub) RemoveClient(waID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.users[waID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.users, waID)
		}
	}
	for room := range h.roomsByConn[conn] {
		h.dropFromRoom(room, conn)
	}
	delete(h.roomsByConn, conn)
	delete(h.connInfo, conn)
}

// JoinRoom subscribes a connection to a conversation room.
func (h *Hub) JoinRoom(conversationID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[conversationID]; !ok {
		h.rooms[conversationID] = make(map[*websocket.Conn]bool)
	}
	h.rooms[conversationID][conn] = true
	if _, ok := h.roomsByConn[conn]; !ok {
		h.roomsByConn[conn] = make(map[string]bool)
	}
	h.roomsByConn[conn][conversationID] = true
}

// LeaveRoom unsubscribes a connection from a conversation room.
func (h *Hub) LeaveRoom(conversationID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropFromRoom(conversationID, conn)
	if rooms, ok := h.roomsByConn[conn]; ok {
		delete(rooms, conversationID)
	}
}

func (h *Hub) dropFromRoom(conversationID string, conn *websocket.Conn) {
	if conns, ok := h.rooms[conversationID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, conversationID)
		}
	}
}

// ToConversation sends an event to every connection in a conversation room.
func (h *Hub) ToConversation(conversationID string, event string, data any) {
	h.mu.RLock()
	conns := snapshot(h.rooms[conversationID])
	h.mu.RUnlock()
	h.write(conns, conversationID, event, data, nil)
}

// ToConversationExcept sends an event to a room, skipping one connection.
// Typing relays use this so a client never echoes its own indicator.
func (h *Hub) ToConversationExcept(conversationID string, except *websocket.Conn, event string, data any) {
	h.mu.RLock()
	conns := snapshot(h.rooms[conversationID])
	h.mu.RUnlock()
	h.write(conns, conversationID, event, data, except)
}

// ToUser sends an event to every connection on a user's personal channel.
func (h *Hub) ToUser(waID string, event string, data any) {
	h.mu.RLock()
	conns := snapshot(h.users[waID])
	h.mu.RUnlock()
	h.write(conns, "user_"+waID, event, data, nil)
}

// ToAll sends an event to every connected client. Presence updates use this.
func (h *Hub) ToAll(event string, data any) {
	h.mu.RLock()
	seen := make(map[*websocket.Conn]bool)
	var conns []*websocket.Conn
	for _, userConns := range h.users {
		for conn := range userConns {
			if !seen[conn] {
				seen[conn] = true
				conns = append(conns, conn)
			}
		}
	}
	h.mu.RUnlock()
	h.write(conns, "broadcast", event, data, nil)
}

// RoomSize reports how many connections a conversation room currently holds.
func (h *Hub) RoomSize(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

func (h *Hub) write(conns []*websocket.Conn, scope string, event string, data any, except *websocket.Conn) {
	payload, err := json.Marshal(models.RealtimeEvent{Event: event, Data: data})
	if err != nil {
		log.Printf("websocket marshal error: %v", err)
		return
	}
	for _, conn := range conns {
		if conn == except {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.evict(conn)
			h.publishWSError(scope, conn, err)
		}
	}
}

func (h *Hub) evict(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	info, ok := h.connInfo[conn]
	if ok {
		if conns, exists := h.users[info.WaID]; exists {
			delete(conns, conn)
			if len(conns) == 0 {
				delete(h.users, info.WaID)
			}
		}
	}
	for room := range h.roomsByConn[conn] {
		h.dropFromRoom(room, conn)
	}
	delete(h.roomsByConn, conn)
	delete(h.connInfo, conn)
}

func (h *Hub) publishWSError(scope string, conn *websocket.Conn, err error) {
	h.mu.RLock()
	info, ok := h.connInfo[conn]
	h.mu.RUnlock()
	if !ok {
		return
	}

	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"scope":       scope,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"wa_id":     info.WaID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.chat",
		observability.NewEnvelope("ws_events", "ws_error", payload), headers)
	observability.IncWSEvent("ws_error")
}

func snapshot(conns map[*websocket.Conn]bool) []*websocket.Conn {
	out := make([]*websocket.Conn, 0, len(conns))
	for conn := range conns {
		out = append(out, conn)
	}
	return out
}
