package ws

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"wachat-service/internal/mocks"
)

func TestJoinConversationAdvancesPendingToDelivered(t *testing.T) {
	hub := NewHub()
	msgs := new(mocks.MessageRepository)
	msgs.On("MarkConversationDelivered", mock.Anything, "919000000001_919000000002", "919000000002", mock.Anything).
		Return(int64(3), nil)
	h := NewHandler(hub, nil, nil, msgs)

	conn := &websocket.Conn{}
	hub.AddClient("919000000002", conn, ConnInfo{WaID: "919000000002"})
	h.handleFrame(conn, ConnInfo{WaID: "919000000002"}, ClientFrame{
		Action:         ActionJoinConversation,
		ConversationID: "919000000001_919000000002",
	})

	assert.Equal(t, 1, hub.RoomSize("919000000001_919000000002"))
	msgs.AssertExpectations(t)
}

func TestJoinConversationWithoutIDIsIgnored(t *testing.T) {
	hub := NewHub()
	msgs := new(mocks.MessageRepository)
	h := NewHandler(hub, nil, nil, msgs)

	conn := &websocket.Conn{}
	h.handleFrame(conn, ConnInfo{WaID: "919000000002"}, ClientFrame{Action: ActionJoinConversation})

	msgs.AssertNotCalled(t, "MarkConversationDelivered",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
