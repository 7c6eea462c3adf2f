package ws

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

func TestJoinAndLeaveRoom(t *testing.T) {
	hub := NewHub()
	conn := &websocket.Conn{}

	hub.AddClient("919000000001", conn, ConnInfo{WaID: "919000000001"})
	hub.JoinRoom("919000000001_919000000002", conn)
	assert.Equal(t, 1, hub.RoomSize("919000000001_919000000002"))

	hub.LeaveRoom("919000000001_919000000002", conn)
	assert.Zero(t, hub.RoomSize("919000000001_919000000002"))
}

func TestRemoveClientLeavesAllRooms(t *testing.T) {
	hub := NewHub()
	conn := &websocket.Conn{}

	hub.AddClient("919000000001", conn, ConnInfo{WaID: "919000000001"})
	hub.JoinRoom("room-a", conn)
	hub.JoinRoom("room-b", conn)

	hub.RemoveClient("919000000001", conn)
	assert.Zero(t, hub.RoomSize("room-a"))
	assert.Zero(t, hub.RoomSize("room-b"))
}

func TestMultipleConnectionsPerUser(t *testing.T) {
	hub := NewHub()
	phone := &websocket.Conn{}
	laptop := &websocket.Conn{}

	hub.AddClient("919000000001", phone, ConnInfo{WaID: "919000000001", DeviceID: "phone"})
	hub.AddClient("919000000001", laptop, ConnInfo{WaID: "919000000001", DeviceID: "laptop"})
	hub.JoinRoom("room-a", phone)
	hub.JoinRoom("room-a", laptop)
	assert.Equal(t, 2, hub.RoomSize("room-a"))

	hub.RemoveClient("919000000001", phone)
	assert.Equal(t, 1, hub.RoomSize("room-a"))
}
