package ws

import (
	"testing"

	"github.com/gorilla/websocket"
)

func TestHubRegisterJoinsPersonalRoom(t *testing.T) {
	hub := NewHub()
	conn := &websocket.Conn{}

	hub.Register(conn, ConnInfo{ConnID: "c1", UserID: 1})
	if len(hub.userRooms[1]) != 1 {
		t.Fatalf("expected personal room for user 1")
	}

	hub.Unregister(conn)
	if len(hub.userRooms) != 0 {
		t.Fatalf("expected personal room to be removed")
	}
}

func TestHubMultipleConnectionsPerUser(t *testing.T) {
	hub := NewHub()
	conn1 := &websocket.Conn{}
	conn2 := &websocket.Conn{}

	hub.Register(conn1, ConnInfo{ConnID: "c1", UserID: 1})
	hub.Register(conn2, ConnInfo{ConnID: "c2", UserID: 1})
	if len(hub.userRooms[1]) != 2 {
		t.Fatalf("expected two connections in the personal room")
	}

	hub.Unregister(conn1)
	if len(hub.userRooms[1]) != 1 {
		t.Fatalf("expected one connection left in the personal room")
	}
}

func TestHubJoinAndLeaveChatRoom(t *testing.T) {
	hub := NewHub()
	conn := &websocket.Conn{}

	hub.Register(conn, ConnInfo{ConnID: "c1", UserID: 1})
	hub.JoinChat(5, conn)
	if len(hub.chatRooms[5]) != 1 {
		t.Fatalf("expected chat room to be created")
	}

	hub.LeaveChat(5, conn)
	if len(hub.chatRooms) != 0 {
		t.Fatalf("expected chat room to be removed")
	}
}

func TestHubUnregisterLeavesAllChatRooms(t *testing.T) {
	hub := NewHub()
	conn := &websocket.Conn{}

	hub.Register(conn, ConnInfo{ConnID: "c1", UserID: 1})
	hub.JoinChat(5, conn)
	hub.JoinChat(6, conn)

	hub.Unregister(conn)
	if len(hub.chatRooms) != 0 {
		t.Fatalf("expected all chat rooms to be cleaned up")
	}
	if len(hub.conns) != 0 {
		t.Fatalf("expected connection state to be removed")
	}
}

func TestHubJoinChatRequiresRegistration(t *testing.T) {
	hub := NewHub()
	conn := &websocket.Conn{}

	hub.JoinChat(5, conn)
	if len(hub.chatRooms) != 0 {
		t.Fatalf("unregistered connection must not join rooms")
	}
}
