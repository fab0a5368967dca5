package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"proconnect/internal/models"
	"proconnect/internal/observability"
)

// connState tracks one registered connection: its identity, the chat rooms it
// joined, and the write lock (gorilla allows one concurrent writer per conn).
type connState struct {
	info    ConnInfo
	chats   map[int]bool
	writeMu sync.Mutex
}

// Hub maintains active websocket rooms: one personal room per user id, joined
// automatically at registration, and one room per chat id, joined and left
// explicitly. Room membership is connection-scoped, so unregistering a
// connection removes it everywhere with no further cleanup.
type Hub struct {
	mu        sync.RWMutex
	userRooms map[int]map[*websocket.Conn]bool
	chatRooms map[int]map[*websocket.Conn]bool
	conns     map[*websocket.Conn]*connState
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		userRooms: make(map[int]map[*websocket.Conn]bool),
		chatRooms: make(map[int]map[*websocket.Conn]bool),
		conns:     make(map[*websocket.Conn]*connState),
	}
}

// Register adds an authenticated connection and joins it to the user's
// personal room. A user with several devices holds several connections here.
func (h *Hub) Register(conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.userRooms[info.UserID]; !ok {
		h.userRooms[info.UserID] = make(map[*websocket.Conn]bool)
	}
	h.userRooms[info.UserID][conn] = true
	h.conns[conn] = &connState{info: info, chats: make(map[int]bool)}
}

// Unregister removes a connection from its personal room and every chat room
// it joined.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	state, ok := h.conns[conn]
	if !ok {
		return
	}
	delete(h.conns, conn)

	if room, ok := h.userRooms[state.info.UserID]; ok {
		delete(room, conn)
		if len(room) == 0 {
			delete(h.userRooms, state.info.UserID)
		}
	}
	for chatID := range state.chats {
		if room, ok := h.chatRooms[chatID]; ok {
			delete(room, conn)
			if len(room) == 0 {
				delete(h.chatRooms, chatID)
			}
		}
	}
}

// JoinChat adds the connection to a chat room. Joining grants visibility into
// that room's broadcasts only; persisted history stays behind the authorized
// REST path.
func (h *Hub) JoinChat(chatID int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	state, ok := h.conns[conn]
	if !ok {
		return
	}
	if _, ok := h.chatRooms[chatID]; !ok {
		h.chatRooms[chatID] = make(map[*websocket.Conn]bool)
	}
	h.chatRooms[chatID][conn] = true
	state.chats[chatID] = true
}

// LeaveChat removes the connection from a chat room.
func (h *Hub) LeaveChat(chatID int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if state, ok := h.conns[conn]; ok {
		delete(state.chats, chatID)
	}
	if room, ok := h.chatRooms[chatID]; ok {
		delete(room, conn)
		if len(room) == 0 {
			delete(h.chatRooms, chatID)
		}
	}
}

// Info returns the ConnInfo recorded at registration.
func (h *Hub) Info(conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	state, ok := h.conns[conn]
	if !ok {
		return ConnInfo{}, false
	}
	return state.info, true
}

// EmitToUser sends the event to every connection in the user's personal room.
func (h *Hub) EmitToUser(userID int, event string, data any) {
	h.broadcast(h.snapshotRoom(h.userRooms, userID), nil, event, data)
}

// EmitToChat sends the event to every connection in the chat room.
func (h *Hub) EmitToChat(chatID int, event string, data any) {
	h.broadcast(h.snapshotRoom(h.chatRooms, chatID), nil, event, data)
}

// EmitToChatExcept sends the event to every connection in the chat room but
// the originating one. Used for typing signals.
func (h *Hub) EmitToChatExcept(chatID int, except *websocket.Conn, event string, data any) {
	h.broadcast(h.snapshotRoom(h.chatRooms, chatID), except, event, data)
}

// EmitTo sends the event to a single connection. Used to report operation
// failures to the initiating client only.
func (h *Hub) EmitTo(conn *websocket.Conn, event string, data any) {
	h.broadcast([]*websocket.Conn{conn}, nil, event, data)
}

func (h *Hub) snapshotRoom(rooms map[int]map[*websocket.Conn]bool, id int) []*websocket.Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room := rooms[id]
	conns := make([]*websocket.Conn, 0, len(room))
	for conn := range room {
		conns = append(conns, conn)
	}
	return conns
}

func (h *Hub) broadcast(conns []*websocket.Conn, except *websocket.Conn, event string, data any) {
	payload, err := json.Marshal(models.ServerEvent{Type: event, Data: data})
	if err != nil {
		log.Printf("websocket marshal error: %v", err)
		return
	}

	for _, conn := range conns {
		if conn == except {
			continue
		}
		if err := h.write(conn, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.Unregister(conn)
			observability.IncWSEvent("ws_error")
		}
	}
	observability.IncWSEvent(event)
}

func (h *Hub) write(conn *websocket.Conn, payload []byte) error {
	h.mu.RLock()
	state, ok := h.conns[conn]
	h.mu.RUnlock()
	if !ok {
		return websocket.ErrCloseSent
	}

	state.writeMu.Lock()
	defer state.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, payload)
}
