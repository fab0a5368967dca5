package models

import "encoding/json"

// Client-to-server websocket event types.
const (
	EventJoinChat      = "join_chat"
	EventLeaveChat     = "leave_chat"
	EventSendMessage   = "send_message"
	EventTyping        = "typing"
	EventStopTyping    = "stop_typing"
	EventMarkRead      = "mark_read"
	EventDeleteMessage = "delete_message"
)

// Server-to-client websocket event types.
const (
	EventReceiveMessage  = "receive_message"
	EventChatUpdated     = "chat_updated"
	EventMessageDeleted  = "message_deleted"
	EventUserTyping      = "user_typing"
	EventUserStopTyping  = "user_stop_typing"
	EventMessagesRead    = "messages_read"
	EventNewNotification = "new_notification"
	EventError           = "error"
)

// ClientEvent is the envelope decoded from a websocket client.
type ClientEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ServerEvent is the envelope written to websocket clients.
type ServerEvent struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Client event payloads.

type ChatRef struct {
	ChatID int `json:"chat_id"`
}

type SendMessageRequest struct {
	ChatID  int    `json:"chat_id"`
	Content string `json:"content"`
}

type MessageRef struct {
	MessageID int `json:"message_id"`
}

// Server event payloads.

type ChatUpdatedPayload struct {
	ChatID      int      `json:"chat_id"`
	LastMessage *Message `json:"last_message"`
}

type MessageDeletedPayload struct {
	MessageID int `json:"message_id"`
	ChatID    int `json:"chat_id"`
}

type TypingPayload struct {
	ChatID int         `json:"chat_id"`
	User   UserSummary `json:"user"`
}

type StopTypingPayload struct {
	ChatID int `json:"chat_id"`
	UserID int `json:"user_id"`
}

type MessagesReadPayload struct {
	ChatID int `json:"chat_id"`
	ReadBy int `json:"read_by"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
