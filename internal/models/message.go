package models

import "time"

// Message represents a chat message.
type Message struct {
	ID        int       `db:"id" json:"id"`
	ChatID    int       `db:"chat_id" json:"chat_id"`
	SenderID  int       `db:"sender_id" json:"sender_id"`
	Content   string    `db:"content" json:"content"`
	Read      bool      `db:"read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PopulatedMessage is a message with the sender's display fields resolved,
// as delivered over the websocket and the REST message listing.
type PopulatedMessage struct {
	Message
	Sender UserSummary `json:"sender"`
}
