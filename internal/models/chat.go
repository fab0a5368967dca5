package models

import "time"

// Chat represents a private chat between exactly two users. The pair is stored
// canonically sorted so that one row exists per unordered pair.
type Chat struct {
	ID            int       `db:"id" json:"id"`
	User1ID       int       `db:"user1_id" json:"user1_id"`
	User2ID       int       `db:"user2_id" json:"user2_id"`
	LastMessageID *int      `db:"last_message_id" json:"last_message_id,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// HasParticipant reports whether the user belongs to the chat.
func (c Chat) HasParticipant(userID int) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// OtherParticipant returns the participant that is not userID.
func (c Chat) OtherParticipant(userID int) int {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// ChatSummary is the API-facing view of a chat for one user's chat list.
type ChatSummary struct {
	ChatID      int         `json:"chat_id"`
	FriendID    int         `json:"friend_id"`
	Friend      UserSummary `json:"friend"`
	LastMessage *Message    `json:"last_message,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}
