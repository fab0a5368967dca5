package chat

import "errors"

var (
	// ErrEmptyContent rejects messages that are empty after trimming.
	ErrEmptyContent = errors.New("message content is empty")
	// ErrNotParticipant rejects actors outside the chat's participant pair.
	ErrNotParticipant = errors.New("not a chat participant")
	// ErrNotSender rejects deletion of another user's message.
	ErrNotSender = errors.New("can only delete your own messages")
	// ErrNotConnected rejects opening a chat with a user the actor is not
	// connected to.
	ErrNotConnected = errors.New("users are not connected")
)
