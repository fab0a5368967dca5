package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"proconnect/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for chat messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, chatID int, senderID int, content string) (models.Message, error)
	ListMessages(ctx context.Context, chatID int) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	LatestMessage(ctx context.Context, chatID int) (*models.Message, error)
	MarkChatRead(ctx context.Context, chatID int, readerID int) (int64, error)
	DeleteMessage(ctx context.Context, messageID int) error
	CountUnreadForUser(ctx context.Context, userID int) (int, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a message in a chat.
func (r *MessageRepo) CreateMessage(ctx context.Context, chatID int, senderID int, content string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `INSERT INTO messages (chat_id, sender_id, content) VALUES ($1, $2, $3)
        RETURNING id, chat_id, sender_id, content, read, created_at`, chatID, senderID, content)
	return msg, err
}

// ListMessages returns the chat history in a stable total order: creation
// time first, serial id as the tiebreak within one timestamp resolution.
func (r *MessageRepo) ListMessages(ctx context.Context, chatID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, chat_id, sender_id, content, read, created_at
        FROM messages WHERE chat_id=$1 ORDER BY created_at ASC, id ASC`, chatID)
	return msgs, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT id, chat_id, sender_id, content, read, created_at FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// LatestMessage returns the most recent remaining message in the chat, or nil
// when none remain.
func (r *MessageRepo) LatestMessage(ctx context.Context, chatID int) (*models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT id, chat_id, sender_id, content, read, created_at
        FROM messages WHERE chat_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkChatRead flips read on every unread message in the chat that the reader
// did not send. Returns the number of messages flipped; calling it again is a
// no-op.
func (r *MessageRepo) MarkChatRead(ctx context.Context, chatID int, readerID int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET read=TRUE WHERE chat_id=$1 AND sender_id<>$2 AND read=FALSE`, chatID, readerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteMessage removes a message permanently.
func (r *MessageRepo) DeleteMessage(ctx context.Context, messageID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id=$1`, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// CountUnreadForUser totals unread messages addressed to the user across all
// of their chats.
func (r *MessageRepo) CountUnreadForUser(ctx context.Context, userID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages m
        JOIN chats c ON c.id = m.chat_id
        WHERE (c.user1_id=$1 OR c.user2_id=$1) AND m.sender_id<>$1 AND m.read=FALSE`, userID)
	return count, err
}
