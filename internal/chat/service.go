package chat

import (
	"context"
	"strings"

	"github.com/samber/lo"

	"proconnect/internal/models"
	"proconnect/internal/repositories"
)

// Broadcaster is the capability the service uses to push events to connected
// clients. It is satisfied by the websocket hub; tests inject a mock.
type Broadcaster interface {
	EmitToUser(userID int, event string, data any)
	EmitToChat(chatID int, event string, data any)
}

// Service is the single source of truth for chat mutations. Both the
// websocket gateway and the REST handlers delegate here, so the two paths
// cannot drift apart.
type Service struct {
	chats       repositories.ChatRepository
	messages    repositories.MessageRepository
	users       repositories.UserRepository
	broadcaster Broadcaster
}

// NewService constructs a Service.
func NewService(chats repositories.ChatRepository, messages repositories.MessageRepository, users repositories.UserRepository, broadcaster Broadcaster) *Service {
	return &Service{chats: chats, messages: messages, users: users, broadcaster: broadcaster}
}

// StartChat opens (or returns) the chat between the actor and a connected
// user. Only connected users may open a chat.
func (s *Service) StartChat(ctx context.Context, actorID int, friendID int) (models.Chat, error) {
	connected, err := s.users.AreConnected(ctx, actorID, friendID)
	if err != nil {
		return models.Chat{}, err
	}
	if !connected {
		return models.Chat{}, ErrNotConnected
	}
	return s.chats.CreateOrGetChat(ctx, actorID, friendID)
}

// ListChats returns the actor's chat list with friend display fields and the
// populated last message.
func (s *Service) ListChats(ctx context.Context, actorID int) ([]models.ChatSummary, error) {
	chats, err := s.chats.ListChats(ctx, actorID)
	if err != nil {
		return nil, err
	}

	friendIDs := lo.Uniq(lo.Map(chats, func(c models.Chat, _ int) int {
		return c.OtherParticipant(actorID)
	}))
	friends, err := s.users.BulkSummaries(ctx, friendIDs)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.ChatSummary, 0, len(chats))
	for _, c := range chats {
		summary := models.ChatSummary{
			ChatID:    c.ID,
			FriendID:  c.OtherParticipant(actorID),
			Friend:    friends[c.OtherParticipant(actorID)],
			CreatedAt: c.CreatedAt,
		}
		if c.LastMessageID != nil {
			msg, err := s.messages.GetMessage(ctx, *c.LastMessageID)
			if err == nil {
				summary.LastMessage = &msg
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Messages returns the chat history for a participant, with sender display
// fields resolved.
func (s *Service) Messages(ctx context.Context, actorID int, chatID int) ([]models.PopulatedMessage, error) {
	member, err := s.chats.IsParticipant(ctx, chatID, actorID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotParticipant
	}

	msgs, err := s.messages.ListMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}

	senderIDs := lo.Uniq(lo.Map(msgs, func(m models.Message, _ int) int { return m.SenderID }))
	senders, err := s.users.BulkSummaries(ctx, senderIDs)
	if err != nil {
		return nil, err
	}

	return lo.Map(msgs, func(m models.Message, _ int) models.PopulatedMessage {
		return models.PopulatedMessage{Message: m, Sender: senders[m.SenderID]}
	}), nil
}

// SendMessage validates, persists and fans out a new message. Broadcasts run
// only after every persistence step succeeded; a failure leaves connected
// clients unnotified rather than speculatively notified.
func (s *Service) SendMessage(ctx context.Context, actorID int, chatID int, content string) (models.PopulatedMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.PopulatedMessage{}, ErrEmptyContent
	}

	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		return models.PopulatedMessage{}, err
	}
	if !chat.HasParticipant(actorID) {
		return models.PopulatedMessage{}, ErrNotParticipant
	}

	msg, err := s.messages.CreateMessage(ctx, chatID, actorID, content)
	if err != nil {
		return models.PopulatedMessage{}, err
	}
	if err := s.chats.SetLastMessage(ctx, chatID, &msg.ID); err != nil {
		return models.PopulatedMessage{}, err
	}

	sender, err := s.users.GetUser(ctx, actorID)
	if err != nil {
		return models.PopulatedMessage{}, err
	}
	populated := models.PopulatedMessage{Message: msg, Sender: sender.Summary()}

	s.broadcaster.EmitToChat(chatID, models.EventReceiveMessage, populated)
	s.broadcaster.EmitToUser(chat.OtherParticipant(actorID), models.EventChatUpdated, models.ChatUpdatedPayload{
		ChatID:      chatID,
		LastMessage: &msg,
	})
	return populated, nil
}

// MarkRead flips read on every unread message from the other participant and
// notifies them. The participant check is enforced here as well, not only on
// the send path.
func (s *Service) MarkRead(ctx context.Context, actorID int, chatID int) error {
	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(actorID) {
		return ErrNotParticipant
	}

	if _, err := s.messages.MarkChatRead(ctx, chatID, actorID); err != nil {
		return err
	}

	s.broadcaster.EmitToUser(chat.OtherParticipant(actorID), models.EventMessagesRead, models.MessagesReadPayload{
		ChatID: chatID,
		ReadBy: actorID,
	})
	return nil
}

// DeleteMessage removes one of the actor's own messages, recomputing the
// owning chat's last-message pointer when the deleted message was it.
func (s *Service) DeleteMessage(ctx context.Context, actorID int, messageID int) error {
	msg, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != actorID {
		return ErrNotSender
	}

	chat, err := s.chats.GetChat(ctx, msg.ChatID)
	if err != nil {
		return err
	}
	wasLast := chat.LastMessageID != nil && *chat.LastMessageID == messageID

	if err := s.messages.DeleteMessage(ctx, messageID); err != nil {
		return err
	}

	var newLast *models.Message
	if wasLast {
		newLast, err = s.messages.LatestMessage(ctx, msg.ChatID)
		if err != nil {
			return err
		}
		var newLastID *int
		if newLast != nil {
			newLastID = &newLast.ID
		}
		if err := s.chats.SetLastMessage(ctx, msg.ChatID, newLastID); err != nil {
			return err
		}
	}

	s.broadcaster.EmitToChat(msg.ChatID, models.EventMessageDeleted, models.MessageDeletedPayload{
		MessageID: messageID,
		ChatID:    msg.ChatID,
	})
	if wasLast {
		payload := models.ChatUpdatedPayload{ChatID: msg.ChatID, LastMessage: newLast}
		s.broadcaster.EmitToUser(chat.User1ID, models.EventChatUpdated, payload)
		s.broadcaster.EmitToUser(chat.User2ID, models.EventChatUpdated, payload)
	}
	return nil
}

// UnreadCount totals unread messages addressed to the actor.
func (s *Service) UnreadCount(ctx context.Context, actorID int) (int, error) {
	return s.messages.CountUnreadForUser(ctx, actorID)
}
