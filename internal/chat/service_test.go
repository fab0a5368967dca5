package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"proconnect/internal/mocks"
	"proconnect/internal/models"
)

type serviceMocks struct {
	chats       *mocks.ChatRepositoryMock
	messages    *mocks.MessageRepositoryMock
	users       *mocks.UserRepositoryMock
	broadcaster *mocks.BroadcasterMock
}

func newTestService() (*Service, serviceMocks) {
	m := serviceMocks{
		chats:       new(mocks.ChatRepositoryMock),
		messages:    new(mocks.MessageRepositoryMock),
		users:       new(mocks.UserRepositoryMock),
		broadcaster: new(mocks.BroadcasterMock),
	}
	return NewService(m.chats, m.messages, m.users, m.broadcaster), m
}

func messageIDPtr(id int) interface{} {
	return mock.MatchedBy(func(got *int) bool { return got != nil && *got == id })
}

func TestSendMessageEmptyContentRejected(t *testing.T) {
	svc, m := newTestService()

	for _, content := range []string{"", "   ", "\n\t"} {
		_, err := svc.SendMessage(context.Background(), 1, 5, content)
		require.ErrorIs(t, err, ErrEmptyContent)
	}

	m.chats.AssertNotCalled(t, "GetChat", mock.Anything, mock.Anything)
	m.messages.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.broadcaster.AssertNotCalled(t, "EmitToChat", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMessageNonParticipantRejected(t *testing.T) {
	svc, m := newTestService()

	m.chats.On("GetChat", mock.Anything, 5).Return(models.Chat{ID: 5, User1ID: 1, User2ID: 2}, nil).Once()

	_, err := svc.SendMessage(context.Background(), 3, 5, "hi")
	require.ErrorIs(t, err, ErrNotParticipant)

	m.messages.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.broadcaster.AssertNotCalled(t, "EmitToChat", mock.Anything, mock.Anything, mock.Anything)
	m.chats.AssertExpectations(t)
}

func TestSendMessageFanOut(t *testing.T) {
	svc, m := newTestService()

	msg := models.Message{ID: 7, ChatID: 5, SenderID: 1, Content: "hi"}
	m.chats.On("GetChat", mock.Anything, 5).Return(models.Chat{ID: 5, User1ID: 1, User2ID: 2}, nil).Once()
	m.messages.On("CreateMessage", mock.Anything, 5, 1, "hi").Return(msg, nil).Once()
	m.chats.On("SetLastMessage", mock.Anything, 5, messageIDPtr(7)).Return(nil).Once()
	m.users.On("GetUser", mock.Anything, 1).Return(models.User{ID: 1, Name: "Alice", Username: "alice"}, nil).Once()

	// One chat-room broadcast, one chat_updated to the other participant only.
	m.broadcaster.On("EmitToChat", 5, models.EventReceiveMessage, mock.Anything).Once()
	m.broadcaster.On("EmitToUser", 2, models.EventChatUpdated, mock.Anything).Once()

	populated, err := svc.SendMessage(context.Background(), 1, 5, "hi")
	require.NoError(t, err)
	assert.Equal(t, 7, populated.ID)
	assert.Equal(t, "alice", populated.Sender.Username)

	m.broadcaster.AssertNotCalled(t, "EmitToUser", 1, models.EventChatUpdated, mock.Anything)
	m.chats.AssertExpectations(t)
	m.messages.AssertExpectations(t)
	m.broadcaster.AssertExpectations(t)
}

func TestSendMessageTrimsContent(t *testing.T) {
	svc, m := newTestService()

	msg := models.Message{ID: 8, ChatID: 5, SenderID: 1, Content: "hello"}
	m.chats.On("GetChat", mock.Anything, 5).Return(models.Chat{ID: 5, User1ID: 1, User2ID: 2}, nil).Once()
	m.messages.On("CreateMessage", mock.Anything, 5, 1, "hello").Return(msg, nil).Once()
	m.chats.On("SetLastMessage", mock.Anything, 5, messageIDPtr(8)).Return(nil).Once()
	m.users.On("GetUser", mock.Anything, 1).Return(models.User{ID: 1}, nil).Once()
	m.broadcaster.On("EmitToChat", mock.Anything, mock.Anything, mock.Anything).Once()
	m.broadcaster.On("EmitToUser", mock.Anything, mock.Anything, mock.Anything).Once()

	_, err := svc.SendMessage(context.Background(), 1, 5, "  hello  ")
	require.NoError(t, err)
	m.messages.AssertExpectations(t)
}

func TestSendMessageNoBroadcastOnPersistFailure(t *testing.T) {
	svc, m := newTestService()

	m.chats.On("GetChat", mock.Anything, 5).Return(models.Chat{ID: 5, User1ID: 1, User2ID: 2}, nil).Once()
	m.messages.On("CreateMessage", mock.Anything, 5, 1, "hi").Return(models.Message{}, assert.AnError).Once()

	_, err := svc.SendMessage(context.Background(), 1, 5, "hi")
	require.Error(t, err)

	m.broadcaster.AssertNotCalled(t, "EmitToChat", mock.Anything, mock.Anything, mock.Anything)
	m.broadcaster.AssertNotCalled(t, "EmitToUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkReadRequiresParticipant(t *testing.T) {
	svc, m := newTestService()

	m.chats.On("GetChat", mock.Anything, 5).Return(models.Chat{ID: 5, User1ID: 1, User2ID: 2}, nil).Once()

	err := svc.MarkRead(context.Background(), 3, 5)
	require.ErrorIs(t, err, ErrNotParticipant)

	m.messages.AssertNotCalled(t, "MarkChatRead", mock.Anything, mock.Anything, mock.Anything)
	m.broadcaster.AssertNotCalled(t, "EmitToUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkReadIdempotent(t *testing.T) {
	svc, m := newTestService()

	m.chats.On("GetChat", mock.Anything, 5).Return(models.Chat{ID: 5, User1ID: 1, User2ID: 2}, nil).Twice()
	m.messages.On("MarkChatRead", mock.Anything, 5, 1).Return(int64(2), nil).Once()
	m.messages.On("MarkChatRead", mock.Anything, 5, 1).Return(int64(0), nil).Once()
	m.broadcaster.On("EmitToUser", 2, models.EventMessagesRead, models.MessagesReadPayload{ChatID: 5, ReadBy: 1}).Twice()

	require.NoError(t, svc.MarkRead(context.Background(), 1, 5))
	require.NoError(t, svc.MarkRead(context.Background(), 1, 5))

	m.messages.AssertExpectations(t)
	m.broadcaster.AssertExpectations(t)
}

func TestDeleteMessageNonSenderRejected(t *testing.T) {
	svc, m := newTestService()

	m.messages.On("GetMessage", mock.Anything, 7).Return(models.Message{ID: 7, ChatID: 5, SenderID: 2}, nil).Once()

	err := svc.DeleteMessage(context.Background(), 1, 7)
	require.ErrorIs(t, err, ErrNotSender)

	m.messages.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything)
	m.chats.AssertNotCalled(t, "SetLastMessage", mock.Anything, mock.Anything, mock.Anything)
	m.broadcaster.AssertNotCalled(t, "EmitToChat", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteLastMessageRecomputesPointer(t *testing.T) {
	svc, m := newTestService()

	lastID := 8
	remaining := models.Message{ID: 7, ChatID: 5, SenderID: 1}
	m.messages.On("GetMessage", mock.Anything, 8).Return(models.Message{ID: 8, ChatID: 5, SenderID: 1}, nil).Once()
	m.chats.On("GetChat", mock.Anything, 5).Return(models.Chat{ID: 5, User1ID: 1, User2ID: 2, LastMessageID: &lastID}, nil).Once()
	m.messages.On("DeleteMessage", mock.Anything, 8).Return(nil).Once()
	m.messages.On("LatestMessage", mock.Anything, 5).Return(&remaining, nil).Once()
	m.chats.On("SetLastMessage", mock.Anything, 5, messageIDPtr(7)).Return(nil).Once()
	m.broadcaster.On("EmitToChat", 5, models.EventMessageDeleted, models.MessageDeletedPayload{MessageID: 8, ChatID: 5}).Once()
	m.broadcaster.On("EmitToUser", 1, models.EventChatUpdated, mock.Anything).Once()
	m.broadcaster.On("EmitToUser", 2, models.EventChatUpdated, mock.Anything).Once()

	require.NoError(t, svc.DeleteMessage(context.Background(), 1, 8))

	m.chats.AssertExpectations(t)
	m.messages.AssertExpectations(t)
	m.broadcaster.AssertExpectations(t)
}

func TestDeleteOnlyMessageClearsPointer(t *testing.T) {
	svc, m := newTestService()

	lastID := 7
	m.messages.On("GetMessage", mock.Anything, 7).Return(models.Message{ID: 7, ChatID: 5, SenderID: 1}, nil).Once()
	m.chats.On("GetChat", mock.Anything, 5).Return(models.Chat{ID: 5, User1ID: 1, User2ID: 2, LastMessageID: &lastID}, nil).Once()
	m.messages.On("DeleteMessage", mock.Anything, 7).Return(nil).Once()
	m.messages.On("LatestMessage", mock.Anything, 5).Return((*models.Message)(nil), nil).Once()
	m.chats.On("SetLastMessage", mock.Anything, 5, (*int)(nil)).Return(nil).Once()
	m.broadcaster.On("EmitToChat", 5, models.EventMessageDeleted, mock.Anything).Once()
	m.broadcaster.On("EmitToUser", 1, models.EventChatUpdated, models.ChatUpdatedPayload{ChatID: 5, LastMessage: nil}).Once()
	m.broadcaster.On("EmitToUser", 2, models.EventChatUpdated, models.ChatUpdatedPayload{ChatID: 5, LastMessage: nil}).Once()

	require.NoError(t, svc.DeleteMessage(context.Background(), 1, 7))

	m.chats.AssertExpectations(t)
	m.broadcaster.AssertExpectations(t)
}

func TestDeleteNonLastMessageKeepsPointer(t *testing.T) {
	svc, m := newTestService()

	lastID := 9
	m.messages.On("GetMessage", mock.Anything, 7).Return(models.Message{ID: 7, ChatID: 5, SenderID: 1}, nil).Once()
	m.chats.On("GetChat", mock.Anything, 5).Return(models.Chat{ID: 5, User1ID: 1, User2ID: 2, LastMessageID: &lastID}, nil).Once()
	m.messages.On("DeleteMessage", mock.Anything, 7).Return(nil).Once()
	m.broadcaster.On("EmitToChat", 5, models.EventMessageDeleted, mock.Anything).Once()

	require.NoError(t, svc.DeleteMessage(context.Background(), 1, 7))

	m.messages.AssertNotCalled(t, "LatestMessage", mock.Anything, mock.Anything)
	m.chats.AssertNotCalled(t, "SetLastMessage", mock.Anything, mock.Anything, mock.Anything)
	m.broadcaster.AssertNotCalled(t, "EmitToUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestStartChatRequiresConnection(t *testing.T) {
	svc, m := newTestService()

	m.users.On("AreConnected", mock.Anything, 1, 2).Return(false, nil).Once()

	_, err := svc.StartChat(context.Background(), 1, 2)
	require.ErrorIs(t, err, ErrNotConnected)

	m.chats.AssertNotCalled(t, "CreateOrGetChat", mock.Anything, mock.Anything, mock.Anything)
}

func TestStartChatReturnsExistingChat(t *testing.T) {
	svc, m := newTestService()

	m.users.On("AreConnected", mock.Anything, 1, 2).Return(true, nil).Once()
	m.chats.On("CreateOrGetChat", mock.Anything, 1, 2).Return(models.Chat{ID: 10, User1ID: 1, User2ID: 2}, nil).Once()

	opened, err := svc.StartChat(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 10, opened.ID)

	m.users.AssertExpectations(t)
	m.chats.AssertExpectations(t)
}

func TestMessagesNonParticipantRejected(t *testing.T) {
	svc, m := newTestService()

	m.chats.On("IsParticipant", mock.Anything, 5, 3).Return(false, nil).Once()

	_, err := svc.Messages(context.Background(), 3, 5)
	require.ErrorIs(t, err, ErrNotParticipant)

	m.messages.AssertNotCalled(t, "ListMessages", mock.Anything, mock.Anything)
}

func TestMessagesResolvesSenders(t *testing.T) {
	svc, m := newTestService()

	m.chats.On("IsParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	m.messages.On("ListMessages", mock.Anything, 5).Return([]models.Message{
		{ID: 1, ChatID: 5, SenderID: 1, Content: "hi"},
		{ID: 2, ChatID: 5, SenderID: 2, Content: "yo"},
		{ID: 3, ChatID: 5, SenderID: 1, Content: "ok"},
	}, nil).Once()
	m.users.On("BulkSummaries", mock.Anything, []int{1, 2}).Return(map[int]models.UserSummary{
		1: {ID: 1, Username: "alice"},
		2: {ID: 2, Username: "bob"},
	}, nil).Once()

	msgs, err := svc.Messages(context.Background(), 1, 5)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "alice", msgs[0].Sender.Username)
	assert.Equal(t, "bob", msgs[1].Sender.Username)

	m.users.AssertExpectations(t)
}
