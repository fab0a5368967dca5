package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"proconnect/internal/chat"
	"proconnect/internal/mocks"
	"proconnect/internal/models"
	"proconnect/internal/repositories"
)

type chatHandlerMocks struct {
	chats       *mocks.ChatRepositoryMock
	messages    *mocks.MessageRepositoryMock
	users       *mocks.UserRepositoryMock
	broadcaster *mocks.BroadcasterMock
}

func setupChatRouter() (*gin.Engine, chatHandlerMocks) {
	gin.SetMode(gin.TestMode)

	m := chatHandlerMocks{
		chats:       new(mocks.ChatRepositoryMock),
		messages:    new(mocks.MessageRepositoryMock),
		users:       new(mocks.UserRepositoryMock),
		broadcaster: new(mocks.BroadcasterMock),
	}
	svc := chat.NewService(m.chats, m.messages, m.users, m.broadcaster)
	handler := NewChatHandler(svc, nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.GET("/chats", handler.ListChats)
	r.GET("/chats/user/:user_id", handler.StartChat)
	r.GET("/chats/unread/count", handler.UnreadCount)
	r.GET("/chats/:chat_id/messages", handler.GetChatMessages)
	r.POST("/chats/:chat_id/messages", handler.PostChatMessage)
	r.POST("/chats/:chat_id/read", handler.MarkChatRead)
	r.DELETE("/chats/messages/:message_id", handler.DeleteMessage)
	return r, m
}

func TestListChatsSuccess(t *testing.T) {
	router, m := setupChatRouter()

	m.chats.On("ListChats", mock.Anything, 1).Return([]models.Chat{{ID: 3, User1ID: 1, User2ID: 2}}, nil).Once()
	m.users.On("BulkSummaries", mock.Anything, []int{2}).Return(map[int]models.UserSummary{2: {ID: 2, Username: "bob"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Chats []models.ChatSummary `json:"chats"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Chats, 1)
	assert.Equal(t, "bob", resp.Chats[0].Friend.Username)

	m.chats.AssertExpectations(t)
	m.users.AssertExpectations(t)
}

func TestListChatsRepoError(t *testing.T) {
	router, m := setupChatRouter()

	m.chats.On("ListChats", mock.Anything, 1).Return(([]models.Chat)(nil), assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	m.chats.AssertExpectations(t)
}

func TestStartChatSuccess(t *testing.T) {
	router, m := setupChatRouter()

	m.users.On("AreConnected", mock.Anything, 1, 2).Return(true, nil).Once()
	m.chats.On("CreateOrGetChat", mock.Anything, 1, 2).Return(models.Chat{ID: 10, User1ID: 1, User2ID: 2}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/user/2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	m.users.AssertExpectations(t)
	m.chats.AssertExpectations(t)
}

func TestStartChatNotConnected(t *testing.T) {
	router, m := setupChatRouter()

	m.users.On("AreConnected", mock.Anything, 1, 5).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/user/5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	m.chats.AssertNotCalled(t, "CreateOrGetChat", mock.Anything, mock.Anything, mock.Anything)
}

func TestStartChatWithSelf(t *testing.T) {
	router, m := setupChatRouter()

	req := httptest.NewRequest(http.MethodGet, "/chats/user/1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	m.users.AssertNotCalled(t, "AreConnected", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetChatMessagesSuccess(t *testing.T) {
	router, m := setupChatRouter()

	m.chats.On("IsParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	m.messages.On("ListMessages", mock.Anything, 5).Return([]models.Message{{ID: 1, ChatID: 5, SenderID: 1, Content: "hi"}}, nil).Once()
	m.users.On("BulkSummaries", mock.Anything, []int{1}).Return(map[int]models.UserSummary{1: {ID: 1, Username: "me"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/5/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	m.chats.AssertExpectations(t)
	m.messages.AssertExpectations(t)
}

func TestGetChatMessagesForbidden(t *testing.T) {
	router, m := setupChatRouter()

	m.chats.On("IsParticipant", mock.Anything, 5, 1).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/5/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	m.messages.AssertNotCalled(t, "ListMessages", mock.Anything, mock.Anything)
}

func TestGetChatMessagesInvalidID(t *testing.T) {
	router, _ := setupChatRouter()

	req := httptest.NewRequest(http.MethodGet, "/chats/abc/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostChatMessageSuccess(t *testing.T) {
	router, m := setupChatRouter()

	msg := models.Message{ID: 7, ChatID: 5, SenderID: 1, Content: "hi"}
	m.chats.On("GetChat", mock.Anything, 5).Return(models.Chat{ID: 5, User1ID: 1, User2ID: 2}, nil).Once()
	m.messages.On("CreateMessage", mock.Anything, 5, 1, "hi").Return(msg, nil).Once()
	m.chats.On("SetLastMessage", mock.Anything, 5, mock.Anything).Return(nil).Once()
	m.users.On("GetUser", mock.Anything, 1).Return(models.User{ID: 1, Username: "me"}, nil).Once()
	m.broadcaster.On("EmitToChat", 5, models.EventReceiveMessage, mock.Anything).Once()
	m.broadcaster.On("EmitToUser", 2, models.EventChatUpdated, mock.Anything).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/5/messages", bytes.NewBufferString(`{"content":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	m.chats.AssertExpectations(t)
	m.messages.AssertExpectations(t)
	m.broadcaster.AssertExpectations(t)
}

func TestPostChatMessageEmptyContent(t *testing.T) {
	router, m := setupChatRouter()

	req := httptest.NewRequest(http.MethodPost, "/chats/5/messages", bytes.NewBufferString(`{"content":"   "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	m.messages.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPostChatMessageChatNotFound(t *testing.T) {
	router, m := setupChatRouter()

	m.chats.On("GetChat", mock.Anything, 5).Return(models.Chat{}, repositories.ErrChatNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/5/messages", bytes.NewBufferString(`{"content":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	m.chats.AssertExpectations(t)
}

func TestDeleteMessageNotSender(t *testing.T) {
	router, m := setupChatRouter()

	m.messages.On("GetMessage", mock.Anything, 7).Return(models.Message{ID: 7, ChatID: 5, SenderID: 2}, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/chats/messages/7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	m.messages.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything)
}

func TestUnreadCount(t *testing.T) {
	router, m := setupChatRouter()

	m.messages.On("CountUnreadForUser", mock.Anything, 1).Return(3, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/unread/count", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]int
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 3, resp["count"])
}

func TestMarkChatReadSuccess(t *testing.T) {
	router, m := setupChatRouter()

	m.chats.On("GetChat", mock.Anything, 5).Return(models.Chat{ID: 5, User1ID: 1, User2ID: 2}, nil).Once()
	m.messages.On("MarkChatRead", mock.Anything, 5, 1).Return(int64(2), nil).Once()
	m.broadcaster.On("EmitToUser", 2, models.EventMessagesRead, mock.Anything).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/5/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	m.messages.AssertExpectations(t)
	m.broadcaster.AssertExpectations(t)
}
