package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"proconnect/internal/chat"
	"proconnect/internal/repositories"
	"proconnect/internal/telemetry"
)

// ChatHandler is the REST fallback over the chat service, for clients without
// an active websocket connection. Persisted state is identical on both paths;
// the REST mutations additionally return their result synchronously.
type ChatHandler struct {
	chats *chat.Service
	audit *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(chats *chat.Service, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{chats: chats, audit: audit}
}

// ListChats returns the caller's chat list with friend info and last message.
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID := c.GetInt("userID")

	chats, err := h.chats.ListChats(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// StartChat opens (or returns) the chat with another connected user.
func (h *ChatHandler) StartChat(c *gin.Context) {
	friendID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	userID := c.GetInt("userID")
	if userID == friendID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot chat with yourself"})
		return
	}

	opened, err := h.chats.StartChat(c.Request.Context(), userID, friendID)
	if err != nil {
		h.fail(c, err, "could not start chat")
		return
	}

	h.emitAudit(c, "INFO", "chat opened")
	c.JSON(http.StatusOK, gin.H{"chat_id": opened.ID})
}

// GetChatMessages returns the chat history for a participant.
func (h *ChatHandler) GetChatMessages(c *gin.Context) {
	chatID, err := strconv.Atoi(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	userID := c.GetInt("userID")
	msgs, err := h.chats.Messages(c.Request.Context(), userID, chatID)
	if err != nil {
		h.fail(c, err, "failed to load messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostChatMessage stores a message; connected participants are notified the
// same way as on the websocket path.
func (h *ChatHandler) PostChatMessage(c *gin.Context) {
	chatID, err := strconv.Atoi(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	msg, err := h.chats.SendMessage(c.Request.Context(), userID, chatID, req.Content)
	if err != nil {
		h.fail(c, err, "failed to store message")
		return
	}

	h.emitAudit(c, "INFO", "message sent")
	c.JSON(http.StatusCreated, msg)
}

// MarkChatRead flips read on the unread messages addressed to the caller.
func (h *ChatHandler) MarkChatRead(c *gin.Context) {
	chatID, err := strconv.Atoi(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	userID := c.GetInt("userID")
	if err := h.chats.MarkRead(c.Request.Context(), userID, chatID); err != nil {
		h.fail(c, err, "could not mark chat read")
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteMessage removes one of the caller's own messages.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	userID := c.GetInt("userID")
	if err := h.chats.DeleteMessage(c.Request.Context(), userID, messageID); err != nil {
		h.fail(c, err, "could not delete message")
		return
	}

	h.emitAudit(c, "INFO", "message deleted")
	c.Status(http.StatusNoContent)
}

// UnreadCount returns the caller's total unread message count.
func (h *ChatHandler) UnreadCount(c *gin.Context) {
	userID := c.GetInt("userID")
	count, err := h.chats.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count unread messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// fail maps service errors onto REST statuses. Unexpected failures stay
// generic and are audited.
func (h *ChatHandler) fail(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, chat.ErrEmptyContent):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrNotParticipant),
		errors.Is(err, chat.ErrNotSender),
		errors.Is(err, chat.ErrNotConnected):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, repositories.ErrChatNotFound),
		errors.Is(err, repositories.ErrMessageNotFound),
		errors.Is(err, repositories.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

func (h *ChatHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
