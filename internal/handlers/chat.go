package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"foundlink/internal/chat"
	"foundlink/internal/models"
	"foundlink/internal/repositories"
)

// ChatService is the slice of the chat manager the REST surface needs.
type ChatService interface {
	EnsureChat(ctx context.Context, matchID string) (*models.Chat, error)
	ListChatsFor(ctx context.Context, userID string) ([]models.ChatEntry, error)
	GetChat(ctx context.Context, userID, chatID string) (models.Chat, error)
	PostMessage(ctx context.Context, userID, chatID, text, clientKey string) (models.Message, error)
	ListMessages(ctx context.Context, userID, chatID string, limit int) ([]models.Message, error)
	MarkRead(ctx context.Context, userID, chatID string) (int64, error)
}

// ChatHandler manages chat endpoints.
type ChatHandler struct {
	chats ChatService
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(chats ChatService) *ChatHandler {
	return &ChatHandler{chats: chats}
}

// CreateChat creates or returns the chat for a match.
func (h *ChatHandler) CreateChat(c *gin.Context) {
	var req struct {
		MatchID string `json:"match_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.chats.EnsureChat(c.Request.Context(), req.MatchID)
	if err != nil {
		respondChatError(c, err)
		return
	}
	if created == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot chat with yourself"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"chat_id": created.ID})
}

// ListChats returns the chats visible to the authenticated user.
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID := c.GetString("userID")

	entries, err := h.chats.ListChatsFor(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"chats": entries})
}

// GetChat returns one chat, membership-checked.
func (h *ChatHandler) GetChat(c *gin.Context) {
	userID := c.GetString("userID")

	chatRecord, err := h.chats.GetChat(c.Request.Context(), userID, c.Param("chat_id"))
	if err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, chatRecord)
}

// PostMessage stores a chat message; broadcast and notification happen
// inside the manager.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	userID := c.GetString("userID")

	var req struct {
		Text      string `json:"text" binding:"required"`
		ClientKey string `json:"client_key"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.chats.PostMessage(c.Request.Context(), userID, c.Param("chat_id"), req.Text, req.ClientKey)
	if err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// ListMessages returns messages for a chat, oldest first.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	userID := c.GetString("userID")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	msgs, err := h.chats.ListMessages(c.Request.Context(), userID, c.Param("chat_id"), limit)
	if err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// MarkRead flips the read flag on messages not sent by the caller.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	userID := c.GetString("userID")

	count, err := h.chats.MarkRead(c.Request.Context(), userID, c.Param("chat_id"))
	if err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": count})
}

func respondChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repositories.ErrChatNotFound), errors.Is(err, repositories.ErrMatchNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat participant"})
	case errors.Is(err, chat.ErrEmptyText):
		c.JSON(http.StatusBadRequest, gin.H{"error": "message text is empty"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unexpected error"})
	}
}
