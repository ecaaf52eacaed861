package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"foundlink/internal/models"
	"foundlink/internal/repositories"
)

// NotificationService is the slice of the notification engine the REST
// surface needs.
type NotificationService interface {
	List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID string, id int64) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID string, id int64) error
	DeleteAll(ctx context.Context, userID string) (int64, error)
}

// NotificationHandler manages notification endpoints.
type NotificationHandler struct {
	notifications NotificationService
}

// NewNotificationHandler builds a NotificationHandler.
func NewNotificationHandler(notifications NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List returns the user's notifications, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	userID := c.GetString("userID")

	unreadOnly := c.Query("unread_only") == "true"
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	list, err := h.notifications.List(c.Request.Context(), userID, unreadOnly, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

// MarkRead flips one notification to read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := c.GetString("userID")

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), userID, id); err != nil {
		respondNotificationError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// MarkAllRead flips every unread notification for the user.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID := c.GetString("userID")

	count, err := h.notifications.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark notifications read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": count})
}

// Delete removes one notification.
func (h *NotificationHandler) Delete(c *gin.Context) {
	userID := c.GetString("userID")

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	if err := h.notifications.Delete(c.Request.Context(), userID, id); err != nil {
		respondNotificationError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// DeleteAll removes every notification for the user.
func (h *NotificationHandler) DeleteAll(c *gin.Context) {
	userID := c.GetString("userID")

	count, err := h.notifications.DeleteAll(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": count})
}

func respondNotificationError(c *gin.Context, err error) {
	if errors.Is(err, repositories.ErrNotificationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "unexpected error"})
}
