package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"foundlink/internal/mocks"
	"foundlink/internal/models"
	"foundlink/internal/repositories"
)

func setupNotificationRouter(service *mocks.NotificationServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewNotificationHandler(service)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userID", "u1")
		c.Next()
	})
	router.GET("/api/notifications", handler.List)
	router.PATCH("/api/notifications/read-all", handler.MarkAllRead)
	router.PATCH("/api/notifications/:id/read", handler.MarkRead)
	router.DELETE("/api/notifications/delete-all", handler.DeleteAll)
	router.DELETE("/api/notifications/:id", handler.Delete)
	return router
}

func TestListNotifications(t *testing.T) {
	service := new(mocks.NotificationServiceMock)
	router := setupNotificationRouter(service)

	list := []models.Notification{{ID: 2, UserID: "u1", Message: "newer"}, {ID: 1, UserID: "u1", Message: "older"}}
	service.On("List", mock.Anything, "u1", false, 0).Return(list, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Notifications []models.Notification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Notifications, 2)
	assert.Equal(t, int64(2), resp.Notifications[0].ID)
}

func TestListNotificationsUnreadOnlyWithLimit(t *testing.T) {
	service := new(mocks.NotificationServiceMock)
	router := setupNotificationRouter(service)

	service.On("List", mock.Anything, "u1", true, 10).Return([]models.Notification{}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/notifications?unread_only=true&limit=10", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertExpectations(t)
}

func TestMarkNotificationRead(t *testing.T) {
	service := new(mocks.NotificationServiceMock)
	router := setupNotificationRouter(service)

	service.On("MarkRead", mock.Anything, "u1", int64(5)).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPatch, "/api/notifications/5/read", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestMarkNotificationReadNotFound(t *testing.T) {
	service := new(mocks.NotificationServiceMock)
	router := setupNotificationRouter(service)

	service.On("MarkRead", mock.Anything, "u1", int64(99)).
		Return(repositories.ErrNotificationNotFound).Once()

	req := httptest.NewRequest(http.MethodPatch, "/api/notifications/99/read", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarkNotificationReadBadID(t *testing.T) {
	service := new(mocks.NotificationServiceMock)
	router := setupNotificationRouter(service)

	req := httptest.NewRequest(http.MethodPatch, "/api/notifications/abc/read", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkAllNotificationsRead(t *testing.T) {
	service := new(mocks.NotificationServiceMock)
	router := setupNotificationRouter(service)

	service.On("MarkAllRead", mock.Anything, "u1").Return(int64(4), nil).Once()

	req := httptest.NewRequest(http.MethodPatch, "/api/notifications/read-all", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]int64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(4), resp["updated"])
}

func TestDeleteNotification(t *testing.T) {
	service := new(mocks.NotificationServiceMock)
	router := setupNotificationRouter(service)

	service.On("Delete", mock.Anything, "u1", int64(5)).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/api/notifications/5", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestDeleteAllNotifications(t *testing.T) {
	service := new(mocks.NotificationServiceMock)
	router := setupNotificationRouter(service)

	service.On("DeleteAll", mock.Anything, "u1").Return(int64(6), nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/api/notifications/delete-all", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]int64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(6), resp["deleted"])
}
