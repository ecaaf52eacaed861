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

	"foundlink/internal/chat"
	"foundlink/internal/mocks"
	"foundlink/internal/models"
	"foundlink/internal/repositories"
)

func setupChatRouter(service *mocks.ChatServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewChatHandler(service)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userID", "u1")
		c.Next()
	})
	router.POST("/api/chats/create", handler.CreateChat)
	router.GET("/api/chats", handler.ListChats)
	router.GET("/api/chats/:chat_id", handler.GetChat)
	router.POST("/api/chats/:chat_id/messages", handler.PostMessage)
	router.GET("/api/chats/:chat_id/messages", handler.ListMessages)
	router.PATCH("/api/chats/:chat_id/messages/read", handler.MarkRead)
	return router
}

func TestCreateChatSuccess(t *testing.T) {
	service := new(mocks.ChatServiceMock)
	router := setupChatRouter(service)

	service.On("EnsureChat", mock.Anything, "m1").
		Return(&models.Chat{ID: "m1", User1ID: "u1", User2ID: "u2"}, nil).Once()

	body := bytes.NewBufferString(`{"match_id":"m1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chats/create", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "m1", resp["chat_id"])
	service.AssertExpectations(t)
}

func TestCreateChatSelfMatchRejected(t *testing.T) {
	service := new(mocks.ChatServiceMock)
	router := setupChatRouter(service)

	service.On("EnsureChat", mock.Anything, "m1").Return(nil, nil).Once()

	body := bytes.NewBufferString(`{"match_id":"m1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chats/create", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateChatMissingMatchID(t *testing.T) {
	service := new(mocks.ChatServiceMock)
	router := setupChatRouter(service)

	body := bytes.NewBufferString(`{}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chats/create", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertNotCalled(t, "EnsureChat", mock.Anything, mock.Anything)
}

func TestCreateChatMatchNotFound(t *testing.T) {
	service := new(mocks.ChatServiceMock)
	router := setupChatRouter(service)

	service.On("EnsureChat", mock.Anything, "missing").
		Return(nil, repositories.ErrMatchNotFound).Once()

	body := bytes.NewBufferString(`{"match_id":"missing"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chats/create", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListChats(t *testing.T) {
	service := new(mocks.ChatServiceMock)
	router := setupChatRouter(service)

	entries := []models.ChatEntry{{Chat: models.Chat{ID: "m1", User1ID: "u1", User2ID: "u2"}}}
	service.On("ListChatsFor", mock.Anything, "u1").Return(entries, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Chats []models.ChatEntry `json:"chats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Chats, 1)
	assert.Equal(t, "m1", resp.Chats[0].ID)
}

func TestGetChatForbidden(t *testing.T) {
	service := new(mocks.ChatServiceMock)
	router := setupChatRouter(service)

	service.On("GetChat", mock.Anything, "u1", "m1").
		Return(models.Chat{}, chat.ErrForbidden).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/chats/m1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPostMessageCreated(t *testing.T) {
	service := new(mocks.ChatServiceMock)
	router := setupChatRouter(service)

	msg := models.Message{ID: 7, ChatID: "m1", SenderID: "u1", Content: "hi"}
	service.On("PostMessage", mock.Anything, "u1", "m1", "hi", "k1").Return(msg, nil).Once()

	body := bytes.NewBufferString(`{"text":"hi","client_key":"k1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chats/m1/messages", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp models.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(7), resp.ID)
	service.AssertExpectations(t)
}

func TestPostMessageBlankTextRejected(t *testing.T) {
	service := new(mocks.ChatServiceMock)
	router := setupChatRouter(service)

	service.On("PostMessage", mock.Anything, "u1", "m1", "   ", "").
		Return(models.Message{}, chat.ErrEmptyText).Once()

	body := bytes.NewBufferString(`{"text":"   "}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chats/m1/messages", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListMessagesInvalidLimit(t *testing.T) {
	service := new(mocks.ChatServiceMock)
	router := setupChatRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/api/chats/m1/messages?limit=abc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertNotCalled(t, "ListMessages", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestListMessagesWithLimit(t *testing.T) {
	service := new(mocks.ChatServiceMock)
	router := setupChatRouter(service)

	msgs := []models.Message{{ID: 1, ChatID: "m1", Content: "a"}, {ID: 2, ChatID: "m1", Content: "b"}}
	service.On("ListMessages", mock.Anything, "u1", "m1", 50).Return(msgs, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/chats/m1/messages?limit=50", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Messages, 2)
}

func TestMarkReadReportsCount(t *testing.T) {
	service := new(mocks.ChatServiceMock)
	router := setupChatRouter(service)

	service.On("MarkRead", mock.Anything, "u1", "m1").Return(int64(3), nil).Once()

	req := httptest.NewRequest(http.MethodPatch, "/api/chats/m1/messages/read", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]int64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp["updated"])
}
