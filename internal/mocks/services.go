package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"foundlink/internal/matching"
	"foundlink/internal/models"
)

type ChatServiceMock struct {
	mock.Mock
}

func (m *ChatServiceMock) EnsureChat(ctx context.Context, matchID string) (*models.Chat, error) {
	args := m.Called(ctx, matchID)
	var chat *models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(*models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatServiceMock) ListChatsFor(ctx context.Context, userID string) ([]models.ChatEntry, error) {
	args := m.Called(ctx, userID)
	var entries []models.ChatEntry
	if val := args.Get(0); val != nil {
		entries = val.([]models.ChatEntry)
	}
	return entries, args.Error(1)
}

func (m *ChatServiceMock) GetChat(ctx context.Context, userID, chatID string) (models.Chat, error) {
	args := m.Called(ctx, userID, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatServiceMock) PostMessage(ctx context.Context, userID, chatID, text, clientKey string) (models.Message, error) {
	args := m.Called(ctx, userID, chatID, text, clientKey)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *ChatServiceMock) ListMessages(ctx context.Context, userID, chatID string, limit int) ([]models.Message, error) {
	args := m.Called(ctx, userID, chatID, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *ChatServiceMock) MarkRead(ctx context.Context, userID, chatID string) (int64, error) {
	args := m.Called(ctx, userID, chatID)
	return args.Get(0).(int64), args.Error(1)
}

type NotificationServiceMock struct {
	mock.Mock
}

func (m *NotificationServiceMock) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly, limit)
	var list []models.Notification
	if val := args.Get(0); val != nil {
		list = val.([]models.Notification)
	}
	return list, args.Error(1)
}

func (m *NotificationServiceMock) MarkRead(ctx context.Context, userID string, id int64) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *NotificationServiceMock) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *NotificationServiceMock) Delete(ctx context.Context, userID string, id int64) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *NotificationServiceMock) DeleteAll(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type MatchIngestorMock struct {
	mock.Mock
}

func (m *MatchIngestorMock) Ingest(ctx context.Context, event matching.MatchEvent) (models.Match, error) {
	args := m.Called(ctx, event)
	var match models.Match
	if val := args.Get(0); val != nil {
		match = val.(models.Match)
	}
	return match, args.Error(1)
}
