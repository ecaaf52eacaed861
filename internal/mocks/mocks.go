package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"foundlink/internal/models"
)

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) Upsert(ctx context.Context, chatID, user1ID, user2ID string) (models.Chat, error) {
	args := m.Called(ctx, chatID, user1ID, user2ID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) Get(ctx context.Context, chatID string) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) IsParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ChatRepositoryMock) ListForUser(ctx context.Context, userID string) ([]models.Chat, error) {
	args := m.Called(ctx, userID)
	var list []models.Chat
	if val := args.Get(0); val != nil {
		list = val.([]models.Chat)
	}
	return list, args.Error(1)
}

func (m *ChatRepositoryMock) SetLastMessage(ctx context.Context, chatID, text string, at time.Time) error {
	args := m.Called(ctx, chatID, text, at)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, chatID, senderID, content string, clientKey *string) (models.Message, bool, error) {
	args := m.Called(ctx, chatID, senderID, content, clientKey)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Bool(1), args.Error(2)
}

func (m *MessageRepositoryMock) List(ctx context.Context, chatID string, limit int) ([]models.Message, error) {
	args := m.Called(ctx, chatID, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) MarkReadExceptSender(ctx context.Context, chatID, senderID string) (int64, error) {
	args := m.Called(ctx, chatID, senderID)
	return args.Get(0).(int64), args.Error(1)
}

type MatchRepositoryMock struct {
	mock.Mock
}

func (m *MatchRepositoryMock) Create(ctx context.Context, match models.Match) (models.Match, error) {
	args := m.Called(ctx, match)
	var stored models.Match
	if val := args.Get(0); val != nil {
		stored = val.(models.Match)
	}
	return stored, args.Error(1)
}

func (m *MatchRepositoryMock) Get(ctx context.Context, matchID string) (models.Match, error) {
	args := m.Called(ctx, matchID)
	var match models.Match
	if val := args.Get(0); val != nil {
		match = val.(models.Match)
	}
	return match, args.Error(1)
}

func (m *MatchRepositoryMock) BulkGet(ctx context.Context, matchIDs []string) ([]models.Match, error) {
	args := m.Called(ctx, matchIDs)
	var matches []models.Match
	if val := args.Get(0); val != nil {
		matches = val.([]models.Match)
	}
	return matches, args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) Upsert(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepositoryMock) Get(ctx context.Context, userID string) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) BulkGet(ctx context.Context, userIDs []string) ([]models.User, error) {
	args := m.Called(ctx, userIDs)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

type NotificationRepositoryMock struct {
	mock.Mock
}

func (m *NotificationRepositoryMock) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	args := m.Called(ctx, n)
	var stored models.Notification
	if val := args.Get(0); val != nil {
		stored = val.(models.Notification)
	}
	return stored, args.Error(1)
}

func (m *NotificationRepositoryMock) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly, limit)
	var list []models.Notification
	if val := args.Get(0); val != nil {
		list = val.([]models.Notification)
	}
	return list, args.Error(1)
}

func (m *NotificationRepositoryMock) MarkRead(ctx context.Context, userID string, id int64) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *NotificationRepositoryMock) Delete(ctx context.Context, userID string, id int64) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) DeleteAll(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) Notify(ctx context.Context, userID, message string, itemID, refID *string, notificationType string) (models.Notification, error) {
	args := m.Called(ctx, userID, message, itemID, refID, notificationType)
	var n models.Notification
	if val := args.Get(0); val != nil {
		n = val.(models.Notification)
	}
	return n, args.Error(1)
}

type BroadcasterMock struct {
	mock.Mock
}

func (m *BroadcasterMock) BroadcastToChat(chatID string, event models.OutboundEvent) {
	m.Called(chatID, event)
}

type PusherMock struct {
	mock.Mock
}

func (m *PusherMock) PushToUser(userID string, event models.OutboundEvent) {
	m.Called(userID, event)
}

type ChatCreatorMock struct {
	mock.Mock
}

func (m *ChatCreatorMock) EnsureChat(ctx context.Context, matchID string) (*models.Chat, error) {
	args := m.Called(ctx, matchID)
	var chat *models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(*models.Chat)
	}
	return chat, args.Error(1)
}
