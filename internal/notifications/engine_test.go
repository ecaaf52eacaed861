package notifications

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"foundlink/internal/mocks"
	"foundlink/internal/models"
	"foundlink/internal/repositories"
)

func pushedCount(t *testing.T, notificationType string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "foundlink_notifications_pushed_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "type" && label.GetValue() == notificationType {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestNotifyPersistsAndPushes(t *testing.T) {
	repo := new(mocks.NotificationRepositoryMock)
	pusher := new(mocks.PusherMock)
	engine := NewEngine(repo, pusher, zap.NewNop())

	refID := "m1"
	stored := models.Notification{ID: 42, UserID: "u1", Type: models.NotificationTypeMatch, Message: "hello"}
	repo.On("Create", mock.Anything, mock.MatchedBy(func(n models.Notification) bool {
		return n.UserID == "u1" && n.Type == models.NotificationTypeMatch && n.RefID != nil && *n.RefID == "m1"
	})).Return(stored, nil).Once()
	pusher.On("PushToUser", "u1", mock.MatchedBy(func(ev models.OutboundEvent) bool {
		return ev.Type == models.EventNewNotification && ev.Notification != nil && ev.Notification.ID == 42
	})).Once()

	n, err := engine.Notify(context.Background(), "u1", "hello", nil, &refID, models.NotificationTypeMatch)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n.ID)

	repo.AssertExpectations(t)
	pusher.AssertExpectations(t)
}

func TestNotifyStoreFailureSkipsPush(t *testing.T) {
	repo := new(mocks.NotificationRepositoryMock)
	pusher := new(mocks.PusherMock)
	engine := NewEngine(repo, pusher, zap.NewNop())

	repo.On("Create", mock.Anything, mock.Anything).
		Return(models.Notification{}, assert.AnError).Once()

	_, err := engine.Notify(context.Background(), "u1", "hello", nil, nil, models.NotificationTypeMatch)
	assert.Error(t, err)
	pusher.AssertNotCalled(t, "PushToUser", mock.Anything, mock.Anything)
}

func TestNotifyWithoutPusher(t *testing.T) {
	repo := new(mocks.NotificationRepositoryMock)
	engine := NewEngine(repo, nil, zap.NewNop())

	repo.On("Create", mock.Anything, mock.Anything).
		Return(models.Notification{ID: 1, UserID: "u1"}, nil).Once()

	_, err := engine.Notify(context.Background(), "u1", "hello", nil, nil, models.NotificationTypeChatMessage)
	assert.NoError(t, err)
}

func TestNotifyCountsOnlyLivePushes(t *testing.T) {
	repo := new(mocks.NotificationRepositoryMock)
	repo.On("Create", mock.Anything, mock.Anything).
		Return(models.Notification{ID: 1, UserID: "u1"}, nil)
	pusher := new(mocks.PusherMock)
	pusher.On("PushToUser", "u1", mock.Anything).Once()

	notificationType := models.NotificationTypeMatch
	before := pushedCount(t, notificationType)

	withPusher := NewEngine(repo, pusher, zap.NewNop())
	_, err := withPusher.Notify(context.Background(), "u1", "hello", nil, nil, notificationType)
	require.NoError(t, err)
	assert.Equal(t, before+1, pushedCount(t, notificationType))

	withoutPusher := NewEngine(repo, nil, zap.NewNop())
	_, err = withoutPusher.Notify(context.Background(), "u1", "hello", nil, nil, notificationType)
	require.NoError(t, err)
	assert.Equal(t, before+1, pushedCount(t, notificationType))
}

func TestMarkReadSignalsRefresh(t *testing.T) {
	repo := new(mocks.NotificationRepositoryMock)
	pusher := new(mocks.PusherMock)
	engine := NewEngine(repo, pusher, zap.NewNop())

	repo.On("MarkRead", mock.Anything, "u1", int64(5)).Return(nil).Once()
	pusher.On("PushToUser", "u1", mock.MatchedBy(func(ev models.OutboundEvent) bool {
		return ev.Type == models.EventNotificationRead && ev.Notification == nil
	})).Once()

	require.NoError(t, engine.MarkRead(context.Background(), "u1", 5))
	pusher.AssertExpectations(t)
}

func TestMarkReadNotFound(t *testing.T) {
	repo := new(mocks.NotificationRepositoryMock)
	pusher := new(mocks.PusherMock)
	engine := NewEngine(repo, pusher, zap.NewNop())

	repo.On("MarkRead", mock.Anything, "u1", int64(99)).
		Return(repositories.ErrNotificationNotFound).Once()

	err := engine.MarkRead(context.Background(), "u1", 99)
	assert.ErrorIs(t, err, repositories.ErrNotificationNotFound)
	pusher.AssertNotCalled(t, "PushToUser", mock.Anything, mock.Anything)
}

func TestMarkAllReadReportsCount(t *testing.T) {
	repo := new(mocks.NotificationRepositoryMock)
	pusher := new(mocks.PusherMock)
	engine := NewEngine(repo, pusher, zap.NewNop())

	repo.On("MarkAllRead", mock.Anything, "u1").Return(int64(0), nil).Once()
	pusher.On("PushToUser", "u1", mock.Anything).Once()

	count, err := engine.MarkAllRead(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestDeleteAllReportsCount(t *testing.T) {
	repo := new(mocks.NotificationRepositoryMock)
	pusher := new(mocks.PusherMock)
	engine := NewEngine(repo, pusher, zap.NewNop())

	repo.On("DeleteAll", mock.Anything, "u1").Return(int64(8), nil).Once()
	pusher.On("PushToUser", "u1", mock.Anything).Once()

	count, err := engine.DeleteAll(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(8), count)
}
