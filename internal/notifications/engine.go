package notifications

import (
	"context"

	"go.uber.org/zap"

	"foundlink/internal/models"
	"foundlink/internal/observability"
	"foundlink/internal/repositories"
)

// Pusher delivers an event to every live connection of a user. Delivery
// is fire-and-forget; a user with no connections is a no-op.
type Pusher interface {
	PushToUser(userID string, event models.OutboundEvent)
}

// Engine creates durable notification records and pushes them to the
// owning user's live sessions. The push is best-effort: a missed push is
// recoverable because the client can always re-fetch via List.
type Engine struct {
	repo   repositories.NotificationRepository
	pusher Pusher
	log    *zap.Logger
}

// NewEngine constructs an Engine. pusher may be nil (no live delivery).
func NewEngine(repo repositories.NotificationRepository, pusher Pusher, log *zap.Logger) *Engine {
	return &Engine{repo: repo, pusher: pusher, log: log}
}

// Notify persists one notification and pushes it live. A push failure
// never fails the persist.
func (e *Engine) Notify(ctx context.Context, userID, message string, itemID, refID *string, notificationType string) (models.Notification, error) {
	n, err := e.repo.Create(ctx, models.Notification{
		UserID:  userID,
		Type:    notificationType,
		Message: message,
		ItemID:  itemID,
		RefID:   refID,
	})
	if err != nil {
		return models.Notification{}, err
	}

	if e.pusher != nil {
		e.pusher.PushToUser(userID, models.OutboundEvent{Type: models.EventNewNotification, Notification: &n})
		observability.IncNotificationPushed(notificationType)
	}
	return n, nil
}

// List returns the user's notifications ordered by recency.
func (e *Engine) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	return e.repo.List(ctx, userID, unreadOnly, limit)
}

// MarkRead flips one notification to read and signals the user's other
// open sessions to refresh.
func (e *Engine) MarkRead(ctx context.Context, userID string, id int64) error {
	if err := e.repo.MarkRead(ctx, userID, id); err != nil {
		return err
	}
	e.signalRefresh(userID)
	return nil
}

// MarkAllRead flips every unread notification and reports the count.
func (e *Engine) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	count, err := e.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	e.signalRefresh(userID)
	return count, nil
}

// Delete removes a single notification.
func (e *Engine) Delete(ctx context.Context, userID string, id int64) error {
	if err := e.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	e.signalRefresh(userID)
	return nil
}

// DeleteAll removes every notification for the user and reports the count.
func (e *Engine) DeleteAll(ctx context.Context, userID string) (int64, error) {
	count, err := e.repo.DeleteAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	e.signalRefresh(userID)
	return count, nil
}

// signalRefresh tells the user's sessions that notification state changed
// without resending any payload.
func (e *Engine) signalRefresh(userID string) {
	e.push(userID, models.OutboundEvent{Type: models.EventNotificationRead})
}

func (e *Engine) push(userID string, event models.OutboundEvent) {
	if e.pusher == nil {
		return
	}
	e.pusher.PushToUser(userID, event)
}
