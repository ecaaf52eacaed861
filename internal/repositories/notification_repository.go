package repositories

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"foundlink/internal/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationRepository abstracts notification persistence. Every write
// is scoped by the owning user id so one user can never touch another's
// records.
type NotificationRepository interface {
	Create(ctx context.Context, n models.Notification) (models.Notification, error)
	List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID string, id int64) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID string, id int64) error
	DeleteAll(ctx context.Context, userID string) (int64, error)
}

// NotificationRepo is a sqlx implementation of NotificationRepository.
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepo constructs a NotificationRepo.
func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

const notificationColumns = `id, user_id, type, message, item_id, ref_id, read, created_at`

// Create appends a notification record. Every call appends; rapid
// duplicate triggers produce duplicate records.
func (r *NotificationRepo) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	var stored models.Notification
	err := r.db.QueryRowxContext(ctx, `INSERT INTO notifications (user_id, type, message, item_id, ref_id) VALUES ($1, $2, $3, $4, $5)
        RETURNING `+notificationColumns, n.UserID, n.Type, n.Message, n.ItemID, n.RefID).
		StructScan(&stored)
	return stored, err
}

// List returns the user's notifications, newest first.
func (r *NotificationRepo) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id=$1`
	if unreadOnly {
		query += ` AND read = FALSE`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	var list []models.Notification
	err := r.db.SelectContext(ctx, &list, query, args...)
	return list, err
}

// MarkRead flips a single notification to read. The flag never
// transitions back to false.
func (r *NotificationRepo) MarkRead(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead flips every unread notification for the user and reports
// the count. Zero unread means zero writes.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE user_id=$1 AND read = FALSE`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes a single notification owned by the user.
func (r *NotificationRepo) Delete(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// DeleteAll removes every notification for the user, read or not, and
// reports the count.
func (r *NotificationRepo) DeleteAll(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE user_id=$1`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
