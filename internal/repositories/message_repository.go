package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"foundlink/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for chat messages.
type MessageRepository interface {
	Create(ctx context.Context, chatID, senderID, content string, clientKey *string) (models.Message, bool, error)
	List(ctx context.Context, chatID string, limit int) ([]models.Message, error)
	MarkReadExceptSender(ctx context.Context, chatID, senderID string) (int64, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, chat_id, sender_id, content, client_key, read, created_at`

// Create appends a message with a store-assigned timestamp. When a
// client key is supplied and a message with that key already exists in
// the chat, the stored message is returned and created is false. The
// conflict clause makes the key check atomic, so concurrent resends with
// the same key race down to one insert and the rest read the stored row.
func (r *MessageRepo) Create(ctx context.Context, chatID, senderID, content string, clientKey *string) (models.Message, bool, error) {
	var msg models.Message
	if clientKey == nil {
		err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (chat_id, sender_id, content) VALUES ($1, $2, $3)
        RETURNING `+messageColumns, chatID, senderID, content).
			StructScan(&msg)
		return msg, err == nil, err
	}

	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (chat_id, sender_id, content, client_key) VALUES ($1, $2, $3, $4)
        ON CONFLICT (chat_id, client_key) DO NOTHING
        RETURNING `+messageColumns, chatID, senderID, content, *clientKey).
		StructScan(&msg)
	if err == nil {
		return msg, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, false, err
	}

	err = r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE chat_id=$1 AND client_key=$2`, chatID, *clientKey)
	return msg, false, err
}

// List returns the oldest messages first, in non-decreasing timestamp
// order with the serial id breaking ties.
func (r *MessageRepo) List(ctx context.Context, chatID string, limit int) ([]models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE chat_id=$1 ORDER BY created_at ASC, id ASC`
	args := []interface{}{chatID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, query, args...)
	return msgs, err
}

// MarkReadExceptSender flips the read flag on every unread message in the
// chat not sent by senderID and reports how many rows changed. Calling it
// again immediately marks zero additional messages.
func (r *MessageRepo) MarkReadExceptSender(ctx context.Context, chatID, senderID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET read = TRUE WHERE chat_id=$1 AND sender_id<>$2 AND read = FALSE`, chatID, senderID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
