package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"foundlink/internal/models"
)

var ErrChatNotFound = errors.New("chat not found")

// ChatRepository abstracts chat persistence.
type ChatRepository interface {
	Upsert(ctx context.Context, chatID, user1ID, user2ID string) (models.Chat, error)
	Get(ctx context.Context, chatID string) (models.Chat, error)
	IsParticipant(ctx context.Context, chatID, userID string) (bool, error)
	ListForUser(ctx context.Context, userID string) ([]models.Chat, error)
	SetLastMessage(ctx context.Context, chatID, text string, at time.Time) error
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// Upsert creates the chat keyed by its match id if absent. The key is
// deterministic, so two concurrent callers both observing "not exists"
// is safe: the second write lands on the same row.
func (r *ChatRepo) Upsert(ctx context.Context, chatID, user1ID, user2ID string) (models.Chat, error) {
	var chat models.Chat
	err := r.db.QueryRowxContext(ctx, `INSERT INTO chats (id, user1_id, user2_id) VALUES ($1, $2, $3)
        ON CONFLICT (id) DO UPDATE SET user1_id = chats.user1_id
        RETURNING id, user1_id, user2_id, last_message, last_message_at, created_at`,
		chatID, user1ID, user2ID).
		StructScan(&chat)
	return chat, err
}

// Get fetches a chat by id.
func (r *ChatRepo) Get(ctx context.Context, chatID string) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat, `SELECT id, user1_id, user2_id, last_message, last_message_at, created_at FROM chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	return chat, err
}

// IsParticipant checks whether a user belongs to the chat.
func (r *ChatRepo) IsParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM chats WHERE id=$1 AND (user1_id=$2 OR user2_id=$2))`, chatID, userID)
	return exists, err
}

// ListForUser returns the user's chats, most recently active first.
func (r *ChatRepo) ListForUser(ctx context.Context, userID string) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.SelectContext(ctx, &chats, `SELECT id, user1_id, user2_id, last_message, last_message_at, created_at
        FROM chats WHERE user1_id=$1 OR user2_id=$1
        ORDER BY COALESCE(last_message_at, created_at) DESC`, userID)
	return chats, err
}

// SetLastMessage updates the denormalized last-message summary.
func (r *ChatRepo) SetLastMessage(ctx context.Context, chatID, text string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE chats SET last_message=$2, last_message_at=$3 WHERE id=$1`, chatID, text, at)
	return err
}
