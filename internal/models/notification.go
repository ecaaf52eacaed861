package models

import "time"

// Notification types.
const (
	NotificationTypeMatch       = "match"
	NotificationTypeChatMessage = "chat_message"
)

// Notification is a durable per-user notification record. The read flag
// only ever transitions from false to true.
type Notification struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Type      string    `db:"type" json:"type"`
	Message   string    `db:"message" json:"message"`
	ItemID    *string   `db:"item_id" json:"item_id,omitempty"`
	RefID     *string   `db:"ref_id" json:"ref_id,omitempty"`
	Read      bool      `db:"read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
