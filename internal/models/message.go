package models

import "time"

// Message is a chat message. The send timestamp is server-assigned and
// the serial id is the tie-break for messages stored in the same instant.
// ClientKey is an optional client-generated idempotency token, unique
// within a chat, so a reconnect-and-resend cannot duplicate the message.
type Message struct {
	ID        int64     `db:"id" json:"id"`
	ChatID    string    `db:"chat_id" json:"chat_id"`
	SenderID  string    `db:"sender_id" json:"sender_id"`
	Content   string    `db:"content" json:"content"`
	ClientKey *string   `db:"client_key" json:"-"`
	Read      bool      `db:"read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
