package models

import "time"

// Chat is a two-participant conversation keyed 1:1 to its originating
// match: the chat id equals the match id. Participants are never equal.
type Chat struct {
	ID            string     `db:"id" json:"id"`
	User1ID       string     `db:"user1_id" json:"user1_id"`
	User2ID       string     `db:"user2_id" json:"user2_id"`
	LastMessage   *string    `db:"last_message" json:"last_message,omitempty"`
	LastMessageAt *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// OtherParticipant returns the participant that is not userID.
func (c Chat) OtherParticipant(userID string) string {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// HasParticipant reports whether userID belongs to the chat.
func (c Chat) HasParticipant(userID string) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// ChatEntry is the list-view shape of a chat: the chat itself enriched
// with its match and the other participant's profile, joined at read time.
type ChatEntry struct {
	Chat
	Match       *Match `json:"match,omitempty"`
	Participant *User  `json:"participant,omitempty"`
}
