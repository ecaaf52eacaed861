package models

import "time"

// Match is a scored pairing between one lost item and one found item,
// produced by the external similarity service. Append-only.
type Match struct {
	ID          string    `db:"id" json:"id"`
	LostItemID  string    `db:"lost_item_id" json:"lost_item_id"`
	FoundItemID string    `db:"found_item_id" json:"found_item_id"`
	LostUserID  string    `db:"lost_user_id" json:"lost_user_id"`
	FoundUserID string    `db:"found_user_id" json:"found_user_id"`
	Score       float64   `db:"score" json:"score"`
	TextScore   *float64  `db:"text_score" json:"text_score,omitempty"`
	ImageScore  *float64  `db:"image_score" json:"image_score,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
