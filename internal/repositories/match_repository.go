package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"foundlink/internal/models"
)

var ErrMatchNotFound = errors.New("match not found")

// MatchRepository abstracts match persistence. Matches are append-only.
type MatchRepository interface {
	Create(ctx context.Context, match models.Match) (models.Match, error)
	Get(ctx context.Context, matchID string) (models.Match, error)
	BulkGet(ctx context.Context, matchIDs []string) ([]models.Match, error)
}

// MatchRepo is a sqlx implementation of MatchRepository.
type MatchRepo struct {
	db *sqlx.DB
}

// NewMatchRepo constructs a MatchRepo.
func NewMatchRepo(db *sqlx.DB) *MatchRepo {
	return &MatchRepo{db: db}
}

// Create stores a match. The id is deterministic per trigger, so a
// concurrent duplicate delivery overwrites with the same values.
func (r *MatchRepo) Create(ctx context.Context, match models.Match) (models.Match, error) {
	var stored models.Match
	err := r.db.QueryRowxContext(ctx, `INSERT INTO matches (id, lost_item_id, found_item_id, lost_user_id, found_user_id, score, text_score, image_score)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (id) DO UPDATE SET score = EXCLUDED.score
        RETURNING id, lost_item_id, found_item_id, lost_user_id, found_user_id, score, text_score, image_score, created_at`,
		match.ID, match.LostItemID, match.FoundItemID, match.LostUserID, match.FoundUserID, match.Score, match.TextScore, match.ImageScore).
		StructScan(&stored)
	return stored, err
}

// Get fetches a match by id.
func (r *MatchRepo) Get(ctx context.Context, matchID string) (models.Match, error) {
	var match models.Match
	err := r.db.GetContext(ctx, &match, `SELECT id, lost_item_id, found_item_id, lost_user_id, found_user_id, score, text_score, image_score, created_at FROM matches WHERE id=$1`, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Match{}, ErrMatchNotFound
	}
	return match, err
}

// BulkGet fetches multiple matches in one query.
func (r *MatchRepo) BulkGet(ctx context.Context, matchIDs []string) ([]models.Match, error) {
	if len(matchIDs) == 0 {
		return []models.Match{}, nil
	}
	query, args, err := sqlx.In(`SELECT id, lost_item_id, found_item_id, lost_user_id, found_user_id, score, text_score, image_score, created_at FROM matches WHERE id IN (?)`, matchIDs)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var matches []models.Match
	err = r.db.SelectContext(ctx, &matches, query, args...)
	return matches, err
}
