package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"foundlink/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository abstracts profile persistence.
type UserRepository interface {
	Upsert(ctx context.Context, user models.User) error
	Get(ctx context.Context, userID string) (models.User, error)
	BulkGet(ctx context.Context, userIDs []string) ([]models.User, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Upsert creates the profile row or refreshes its name and contact info.
func (r *UserRepo) Upsert(ctx context.Context, user models.User) error {
	role := user.Role
	if role == "" {
		role = models.RoleUser
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (id, name, contact, role) VALUES ($1, $2, $3, $4)
        ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, contact = EXCLUDED.contact`,
		user.ID, user.Name, user.Contact, role)
	return err
}

// Get fetches a profile by id.
func (r *UserRepo) Get(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, name, contact, role, created_at FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// BulkGet fetches multiple profiles in one query. Missing ids are simply
// absent from the result.
func (r *UserRepo) BulkGet(ctx context.Context, userIDs []string) ([]models.User, error) {
	if len(userIDs) == 0 {
		return []models.User{}, nil
	}
	query, args, err := sqlx.In(`SELECT id, name, contact, role, created_at FROM users WHERE id IN (?)`, userIDs)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var users []models.User
	err = r.db.SelectContext(ctx, &users, query, args...)
	return users, err
}
