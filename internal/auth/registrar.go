package auth

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"foundlink/internal/models"
	"foundlink/internal/repositories"
)

// Registrar upserts a profile row the first time an identity is seen in
// this process. Users are created on first successful authentication and
// never hard-deleted here.
type Registrar struct {
	users repositories.UserRepository
	log   *zap.Logger
	seen  sync.Map
}

// NewRegistrar constructs a Registrar.
func NewRegistrar(users repositories.UserRepository, log *zap.Logger) *Registrar {
	return &Registrar{users: users, log: log}
}

// Ensure records the identity's profile once per process. Failures are
// logged and retried on the next request for the same user.
func (r *Registrar) Ensure(ctx context.Context, id Identity) {
	if r == nil {
		return
	}
	if _, loaded := r.seen.LoadOrStore(id.UserID, struct{}{}); loaded {
		return
	}

	err := r.users.Upsert(ctx, models.User{ID: id.UserID, Name: id.Name, Role: id.Role})
	if err != nil {
		r.seen.Delete(id.UserID)
		r.log.Warn("user upsert failed", zap.String("user_id", id.UserID), zap.Error(err))
	}
}
