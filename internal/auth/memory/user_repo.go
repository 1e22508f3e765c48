// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

// Package memory provides an in-process auth.UserRepository for development
// and tests. Data does not survive a restart.
package memory

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/fraudguard/fraudguard/internal/auth"
)

// UserRepository implements auth.UserRepository with mutex-guarded maps.
type UserRepository struct {
	mu         sync.RWMutex
	byID       map[ulid.ULID]*auth.User
	byUsername map[string]ulid.ULID
}

// NewUserRepository creates an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:       make(map[ulid.ULID]*auth.User),
		byUsername: make(map[string]ulid.ULID),
	}
}

// Create stores a new user. The uniqueness check and insert happen under one lock.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	if err := ctx.Err(); err != nil {
		return oops.With("operation", "create user").Wrap(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byUsername[user.Username]; taken {
		return oops.With("username", user.Username).Wrap(auth.ErrDuplicateUsername)
	}
	if _, exists := r.byID[user.ID]; exists {
		return oops.With("id", user.ID.String()).Errorf("user id already exists")
	}

	stored := *user
	r.byID[user.ID] = &stored
	r.byUsername[user.Username] = user.ID
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.With("operation", "get user by id").Wrap(err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	found := *user
	return &found, nil
}

// GetByUsername retrieves a user by exact username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.With("operation", "get user by username").Wrap(err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[username]
	if !ok {
		return nil, oops.With("username", username).Wrap(auth.ErrNotFound)
	}
	found := *r.byID[id]
	return &found, nil
}

// Len returns the number of stored users.
func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Ping always succeeds; it lets the repository serve as a readiness check.
func (r *UserRepository) Ping(context.Context) error {
	return nil
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
