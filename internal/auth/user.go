// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

package auth

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Password constraints.
const (
	MinPasswordLength = 6
	// MaxPasswordBytes is the bcrypt input limit. Longer inputs would be
	// silently truncated by some bcrypt implementations, so they are refused.
	MaxPasswordBytes = 72
)

// User is a registered account.
type User struct {
	ID           ulid.ULID
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// PublicUser is the client-facing projection of a User.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// NewUser creates a User with a fresh ID. The caller supplies an already
// computed password digest.
func NewUser(username, passwordHash string) (*User, error) {
	if username == "" {
		return nil, oops.Code(CodeValidation).Errorf("%s", MsgMissingFields)
	}
	if passwordHash == "" {
		return nil, oops.Code(CodeValidation).Errorf("password hash cannot be empty")
	}
	return &User{
		ID:           ulid.Make(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// Public returns the projection safe to send to clients.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID.String(), Username: u.Username}
}

// ValidateCredentials checks registration input. Password length is counted
// in characters, with a separate byte ceiling for the hasher.
func ValidateCredentials(username, password string) error {
	if username == "" || password == "" {
		return oops.Code(CodeValidation).Errorf("%s", MsgMissingFields)
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return oops.Code(CodeValidation).
			With("min_length", MinPasswordLength).
			Errorf("%s", MsgPasswordTooShort)
	}
	if len(password) > MaxPasswordBytes {
		return oops.Code(CodeValidation).
			With("max_bytes", MaxPasswordBytes).
			Errorf("%s", MsgPasswordTooLong)
	}
	return nil
}

// UserRepository persists users.
//
// Create must be atomic with respect to username uniqueness: two concurrent
// calls for the same username result in exactly one success, and the other
// returns an error wrapping ErrDuplicateUsername. Lookups return an error
// wrapping ErrNotFound when nothing matches.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
}
