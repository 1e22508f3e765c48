// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateUsername is returned by UserRepository.Create when the username is taken.
var ErrDuplicateUsername = errors.New("username already exists")

// Error codes attached to every error returned by Service.
const (
	CodeValidation         = "AUTH_VALIDATION"
	CodeDuplicateUsername  = "AUTH_DUPLICATE_USERNAME"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeMissingToken       = "AUTH_MISSING_TOKEN"
	CodeInvalidToken       = "AUTH_INVALID_TOKEN"
	CodeUserNotFound       = "AUTH_USER_NOT_FOUND"
	CodeStoreUnavailable   = "AUTH_STORE_UNAVAILABLE"
)

// Client-facing messages. These strings are part of the HTTP contract.
const (
	MsgMissingFields      = "Please provide username and password"
	MsgPasswordTooShort   = "Password must be at least 6 characters"
	MsgPasswordTooLong    = "Password must be at most 72 bytes"
	MsgUsernameTaken      = "Username already exists"
	MsgInvalidCredentials = "Invalid credentials"
	MsgNoToken            = "No token provided"
	MsgInvalidToken       = "Token is not valid"
	MsgUserNotFound       = "User not found"
)
