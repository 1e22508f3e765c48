// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

// Package auth provides account registration, password login and session
// token verification for FraudGuard.
//
// # Domain Types
//
// Users are created with NewUser, which assigns a ULID and creation time.
// The password digest stored on a User is produced by a PasswordHasher and
// never leaves the server; clients only ever see the PublicUser projection.
//
// # Tokens
//
// Session tokens are stateless HS256 JWTs carrying a user claim
// ({"id", "username"}) and expire a fixed interval after issue. There is no
// revocation list; a token is valid until its expiry.
//
// # Services
//
// Service coordinates a UserRepository, a PasswordHasher and a TokenManager.
// Every failure it returns carries one of the Code* error codes, which the
// HTTP layer maps to a status.
package auth
