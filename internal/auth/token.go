// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// DefaultTokenTTL is the lifetime of an issued session token.
const DefaultTokenTTL = 24 * time.Hour

// TokenFailure is the reason a session token was rejected.
type TokenFailure int

// The closed set of token rejection reasons.
const (
	// TokenMalformed covers undecodable tokens and well-signed tokens whose
	// claims are missing or unusable.
	TokenMalformed TokenFailure = iota + 1
	// TokenBadSignature covers a wrong key or a disallowed signing method.
	TokenBadSignature
	// TokenExpired means the current time is at or after the exp claim.
	TokenExpired
)

// String returns the metric/log label for the failure.
func (f TokenFailure) String() string {
	switch f {
	case TokenMalformed:
		return "malformed"
	case TokenBadSignature:
		return "bad_signature"
	case TokenExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// TokenError is returned by TokenManager.Verify.
type TokenError struct {
	Failure TokenFailure
	Err     error
}

func (e *TokenError) Error() string {
	if e.Err == nil {
		return "session token " + e.Failure.String()
	}
	return "session token " + e.Failure.String() + ": " + e.Err.Error()
}

func (e *TokenError) Unwrap() error { return e.Err }

// TokenFailureOf extracts the rejection reason from an error chain.
func TokenFailureOf(err error) (TokenFailure, bool) {
	var tokenErr *TokenError
	if errors.As(err, &tokenErr) {
		return tokenErr.Failure, true
	}
	return 0, false
}

// Identity is the verified content of a session token.
type Identity struct {
	UserID    string
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenManager issues and verifies session tokens.
type TokenManager interface {
	Issue(userID, username string) (string, error)
	Verify(token string) (*Identity, error)
}

// tokenUser is the "user" claim. Its shape is shared with tokens minted by
// earlier deployments and must not change.
type tokenUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type sessionClaims struct {
	User tokenUser `json:"user"`
	jwt.RegisteredClaims
}

// TokenIssuer implements TokenManager with HS256 JWTs.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption configures a TokenIssuer.
type TokenOption func(*TokenIssuer)

// WithClock overrides the time source used for iat, exp and validation.
func WithClock(now func() time.Time) TokenOption {
	return func(t *TokenIssuer) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTokenIssuer creates a TokenIssuer. A zero ttl selects DefaultTokenTTL.
func NewTokenIssuer(secret []byte, ttl time.Duration, opts ...TokenOption) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, oops.Code("AUTH_TOKEN_CONFIG").Errorf("token signing secret cannot be empty")
	}
	if ttl < 0 {
		return nil, oops.Code("AUTH_TOKEN_CONFIG").With("ttl", ttl.String()).Errorf("token ttl cannot be negative")
	}
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	t := &TokenIssuer{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// TTL returns the lifetime of issued tokens.
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue signs a token for the user, valid from now until now+TTL.
func (t *TokenIssuer) Issue(userID, username string) (string, error) {
	now := t.now()
	claims := sessionClaims{
		User: tokenUser{ID: userID, Username: username},
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", oops.Code("AUTH_TOKEN_SIGN_FAILED").With("user_id", userID).Wrap(err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the token's identity.
// Failures are always a *TokenError.
func (t *TokenIssuer) Verify(token string) (*Identity, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, &TokenError{Failure: classifyJWTError(err), Err: err}
	}
	if claims.User.ID == "" || claims.User.Username == "" {
		return nil, &TokenError{Failure: TokenMalformed, Err: errors.New("missing user claim")}
	}

	identity := &Identity{
		UserID:   claims.User.ID,
		Username: claims.User.Username,
	}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}

func classifyJWTError(err error) TokenFailure {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return TokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return TokenBadSignature
	default:
		return TokenMalformed
	}
}

// Compile-time interface check.
var _ TokenManager = (*TokenIssuer)(nil)
