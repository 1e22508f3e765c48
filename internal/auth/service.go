// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/fraudguard/fraudguard/pkg/errutil"
)

// Operation names reported to the Recorder.
const (
	OpRegister = "register"
	OpLogin    = "login"
	OpVerify   = "verify"
)

// ResultOK is the Recorder result label for a successful operation.
const ResultOK = "ok"

// Recorder receives auth outcomes for metrics.
type Recorder interface {
	// AuthOperation is called once per Register, Login or VerifyToken call.
	// result is ResultOK or the error code.
	AuthOperation(operation, result string)
	// TokenRejected is called when a presented token fails verification.
	TokenRejected(reason string)
}

type nopRecorder struct{}

func (nopRecorder) AuthOperation(string, string) {}
func (nopRecorder) TokenRejected(string)         {}

// Session is the result of a successful Register or Login.
type Session struct {
	Token string
	User  PublicUser
}

// dummyPassword is hashed once to obtain a digest for unknown-user logins.
// Verifying against it costs the same as verifying a real digest.
const dummyPassword = "fraudguard-timing-equalizer"

// Service provides registration, login and token verification.
type Service struct {
	users    UserRepository
	hasher   PasswordHasher
	tokens   TokenManager
	logger   *slog.Logger
	recorder Recorder

	dummyOnce sync.Once
	dummyHash string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used by the Service.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the Recorder that receives operation outcomes.
func WithRecorder(r Recorder) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewService creates a new Service.
func NewService(users UserRepository, hasher PasswordHasher, tokens TokenManager, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token manager is required")
	}
	s := &Service{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		logger:   slog.Default(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates an account and returns a session for it.
// Username uniqueness is decided by the repository's atomic Create.
func (s *Service) Register(ctx context.Context, username, password string) (_ *Session, err error) {
	defer func() { s.record(OpRegister, err) }()

	if err := ValidateCredentials(username, password); err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.With("operation", "hash password").Wrap(err)
	}

	user, err := NewUser(username, digest)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			return nil, oops.Code(CodeDuplicateUsername).
				With("username", username).
				Wrap(err)
		}
		return nil, oops.Code(CodeStoreUnavailable).
			With("operation", "create user").
			With("username", username).
			Wrap(err)
	}

	session, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String(), "username", user.Username)
	return session, nil
}

// Login authenticates a user by password and returns a new session.
// Unknown users and wrong passwords produce the same error, and both paths
// perform one digest verification.
func (s *Service) Login(ctx context.Context, username, password string) (_ *Session, err error) {
	defer func() { s.record(OpLogin, err) }()

	if username == "" || password == "" {
		return nil, oops.Code(CodeValidation).Errorf("%s", MsgMissingFields)
	}

	user, lookupErr := s.users.GetByUsername(ctx, username)

	var targetHash string
	userExists := true
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code(CodeStoreUnavailable).
				With("operation", "get user by username").
				With("username", username).
				Wrap(lookupErr)
		}
		targetHash = s.dummyDigest()
		userExists = false
	} else {
		targetHash = user.PasswordHash
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !userExists {
			return nil, oops.Code(CodeInvalidCredentials).Errorf("%s", MsgInvalidCredentials)
		}
		return nil, oops.With("operation", "verify password").
			With("user_id", user.ID.String()).
			Wrap(verifyErr)
	}

	if !userExists || !valid {
		s.logger.DebugContext(ctx, "login rejected", "username", username)
		return nil, oops.Code(CodeInvalidCredentials).Errorf("%s", MsgInvalidCredentials)
	}

	return s.issue(user)
}

// VerifyToken checks a session token and resolves the user it names.
func (s *Service) VerifyToken(ctx context.Context, token string) (_ *PublicUser, err error) {
	defer func() { s.record(OpVerify, err) }()

	if token == "" {
		return nil, oops.Code(CodeMissingToken).Errorf("%s", MsgNoToken)
	}

	identity, err := s.tokens.Verify(token)
	if err != nil {
		reason := "unknown"
		if failure, ok := TokenFailureOf(err); ok {
			reason = failure.String()
		}
		s.recorder.TokenRejected(reason)
		return nil, oops.Code(CodeInvalidToken).
			With("reason", reason).
			Wrap(err)
	}

	id, parseErr := ulid.Parse(identity.UserID)
	if parseErr != nil {
		return nil, oops.Code(CodeUserNotFound).
			With("user_id", identity.UserID).
			Wrap(parseErr)
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeUserNotFound).
				With("user_id", identity.UserID).
				Wrap(err)
		}
		return nil, oops.Code(CodeStoreUnavailable).
			With("operation", "get user by id").
			With("user_id", identity.UserID).
			Wrap(err)
	}

	public := user.Public()
	return &public, nil
}

func (s *Service) issue(user *User) (*Session, error) {
	token, err := s.tokens.Issue(user.ID.String(), user.Username)
	if err != nil {
		return nil, oops.With("operation", "issue token").Wrap(err)
	}
	return &Session{Token: token, User: user.Public()}, nil
}

// dummyDigest returns a digest in the configured hasher's format that no
// password will match. It is computed on first use.
func (s *Service) dummyDigest() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash(dummyPassword + ulid.Make().String())
		if err != nil {
			s.logger.Warn("failed to compute dummy password digest", "error", err)
			return
		}
		s.dummyHash = digest
	})
	return s.dummyHash
}

func (s *Service) record(operation string, err error) {
	result := ResultOK
	if err != nil {
		result = errutil.Code(err)
		if result == "" {
			result = "error"
		}
	}
	s.recorder.AuthOperation(operation, result)
}
