// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

// Package mocks provides testify mocks for the auth interfaces.
package mocks

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/fraudguard/fraudguard/internal/auth"
)

// testingT is satisfied by *testing.T.
type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockUserRepository is a mock auth.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a mock that asserts its expectations on cleanup.
func NewMockUserRepository(t testingT) *MockUserRepository {
	m := &MockUserRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockUserRepository) Create(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	args := m.Called(ctx, username)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

// MockPasswordHasher is a mock auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a mock that asserts its expectations on cleanup.
func NewMockPasswordHasher(t testingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordHasher) Verify(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

// MockTokenManager is a mock auth.TokenManager.
type MockTokenManager struct {
	mock.Mock
}

// NewMockTokenManager creates a mock that asserts its expectations on cleanup.
func NewMockTokenManager(t testingT) *MockTokenManager {
	m := &MockTokenManager{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTokenManager) Issue(userID, username string) (string, error) {
	args := m.Called(userID, username)
	return args.String(0), args.Error(1)
}

func (m *MockTokenManager) Verify(token string) (*auth.Identity, error) {
	args := m.Called(token)
	identity, _ := args.Get(0).(*auth.Identity)
	return identity, args.Error(1)
}

// Compile-time interface checks.
var (
	_ auth.UserRepository = (*MockUserRepository)(nil)
	_ auth.PasswordHasher = (*MockPasswordHasher)(nil)
	_ auth.TokenManager   = (*MockTokenManager)(nil)
)
