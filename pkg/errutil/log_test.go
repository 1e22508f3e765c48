// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

package errutil_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraudguard/fraudguard/pkg/errutil"
)

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil error", nil, ""},
		{"standard error", errors.New("boom"), ""},
		{"oops without code", oops.Errorf("boom"), ""},
		{"oops with code", oops.Code("AUTH_INVALID_TOKEN").Errorf("boom"), "AUTH_INVALID_TOKEN"},
		{"wrapped by fmt", fmt.Errorf("outer: %w", oops.Code("AUTH_MISSING_TOKEN").Errorf("boom")), "AUTH_MISSING_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errutil.Code(tt.err))
		})
	}
}

func TestHasCode(t *testing.T) {
	err := oops.Code("AUTH_USER_NOT_FOUND").Errorf("gone")
	assert.True(t, errutil.HasCode(err, "AUTH_USER_NOT_FOUND"))
	assert.False(t, errutil.HasCode(err, "AUTH_INVALID_TOKEN"))
	assert.False(t, errutil.HasCode(errors.New("plain"), ""))
}

func TestLogError_WithOopsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("AUTH_STORE_UNAVAILABLE").
		With("operation", "create user").
		Errorf("connection refused")

	errutil.LogError(logger, "register failed", err)

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "ERROR", logEntry["level"])
	assert.Equal(t, "register failed", logEntry["msg"])
	assert.Equal(t, "AUTH_STORE_UNAVAILABLE", logEntry["code"])
	errCtx, ok := logEntry["context"].(map[string]any)
	require.True(t, ok, "context should be logged as an object")
	assert.Equal(t, "create user", errCtx["operation"])
}

func TestLogError_WithStandardError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	errutil.LogError(logger, "operation failed", errors.New("standard error"), "path", "/api/auth/login")

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "ERROR", logEntry["level"])
	assert.Contains(t, logEntry["error"], "standard error")
	assert.Equal(t, "/api/auth/login", logEntry["path"])
	assert.NotContains(t, logEntry, "code")
}
