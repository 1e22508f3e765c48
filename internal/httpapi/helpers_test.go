// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fraudguard/fraudguard/internal/auth"
	"github.com/fraudguard/fraudguard/internal/detect"
)

type mockAuthService struct {
	mock.Mock
}

func newMockAuthService(t *testing.T) *mockAuthService {
	m := &mockAuthService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *mockAuthService) Register(ctx context.Context, username, password string) (*auth.Session, error) {
	args := m.Called(ctx, username, password)
	session, _ := args.Get(0).(*auth.Session)
	return session, args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*auth.Session, error) {
	args := m.Called(ctx, username, password)
	session, _ := args.Get(0).(*auth.Session)
	return session, args.Error(1)
}

func (m *mockAuthService) VerifyToken(ctx context.Context, token string) (*auth.PublicUser, error) {
	args := m.Called(ctx, token)
	user, _ := args.Get(0).(*auth.PublicUser)
	return user, args.Error(1)
}

type analyzerFunc func(ctx context.Context, tx *detect.Transaction) (*detect.Result, error)

func (f analyzerFunc) Analyze(ctx context.Context, tx *detect.Transaction) (*detect.Result, error) {
	return f(ctx, tx)
}

type observation struct {
	method, route string
	status        int
}

type recordingObserver struct {
	mu  sync.Mutex
	obs []observation
}

func (o *recordingObserver) ObserveRequest(method, route string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.obs = append(o.obs, observation{method, route, status})
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func unusedAnalyzer(t *testing.T) Analyzer {
	return analyzerFunc(func(context.Context, *detect.Transaction) (*detect.Result, error) {
		t.Fatal("analyzer should not be called")
		return nil, nil
	})
}

func newTestAPI(t *testing.T, svc AuthService, analyzer Analyzer) http.Handler {
	t.Helper()
	api, err := New(Config{Auth: svc, Analyzer: analyzer, Logger: quietLogger()})
	require.NoError(t, err)
	return api.Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}
