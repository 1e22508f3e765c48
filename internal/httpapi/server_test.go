// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

package httpapi

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_StartServeStop(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})
	srv := NewServer("127.0.0.1:0", handler, 0, quietLogger())
	assert.Empty(t, srv.Addr())

	errCh, err := srv.Start()
	require.NoError(t, err)

	resp, err := http.Get("http://" + srv.Addr() + "/") //nolint:noctx // test-local URL
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "pong", string(body))

	_, err = srv.Start()
	assert.Error(t, err, "second start must fail")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	require.NoError(t, srv.Stop(ctx), "stop is idempotent")

	select {
	case err, ok := <-errCh:
		if ok {
			assert.NoError(t, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("error channel not closed after stop")
	}
}

func TestServer_BusyAddress(t *testing.T) {
	first := NewServer("127.0.0.1:0", http.NotFoundHandler(), time.Second, quietLogger())
	_, err := first.Start()
	require.NoError(t, err)
	defer func() { _ = first.Stop(context.Background()) }()

	second := NewServer(first.Addr(), http.NotFoundHandler(), time.Second, quietLogger())
	_, err = second.Start()
	assert.Error(t, err)
}
