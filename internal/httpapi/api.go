// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Config holds the API dependencies.
type Config struct {
	Auth     AuthService
	Analyzer Analyzer
	// Observer defaults to a no-op.
	Observer RequestObserver
	Logger   *slog.Logger
	// CORSOrigins are compiled origin patterns; none disables CORS headers.
	CORSOrigins []glob.Glob
}

// API serves the public JSON endpoints.
type API struct {
	auth     AuthService
	analyzer Analyzer
	observer RequestObserver
	logger   *slog.Logger
	origins  []glob.Glob
}

// New creates an API.
func New(cfg Config) (*API, error) {
	if cfg.Auth == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if cfg.Analyzer == nil {
		return nil, oops.Errorf("analyzer is required")
	}
	a := &API{
		auth:     cfg.Auth,
		analyzer: cfg.Analyzer,
		observer: cfg.Observer,
		logger:   cfg.Logger,
		origins:  cfg.CORSOrigins,
	}
	if a.observer == nil {
		a.observer = nopObserver{}
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a, nil
}

// Handler returns the routed handler with middleware applied.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", a.handleRegister)
	mux.HandleFunc("POST /api/auth/login", a.handleLogin)
	mux.HandleFunc("GET /api/auth/verify", a.handleVerify)
	mux.HandleFunc("POST /api/detect", a.handleDetect)
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("/", a.handleNotFound)

	// accessLog hands its own request to the mux so r.Pattern is visible
	// after routing; everything below it must not copy the request.
	return chain(mux,
		requestID(),
		tracing(),
		accessLog(a.logger, a.observer),
		cors(a.origins),
		recovery(a.logger),
	)
}
