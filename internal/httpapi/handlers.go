// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fraudguard/fraudguard/internal/auth"
	"github.com/fraudguard/fraudguard/internal/detect"
	"github.com/fraudguard/fraudguard/pkg/errutil"
)

// AuthService is the subset of auth.Service the API uses.
type AuthService interface {
	Register(ctx context.Context, username, password string) (*auth.Session, error)
	Login(ctx context.Context, username, password string) (*auth.Session, error)
	VerifyToken(ctx context.Context, token string) (*auth.PublicUser, error)
}

// Analyzer scores a validated transaction.
type Analyzer interface {
	Analyze(ctx context.Context, tx *detect.Transaction) (*detect.Result, error)
}

// RequestObserver receives one observation per served request.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, string, int, time.Duration) {}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerResponse struct {
	Msg   string          `json:"msg"`
	Token string          `json:"token"`
	User  auth.PublicUser `json:"user"`
}

type sessionResponse struct {
	Token string          `json:"token"`
	User  auth.PublicUser `json:"user"`
}

type userResponse struct {
	User auth.PublicUser `json:"user"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// MsgRegistered is returned with a new account's session.
const MsgRegistered = "User registered successfully"

// decodeCredentials reads the JSON credentials body. A malformed body
// yields empty credentials, which the service rejects as a validation error.
func decodeCredentials(w http.ResponseWriter, r *http.Request) credentials {
	var c credentials
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&c); err != nil {
		return credentials{}
	}
	return c
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c := decodeCredentials(w, r)

	session, err := a.auth.Register(ctx, c.Username, c.Password)
	if err != nil {
		a.writeAuthError(w, r, err, MsgRegisterFailed)
		return
	}

	writeJSON(ctx, a.logger, w, http.StatusCreated, registerResponse{
		Msg:   MsgRegistered,
		Token: session.Token,
		User:  session.User,
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c := decodeCredentials(w, r)

	session, err := a.auth.Login(ctx, c.Username, c.Password)
	if err != nil {
		a.writeAuthError(w, r, err, MsgLoginFailed)
		return
	}

	writeJSON(ctx, a.logger, w, http.StatusOK, sessionResponse{Token: session.Token, User: session.User})
}

func (a *API) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := a.auth.VerifyToken(ctx, bearerToken(r))
	if err != nil {
		a.writeAuthError(w, r, err, MsgVerifyFailed)
		return
	}

	writeJSON(ctx, a.logger, w, http.StatusOK, userResponse{User: *user})
}

func (a *API) handleDetect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(ctx, a.logger, w, http.StatusBadRequest, errorResponse{Error: detect.MsgInvalidBody})
		return
	}

	tx, err := detect.ParseTransaction(body)
	if err == nil {
		var result *detect.Result
		result, err = a.analyzer.Analyze(ctx, tx)
		if err == nil {
			writeJSON(ctx, a.logger, w, http.StatusOK, result)
			return
		}
	}

	status, resp := detectFailure(err)
	if status >= http.StatusInternalServerError {
		errutil.LogErrorContext(ctx, a.logger, "transaction analysis failed", err)
	}
	writeJSON(ctx, a.logger, w, status, resp)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), a.logger, w, http.StatusOK, healthResponse{Status: "ok", Message: "Server is running"})
}

func (a *API) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), a.logger, w, http.StatusNotFound, errorResponse{Error: "Not found"})
}

func (a *API) writeAuthError(w http.ResponseWriter, r *http.Request, err error, serverMsg string) {
	status, msg := authFailure(err, serverMsg)
	if status >= http.StatusInternalServerError {
		errutil.LogErrorContext(r.Context(), a.logger, "auth request failed", err, "path", r.URL.Path)
	} else {
		a.logger.DebugContext(r.Context(), "auth request rejected",
			"path", r.URL.Path,
			"code", errutil.Code(err),
		)
	}
	writeJSON(r.Context(), a.logger, w, status, msgResponse{Msg: msg})
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	return strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
}
