// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

package httpapi

import (
	"net/http"
	"slices"

	"github.com/fraudguard/fraudguard/internal/auth"
	"github.com/fraudguard/fraudguard/internal/detect"
	"github.com/fraudguard/fraudguard/pkg/errutil"
)

// Generic server-side failure messages.
const (
	MsgRegisterFailed = "Server error during registration"
	MsgLoginFailed    = "Server error during login"
	MsgVerifyFailed   = "Server error during verification"
	MsgInternal       = "Something went wrong!"
)

var validationMessages = []string{
	auth.MsgMissingFields,
	auth.MsgPasswordTooShort,
	auth.MsgPasswordTooLong,
}

// authFailure maps an auth service error to a status and client message.
// serverMsg is used for every unclassified failure.
func authFailure(err error, serverMsg string) (int, string) {
	switch errutil.Code(err) {
	case auth.CodeValidation:
		if msg := err.Error(); slices.Contains(validationMessages, msg) {
			return http.StatusBadRequest, msg
		}
		return http.StatusBadRequest, auth.MsgMissingFields
	case auth.CodeDuplicateUsername:
		return http.StatusBadRequest, auth.MsgUsernameTaken
	case auth.CodeInvalidCredentials:
		return http.StatusBadRequest, auth.MsgInvalidCredentials
	case auth.CodeMissingToken:
		return http.StatusUnauthorized, auth.MsgNoToken
	case auth.CodeInvalidToken:
		return http.StatusUnauthorized, auth.MsgInvalidToken
	case auth.CodeUserNotFound:
		return http.StatusUnauthorized, auth.MsgUserNotFound
	default:
		return http.StatusInternalServerError, serverMsg
	}
}

// detectFailure maps a scoring error to a status and error body.
func detectFailure(err error) (int, errorResponse) {
	switch errutil.Code(err) {
	case detect.CodeValidation:
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case detect.CodeMLUnavailable:
		return http.StatusServiceUnavailable, errorResponse{
			Error:   detect.MsgMLUnavailable,
			Message: detect.ClientDetail(err),
		}
	default:
		return http.StatusInternalServerError, errorResponse{
			Error:   detect.MsgAnalyzeFailed,
			Message: detect.ClientDetail(err),
		}
	}
}
