// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

// Package errutil holds helpers for coded errors built with samber/oops.
package errutil

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/oops"
)

// Code returns the oops error code carried by err, or "" when err carries none.
func Code(err error) string {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code := oopsErr.Code()
	if code == nil {
		return ""
	}
	if s, ok := code.(string); ok {
		return s
	}
	return fmt.Sprint(code)
}

// HasCode reports whether err carries the given oops code.
func HasCode(err error, code string) bool {
	return code != "" && Code(err) == code
}

// LogError logs an error with structured context if it's an oops error.
// For oops errors the code and context map are logged alongside the message.
func LogError(logger *slog.Logger, msg string, err error, attrs ...any) {
	LogErrorContext(context.Background(), logger, msg, err, attrs...)
}

// LogErrorContext is LogError with a context, so trace and request ids reach the handler.
func LogErrorContext(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	attrs = append(attrs, "error", err.Error())
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := Code(oopsErr); code != "" {
			attrs = append(attrs, "code", code)
		}
		if errCtx := oopsErr.Context(); len(errCtx) > 0 {
			attrs = append(attrs, "context", errCtx)
		}
	}
	logger.ErrorContext(ctx, msg, attrs...)
}
