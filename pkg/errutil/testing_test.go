// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

package errutil_test

import (
	"testing"

	"github.com/samber/oops"

	"github.com/fraudguard/fraudguard/pkg/errutil"
)

func TestAssertErrorCode_MatchingCode(t *testing.T) {
	err := oops.Code("AUTH_VALIDATION").Errorf("password too short")
	errutil.AssertErrorCode(t, err, "AUTH_VALIDATION")
}

func TestAssertErrorContext_MatchingKeyValue(t *testing.T) {
	err := oops.With("username", "alice").Errorf("test error")
	errutil.AssertErrorContext(t, err, "username", "alice")
}
