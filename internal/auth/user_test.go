// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraudguard/fraudguard/internal/auth"
	"github.com/fraudguard/fraudguard/pkg/errutil"
)

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantMsg  string
	}{
		{name: "valid", username: "alice", password: "secret1"},
		{name: "empty username", username: "", password: "secret1", wantMsg: auth.MsgMissingFields},
		{name: "empty password", username: "alice", password: "", wantMsg: auth.MsgMissingFields},
		{name: "five characters", username: "alice", password: "abcde", wantMsg: auth.MsgPasswordTooShort},
		{name: "six characters", username: "alice", password: "abcdef"},
		// Length counts code points: three emoji are three characters.
		{name: "three emoji", username: "alice", password: "😀😀😀", wantMsg: auth.MsgPasswordTooShort},
		{name: "six emoji", username: "alice", password: "😀😀😀😀😀😀"},
		{name: "over the byte ceiling", username: "alice", password: strings.Repeat("é", 37), wantMsg: auth.MsgPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ValidateCredentials(tt.username, tt.password)
			if tt.wantMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, auth.CodeValidation)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}
