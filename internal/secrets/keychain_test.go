// Copyright 2026 The Attune Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package secrets

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeychainRoundTrip(t *testing.T) {
	keyring.MockInit()
	kc := NewKeychain()

	require.NoError(t, kc.Set("test-key", "test-value"))

	value, err := kc.Get("test-key")
	require.NoError(t, err)
	assert.Equal(t, "test-value", value)

	require.NoError(t, kc.Delete("test-key"))

	_, err = kc.Get("test-key")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokenEnv(t *testing.T) {
	keyring.MockInit()
	kc := NewKeychain()

	// No token stored: no env injection, no error.
	assert.Nil(t, kc.TokenEnv())

	require.NoError(t, kc.Set(TokenKey, "sk-test-123"))
	env := kc.TokenEnv()
	require.Len(t, env, 1)
	assert.Equal(t, TokenEnvVar+"=sk-test-123", env[0])
}

func TestIsUnavailableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"locked keychain", errors.New("keychain is locked"), true},
		{"dbus failure", errors.New("failed to connect to dbus"), true},
		{"unrelated", errors.New("item malformed"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUnavailableError(tt.err))
		})
	}
}
