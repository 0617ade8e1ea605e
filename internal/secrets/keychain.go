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

// Package secrets reads API tokens from the system keychain so spawned
// analysis processes can authenticate without tokens living in config files.
package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	keychainService = "attune"

	// TokenKey is the keychain entry holding the analysis tool API token.
	TokenKey = "api-token"

	// TokenEnvVar is the environment variable injected into spawned
	// processes when a token is present.
	TokenEnvVar = "ATTUNE_API_TOKEN"
)

// ErrNotFound indicates the requested secret does not exist.
var ErrNotFound = errors.New("secret not found")

// ErrUnavailable indicates the keychain service is locked or inaccessible.
var ErrUnavailable = errors.New("keychain unavailable")

// Keychain stores and retrieves secrets via the platform keychain
// (macOS Keychain, Secret Service on Linux, Credential Manager on Windows).
type Keychain struct{}

// NewKeychain returns a keychain accessor.
func NewKeychain() *Keychain {
	return &Keychain{}
}

// Get retrieves a secret by key.
func (k *Keychain) Get(key string) (string, error) {
	value, err := keyring.Get(keychainService, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		if isUnavailableError(err) {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return "", fmt.Errorf("keychain error: %w", err)
	}
	return value, nil
}

// Set stores a secret under key.
func (k *Keychain) Set(key, value string) error {
	if err := keyring.Set(keychainService, key, value); err != nil {
		if isUnavailableError(err) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return fmt.Errorf("keychain error: %w", err)
	}
	return nil
}

// Delete removes a secret.
func (k *Keychain) Delete(key string) error {
	if err := keyring.Delete(keychainService, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return fmt.Errorf("keychain error: %w", err)
	}
	return nil
}

// TokenEnv returns the env entry to inject into spawned processes, or nil
// when no token is stored or the keychain is unavailable. Absence is not an
// error: workflows that need no token still run.
func (k *Keychain) TokenEnv() []string {
	token, err := k.Get(TokenKey)
	if err != nil || token == "" {
		return nil
	}
	return []string{TokenEnvVar + "=" + token}
}

// isUnavailableError matches the error strings different platforms emit when
// the keychain is locked or the service cannot be reached.
func isUnavailableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, indicator := range []string{
		"locked",
		"cannot access",
		"permission denied",
		"user interaction required",
		"secret service",
		"dbus",
	} {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}
