// Copyright 2025 Tom Barlow
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

package property

import (
	"errors"
	"log/slog"

	"github.com/zalando/go-keyring"
)

// DefaultKeychainService is the keychain service name used when none is given.
const DefaultKeychainService = "httpinvoke"

// KeychainSource resolves keys from the system keychain.
// Supported platforms:
//   - macOS: Keychain Access
//   - Linux: Secret Service API (GNOME Keyring, KWallet)
//   - Windows: Credential Manager
type KeychainSource struct {
	service string
}

// NewKeychainSource creates a keychain source for the given service.
func NewKeychainSource(service string) *KeychainSource {
	if service == "" {
		service = DefaultKeychainService
	}
	return &KeychainSource{service: service}
}

// Name returns "keychain:<service>".
func (k *KeychainSource) Name() string { return "keychain:" + k.service }

// Priority returns PriorityKeychain.
func (k *KeychainSource) Priority() int { return PriorityKeychain }

// Lookup reads key from the keychain. A locked or unavailable keychain is
// reported as a miss so lower-priority sources still get a chance.
func (k *KeychainSource) Lookup(key string) (string, bool) {
	value, err := keyring.Get(k.service, key)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			slog.Debug("keychain lookup failed", "service", k.service, "key", key, "error", err)
		}
		return "", false
	}
	return value, true
}
