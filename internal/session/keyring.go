// Copyright 2025 Pipeflow Authors
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

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "pipeflow"
	keyringAccount = "session"
)

// keyringStore keeps the session JSON in the system keychain: Keychain
// Access on macOS, Secret Service on Linux, Credential Manager on Windows.
type keyringStore struct{}

func newKeyringStore() *keyringStore {
	return &keyringStore{}
}

// available probes the keychain with a read of a key that never exists.
// Any error other than not-found means the service is locked or missing.
func (k *keyringStore) available() bool {
	_, err := keyring.Get(keyringService, "__pipeflow_probe__")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}

func (k *keyringStore) Load(ctx context.Context) (*Session, error) {
	raw, err := keyring.Get(keyringService, keyringAccount)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("reading keychain: %w", err)
	}

	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("decoding stored session: %w", err)
	}
	return &session, nil
}

func (k *keyringStore) Save(ctx context.Context, session *Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := keyring.Set(keyringService, keyringAccount, string(raw)); err != nil {
		return fmt.Errorf("writing keychain: %w", err)
	}
	return nil
}

func (k *keyringStore) Clear(ctx context.Context) error {
	if err := keyring.Delete(keyringService, keyringAccount); err != nil &&
		!errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("clearing keychain: %w", err)
	}
	return nil
}
