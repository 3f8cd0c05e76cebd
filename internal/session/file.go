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
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

const (
	// EnvMasterKey names the environment variable holding the file
	// encryption passphrase.
	EnvMasterKey = "PIPEFLOW_MASTER_KEY"

	argon2Time        = 3
	argon2Memory      = 64 * 1024 // KiB
	argon2Parallelism = 4
	argon2KeyLength   = 32

	saltSize = 16
)

// fileStore keeps the session in an AES-256-GCM encrypted file. The
// encryption key is derived with argon2id from a passphrase taken from
// PIPEFLOW_MASTER_KEY or from a master.key file next to the session file.
type fileStore struct {
	path       string
	passphrase []byte
	mu         sync.Mutex
}

// sessionEnvelope is the on-disk format. A fresh salt and nonce are
// generated on every save.
type sessionEnvelope struct {
	Salt  []byte `json:"salt"`
	Nonce []byte `json:"nonce"`
	Data  []byte `json:"data"`
}

func newFileStore(path string) (*fileStore, error) {
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("locating config directory: %w", err)
		}
		path = filepath.Join(configDir, "pipeflow", "session.enc")
	}

	passphrase, err := resolvePassphrase(filepath.Dir(path))
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}

	return &fileStore{path: path, passphrase: passphrase}, nil
}

// resolvePassphrase prefers the environment variable over the master.key
// file in dir.
func resolvePassphrase(dir string) ([]byte, error) {
	if key := os.Getenv(EnvMasterKey); key != "" {
		return []byte(key), nil
	}

	raw, err := os.ReadFile(filepath.Join(dir, "master.key"))
	if err == nil {
		if key := strings.TrimSpace(string(raw)); key != "" {
			return []byte(key), nil
		}
	}

	return nil, fmt.Errorf("no master key: set %s or create %s",
		EnvMasterKey, filepath.Join(dir, "master.key"))
}

func (f *fileStore) Load(ctx context.Context) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("reading session file: %w", err)
	}

	var envelope sessionEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("invalid session file format: %w", err)
	}

	gcm, err := f.cipher(envelope.Salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, envelope.Nonce, envelope.Data, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting session (wrong master key or corrupted file): %w", err)
	}

	var session Session
	if err := json.Unmarshal(plaintext, &session); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &session, nil
}

func (f *fileStore) Save(ctx context.Context, session *Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	plaintext, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generating salt: %w", err)
	}

	gcm, err := f.cipher(salt)
	if err != nil {
		return err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}

	envelope := sessionEnvelope{
		Salt:  salt,
		Nonce: nonce,
		Data:  gcm.Seal(nil, nonce, plaintext, nil),
	}

	raw, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encoding session file: %w", err)
	}

	if err := os.WriteFile(f.path, raw, 0o600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}

func (f *fileStore) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}

func (f *fileStore) cipher(salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(f.passphrase, salt, argon2Time, argon2Memory,
		argon2Parallelism, argon2KeyLength)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
