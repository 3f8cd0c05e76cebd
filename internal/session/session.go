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

// Package session persists the CLI's login state between invocations.
// The system keychain is preferred; when it is locked or absent an
// encrypted file under the user config directory is used instead.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNoSession is returned when no stored session exists.
var ErrNoSession = errors.New("no stored session")

// Session is the persisted login state for one platform instance.
type Session struct {
	BaseURL      string    `json:"base_url"`
	Username     string    `json:"username,omitempty"`
	APIKey       string    `json:"api_key,omitempty"`
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenExpiry  time.Time `json:"token_expiry,omitempty"`
}

// Expired reports whether the session's access token is past its expiry.
// Sessions backed by an API key never expire.
func (s *Session) Expired() bool {
	if s.APIKey != "" || s.TokenExpiry.IsZero() {
		return false
	}
	return time.Now().After(s.TokenExpiry)
}

// Store persists sessions.
type Store interface {
	// Load returns the stored session, or ErrNoSession.
	Load(ctx context.Context) (*Session, error)

	// Save stores the session, replacing any existing one.
	Save(ctx context.Context, session *Session) error

	// Clear removes the stored session. Clearing an empty store is not an
	// error.
	Clear(ctx context.Context) error
}

// Open returns the best available store: the system keychain when it is
// reachable, otherwise the encrypted file fallback.
func Open() (Store, error) {
	if ks := newKeyringStore(); ks.available() {
		return ks, nil
	}
	return newFileStore("")
}
