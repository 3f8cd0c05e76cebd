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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) *fileStore {
	t.Helper()
	t.Setenv(EnvMasterKey, "test-passphrase")

	store, err := newFileStore(filepath.Join(t.TempDir(), "session.enc"))
	require.NoError(t, err)
	return store
}

func TestSessionExpired(t *testing.T) {
	tests := []struct {
		name    string
		session Session
		want    bool
	}{
		{
			name:    "api key never expires",
			session: Session{APIKey: "pf_key", TokenExpiry: time.Now().Add(-time.Hour)},
			want:    false,
		},
		{
			name:    "no expiry never expires",
			session: Session{AccessToken: "tok"},
			want:    false,
		},
		{
			name:    "future expiry",
			session: Session{AccessToken: "tok", TokenExpiry: time.Now().Add(time.Hour)},
			want:    false,
		},
		{
			name:    "past expiry",
			session: Session{AccessToken: "tok", TokenExpiry: time.Now().Add(-time.Minute)},
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.session.Expired())
		})
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	saved := &Session{
		BaseURL:      "https://pipeflow.example.com",
		Username:     "alice",
		AccessToken:  "access-tok",
		RefreshToken: "refresh-tok",
		TokenExpiry:  time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}
	require.NoError(t, store.Save(ctx, saved))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved.BaseURL, loaded.BaseURL)
	assert.Equal(t, saved.Username, loaded.Username)
	assert.Equal(t, saved.AccessToken, loaded.AccessToken)
	assert.Equal(t, saved.RefreshToken, loaded.RefreshToken)
	assert.True(t, saved.TokenExpiry.Equal(loaded.TokenExpiry))
}

func TestFileStoreLoadMissing(t *testing.T) {
	store := newTestFileStore(t)

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestFileStoreClear(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{BaseURL: "https://x"}))
	require.NoError(t, store.Clear(ctx))

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	// Clearing again is fine.
	require.NoError(t, store.Clear(ctx))
}

func TestFileStoreEncryptsAtRest(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{APIKey: "pf_super_secret"}))

	raw, err := os.ReadFile(store.path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "pf_super_secret")
}

func TestFileStoreWrongKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.enc")

	t.Setenv(EnvMasterKey, "right-key")
	store, err := newFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), &Session{APIKey: "k"}))

	t.Setenv(EnvMasterKey, "wrong-key")
	store2, err := newFileStore(path)
	require.NoError(t, err)

	_, err = store2.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong master key")
}

func TestResolvePassphrase(t *testing.T) {
	t.Run("env var wins", func(t *testing.T) {
		t.Setenv(EnvMasterKey, "from-env")
		key, err := resolvePassphrase(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, []byte("from-env"), key)
	})

	t.Run("master key file", func(t *testing.T) {
		t.Setenv(EnvMasterKey, "")
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "master.key"),
			[]byte("from-file\n"), 0o600))

		key, err := resolvePassphrase(dir)
		require.NoError(t, err)
		assert.Equal(t, []byte("from-file"), key)
	})

	t.Run("nothing available", func(t *testing.T) {
		t.Setenv(EnvMasterKey, "")
		_, err := resolvePassphrase(t.TempDir())
		require.Error(t, err)
	})
}
