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

package pipeflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pferrors "github.com/pipeflowhq/pipeflow-go/pkg/errors"
)

func TestCredentialsList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/credentials", r.URL.Path)
		assert.Equal(t, "postgres", r.URL.Query().Get("type"))
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": []map[string]any{
				{"id": "cr-1", "name": "warehouse", "type": "postgres"},
			},
			"pagination": map[string]any{"page": 1, "per_page": 20, "total_items": 1, "total_pages": 1},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	page, err := client.Credentials.List(context.Background(), &CredentialListOptions{Type: "postgres"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "warehouse", page.Data[0].Name)
}

func TestCredentialsGetNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"message":"credential not found"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Credentials.Get(context.Background(), "cr-missing")

	var nf *pferrors.CredentialNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "cr-missing", nf.CredentialID)
}

func TestCredentialsTest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/credentials/cr-1/test", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"success": false, "message": "connection refused"},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result, err := client.Credentials.Test(context.Background(), "cr-1")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "connection refused", result.Message)
}

func TestCredentialsOAuthFlow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/credentials/oauth/start":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "google_sheets", body["type"])
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    map[string]any{"auth_url": "https://accounts.example.com/authorize?state=s1", "state": "s1"},
			})
		case "/api/credentials/oauth/complete":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "s1", body["state"])
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    map[string]any{"id": "cr-9", "name": "sheets", "type": "google_sheets"},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	start, err := client.Credentials.OAuthStart(context.Background(), "google_sheets", "http://localhost:8844/callback")
	require.NoError(t, err)
	assert.Equal(t, "s1", start.State)
	assert.Contains(t, start.AuthURL, "authorize")

	credential, err := client.Credentials.OAuthComplete(context.Background(), "auth-code", start.State)
	require.NoError(t, err)
	assert.Equal(t, "cr-9", credential.ID)
}

func TestCredentialsUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/credentials/cr-1/usage", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": []map[string]any{
				{"credential_id": "cr-1", "workflow_id": "wf-1", "execution_id": "ex-1", "used_at": "2026-08-29T12:00:00Z"},
			},
			"pagination": map[string]any{"page": 1, "per_page": 20, "total_items": 1, "total_pages": 1},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	page, err := client.Credentials.Usage(context.Background(), "cr-1", nil)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "ex-1", page.Data[0].ExecutionID)
}
