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
)

func TestAIProviders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/providers", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": []map[string]any{
				{"name": "openai", "models": []string{"gpt-4o"}, "available": true},
				{"name": "anthropic", "models": []string{"claude-sonnet"}, "available": false},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	providers, err := client.AI.Providers(context.Background())
	require.NoError(t, err)
	require.Len(t, providers, 2)
	assert.True(t, providers[0].Available)
	assert.False(t, providers[1].Available)
}

func TestAIComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/completions", r.URL.Path)

		var req CompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "summarize this", req.Prompt)

		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"id": "cmp-1", "provider": "openai", "model": "gpt-4o",
				"content": "a summary",
				"usage":   map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	completion, err := client.AI.Complete(context.Background(), &CompletionRequest{Prompt: "summarize this"})
	require.NoError(t, err)
	assert.Equal(t, "a summary", completion.Content)
	assert.Equal(t, 15, completion.Usage.TotalTokens)
}

func TestAIEmbedAndSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/ai/embeddings":
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data": map[string]any{
					"vectors": [][]float64{{0.1, 0.2}, {0.3, 0.4}},
					"usage":   map[string]int{"total_tokens": 8},
				},
			})
		case "/api/ai/vector/search":
			var req VectorSearchRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "docs", req.Collection)
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data": map[string]any{
					"matches": []map[string]any{{"id": "d-1", "score": 0.92}},
				},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	embedding, err := client.AI.Embed(context.Background(), &EmbeddingRequest{Input: []string{"a", "b"}})
	require.NoError(t, err)
	require.Len(t, embedding.Vectors, 2)

	result, err := client.AI.VectorSearch(context.Background(), &VectorSearchRequest{Collection: "docs", Query: "a"})
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, 0.92, result.Matches[0].Score)
}

func TestAIAgentChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/agents/ag-1/chat", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"agent_id": "ag-1",
				"message":  map[string]string{"role": "assistant", "content": "done"},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	reply, err := client.AI.ChatWithAgent(context.Background(), "ag-1", []ChatMessage{{Role: "user", Content: "run it"}})
	require.NoError(t, err)
	assert.Equal(t, "assistant", reply.Message.Role)
	assert.Equal(t, "done", reply.Message.Content)
}
