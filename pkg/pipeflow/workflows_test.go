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
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pferrors "github.com/pipeflowhq/pipeflow-go/pkg/errors"
)

func TestWorkflowsList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/workflows", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "true", q.Get("active"))
		assert.Equal(t, "1", q.Get("page"))
		assert.Equal(t, "20", q.Get("per_page"))

		workflows := make([]map[string]any, 20)
		for i := range workflows {
			workflows[i] = map[string]any{"id": fmt.Sprintf("wf-%d", i), "name": fmt.Sprintf("workflow %d", i)}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    workflows,
			"pagination": map[string]any{
				"page": 1, "per_page": 20, "total_pages": 3, "total_items": 57,
				"has_next": true, "has_prev": false,
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	active := true
	page, err := client.Workflows.List(context.Background(), &WorkflowListOptions{
		ListOptions: ListOptions{Page: 1, PerPage: 20},
		Active:      &active,
	})
	require.NoError(t, err)

	assert.Len(t, page.Data, 20)
	assert.Equal(t, 57, page.Pagination.TotalItems)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.True(t, page.Pagination.HasNext)
	assert.False(t, page.Pagination.HasPrev)
}

func TestWorkflowsGetNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"message":"workflow not found"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Workflows.Get(context.Background(), "wf-missing")

	var nf *pferrors.WorkflowNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "wf-missing", nf.WorkflowID)
	assert.True(t, pferrors.IsNotFound(err))
}

func TestWorkflowsCreate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/workflows", r.URL.Path)

		var wf Workflow
		require.NoError(t, json.NewDecoder(r.Body).Decode(&wf))
		wf.ID = "wf-new"
		json.NewEncoder(w).Encode(map[string]any{"success": true, "data": wf})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	created, err := client.Workflows.Create(context.Background(), &Workflow{Name: "nightly sync"})
	require.NoError(t, err)
	assert.Equal(t, "wf-new", created.ID)
	assert.Equal(t, "nightly sync", created.Name)
}

func TestWorkflowsExecute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/workflows/wf-1/execute", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		inputs, ok := body["inputs"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "42", inputs["order_id"])

		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"id": "ex-1", "workflow_id": "wf-1", "status": "running"},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	execution, err := client.Workflows.Execute(context.Background(), "wf-1", map[string]any{"order_id": "42"})
	require.NoError(t, err)
	assert.Equal(t, "ex-1", execution.ID)
	assert.Equal(t, StatusRunning, execution.Status)
}

func TestWorkflowsActivateDeactivate(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"id": "wf-1", "active": path == "/workflows/wf-1/activate"},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	wf, err := client.Workflows.Activate(context.Background(), "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "/workflows/wf-1/activate", path)
	assert.True(t, wf.Active)

	wf, err = client.Workflows.Deactivate(context.Background(), "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "/workflows/wf-1/deactivate", path)
	assert.False(t, wf.Active)
}

func TestWorkflowsExportImport(t *testing.T) {
	exported := `{"name":"nightly sync","nodes":[]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/workflows/wf-1/export":
			w.Write([]byte(`{"success":true,"data":` + exported + `}`))
		case "/workflows/import":
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    map[string]any{"id": "wf-2", "name": "nightly sync"},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	doc, err := client.Workflows.Export(context.Background(), "wf-1")
	require.NoError(t, err)
	assert.JSONEq(t, exported, string(doc))

	imported, err := client.Workflows.Import(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, "wf-2", imported.ID)
}

func TestWorkflowsValidate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/workflows/validate", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"valid": false, "errors": []string{"node n-1 has no outgoing connection"}},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result, err := client.Workflows.Validate(context.Background(), &Workflow{Name: "broken"})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Len(t, result.Errors, 1)
}
