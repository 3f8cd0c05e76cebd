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

package tracestore

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func makeSpan(traceID, spanID string, start time.Time) *Span {
	return &Span{
		TraceID:   traceID,
		SpanID:    spanID,
		Name:      "op",
		Kind:      "internal",
		StartTime: start,
		EndTime:   start.Add(50 * time.Millisecond),
	}
}

func TestOpen(t *testing.T) {
	t.Run("empty path rejected", func(t *testing.T) {
		_, err := Open("")
		require.Error(t, err)
	})

	t.Run("creates file database", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "traces.db")
		store, err := Open(path)
		require.NoError(t, err)
		require.NoError(t, store.Close())

		// Reopen to prove migrations are idempotent.
		store, err = Open(path)
		require.NoError(t, err)
		require.NoError(t, store.Close())
	})
}

func TestInsertAndTraceSpans(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().Truncate(time.Millisecond)

	parent := makeSpan("trace-1", "span-a", base)
	parent.Kind = "client"
	parent.StatusCode = 2
	parent.StatusMessage = "request failed"
	parent.Attributes = map[string]any{"http.method": "GET", "retries": float64(2)}

	child := makeSpan("trace-1", "span-b", base.Add(10*time.Millisecond))
	child.ParentID = "span-a"

	require.NoError(t, store.Insert(ctx, []*Span{child, parent}))

	spans, err := store.TraceSpans(ctx, "trace-1")
	require.NoError(t, err)
	require.Len(t, spans, 2)

	// Ordered by start time, parent first.
	assert.Equal(t, "span-a", spans[0].SpanID)
	assert.Empty(t, spans[0].ParentID)
	assert.Equal(t, "client", spans[0].Kind)
	assert.Equal(t, 2, spans[0].StatusCode)
	assert.Equal(t, "request failed", spans[0].StatusMessage)
	assert.Equal(t, map[string]any{"http.method": "GET", "retries": float64(2)}, spans[0].Attributes)
	assert.Equal(t, 50*time.Millisecond, spans[0].Duration())

	assert.Equal(t, "span-b", spans[1].SpanID)
	assert.Equal(t, "span-a", spans[1].ParentID)
}

func TestInsertReplacesDuplicates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	span := makeSpan("trace-1", "span-a", time.Now())
	require.NoError(t, store.Insert(ctx, []*Span{span}))

	span.Name = "renamed"
	require.NoError(t, store.Insert(ctx, []*Span{span}))

	spans, err := store.TraceSpans(ctx, "trace-1")
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, "renamed", spans[0].Name)
}

func TestInsertEmptyBatch(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Insert(context.Background(), nil))
}

func TestRecentTraces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 5; i++ {
		traceID := fmt.Sprintf("trace-%d", i)
		require.NoError(t, store.Insert(ctx, []*Span{
			makeSpan(traceID, "root", base.Add(time.Duration(i)*time.Second)),
		}))
	}

	recent, err := store.RecentTraces(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"trace-4", "trace-3", "trace-2"}, recent)

	all, err := store.RecentTraces(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestDeleteOlderThan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, store.Insert(ctx, []*Span{
		makeSpan("old", "a", base.Add(-48*time.Hour)),
		makeSpan("old", "b", base.Add(-47*time.Hour)),
		makeSpan("new", "c", base),
	}))

	deleted, err := store.DeleteOlderThan(ctx, base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	spans, err := store.TraceSpans(ctx, "new")
	require.NoError(t, err)
	assert.Len(t, spans, 1)
}
