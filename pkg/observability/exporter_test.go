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

package observability

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/pipeflowhq/pipeflow-go/internal/tracestore"
)

func TestNewExporter(t *testing.T) {
	ctx := context.Background()

	t.Run("empty type means console", func(t *testing.T) {
		exporter, err := NewExporter(ctx, ExporterConfig{})
		require.NoError(t, err)
		require.NotNil(t, exporter)
		assert.NoError(t, exporter.Shutdown(ctx))
	})

	t.Run("console", func(t *testing.T) {
		exporter, err := NewExporter(ctx, ExporterConfig{Type: ExporterConsole})
		require.NoError(t, err)
		require.NotNil(t, exporter)
		assert.NoError(t, exporter.Shutdown(ctx))
	})

	t.Run("none returns nil exporter", func(t *testing.T) {
		exporter, err := NewExporter(ctx, ExporterConfig{Type: ExporterNone})
		require.NoError(t, err)
		assert.Nil(t, exporter)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := NewExporter(ctx, ExporterConfig{Type: "jaeger"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown exporter type")
	})

	t.Run("sqlite requires path", func(t *testing.T) {
		_, err := NewExporter(ctx, ExporterConfig{Type: ExporterSQLite})
		require.Error(t, err)
	})

	t.Run("otlp-http alias accepted", func(t *testing.T) {
		exporter, err := NewExporter(ctx, ExporterConfig{
			Type:     "otlp-http",
			Endpoint: "localhost:4318",
			Insecure: true,
		})
		require.NoError(t, err)
		require.NotNil(t, exporter)
	})
}

func TestSQLiteExporterRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "traces.db")

	exporter, err := NewExporter(ctx, ExporterConfig{
		Type: ExporterSQLite,
		Path: path,
	})
	require.NoError(t, err)

	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	tracer := tp.Tracer("test")

	parentCtx, parent := tracer.Start(ctx, "workflow.execute",
		trace.WithSpanKind(trace.SpanKindClient))
	_, child := tracer.Start(parentCtx, "http.request")
	child.End()
	parent.End()

	require.NoError(t, tp.Shutdown(ctx))

	store, err := tracestore.Open(path)
	require.NoError(t, err)
	defer store.Close()

	traceID := parent.SpanContext().TraceID().String()
	spans, err := store.TraceSpans(ctx, traceID)
	require.NoError(t, err)
	require.Len(t, spans, 2)

	assert.Equal(t, "workflow.execute", spans[0].Name)
	assert.Equal(t, "client", spans[0].Kind)
	assert.Empty(t, spans[0].ParentID)
	assert.Equal(t, "http.request", spans[1].Name)
	assert.Equal(t, parent.SpanContext().SpanID().String(), spans[1].ParentID)

	recent, err := store.RecentTraces(ctx, 10)
	require.NoError(t, err)
	assert.Contains(t, recent, traceID)
}
