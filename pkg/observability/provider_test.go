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
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()

	cfg := DefaultConfig()
	cfg.ServiceName = "pipeflow-test"
	cfg.Exporter.Type = ExporterNone

	p, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	return p
}

func TestProviderTracer(t *testing.T) {
	p := newTestProvider(t)

	tracer := p.Tracer("pipeflow.test")
	require.NotNil(t, tracer)

	_, span := tracer.Start(context.Background(), "op")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
}

func TestProviderMetricsHandler(t *testing.T) {
	p := newTestProvider(t)

	p.Metrics().RecordExecution(context.Background(), "success", 1500*time.Millisecond)
	p.Metrics().RecordAPIRequest(context.Background(), "GET", "success")

	srv := httptest.NewServer(p.MetricsHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "pipeflow_workflow_executions_total")
	assert.Contains(t, string(body), "pipeflow_workflow_execution_duration_seconds")
}

func TestProviderHTTPTransport(t *testing.T) {
	p := newTestProvider(t)

	var traceparent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("Traceparent")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := &http.Client{Transport: p.HTTPTransport(nil)}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.NotEmpty(t, traceparent, "trace context should be propagated")
}

func TestProviderHTTPTransportErrorStatus(t *testing.T) {
	p := newTestProvider(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := &http.Client{Transport: p.HTTPTransport(nil)}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestProviderInstrumentors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exporter.Type = ExporterNone

	t.Run("setup and teardown run in order", func(t *testing.T) {
		var order []string
		p, err := New(context.Background(), cfg, nil,
			Instrumentor{
				Name:     "first",
				Setup:    func(context.Context, *Provider) error { order = append(order, "setup-first"); return nil },
				Teardown: func(context.Context) error { order = append(order, "teardown-first"); return nil },
			},
			Instrumentor{
				Name:     "second",
				Setup:    func(context.Context, *Provider) error { order = append(order, "setup-second"); return nil },
				Teardown: func(context.Context) error { order = append(order, "teardown-second"); return nil },
			},
		)
		require.NoError(t, err)
		require.NoError(t, p.Shutdown(context.Background()))

		assert.Equal(t, []string{
			"setup-first", "setup-second",
			"teardown-second", "teardown-first",
		}, order)
	})

	t.Run("duplicate name rejected", func(t *testing.T) {
		p, err := New(context.Background(), cfg, nil,
			Instrumentor{Name: "dup"})
		require.NoError(t, err)
		defer p.Shutdown(context.Background())

		err = p.Register(context.Background(), Instrumentor{Name: "dup"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
	})

	t.Run("setup failure aborts construction", func(t *testing.T) {
		_, err := New(context.Background(), cfg, nil, Instrumentor{
			Name:  "broken",
			Setup: func(context.Context, *Provider) error { return errors.New("boom") },
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broken")
	})

	t.Run("runtime instrumentor registers", func(t *testing.T) {
		p, err := New(context.Background(), cfg, nil, RuntimeInstrumentor())
		require.NoError(t, err)
		defer p.Shutdown(context.Background())

		srv := httptest.NewServer(p.MetricsHandler())
		defer srv.Close()

		resp, err := http.Get(srv.URL)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "pipeflow_goroutines")
	})
}

func TestProviderShutdownIdempotent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exporter.Type = ExporterNone

	p, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)

	require.NoError(t, p.Shutdown(context.Background()))
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestProviderDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false

	p, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	_, span := p.Tracer("test").Start(context.Background(), "op")
	assert.False(t, span.IsRecording())
	span.End()
}
