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

// Package observability bootstraps OpenTelemetry tracing and Prometheus
// metrics for clients and tools built on the platform SDK.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Provider owns the tracer and meter providers plus any registered
// instrumentors. Construct it once per process with New and shut it down
// on exit.
type Provider struct {
	cfg     Config
	logger  *slog.Logger
	tp       *sdktrace.TracerProvider
	mp       *sdkmetric.MeterProvider
	registry *promclient.Registry
	metrics  *Metrics

	mu            sync.Mutex
	instrumentors []Instrumentor
	shutdownOnce  sync.Once
	shutdownErr   error
}

// New builds the provider from cfg and runs Setup on each instrumentor in
// registration order. Exporter construction failures degrade to no export
// with a warning; tracing itself stays up so instrumented code keeps
// working.
func New(ctx context.Context, cfg Config, logger *slog.Logger, instrumentors ...Instrumentor) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	traceOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(NewSampler(cfg.Sampling)),
	}

	if cfg.Enabled {
		exporter, err := NewExporter(ctx, cfg.Exporter)
		if err != nil {
			logger.Warn("failed to create span exporter, spans will not be exported",
				"type", cfg.Exporter.Type,
				"endpoint", cfg.Exporter.Endpoint,
				"error", err)
		} else if exporter != nil {
			batchOpts := []sdktrace.BatchSpanProcessorOption{}
			if cfg.BatchSize > 0 {
				batchOpts = append(batchOpts, sdktrace.WithMaxExportBatchSize(cfg.BatchSize))
			}
			if cfg.BatchInterval > 0 {
				batchOpts = append(batchOpts, sdktrace.WithBatchTimeout(cfg.BatchInterval))
			}
			traceOpts = append(traceOpts, sdktrace.WithSpanProcessor(
				sdktrace.NewBatchSpanProcessor(exporter, batchOpts...)))
		}
	} else {
		traceOpts = append(traceOpts, sdktrace.WithSampler(sdktrace.NeverSample()))
	}

	tp := sdktrace.NewTracerProvider(traceOpts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// Each provider gets its own registry so two providers in one process
	// never fight over collector registration.
	registry := promclient.NewRegistry()
	promExporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		tp.Shutdown(ctx)
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExporter),
	)

	metrics, err := NewMetrics(mp)
	if err != nil {
		tp.Shutdown(ctx)
		return nil, fmt.Errorf("creating metrics: %w", err)
	}

	p := &Provider{
		cfg:      cfg,
		logger:   logger,
		tp:       tp,
		mp:       mp,
		registry: registry,
		metrics:  metrics,
	}

	for _, instrumentor := range instrumentors {
		if err := p.Register(ctx, instrumentor); err != nil {
			p.Shutdown(ctx)
			return nil, err
		}
	}

	return p, nil
}

// Register runs the instrumentor's Setup and records it for Teardown at
// shutdown.
func (p *Provider) Register(ctx context.Context, instrumentor Instrumentor) error {
	p.mu.Lock()
	for _, existing := range p.instrumentors {
		if existing.Name == instrumentor.Name {
			p.mu.Unlock()
			return fmt.Errorf("instrumentor %q already registered", instrumentor.Name)
		}
	}
	p.mu.Unlock()

	if instrumentor.Setup != nil {
		if err := instrumentor.Setup(ctx, p); err != nil {
			return fmt.Errorf("instrumentor %q setup: %w", instrumentor.Name, err)
		}
	}

	p.mu.Lock()
	p.instrumentors = append(p.instrumentors, instrumentor)
	p.mu.Unlock()

	p.logger.Debug("instrumentor registered", "name", instrumentor.Name)
	return nil
}

// Tracer returns a tracer for the given instrumentation scope.
func (p *Provider) Tracer(name string) trace.Tracer {
	return p.tp.Tracer(name)
}

// Metrics returns the platform metric instruments.
func (p *Provider) Metrics() *Metrics {
	return p.metrics
}

// MetricsHandler exposes this provider's Prometheus metrics over HTTP.
func (p *Provider) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// HTTPTransport wraps base so every request through it carries a client
// span and W3C trace context headers.
func (p *Provider) HTTPTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &tracingTransport{
		base:   base,
		tracer: p.Tracer("pipeflow.http"),
	}
}

// ForceFlush exports all buffered spans and metrics synchronously.
func (p *Provider) ForceFlush(ctx context.Context) error {
	if err := p.tp.ForceFlush(ctx); err != nil {
		return err
	}
	return p.mp.ForceFlush(ctx)
}

// Shutdown tears down instrumentors in reverse registration order, then
// flushes and stops the tracer and meter providers. Safe to call more than
// once.
func (p *Provider) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		instrumentors := make([]Instrumentor, len(p.instrumentors))
		copy(instrumentors, p.instrumentors)
		p.mu.Unlock()

		for i := len(instrumentors) - 1; i >= 0; i-- {
			instrumentor := instrumentors[i]
			if instrumentor.Teardown == nil {
				continue
			}
			if err := instrumentor.Teardown(ctx); err != nil {
				p.logger.Warn("instrumentor teardown failed",
					"name", instrumentor.Name, "error", err)
			}
		}

		if err := p.tp.Shutdown(ctx); err != nil {
			p.shutdownErr = err
		}
		if err := p.mp.Shutdown(ctx); err != nil && p.shutdownErr == nil {
			p.shutdownErr = err
		}
	})
	return p.shutdownErr
}
