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
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/pipeflowhq/pipeflow-go/internal/tracestore"
	"github.com/pipeflowhq/pipeflow-go/pkg/observability/export"
)

// NewExporter creates the span exporter selected by cfg.Type. A nil
// exporter with nil error means export is deliberately off (type "none").
func NewExporter(ctx context.Context, cfg ExporterConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Type {
	case ExporterConsole, "":
		return export.NewConsoleExporter(nil)

	case ExporterOTLP:
		return export.NewOTLPExporter(ctx, export.OTLPConfig{
			Endpoint: cfg.Endpoint,
			Insecure: cfg.Insecure,
			Headers:  cfg.Headers,
			Timeout:  cfg.Timeout,
		})

	case ExporterOTLPHTTP, "otlp-http":
		return export.NewOTLPHTTPExporter(ctx, export.OTLPHTTPConfig{
			Endpoint: cfg.Endpoint,
			Insecure: cfg.Insecure,
			Headers:  cfg.Headers,
			Timeout:  cfg.Timeout,
		})

	case ExporterSQLite:
		store, err := tracestore.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return &storeExporter{store: store}, nil

	case ExporterNone:
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown exporter type: %s", cfg.Type)
	}
}

// storeExporter writes span batches to the local SQLite trace store.
type storeExporter struct {
	store *tracestore.Store
}

func (e *storeExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	records := make([]*tracestore.Span, 0, len(spans))
	for _, span := range spans {
		records = append(records, convertSpan(span))
	}
	return e.store.Insert(ctx, records)
}

func (e *storeExporter) Shutdown(ctx context.Context) error {
	return e.store.Close()
}

var _ sdktrace.SpanExporter = (*storeExporter)(nil)

func convertSpan(span sdktrace.ReadOnlySpan) *tracestore.Span {
	record := &tracestore.Span{
		TraceID:   span.SpanContext().TraceID().String(),
		SpanID:    span.SpanContext().SpanID().String(),
		Name:      span.Name(),
		Kind:      spanKindName(span.SpanKind()),
		StartTime: span.StartTime(),
		EndTime:   span.EndTime(),
	}

	if span.Parent().IsValid() {
		record.ParentID = span.Parent().SpanID().String()
	}

	status := span.Status()
	record.StatusCode = int(status.Code)
	record.StatusMessage = status.Description

	if attrs := span.Attributes(); len(attrs) > 0 {
		record.Attributes = make(map[string]any, len(attrs))
		for _, attr := range attrs {
			record.Attributes[string(attr.Key)] = attr.Value.AsInterface()
		}
	}

	return record
}

func spanKindName(kind trace.SpanKind) string {
	switch kind {
	case trace.SpanKindClient:
		return "client"
	case trace.SpanKindServer:
		return "server"
	case trace.SpanKindProducer:
		return "producer"
	case trace.SpanKindConsumer:
		return "consumer"
	default:
		return "internal"
	}
}
