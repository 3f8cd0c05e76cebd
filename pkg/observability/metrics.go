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
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the instruments shared by the SDK and tools built on it.
type Metrics struct {
	executionsTotal   metric.Int64Counter
	executionDuration metric.Float64Histogram
	apiRequestsTotal  metric.Int64Counter
}

// NewMetrics creates the platform instruments on the given meter provider.
func NewMetrics(mp *sdkmetric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter("pipeflow")

	executionsTotal, err := meter.Int64Counter("pipeflow_workflow_executions_total",
		metric.WithDescription("Workflow executions observed, by terminal status"))
	if err != nil {
		return nil, err
	}

	executionDuration, err := meter.Float64Histogram("pipeflow_workflow_execution_duration_seconds",
		metric.WithDescription("Wall-clock duration of workflow executions"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	apiRequestsTotal, err := meter.Int64Counter("pipeflow_api_requests_total",
		metric.WithDescription("API requests issued by the client, by method and outcome"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		executionsTotal:   executionsTotal,
		executionDuration: executionDuration,
		apiRequestsTotal:  apiRequestsTotal,
	}, nil
}

// RecordExecution counts a finished execution and observes its duration.
func (m *Metrics) RecordExecution(ctx context.Context, status string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.executionsTotal.Add(ctx, 1, attrs)
	m.executionDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordAPIRequest counts an API call by HTTP method and outcome
// ("success" or "error").
func (m *Metrics) RecordAPIRequest(ctx context.Context, method, outcome string) {
	m.apiRequestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	))
}
