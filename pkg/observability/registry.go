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
	"runtime"

	"go.opentelemetry.io/otel/metric"
)

// Instrumentor hooks subsystem-specific instrumentation into the provider
// lifecycle. Setup runs during New or Register; Teardown runs in reverse
// registration order during Shutdown. Either hook may be nil.
type Instrumentor struct {
	Name     string
	Setup    func(ctx context.Context, p *Provider) error
	Teardown func(ctx context.Context) error
}

// RuntimeInstrumentor reports goroutine and memory gauges through the
// provider's meter. Useful for long-running tools like the MCP server.
func RuntimeInstrumentor() Instrumentor {
	return Instrumentor{
		Name: "runtime",
		Setup: func(ctx context.Context, p *Provider) error {
			meter := p.mp.Meter("pipeflow.runtime")

			goroutines, err := meter.Int64ObservableGauge("pipeflow_goroutines",
				metric.WithDescription("Number of live goroutines"))
			if err != nil {
				return err
			}
			heapAlloc, err := meter.Int64ObservableGauge("pipeflow_heap_alloc_bytes",
				metric.WithDescription("Bytes of allocated heap objects"),
				metric.WithUnit("By"))
			if err != nil {
				return err
			}

			_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
				var ms runtime.MemStats
				runtime.ReadMemStats(&ms)
				o.ObserveInt64(goroutines, int64(runtime.NumGoroutine()))
				o.ObserveInt64(heapAlloc, int64(ms.HeapAlloc))
				return nil
			}, goroutines, heapAlloc)
			return err
		},
	}
}
