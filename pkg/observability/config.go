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
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the observability bootstrap configuration.
type Config struct {
	// Enabled controls whether tracing is active. When false the provider
	// still constructs but records nothing.
	Enabled bool `yaml:"enabled"`

	// ServiceName identifies this process in traces.
	ServiceName string `yaml:"service_name"`

	// ServiceVersion is the application version stamped on every span.
	ServiceVersion string `yaml:"service_version"`

	// Sampling configures trace sampling.
	Sampling SamplingConfig `yaml:"sampling"`

	// Exporter configures the span export destination.
	Exporter ExporterConfig `yaml:"exporter"`

	// BatchSize is the maximum number of spans per export batch.
	BatchSize int `yaml:"batch_size"`

	// BatchInterval is how often buffered spans are flushed.
	BatchInterval time.Duration `yaml:"batch_interval"`
}

// SamplingConfig controls which traces are recorded.
type SamplingConfig struct {
	// Enabled activates rate-based sampling. When false all traces are
	// sampled.
	Enabled bool `yaml:"enabled"`

	// Rate is the fraction of traces to sample (0.0 - 1.0).
	Rate float64 `yaml:"rate"`

	// AlwaysSampleErrors samples every trace marked as an error regardless
	// of the rate.
	AlwaysSampleErrors bool `yaml:"always_sample_errors"`
}

// Exporter types accepted by ExporterConfig.Type.
const (
	ExporterConsole  = "console"
	ExporterOTLP     = "otlp"
	ExporterOTLPHTTP = "otlp_http"
	ExporterSQLite   = "sqlite"
	ExporterNone     = "none"
)

// ExporterConfig defines the span export destination. An empty Type means
// console.
type ExporterConfig struct {
	// Type selects the backend: console, otlp, otlp_http, sqlite, or none.
	Type string `yaml:"type"`

	// Endpoint is the OTLP receiver address. gRPC uses host:port, HTTP a
	// full URL host.
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS on the export connection.
	Insecure bool `yaml:"insecure"`

	// Headers are sent with each export request, typically for
	// authentication.
	Headers map[string]string `yaml:"headers"`

	// Timeout bounds each export call.
	Timeout time.Duration `yaml:"timeout"`

	// Path is the database file for the sqlite backend.
	Path string `yaml:"path"`
}

// DefaultConfig returns configuration with the standard defaults: tracing
// on, console export, sample everything, always keep errors.
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		ServiceName:    "pipeflow",
		ServiceVersion: "unknown",
		Sampling: SamplingConfig{
			Enabled:            false,
			Rate:               1.0,
			AlwaysSampleErrors: true,
		},
		Exporter: ExporterConfig{
			Type:    ExporterConsole,
			Timeout: 10 * time.Second,
		},
		BatchSize:     512,
		BatchInterval: 5 * time.Second,
	}
}

// Environment variable names read by ConfigFromEnv.
const (
	EnvOTelEnabled     = "PIPEFLOW_OTEL_ENABLED"
	EnvOTelServiceName = "PIPEFLOW_OTEL_SERVICE_NAME"
	EnvOTelExporter    = "PIPEFLOW_OTEL_EXPORTER"
	EnvOTelEndpoint    = "PIPEFLOW_OTEL_ENDPOINT"
	EnvOTelInsecure    = "PIPEFLOW_OTEL_INSECURE"
	EnvOTelHeaders     = "PIPEFLOW_OTEL_HEADERS"
	EnvOTelSampleRate  = "PIPEFLOW_OTEL_SAMPLE_RATE"
	EnvOTelSQLitePath  = "PIPEFLOW_OTEL_SQLITE_PATH"
)

// ConfigFromEnv overlays PIPEFLOW_OTEL_* environment variables on the
// defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if raw := os.Getenv(EnvOTelEnabled); raw != "" {
		cfg.Enabled = raw == "true" || raw == "1"
	}
	if v := os.Getenv(EnvOTelServiceName); v != "" {
		cfg.ServiceName = v
	}
	if v := os.Getenv(EnvOTelExporter); v != "" {
		cfg.Exporter.Type = v
	}
	if v := os.Getenv(EnvOTelEndpoint); v != "" {
		cfg.Exporter.Endpoint = v
	}
	if raw := os.Getenv(EnvOTelInsecure); raw == "true" || raw == "1" {
		cfg.Exporter.Insecure = true
	}
	if raw := os.Getenv(EnvOTelHeaders); raw != "" {
		cfg.Exporter.Headers = parseHeaderList(raw)
	}
	if raw := os.Getenv(EnvOTelSampleRate); raw != "" {
		if rate, err := strconv.ParseFloat(raw, 64); err == nil && rate >= 0 && rate <= 1 {
			cfg.Sampling.Enabled = true
			cfg.Sampling.Rate = rate
		}
	}
	if v := os.Getenv(EnvOTelSQLitePath); v != "" {
		cfg.Exporter.Path = v
	}

	return cfg
}

// parseHeaderList parses "key=value,key2=value2" into a header map.
// Malformed entries are skipped.
func parseHeaderList(raw string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || key == "" {
			continue
		}
		headers[key] = value
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}
