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
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	pferrors "github.com/pipeflowhq/pipeflow-go/pkg/errors"
)

// Option configures a Client during construction.
type Option func(*Client) error

// WithLogger replaces the client's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			return pferrors.NewConfigurationError("logger must not be nil", "logger")
		}
		c.logger = logger
		return nil
	}
}

// WithTransport replaces the HTTP transport. TLSInsecure is ignored when a
// custom transport is supplied; the caller owns TLS configuration.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) error {
		if rt == nil {
			return pferrors.NewConfigurationError("transport must not be nil", "transport")
		}
		c.baseTransport = rt
		return nil
	}
}

// WithRateLimit caps outgoing requests client-side. Requests beyond the
// burst wait for the limiter before dispatch.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) error {
		if rps <= 0 || burst <= 0 {
			return pferrors.NewConfigurationError("rate limit requires positive rps and burst", "rate_limit")
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		return nil
	}
}

// TransportWrapper instruments an HTTP transport. The observability
// provider satisfies it.
type TransportWrapper interface {
	HTTPTransport(base http.RoundTripper) http.RoundTripper
}

// WithObservability wraps the client transport so every request carries a
// span and propagated trace context.
func WithObservability(w TransportWrapper) Option {
	return func(c *Client) error {
		if w == nil {
			return pferrors.NewConfigurationError("observability wrapper must not be nil", "observability")
		}
		c.transportWrap = w
		return nil
	}
}
