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
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// isIdempotentMethod reports whether a method is safe to retry after a
// transport failure. PUT and DELETE count: the platform's handlers for both
// are idempotent.
func isIdempotentMethod(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// isRetryableTransportError reports whether a failure that prevented any
// response from arriving is worth retrying. Context cancellation is never
// retried.
func isRetryableTransportError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return isRetryableTransportError(urlErr.Err)
	}

	msg := strings.ToLower(err.Error())
	for _, hint := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"network is unreachable",
		"unexpected eof",
		"eof",
	} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

// backoffDelay returns the wait before retry attempt n (0-based): the base
// delay doubled per prior attempt.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(1<<attempt)
}

// sleepCtx waits for d or until the context is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// buildHTTPClient constructs the underlying http.Client. The client timeout
// bounds each individual attempt, not the whole retry sequence.
func buildHTTPClient(cfg ClientConfig, base http.RoundTripper) *http.Client {
	if base == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.TLSInsecure {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		base = transport
	}
	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: base,
	}
}
