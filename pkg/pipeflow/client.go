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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/pipeflowhq/pipeflow-go/internal/log"
	pferrors "github.com/pipeflowhq/pipeflow-go/pkg/errors"
)

// Client is the entry point to the platform API. Resource operations hang
// off the service fields; the client owns the shared request pipeline,
// authentication state, and open streams.
type Client struct {
	config ClientConfig
	auth   *AuthManager

	httpClient    *http.Client
	baseTransport http.RoundTripper
	transportWrap TransportWrapper
	logger        *slog.Logger
	limiter       *rate.Limiter
	closed        atomic.Bool

	streamMu sync.Mutex
	streams  map[*Stream]struct{}

	Workflows   *WorkflowsService
	Executions  *ExecutionsService
	Credentials *CredentialsService
	AI          *AIService
}

// NewClient validates the configuration and builds a ready-to-use client.
// No network traffic happens here; the first request (or an explicit
// Auth().Authenticate) establishes the session.
func NewClient(cfg ClientConfig, auth AuthConfig, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := auth.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:  cfg,
		logger:  log.New(log.DefaultConfig()).With(log.ComponentKey, "client"),
		streams: make(map[*Stream]struct{}),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	transport := c.baseTransport
	if c.transportWrap != nil {
		if transport == nil {
			transport = http.DefaultTransport
		}
		transport = c.transportWrap.HTTPTransport(transport)
	}
	c.httpClient = buildHTTPClient(cfg, transport)
	c.auth = newAuthManager(c, auth)

	c.Workflows = &WorkflowsService{client: c}
	c.Executions = &ExecutionsService{client: c}
	c.Credentials = &CredentialsService{client: c}
	c.AI = &AIService{client: c}
	return c, nil
}

// Auth exposes the session state: authenticate, logout, token inspection.
func (c *Client) Auth() *AuthManager { return c.auth }

// Config returns a copy of the effective client configuration.
func (c *Client) Config() ClientConfig { return c.config }

// Close marks the client unusable and closes all open streams. It is safe
// to call more than once.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	c.streamMu.Lock()
	streams := make([]*Stream, 0, len(c.streams))
	for s := range c.streams {
		streams = append(streams, s)
	}
	c.streamMu.Unlock()

	for _, s := range streams {
		s.Close()
	}

	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
	return nil
}

func (c *Client) registerStream(s *Stream) {
	c.streamMu.Lock()
	c.streams[s] = struct{}{}
	c.streamMu.Unlock()
}

func (c *Client) unregisterStream(s *Stream) {
	c.streamMu.Lock()
	delete(c.streams, s)
	c.streamMu.Unlock()
}

// request runs the full pipeline: header assembly, client-side rate limit,
// dispatch, status translation, and transport-level retry. It returns the
// raw response body of the first 2xx response.
//
// Error responses from the server are never retried; the server answered.
// Only failures where no response arrived are eligible, and then only for
// idempotent methods unless the configuration opts in for all of them.
func (c *Client) request(ctx context.Context, method, path string, params url.Values, body any, headers map[string]string, withAuth bool) ([]byte, http.Header, error) {
	if c.closed.Load() {
		return nil, nil, &pferrors.Error{Message: "client has been closed", Code: pferrors.CodeClientClosed}
	}

	endpoint := c.config.BaseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, nil, pferrors.Wrap(err, "encoding request body")
		}
	}

	retryable := isIdempotentMethod(method) || c.config.AllowNonIdempotentRetry

	var lastErr error
	for attempt := 0; ; attempt++ {
		// Auth headers are re-resolved per attempt so a token refreshed
		// between attempts is picked up.
		hdr := http.Header{}
		hdr.Set("Content-Type", "application/json")
		hdr.Set("Accept", "application/json")
		hdr.Set("User-Agent", c.config.UserAgent)
		for k, v := range headers {
			hdr.Set(k, v)
		}
		if withAuth {
			authHeaders, err := c.auth.headers(ctx)
			if err != nil {
				return nil, nil, err
			}
			for k, v := range authHeaders {
				hdr.Set(k, v)
			}
		}
		if hdr.Get("X-Request-ID") == "" {
			hdr.Set("X-Request-ID", uuid.NewString())
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, nil, &pferrors.NetworkError{Message: "request aborted while rate limited", Code: pferrors.CodeNetwork, Cause: err}
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, nil, pferrors.Wrap(err, "building request")
		}
		req.Header = hdr

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err == nil {
			raw, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr == nil {
				c.logger.Debug("request completed",
					"method", method,
					"path", path,
					"status", resp.StatusCode,
					log.RequestIDKey, hdr.Get("X-Request-ID"),
					log.DurationKey, time.Since(start).Milliseconds(),
				)
				if resp.StatusCode >= 200 && resp.StatusCode < 300 {
					return raw, resp.Header, nil
				}
				return nil, resp.Header, c.errorFromResponse(resp.StatusCode, resp.Header, raw)
			}
			err = readErr
		}

		if ctx.Err() != nil {
			return nil, nil, &pferrors.NetworkError{Message: "request cancelled", Code: pferrors.CodeNetwork, Cause: ctx.Err()}
		}

		lastErr = err
		if !retryable || attempt >= c.config.MaxRetries || !isRetryableTransportError(err) {
			return nil, nil, &pferrors.NetworkError{
				Message: fmt.Sprintf("request failed after %d attempt(s): %v", attempt+1, err),
				Code:    pferrors.CodeNetwork,
				Cause:   err,
				Context: map[string]any{"method": method, "path": path},
			}
		}

		delay := backoffDelay(c.config.RetryDelay, attempt)
		c.logger.Debug("retrying request",
			"method", method,
			"path", path,
			"attempt", attempt+1,
			"delay", delay.String(),
			"error", err.Error(),
		)
		if err := sleepCtx(ctx, delay); err != nil {
			return nil, nil, &pferrors.NetworkError{Message: "request cancelled during retry wait", Code: pferrors.CodeNetwork, Cause: lastErr}
		}
	}
}

// errorResponse is the wire shape of error bodies. Some endpoints nest the
// detail under "error", others return it flat.
type errorResponse struct {
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
	Message string `json:"message"`
}

func (c *Client) errorFromResponse(statusCode int, header http.Header, body []byte) error {
	message := fmt.Sprintf("request failed with status %d", statusCode)
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		switch {
		case er.Error != nil && er.Error.Message != "":
			message = er.Error.Message
		case er.Message != "":
			message = er.Message
		}
	}
	return pferrors.FromStatusCode(statusCode, message, header, map[string]any{"status_code": statusCode})
}

// apiResponse is the standard success envelope.
type apiResponse struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Pagination *Pagination     `json:"pagination"`
	Timestamp  string          `json:"timestamp"`
}

// do performs an authenticated request and decodes the envelope. Envelope
// failures (success=false on a 2xx) become typed errors here, translating
// "not found" messages into the specific error kinds.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body any) (*apiResponse, error) {
	raw, _, err := c.request(ctx, method, path, params, body, nil, true)
	if err != nil {
		return nil, err
	}

	var resp apiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, pferrors.Wrap(err, "decoding response envelope")
	}
	if !resp.Success {
		message := resp.Message
		if message == "" {
			message = "request was not successful"
		}
		if strings.Contains(strings.ToLower(message), "not found") {
			return nil, &pferrors.Error{Message: message, Code: pferrors.CodeNotFound}
		}
		return nil, &pferrors.Error{Message: message, Code: pferrors.CodeAPIError}
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (*apiResponse, error) {
	return c.do(ctx, http.MethodGet, path, params, nil)
}

func (c *Client) post(ctx context.Context, path string, body any) (*apiResponse, error) {
	return c.do(ctx, http.MethodPost, path, nil, body)
}

func (c *Client) put(ctx context.Context, path string, body any) (*apiResponse, error) {
	return c.do(ctx, http.MethodPut, path, nil, body)
}

func (c *Client) delete(ctx context.Context, path string) (*apiResponse, error) {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// decodeData unmarshals the envelope's data field into T.
func decodeData[T any](resp *apiResponse) (*T, error) {
	var out T
	if len(resp.Data) == 0 {
		return &out, nil
	}
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return nil, pferrors.Wrap(err, "decoding response data")
	}
	return &out, nil
}

// decodeList unmarshals a paginated list response.
func decodeList[T any](resp *apiResponse) (*Page[T], error) {
	page := &Page[T]{}
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &page.Data); err != nil {
			return nil, pferrors.Wrap(err, "decoding response data")
		}
	}
	if resp.Pagination != nil {
		page.Pagination = *resp.Pagination
	}
	return page, nil
}

// Health reports whether the platform answers its health probe.
func (c *Client) Health(ctx context.Context) bool {
	_, _, err := c.request(ctx, http.MethodGet, "/health", nil, nil, nil, false)
	return err == nil
}

// Version returns the platform's version information.
func (c *Client) Version(ctx context.Context) (*APIVersion, error) {
	raw, _, err := c.request(ctx, http.MethodGet, "/version", nil, nil, nil, false)
	if err != nil {
		return nil, err
	}
	var v APIVersion
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, pferrors.Wrap(err, "decoding version response")
	}
	return &v, nil
}
