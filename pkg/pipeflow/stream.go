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
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	pferrors "github.com/pipeflowhq/pipeflow-go/pkg/errors"
)

const (
	wsHandshakeTimeout = 10 * time.Second
	wsWriteWait        = 10 * time.Second
	// pongWait bounds how long the connection may go silent; pingPeriod
	// must be shorter so a ping is always in flight before the deadline.
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
)

// Stream is a live subscription to one execution's updates. Events arrive
// on Events until the execution reaches a terminal status, the context is
// cancelled, or the connection fails; Err reports why the channel closed.
type Stream struct {
	client      *Client
	conn        *websocket.Conn
	executionID string
	topic       string
	events      chan ExecutionEvent
	cancel      context.CancelFunc

	writeMu   sync.Mutex
	closeOnce sync.Once

	errMu sync.Mutex
	err   error
}

// StreamExecution opens a WebSocket subscription for one execution. The
// returned stream is registered with the client and closed by Client.Close.
func (c *Client) StreamExecution(ctx context.Context, executionID string) (*Stream, error) {
	if c.closed.Load() {
		return nil, &pferrors.Error{Message: "client has been closed", Code: pferrors.CodeClientClosed}
	}

	wsURL := httpToWS(c.config.BaseURL) + "/ws"

	authHeaders, err := c.auth.headers(ctx)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	for k, v := range authHeaders {
		header.Set(k, v)
	}

	dialer := websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout}
	if c.config.TLSInsecure {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	conn, _, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, &pferrors.WebSocketError{
			Message: "failed to connect to streaming endpoint",
			Code:    pferrors.CodeWebSocket,
			Cause:   err,
		}
	}

	streamCtx, cancel := context.WithCancel(ctx)
	s := &Stream{
		client:      c,
		conn:        conn,
		executionID: executionID,
		topic:       "execution:" + executionID,
		events:      make(chan ExecutionEvent, 16),
		cancel:      cancel,
	}

	if err := s.writeJSON(map[string]string{"type": "subscribe", "topic": s.topic}); err != nil {
		cancel()
		conn.Close()
		return nil, &pferrors.WebSocketError{
			Message: "failed to subscribe to execution updates",
			Code:    pferrors.CodeWebSocket,
			Cause:   err,
		}
	}

	c.registerStream(s)
	go s.readLoop(streamCtx)
	go s.keepalive(streamCtx)
	go func() {
		<-streamCtx.Done()
		s.shutdown()
	}()

	return s, nil
}

// Events is the stream of execution updates. It is closed when the stream
// ends for any reason.
func (s *Stream) Events() <-chan ExecutionEvent { return s.events }

// Err reports why the stream ended. It is nil for a clean end: terminal
// status, context cancellation, or an explicit Close.
func (s *Stream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close unsubscribes and tears down the connection. Safe to call multiple
// times and concurrently with event delivery.
func (s *Stream) Close() error {
	s.cancel()
	return nil
}

func (s *Stream) setErr(err error) {
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()
}

// shutdown sends a best-effort unsubscribe before closing. Runs exactly
// once.
func (s *Stream) shutdown() {
	s.closeOnce.Do(func() {
		_ = s.writeJSON(map[string]string{"type": "unsubscribe", "topic": s.topic})
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(wsWriteWait))
		s.writeMu.Unlock()
		s.conn.Close()
		s.client.unregisterStream(s)
	})
}

func (s *Stream) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return s.conn.WriteJSON(v)
}

// wireEvent is the frame shape on the wire. Timestamps come as RFC 3339
// strings; unparsable ones are left zero rather than dropping the frame.
type wireEvent struct {
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	Timestamp string         `json:"timestamp"`
}

func (s *Stream) readLoop(ctx context.Context) {
	defer close(s.events)
	defer s.cancel()

	s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				closeCode := 0
				var closeErr *websocket.CloseError
				if errors.As(err, &closeErr) {
					closeCode = closeErr.Code
				}
				s.setErr(&pferrors.WebSocketError{
					Message:   "streaming connection lost",
					Code:      pferrors.CodeWebSocket,
					CloseCode: closeCode,
					Cause:     err,
				})
			}
			return
		}

		var frame wireEvent
		if err := json.Unmarshal(data, &frame); err != nil || frame.Type == "" {
			s.client.logger.Debug("dropping malformed stream frame", "error", err)
			continue
		}

		// Frames for other executions can arrive on a shared channel.
		if eid, ok := frame.Payload["execution_id"].(string); ok && eid != s.executionID {
			continue
		}

		event := ExecutionEvent{Type: frame.Type, Payload: frame.Payload}
		if ts, err := time.Parse(time.RFC3339, frame.Timestamp); err == nil {
			event.Timestamp = ts
		}

		select {
		case s.events <- event:
		case <-ctx.Done():
			return
		}

		if event.Status().IsTerminal() {
			return
		}
	}
}

func (s *Stream) keepalive(ctx context.Context) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
			s.writeMu.Unlock()
			if err != nil {
				s.cancel()
				return
			}
		}
	}
}

// httpToWS converts the REST base URL to its WebSocket counterpart.
func httpToWS(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	}
	return baseURL
}
