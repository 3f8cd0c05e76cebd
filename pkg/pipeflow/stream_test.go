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
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsFrame struct {
	Type  string `json:"type"`
	Topic string `json:"topic,omitempty"`
}

// newStreamServer upgrades /ws connections and hands them to handler.
// Control frames received before the handler returns go to the frames
// channel.
func newStreamServer(t *testing.T, handler func(conn *websocket.Conn, frames <-chan wsFrame)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ws", r.URL.Path)
		assert.Equal(t, "Bearer pf_test_key", r.Header.Get("Authorization"))

		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		frames := make(chan wsFrame, 8)
		go func() {
			defer close(frames)
			for {
				var frame wsFrame
				if err := conn.ReadJSON(&frame); err != nil {
					return
				}
				frames <- frame
			}
		}()

		handler(conn, frames)
	}))
	t.Cleanup(server.Close)
	return server
}

func sendEvent(t *testing.T, conn *websocket.Conn, eventType, executionID, status string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": eventType,
		"payload": map[string]any{
			"execution_id": executionID,
			"status":       status,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}))
}

func collectEvents(t *testing.T, stream *Stream, timeout time.Duration) []ExecutionEvent {
	t.Helper()
	var events []ExecutionEvent
	deadline := time.After(timeout)
	for {
		select {
		case event, ok := <-stream.Events():
			if !ok {
				return events
			}
			events = append(events, event)
		case <-deadline:
			t.Fatal("timed out waiting for stream to close")
		}
	}
}

func TestStreamExecutionDeliversUntilTerminal(t *testing.T) {
	unsubscribed := make(chan struct{})

	server := newStreamServer(t, func(conn *websocket.Conn, frames <-chan wsFrame) {
		subscribe := <-frames
		assert.Equal(t, "subscribe", subscribe.Type)
		assert.Equal(t, "execution:ex-1", subscribe.Topic)

		sendEvent(t, conn, "execution_update", "ex-1", "running")
		sendEvent(t, conn, "execution_update", "ex-1", "completed")

		for frame := range frames {
			if frame.Type == "unsubscribe" {
				assert.Equal(t, "execution:ex-1", frame.Topic)
				close(unsubscribed)
				return
			}
		}
	})

	client := newTestClient(t, server.URL)
	stream, err := client.StreamExecution(context.Background(), "ex-1")
	require.NoError(t, err)

	events := collectEvents(t, stream, 3*time.Second)
	require.Len(t, events, 2)
	assert.Equal(t, ExecutionStatus("running"), events[0].Status())
	assert.Equal(t, ExecutionStatus("completed"), events[1].Status())
	assert.True(t, events[1].Status().IsTerminal())
	assert.NoError(t, stream.Err())

	select {
	case <-unsubscribed:
	case <-time.After(3 * time.Second):
		t.Fatal("server never saw the unsubscribe frame")
	}
}

func TestStreamExecutionFiltersOtherExecutions(t *testing.T) {
	server := newStreamServer(t, func(conn *websocket.Conn, frames <-chan wsFrame) {
		<-frames
		sendEvent(t, conn, "execution_update", "ex-other", "running")
		sendEvent(t, conn, "execution_update", "ex-1", "completed")
		for range frames {
		}
	})

	client := newTestClient(t, server.URL)
	stream, err := client.StreamExecution(context.Background(), "ex-1")
	require.NoError(t, err)

	events := collectEvents(t, stream, 3*time.Second)
	require.Len(t, events, 1)
	assert.Equal(t, "ex-1", events[0].Payload["execution_id"])
}

func TestStreamExecutionContextCancel(t *testing.T) {
	started := make(chan struct{})
	server := newStreamServer(t, func(conn *websocket.Conn, frames <-chan wsFrame) {
		<-frames
		close(started)
		for range frames {
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	client := newTestClient(t, server.URL)
	stream, err := client.StreamExecution(ctx, "ex-1")
	require.NoError(t, err)

	<-started
	cancel()

	events := collectEvents(t, stream, 3*time.Second)
	assert.Empty(t, events)
	assert.NoError(t, stream.Err())
}

func TestClientCloseClosesStreams(t *testing.T) {
	server := newStreamServer(t, func(conn *websocket.Conn, frames <-chan wsFrame) {
		<-frames
		for range frames {
		}
	})

	client := newTestClient(t, server.URL)
	stream, err := client.StreamExecution(context.Background(), "ex-1")
	require.NoError(t, err)

	require.NoError(t, client.Close())
	collectEvents(t, stream, 3*time.Second)
}

func TestStreamDropsMalformedFrames(t *testing.T) {
	server := newStreamServer(t, func(conn *websocket.Conn, frames <-chan wsFrame) {
		<-frames
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
		sendEvent(t, conn, "execution_update", "ex-1", "completed")
		for range frames {
		}
	})

	client := newTestClient(t, server.URL)
	stream, err := client.StreamExecution(context.Background(), "ex-1")
	require.NoError(t, err)

	events := collectEvents(t, stream, 3*time.Second)
	require.Len(t, events, 1)
}

func TestHTTPToWS(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://localhost:5678", "ws://localhost:5678"},
		{"https://pipeflow.example.com", "wss://pipeflow.example.com"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, httpToWS(tt.in))
	}
}
