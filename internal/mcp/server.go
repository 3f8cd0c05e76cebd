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

// Package mcp exposes Pipeflow platform operations as MCP tools so AI
// assistants can inspect and run workflows over stdio.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/pipeflowhq/pipeflow-go/pkg/pipeflow"
)

// Server wraps the MCP server and the platform client behind it.
type Server struct {
	mcpServer   *server.MCPServer
	client      *pipeflow.Client
	rateLimiter *RateLimiter
	logger      *slog.Logger
	version     string
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	// Version is the pipeflow CLI version reported to MCP clients.
	Version string

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string

	// RunsPerMinute caps pipeflow_run_workflow calls; CallsPerMinute caps
	// all tool calls. Zero selects the defaults (10 and 100).
	RunsPerMinute  int
	CallsPerMinute int
}

// NewServer creates the MCP server around an authenticated platform
// client. The caller keeps ownership of the client.
func NewServer(client *pipeflow.Client, config ServerConfig) (*Server, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if config.Version == "" {
		config.Version = "dev"
	}
	if config.RunsPerMinute <= 0 {
		config.RunsPerMinute = 10
	}
	if config.CallsPerMinute <= 0 {
		config.CallsPerMinute = 100
	}

	logger, err := newLogger(config.LogLevel)
	if err != nil {
		return nil, err
	}

	s := &Server{
		mcpServer:   server.NewMCPServer("pipeflow", config.Version),
		client:      client,
		rateLimiter: NewRateLimiter(config.RunsPerMinute, config.CallsPerMinute),
		logger:      logger,
		version:     config.Version,
	}
	s.registerTools()
	return s, nil
}

// newLogger writes to stderr so log lines never corrupt the MCP stdio
// protocol on stdout.
func newLogger(levelStr string) (*slog.Logger, error) {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", levelStr)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler), nil
}

// Run serves over stdio until the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting pipeflow MCP server", slog.String("version", s.version))
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

// Shutdown logs the shutdown; returning from ServeStdio is sufficient to
// stop the transport.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down pipeflow MCP server")
	return nil
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...))
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(text)},
	}
}
