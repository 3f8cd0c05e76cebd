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

// Package mcpserver implements the mcp-server command.
package mcpserver

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pipeflowhq/pipeflow-go/internal/commands/shared"
	"github.com/pipeflowhq/pipeflow-go/internal/mcp"
)

// NewCommand creates the mcp-server command.
func NewCommand() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Start the Pipeflow MCP server",
		Long: `Start the Pipeflow MCP (Model Context Protocol) server.

The server exposes platform operations as tools that AI coding
assistants can use to inspect workflows, trigger executions, and read
execution logs. It runs over stdio, which is the transport AI
assistants expect in their MCP configuration:

  {
    "mcpServers": {
      "pipeflow": {
        "command": "pipeflow",
        "args": ["mcp-server"]
      }
    }
  }

Authentication uses the same sources as every other command: the
stored session, PIPEFLOW_* environment variables, or --config.
Workflow executions through the server are rate limited.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, logLevel)
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Logging verbosity (debug, info, warn, error)")
	return cmd
}

func runServer(cmd *cobra.Command, logLevel string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	client, err := shared.NewClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	versionStr, _, _ := shared.GetVersion()
	srv, err := mcp.NewServer(client, mcp.ServerConfig{
		Version:  versionStr,
		LogLevel: logLevel,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
		}
		cancel()
	}()

	return srv.Run(ctx)
}
