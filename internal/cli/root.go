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

// Package cli assembles the pipeflow root command.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/pipeflowhq/pipeflow-go/internal/commands/shared"
)

// SetVersion records the build-time version information (called from main).
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root cobra command for the pipeflow CLI.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeflow",
		Short: "Pipeflow - workflow automation from the command line",
		Long: `Pipeflow is a command-line client for the Pipeflow workflow
automation platform. It manages workflows and credentials, triggers and
watches executions, and exposes platform operations to AI assistants
through an MCP server.

Run 'pipeflow auth login' to connect to your instance.`,
		SilenceUsage:  true,
		SilenceErrors: true, // errors are printed by HandleExitError with exit codes
	}

	shared.BindGlobalFlags(cmd.PersistentFlags())

	return cmd
}

// HandleExitError prints the error and exits with the matching code.
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
