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

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/pipeflowhq/pipeflow-go/internal/cli"
	"github.com/pipeflowhq/pipeflow-go/internal/commands/auth"
	"github.com/pipeflowhq/pipeflow-go/internal/commands/credentials"
	"github.com/pipeflowhq/pipeflow-go/internal/commands/executions"
	"github.com/pipeflowhq/pipeflow-go/internal/commands/mcpserver"
	versioncmd "github.com/pipeflowhq/pipeflow-go/internal/commands/version"
	"github.com/pipeflowhq/pipeflow-go/internal/commands/workflows"
)

// Version information (injected via ldflags at build time).
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildDate)

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := cli.NewRootCommand()
	rootCmd.AddCommand(auth.NewCommand())
	rootCmd.AddCommand(workflows.NewCommand())
	rootCmd.AddCommand(executions.NewCommand())
	rootCmd.AddCommand(credentials.NewCommand())
	rootCmd.AddCommand(mcpserver.NewCommand())
	rootCmd.AddCommand(versioncmd.NewCommand())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cli.HandleExitError(err)
	}
}
