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

// Package executions implements the execution management commands.
package executions

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pipeflowhq/pipeflow-go/internal/commands/shared"
	"github.com/pipeflowhq/pipeflow-go/pkg/pipeflow"
)

// NewCommand creates the executions command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "executions",
		Aliases: []string{"execution", "exec"},
		Short:   "Inspect and control executions",
	}

	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newGetCommand())
	cmd.AddCommand(newCancelCommand())
	cmd.AddCommand(newRetryCommand())
	cmd.AddCommand(newLogsCommand())
	cmd.AddCommand(newWatchCommand())
	return cmd
}

func newListCommand() *cobra.Command {
	var (
		workflowID string
		status     string
		page       int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := shared.NewClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			opts := &pipeflow.ExecutionListOptions{
				WorkflowID: workflowID,
				Status:     pipeflow.ExecutionStatus(status),
			}
			opts.Page = page

			result, err := client.Executions.List(ctx, opts)
			if err != nil {
				return err
			}

			items, err := shared.ApplyFilter(result.Data)
			if err != nil {
				return err
			}

			if shared.GetJSON() || shared.GetJQ() != "" {
				return shared.EmitJSON(items)
			}

			rows := make([][]string, 0, len(items))
			for _, exec := range items {
				rows = append(rows, []string{
					exec.ID, exec.WorkflowID, renderStatus(exec.Status),
					renderDuration(exec),
				})
			}
			shared.Table([]string{"ID", "WORKFLOW", "STATUS", "DURATION"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&workflowID, "workflow", "", "Filter by workflow ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	cmd.Flags().IntVar(&page, "page", 0, "Page number")
	return cmd
}

func newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show an execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := shared.NewClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			exec, err := client.Executions.Get(ctx, args[0])
			if err != nil {
				return err
			}

			if shared.GetJSON() || shared.GetJQ() != "" {
				return shared.EmitJSON(exec)
			}

			cmd.Printf("Execution %s\n", shared.Bold.Render(exec.ID))
			cmd.Printf("  workflow: %s\n", exec.WorkflowID)
			cmd.Printf("  status:   %s\n", renderStatus(exec.Status))
			cmd.Printf("  duration: %s\n", renderDuration(*exec))
			if exec.Error != nil {
				cmd.Printf("  error:    %s\n", shared.StatusError.Render(exec.Error.Message))
				if exec.Error.NodeID != "" {
					cmd.Printf("  node:     %s\n", exec.Error.NodeID)
				}
			}
			return nil
		},
	}
}

func newCancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a running execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := shared.NewClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			exec, err := client.Executions.Cancel(ctx, args[0])
			if err != nil {
				return err
			}
			shared.Printf("%s\n", shared.RenderOK(
				fmt.Sprintf("Execution %s: %s", exec.ID, exec.Status)))
			return nil
		},
	}
}

func newRetryCommand() *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "retry <id>",
		Short: "Retry a failed execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := shared.NewClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			exec, err := client.Executions.Retry(ctx, args[0])
			if err != nil {
				return err
			}
			if wait {
				exec, err = client.Executions.WaitForCompletion(ctx, exec.ID, 0)
				if err != nil {
					return err
				}
			}

			if shared.GetJSON() || shared.GetJQ() != "" {
				return shared.EmitJSON(exec)
			}
			shared.Printf("Execution %s %s\n", exec.ID, renderStatus(exec.Status))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the retried execution to finish")
	return cmd
}

func newLogsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logs <id>",
		Short: "Show execution logs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := shared.NewClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			entries, err := client.Executions.Logs(ctx, args[0])
			if err != nil {
				return err
			}

			if shared.GetJSON() || shared.GetJQ() != "" {
				return shared.EmitJSON(entries)
			}

			for _, entry := range entries {
				prefix := entry.Timestamp.Format(time.RFC3339)
				if entry.NodeID != "" {
					prefix += " [" + entry.NodeID + "]"
				}
				cmd.Printf("%s %s %s\n", shared.Muted.Render(prefix),
					renderLevel(entry.Level), entry.Message)
			}
			return nil
		},
	}
}

func newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <id>",
		Short: "Stream live updates for an execution",
		Long: `Stream node-level updates for a running execution over WebSocket
until the execution reaches a terminal state.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := shared.NewClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			stream, err := client.StreamExecution(ctx, args[0])
			if err != nil {
				return err
			}
			defer stream.Close()

			for event := range stream.Events() {
				if shared.GetJSON() {
					if err := shared.EmitJSON(event); err != nil {
						return err
					}
					continue
				}

				line := fmt.Sprintf("%s %s",
					shared.Muted.Render(event.Timestamp.Format("15:04:05")), event.Type)
				if status := event.Status(); status != "" {
					line += " " + renderStatus(status)
				}
				if node, ok := event.Payload["node_id"].(string); ok && node != "" {
					line += " node=" + node
				}
				cmd.Println(line)
			}
			return stream.Err()
		},
	}
}

func renderStatus(status pipeflow.ExecutionStatus) string {
	switch status {
	case pipeflow.StatusSuccess:
		return shared.StatusOK.Render(string(status))
	case pipeflow.StatusError:
		return shared.StatusError.Render(string(status))
	case pipeflow.StatusRunning, pipeflow.StatusWaiting:
		return shared.StatusInfo.Render(string(status))
	case pipeflow.StatusCancelled:
		return shared.StatusWarn.Render(string(status))
	default:
		return string(status)
	}
}

func renderDuration(exec pipeflow.Execution) string {
	if exec.StartedAt == nil {
		return "-"
	}
	end := time.Now()
	if exec.FinishedAt != nil {
		end = *exec.FinishedAt
	}
	return end.Sub(*exec.StartedAt).Round(time.Millisecond).String()
}

func renderLevel(level string) string {
	switch level {
	case "error":
		return shared.StatusError.Render("ERROR")
	case "warn", "warning":
		return shared.StatusWarn.Render("WARN ")
	case "debug":
		return shared.Muted.Render("DEBUG")
	default:
		return shared.StatusInfo.Render("INFO ")
	}
}
