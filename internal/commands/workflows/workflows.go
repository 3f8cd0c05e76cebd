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

// Package workflows implements the workflow management commands.
package workflows

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/pipeflowhq/pipeflow-go/internal/commands/shared"
	"github.com/pipeflowhq/pipeflow-go/pkg/pipeflow"
)

// NewCommand creates the workflows command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workflows",
		Aliases: []string{"workflow", "wf"},
		Short:   "Manage workflows",
	}

	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newGetCommand())
	cmd.AddCommand(newDeleteCommand())
	cmd.AddCommand(newActivateCommand(true))
	cmd.AddCommand(newActivateCommand(false))
	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newExportCommand())
	cmd.AddCommand(newApplyCommand())
	return cmd
}

func newListCommand() *cobra.Command {
	var (
		active bool
		tag    string
		search string
		page   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := shared.NewClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			opts := &pipeflow.WorkflowListOptions{Search: search}
			opts.Page = page
			if tag != "" {
				opts.Tags = []string{tag}
			}
			if cmd.Flags().Changed("active") {
				opts.Active = &active
			}

			result, err := client.Workflows.List(ctx, opts)
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
			for _, wf := range items {
				status := shared.Muted.Render("inactive")
				if wf.Active {
					status = shared.StatusOK.Render("active")
				}
				rows = append(rows, []string{
					wf.ID, wf.Name, status, strconv.Itoa(len(wf.Nodes)),
				})
			}
			shared.Table([]string{"ID", "NAME", "STATUS", "NODES"}, rows)

			if result.Pagination.HasNext {
				shared.Printf("\nPage %d of %d (%d total). Use --page to see more.\n",
					result.Pagination.Page, result.Pagination.TotalPages,
					result.Pagination.TotalItems)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&active, "active", false, "Only active (or with =false, inactive) workflows")
	cmd.Flags().StringVar(&tag, "tag", "", "Filter by tag")
	cmd.Flags().StringVar(&search, "search", "", "Search by name")
	cmd.Flags().IntVar(&page, "page", 0, "Page number")
	return cmd
}

func newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := shared.NewClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			wf, err := client.Workflows.Get(ctx, args[0])
			if err != nil {
				return err
			}

			if shared.GetJSON() || shared.GetJQ() != "" {
				return shared.EmitJSON(wf)
			}

			cmd.Printf("%s %s\n", shared.Bold.Render(wf.Name), shared.Muted.Render("("+wf.ID+")"))
			if wf.Description != "" {
				cmd.Printf("  %s\n", wf.Description)
			}
			cmd.Printf("  active:  %v\n", wf.Active)
			cmd.Printf("  nodes:   %d\n", len(wf.Nodes))
			cmd.Printf("  version: %d\n", wf.Version)
			if len(wf.Tags) > 0 {
				cmd.Printf("  tags:    %v\n", wf.Tags)
			}
			return nil
		},
	}
}

func newDeleteCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if !force {
				if shared.IsNonInteractive() {
					return shared.NewUsageError("refusing to delete without --force in non-interactive mode")
				}
				var confirmed bool
				prompt := &survey.Confirm{
					Message: fmt.Sprintf("Delete workflow %s?", args[0]),
				}
				if err := survey.AskOne(prompt, &confirmed); err != nil {
					return err
				}
				if !confirmed {
					return nil
				}
			}

			client, err := shared.NewClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Workflows.Delete(ctx, args[0]); err != nil {
				return err
			}
			shared.Printf("%s\n", shared.RenderOK("Workflow deleted"))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation")
	return cmd
}

func newActivateCommand(activate bool) *cobra.Command {
	use, short := "activate <id>", "Activate a workflow"
	if !activate {
		use, short = "deactivate <id>", "Deactivate a workflow"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := shared.NewClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			var wf *pipeflow.Workflow
			if activate {
				wf, err = client.Workflows.Activate(ctx, args[0])
			} else {
				wf, err = client.Workflows.Deactivate(ctx, args[0])
			}
			if err != nil {
				return err
			}

			state := "deactivated"
			if wf.Active {
				state = "activated"
			}
			shared.Printf("%s\n", shared.RenderOK(fmt.Sprintf("Workflow %q %s", wf.Name, state)))
			return nil
		},
	}
}

func newRunCommand() *cobra.Command {
	var (
		inputJSON string
		wait      bool
	)

	cmd := &cobra.Command{
		Use:   "run <id>",
		Short: "Execute a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var inputs map[string]any
			if inputJSON != "" {
				if err := json.Unmarshal([]byte(inputJSON), &inputs); err != nil {
					return shared.NewUsageError(fmt.Sprintf("invalid --input JSON: %v", err))
				}
			}

			client, err := shared.NewClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			exec, err := client.Workflows.Execute(ctx, args[0], inputs)
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

			shared.Printf("Execution %s %s\n", exec.ID,
				shared.RenderStatus(exec.Status != pipeflow.StatusError, string(exec.Status)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputJSON, "input", "i", "", "Execution inputs as JSON")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the execution to finish")
	return cmd
}

func newExportCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a workflow definition as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := shared.NewClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			data, err := client.Workflows.Export(ctx, args[0])
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				cmd.Println(string(data))
				return nil
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			shared.Printf("%s\n", shared.RenderOK("Exported to "+output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}
