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

// Package credentials implements the credential management commands.
package credentials

import (
	"fmt"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/pipeflowhq/pipeflow-go/internal/commands/shared"
	"github.com/pipeflowhq/pipeflow-go/pkg/pipeflow"
)

// NewCommand creates the credentials command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "credentials",
		Aliases: []string{"credential", "creds"},
		Short:   "Manage connector credentials",
	}

	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newGetCommand())
	cmd.AddCommand(newTestCommand())
	cmd.AddCommand(newDeleteCommand())
	return cmd
}

func newListCommand() *cobra.Command {
	var credType string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := shared.NewClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			result, err := client.Credentials.List(ctx, &pipeflow.CredentialListOptions{
				Type: credType,
			})
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
			for _, cred := range items {
				lastUsed := "-"
				if cred.LastUsedAt != nil {
					lastUsed = cred.LastUsedAt.Format(time.RFC3339)
				}
				rows = append(rows, []string{cred.ID, cred.Name, cred.Type, lastUsed})
			}
			shared.Table([]string{"ID", "NAME", "TYPE", "LAST USED"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&credType, "type", "", "Filter by credential type")
	return cmd
}

func newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a credential (secret values are never returned)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := shared.NewClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			cred, err := client.Credentials.Get(ctx, args[0])
			if err != nil {
				return err
			}

			if shared.GetJSON() || shared.GetJQ() != "" {
				return shared.EmitJSON(cred)
			}

			cmd.Printf("%s %s\n", shared.Bold.Render(cred.Name), shared.Muted.Render("("+cred.ID+")"))
			cmd.Printf("  type:    %s\n", cred.Type)
			cmd.Printf("  created: %s\n", cred.CreatedAt.Format(time.RFC3339))
			if cred.LastUsedAt != nil {
				cmd.Printf("  used:    %s\n", cred.LastUsedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newTestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test <id>",
		Short: "Test a credential's connectivity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := shared.NewClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			result, err := client.Credentials.Test(ctx, args[0])
			if err != nil {
				return err
			}

			if shared.GetJSON() || shared.GetJQ() != "" {
				return shared.EmitJSON(result)
			}

			if result.Success {
				shared.Printf("%s\n", shared.RenderOK("Credential works"))
			} else {
				shared.Printf("%s\n", shared.RenderError("Credential test failed: "+result.Message))
			}
			return nil
		},
	}
}

func newDeleteCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if !force {
				if shared.IsNonInteractive() {
					return shared.NewUsageError("refusing to delete without --force in non-interactive mode")
				}
				var confirmed bool
				prompt := &survey.Confirm{
					Message: fmt.Sprintf("Delete credential %s? Workflows using it will fail.", args[0]),
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

			if err := client.Credentials.Delete(ctx, args[0]); err != nil {
				return err
			}
			shared.Printf("%s\n", shared.RenderOK("Credential deleted"))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation")
	return cmd
}
