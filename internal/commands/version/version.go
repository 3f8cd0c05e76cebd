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

package version

import (
	"github.com/spf13/cobra"

	"github.com/pipeflowhq/pipeflow-go/internal/commands/shared"
)

// Info contains version metadata for the CLI and, when reachable, the
// connected platform instance.
type Info struct {
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	BuildDate  string `json:"build_date"`
	APIVersion string `json:"api_version,omitempty"`
}

// NewCommand creates the version command.
func NewCommand() *cobra.Command {
	var checkAPI bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, c, b := shared.GetVersion()
			info := Info{Version: v, Commit: c, BuildDate: b}

			if checkAPI {
				if client, err := shared.NewClient(cmd.Context()); err == nil {
					if apiVersion, err := client.Version(cmd.Context()); err == nil {
						info.APIVersion = apiVersion.Version
					}
					client.Close()
				}
			}

			if shared.GetJSON() || shared.GetJQ() != "" {
				return shared.EmitJSON(info)
			}

			cmd.Printf("pipeflow version %s\n", info.Version)
			cmd.Printf("  commit:     %s\n", info.Commit)
			cmd.Printf("  build date: %s\n", info.BuildDate)
			if info.APIVersion != "" {
				cmd.Printf("  server:     %s\n", info.APIVersion)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkAPI, "api", false, "Also report the connected server version")
	return cmd
}
