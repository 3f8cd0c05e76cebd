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

// Package auth implements login, logout, and whoami.
package auth

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/pipeflowhq/pipeflow-go/internal/commands/shared"
	"github.com/pipeflowhq/pipeflow-go/internal/session"
	"github.com/pipeflowhq/pipeflow-go/pkg/pipeflow"
)

// NewCommand creates the auth command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage authentication",
	}

	cmd.AddCommand(newLoginCommand())
	cmd.AddCommand(newLogoutCommand())
	cmd.AddCommand(newWhoamiCommand())
	return cmd
}

func newLoginCommand() *cobra.Command {
	var (
		baseURL  string
		apiKey   string
		username string
		password string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to a Pipeflow instance",
		Long: `Log in to a Pipeflow instance and store the session securely.

With --api-key the key is validated and stored directly. With
--username (and a password prompt, or --password for scripting) the
command performs a token login. Run without flags for an interactive
form.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if baseURL == "" || (apiKey == "" && username == "") {
				if shared.IsNonInteractive() {
					return shared.NewUsageError(
						"missing --url and credentials; interactive login needs a terminal")
				}
				if err := loginForm(&baseURL, &apiKey, &username, &password); err != nil {
					return err
				}
			}
			if username != "" && password == "" {
				if shared.IsNonInteractive() {
					return shared.NewUsageError("missing --password for non-interactive login")
				}
				if err := passwordForm(&password); err != nil {
					return err
				}
			}

			cfg := pipeflow.DefaultClientConfig(baseURL)
			auth := pipeflow.AuthConfig{
				APIKey:   apiKey,
				Username: username,
				Password: password,
			}

			client, err := pipeflow.NewClient(cfg, auth)
			if err != nil {
				return shared.NewUsageError(err.Error())
			}
			defer client.Close()

			user, err := client.Auth().Authenticate(ctx)
			if err != nil {
				return shared.NewAuthError("login failed", err)
			}

			stored := &session.Session{
				BaseURL:  cfg.BaseURL,
				Username: user.Username,
				APIKey:   apiKey,
			}
			if token := client.Auth().Token(); token != nil {
				stored.AccessToken = token.AccessToken
				stored.RefreshToken = token.RefreshToken
				stored.TokenExpiry = token.Expiry
			}

			store, err := shared.SessionStore()
			if err != nil {
				return fmt.Errorf("opening session store: %w", err)
			}
			if err := store.Save(ctx, stored); err != nil {
				return fmt.Errorf("saving session: %w", err)
			}

			shared.Printf("%s\n", shared.RenderOK(
				fmt.Sprintf("Logged in to %s as %s", cfg.BaseURL, user.Username)))
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "", "Pipeflow instance URL")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key")
	cmd.Flags().StringVar(&username, "username", "", "Username for token login")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	return cmd
}

func loginForm(baseURL, apiKey, username, password *string) error {
	method := "api-key"

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Instance URL").
				Placeholder("https://pipeflow.example.com").
				Value(baseURL).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("instance URL is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Authentication method").
				Options(
					huh.NewOption("API key", "api-key"),
					huh.NewOption("Username and password", "password"),
				).
				Value(&method),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	if method == "api-key" {
		return huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("API key").
				EchoMode(huh.EchoModePassword).
				Value(apiKey),
		)).Run()
	}

	return huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Username").Value(username),
		huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(password),
	)).Run()
}

func passwordForm(password *string) error {
	return huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(password),
	)).Run()
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and remove the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			// Best effort server-side logout before clearing local state.
			if client, err := shared.NewClient(ctx); err == nil {
				client.Auth().Logout(ctx)
				client.Close()
			}

			store, err := shared.SessionStore()
			if err != nil {
				return fmt.Errorf("opening session store: %w", err)
			}
			if err := store.Clear(ctx); err != nil {
				return err
			}

			shared.Printf("%s\n", shared.RenderOK("Logged out"))
			return nil
		},
	}
}

func newWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := shared.NewClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			user, err := client.Auth().Whoami(ctx)
			if err != nil {
				return err
			}

			if shared.GetJSON() || shared.GetJQ() != "" {
				return shared.EmitJSON(user)
			}

			cmd.Printf("Logged in to %s as %s\n", client.Config().BaseURL, user.Username)
			if user.Email != "" {
				cmd.Printf("  email: %s\n", user.Email)
			}
			if user.OrganizationID != "" {
				cmd.Printf("  organization: %s\n", user.OrganizationID)
			}
			return nil
		},
	}
}
