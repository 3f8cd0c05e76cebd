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

package shared

import (
	"context"

	"github.com/pipeflowhq/pipeflow-go/internal/log"
	"github.com/pipeflowhq/pipeflow-go/internal/session"
	"github.com/pipeflowhq/pipeflow-go/pkg/pipeflow"
)

// ResolveConfig builds the client configuration in precedence order:
// explicit --config file, then environment variables, then the stored
// login session.
func ResolveConfig(ctx context.Context) (pipeflow.ClientConfig, pipeflow.AuthConfig, error) {
	if path := GetConfigPath(); path != "" {
		return pipeflow.LoadConfigFile(path)
	}

	cfg, auth := pipeflow.FromEnv()
	if cfg.BaseURL != "" && hasCredentials(auth) {
		return cfg, auth, nil
	}

	stored, err := loadSession(ctx)
	if err != nil {
		if cfg.BaseURL != "" {
			// Base URL from env without credentials still works against
			// instances with auth disabled.
			return cfg, auth, nil
		}
		return cfg, auth, NewAuthError(
			"not logged in: run 'pipeflow auth login' or set PIPEFLOW_BASE_URL and PIPEFLOW_API_KEY", err)
	}

	if cfg.BaseURL == "" {
		cfg = pipeflow.DefaultClientConfig(stored.BaseURL)
	}
	if !hasCredentials(auth) {
		auth = pipeflow.AuthConfig{
			APIKey:       stored.APIKey,
			AccessToken:  stored.AccessToken,
			RefreshToken: stored.RefreshToken,
			Expiry:       stored.TokenExpiry,
		}
	}
	return cfg, auth, nil
}

// NewClient builds the API client from the resolved configuration.
func NewClient(ctx context.Context, opts ...pipeflow.Option) (*pipeflow.Client, error) {
	cfg, auth, err := ResolveConfig(ctx)
	if err != nil {
		return nil, err
	}

	logCfg := log.FromEnv()
	if GetVerbose() {
		logCfg.Level = "debug"
		logCfg.Format = log.FormatText
	}
	opts = append([]pipeflow.Option{pipeflow.WithLogger(log.New(logCfg))}, opts...)

	client, err := pipeflow.NewClient(cfg, auth, opts...)
	if err != nil {
		return nil, &ExitError{Code: ExitUsage, Message: "invalid configuration", Cause: err}
	}
	return client, nil
}

// SessionStore opens the best available session store.
func SessionStore() (session.Store, error) {
	return session.Open()
}

func loadSession(ctx context.Context) (*session.Session, error) {
	store, err := SessionStore()
	if err != nil {
		return nil, err
	}
	return store.Load(ctx)
}

func hasCredentials(auth pipeflow.AuthConfig) bool {
	return auth.APIKey != "" || auth.AccessToken != "" || auth.Username != ""
}
