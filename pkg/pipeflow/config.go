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

package pipeflow

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	pferrors "github.com/pipeflowhq/pipeflow-go/pkg/errors"
)

// Version is the SDK release version, reported in the User-Agent header.
const Version = "0.3.0"

// Default client settings applied by Validate for zero-valued fields.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second
	DefaultUserAgent  = "pipeflow-go/" + Version
)

// ClientConfig configures the request pipeline. It is validated once at
// client construction and immutable afterwards.
type ClientConfig struct {
	// BaseURL is the platform API root. Required; must start with http://
	// or https://. A trailing slash is stripped during validation.
	BaseURL string `yaml:"base_url"`

	// Timeout applies to each request attempt (connect, read, write).
	// Default: 30s. Non-positive values other than zero are rejected.
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of retries after the initial attempt for
	// transport-level failures. Zero disables retries; negative values are
	// rejected. DefaultClientConfig sets 3.
	MaxRetries int `yaml:"max_retries"`

	// RetryDelay is the base backoff delay; attempt n waits
	// RetryDelay * 2^n. Default: 1s. Negative values are rejected.
	RetryDelay time.Duration `yaml:"retry_delay"`

	// TLSInsecure disables server certificate verification.
	// For development only.
	TLSInsecure bool `yaml:"tls_insecure"`

	// UserAgent overrides the default User-Agent header.
	UserAgent string `yaml:"user_agent"`

	// AllowNonIdempotentRetry extends transport-failure retries to POST and
	// PATCH. Default false: only GET, HEAD, OPTIONS, PUT, and DELETE retry,
	// since retrying a non-idempotent request whose response was lost can
	// duplicate side effects. Enable only if the platform deployment
	// deduplicates via idempotency keys.
	AllowNonIdempotentRetry bool `yaml:"allow_non_idempotent_retry"`

	// timeoutSet distinguishes an explicit zero (invalid) from an unset
	// field during validation.
	timeoutSet bool
}

// DefaultClientConfig returns a ClientConfig with the standard defaults for
// the given base URL.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:    baseURL,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
		UserAgent:  DefaultUserAgent,
	}
}

// Validate checks the configuration, applies defaults, and normalizes the
// base URL. It returns a ConfigurationError naming the offending field.
func (c *ClientConfig) Validate() error {
	if c.BaseURL == "" {
		return pferrors.NewConfigurationError("base_url is required", "base_url")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return pferrors.NewConfigurationError(
			fmt.Sprintf("base_url must start with http:// or https://, got %q", c.BaseURL),
			"base_url",
		)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	if c.Timeout < 0 || (c.Timeout == 0 && c.timeoutSet) {
		return pferrors.NewConfigurationError(
			fmt.Sprintf("timeout must be positive, got %v", c.Timeout),
			"timeout",
		)
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}

	if c.MaxRetries < 0 {
		return pferrors.NewConfigurationError(
			fmt.Sprintf("max_retries must be >= 0, got %d", c.MaxRetries),
			"max_retries",
		)
	}

	if c.RetryDelay < 0 {
		return pferrors.NewConfigurationError(
			fmt.Sprintf("retry_delay must be >= 0, got %v", c.RetryDelay),
			"retry_delay",
		)
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = DefaultRetryDelay
	}

	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}

	return nil
}

// WithTimeout sets an explicit timeout, marking zero and negative values as
// deliberate so Validate rejects them instead of applying the default.
func (c ClientConfig) WithTimeout(d time.Duration) ClientConfig {
	c.Timeout = d
	c.timeoutSet = true
	return c
}

// AuthConfig selects the authentication method. Exactly one of API key,
// access token, or username/password must be present; precedence when
// several are set follows that order.
type AuthConfig struct {
	// APIKey authenticates with a static platform API key.
	APIKey string `yaml:"api_key"`

	// AccessToken authenticates with a bearer token, optionally refreshed
	// via RefreshToken before Expiry.
	AccessToken  string    `yaml:"access_token"`
	RefreshToken string    `yaml:"refresh_token"`
	Expiry       time.Time `yaml:"expiry"`

	// Username and Password authenticate with HTTP basic auth, or drive the
	// login flow when Authenticate is called.
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Validate checks that at least one authentication method is resolvable.
func (a *AuthConfig) Validate() error {
	if a.APIKey == "" && a.AccessToken == "" && a.Username == "" {
		return pferrors.NewConfigurationError("authentication credentials are required", "auth")
	}
	if a.Username != "" && a.Password == "" && a.APIKey == "" && a.AccessToken == "" {
		return pferrors.NewConfigurationError("password is required with username", "password")
	}
	return nil
}

// Environment variable names read by FromEnv.
const (
	EnvBaseURL     = "PIPEFLOW_BASE_URL"
	EnvAPIKey      = "PIPEFLOW_API_KEY"
	EnvAccessToken = "PIPEFLOW_ACCESS_TOKEN"
	EnvUsername    = "PIPEFLOW_USERNAME"
	EnvPassword    = "PIPEFLOW_PASSWORD"
	EnvTimeout     = "PIPEFLOW_TIMEOUT"
	EnvMaxRetries  = "PIPEFLOW_MAX_RETRIES"
	EnvTLSInsecure = "PIPEFLOW_TLS_INSECURE"
)

// FromEnv builds client and auth configuration from PIPEFLOW_* environment
// variables. Unset variables leave the zero value for Validate to fill.
func FromEnv() (ClientConfig, AuthConfig) {
	cfg := DefaultClientConfig(os.Getenv(EnvBaseURL))
	if raw := os.Getenv(EnvTimeout); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil {
			cfg.Timeout = time.Duration(secs) * time.Second
		}
	}
	if raw := os.Getenv(EnvMaxRetries); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			cfg.MaxRetries = n
		}
	}
	if raw := os.Getenv(EnvTLSInsecure); raw == "true" || raw == "1" {
		cfg.TLSInsecure = true
	}

	auth := AuthConfig{
		APIKey:      os.Getenv(EnvAPIKey),
		AccessToken: os.Getenv(EnvAccessToken),
		Username:    os.Getenv(EnvUsername),
		Password:    os.Getenv(EnvPassword),
	}

	return cfg, auth
}

// configFile is the on-disk YAML shape read by LoadConfigFile.
type configFile struct {
	BaseURL                 string     `yaml:"base_url"`
	TimeoutSeconds          int        `yaml:"timeout"`
	MaxRetries              *int       `yaml:"max_retries"`
	RetryDelaySeconds       float64    `yaml:"retry_delay"`
	TLSInsecure             bool       `yaml:"tls_insecure"`
	UserAgent               string     `yaml:"user_agent"`
	AllowNonIdempotentRetry bool       `yaml:"allow_non_idempotent_retry"`
	Auth                    AuthConfig `yaml:"auth"`
}

// LoadConfigFile reads client and auth configuration from a YAML file.
// Durations are given in seconds.
func LoadConfigFile(path string) (ClientConfig, AuthConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ClientConfig{}, AuthConfig{}, pferrors.Wrapf(err, "reading config file %s", path)
	}

	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return ClientConfig{}, AuthConfig{}, pferrors.Wrapf(err, "parsing config file %s", path)
	}

	cfg := DefaultClientConfig(file.BaseURL)
	cfg.TLSInsecure = file.TLSInsecure
	cfg.AllowNonIdempotentRetry = file.AllowNonIdempotentRetry
	if file.UserAgent != "" {
		cfg.UserAgent = file.UserAgent
	}
	if file.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(file.TimeoutSeconds) * time.Second
	}
	if file.MaxRetries != nil {
		cfg.MaxRetries = *file.MaxRetries
	}
	if file.RetryDelaySeconds > 0 {
		cfg.RetryDelay = time.Duration(file.RetryDelaySeconds * float64(time.Second))
	}

	return cfg, file.Auth, nil
}
