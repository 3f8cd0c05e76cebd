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
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	pferrors "github.com/pipeflowhq/pipeflow-go/pkg/errors"
)

// refreshWindow is how long before expiry a token is refreshed.
const refreshWindow = 5 * time.Minute

// AuthManager resolves the credential for each request and owns the mutable
// token state. Once live token state exists it takes precedence over the
// static AuthConfig fields; the statics are never re-read.
type AuthManager struct {
	client *Client
	cfg    AuthConfig

	mu         sync.Mutex
	cond       *sync.Cond
	token      *oauth2.Token
	refreshing bool
}

func newAuthManager(client *Client, cfg AuthConfig) *AuthManager {
	a := &AuthManager{client: client, cfg: cfg}
	a.cond = sync.NewCond(&a.mu)
	if cfg.AccessToken != "" {
		a.token = &oauth2.Token{
			AccessToken:  cfg.AccessToken,
			RefreshToken: cfg.RefreshToken,
			Expiry:       cfg.Expiry,
		}
	}
	return a
}

// headers resolves exactly one authentication header set, preferring the
// static API key, then the access token (refreshed when near expiry), then
// basic credentials.
func (a *AuthManager) headers(ctx context.Context) (map[string]string, error) {
	if a.cfg.APIKey != "" {
		return map[string]string{"Authorization": "Bearer " + a.cfg.APIKey}, nil
	}

	a.mu.Lock()
	hasToken := a.token != nil && a.token.AccessToken != ""
	a.mu.Unlock()

	if hasToken {
		if err := a.ensureFresh(ctx); err != nil {
			return nil, err
		}
		a.mu.Lock()
		token := a.token.AccessToken
		a.mu.Unlock()
		return map[string]string{"Authorization": "Bearer " + token}, nil
	}

	if a.cfg.Username != "" && a.cfg.Password != "" {
		creds := base64.StdEncoding.EncodeToString([]byte(a.cfg.Username + ":" + a.cfg.Password))
		return map[string]string{"Authorization": "Basic " + creds}, nil
	}

	return nil, pferrors.NewAuthenticationError("no valid authentication method configured")
}

// needsRefreshLocked reports whether the token expires within the refresh
// window. Tokens without an expiry never refresh.
func (a *AuthManager) needsRefreshLocked() bool {
	if a.token == nil || a.token.Expiry.IsZero() {
		return false
	}
	return !a.token.Expiry.After(time.Now().Add(refreshWindow))
}

// ensureFresh refreshes the token when it is near expiry. Concurrent callers
// under an expiring token are serialized so only one refresh request goes
// out; the rest wait for its result.
func (a *AuthManager) ensureFresh(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for {
		if !a.needsRefreshLocked() {
			return nil
		}
		if !a.refreshing {
			break
		}
		a.cond.Wait()
	}

	if a.token.RefreshToken == "" {
		return pferrors.NewAuthenticationError("access token expired and no refresh token available")
	}

	a.refreshing = true
	refreshToken := a.token.RefreshToken
	a.mu.Unlock()

	// Network call without holding the lock.
	token, err := a.refresh(ctx, refreshToken)

	a.mu.Lock()
	a.refreshing = false
	a.cond.Broadcast()

	if err != nil {
		return &pferrors.AuthenticationError{
			Message: fmt.Sprintf("token refresh failed: %v", err),
			Code:    pferrors.CodeAuthFailed,
			Cause:   err,
		}
	}

	a.token = token
	return nil
}

// tokenResponse is the wire shape of login and refresh responses.
// expires_in is relative seconds from issuance; expires_at is an absolute
// epoch timestamp. expires_in wins when both are present.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
}

func (tr tokenResponse) toToken(prev *oauth2.Token) (*oauth2.Token, error) {
	if tr.AccessToken == "" {
		return nil, pferrors.NewAuthenticationError("response contained no access token")
	}

	token := &oauth2.Token{AccessToken: tr.AccessToken, RefreshToken: tr.RefreshToken}
	if token.RefreshToken == "" && prev != nil {
		token.RefreshToken = prev.RefreshToken
	}

	switch {
	case tr.ExpiresIn > 0:
		token.Expiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	case tr.ExpiresAt > 0:
		token.Expiry = time.Unix(tr.ExpiresAt, 0)
	}

	return token, nil
}

// refresh exchanges the refresh token for a new access token. The call goes
// out unauthenticated; a live-but-expiring access token must not gate its
// own replacement.
func (a *AuthManager) refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	body := map[string]string{"refresh_token": refreshToken}
	raw, _, err := a.client.request(ctx, "POST", "/auth/refresh", nil, body, nil, false)
	if err != nil {
		return nil, err
	}

	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return nil, pferrors.Wrap(err, "decoding refresh response")
	}

	a.mu.Lock()
	prev := a.token
	a.mu.Unlock()
	return tr.toToken(prev)
}

// authResponse is the login/validate wire shape.
type authResponse struct {
	tokenResponse
	User *User `json:"user"`
}

// Authenticate performs the initial login (username/password) or validates
// the configured API key, populating token state from the response.
func (a *AuthManager) Authenticate(ctx context.Context) (*User, error) {
	switch {
	case a.cfg.Username != "" && a.cfg.Password != "":
		body := map[string]string{"username": a.cfg.Username, "password": a.cfg.Password}
		raw, _, err := a.client.request(ctx, "POST", "/auth/login", nil, body, nil, false)
		if err != nil {
			return nil, err
		}

		var resp authResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, pferrors.Wrap(err, "decoding login response")
		}

		token, err := resp.toToken(nil)
		if err != nil {
			return nil, err
		}

		a.mu.Lock()
		a.token = token
		a.mu.Unlock()
		return resp.User, nil

	case a.cfg.APIKey != "":
		return a.Whoami(ctx)

	default:
		return nil, pferrors.NewAuthenticationError("no authentication method available")
	}
}

// Whoami returns the account behind the current credential.
func (a *AuthManager) Whoami(ctx context.Context) (*User, error) {
	raw, _, err := a.client.request(ctx, "GET", "/auth/validate", nil, nil, nil, true)
	if err != nil {
		return nil, err
	}

	var resp authResponse
	if err := json.Unmarshal(raw, &resp); err == nil && resp.User != nil {
		return resp.User, nil
	}

	var user User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, pferrors.Wrap(err, "decoding validate response")
	}
	return &user, nil
}

// Logout attempts a best-effort remote invalidation, then unconditionally
// clears token state. Notification failures are logged and swallowed.
func (a *AuthManager) Logout(ctx context.Context) {
	a.mu.Lock()
	hasToken := a.token != nil && a.token.AccessToken != ""
	a.mu.Unlock()

	if hasToken {
		if _, _, err := a.client.request(ctx, "POST", "/auth/logout", nil, nil, nil, true); err != nil {
			a.client.logger.Debug("logout notification failed", "error", err)
		}
	}

	a.mu.Lock()
	a.token = nil
	a.mu.Unlock()
}

// IsAuthenticated reports whether any credential is resolvable.
func (a *AuthManager) IsAuthenticated() bool {
	a.mu.Lock()
	hasToken := a.token != nil && a.token.AccessToken != ""
	a.mu.Unlock()
	return a.cfg.APIKey != "" || hasToken || (a.cfg.Username != "" && a.cfg.Password != "")
}

// Token returns a copy of the current token state, or nil when no token is
// held.
func (a *AuthManager) Token() *oauth2.Token {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.token == nil {
		return nil
	}
	copied := *a.token
	return &copied
}

// TokenSource exposes the session as an oauth2.TokenSource so the SDK can
// plug into libraries that expect one.
func (a *AuthManager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &managerTokenSource{ctx: ctx, auth: a}
}

type managerTokenSource struct {
	ctx  context.Context
	auth *AuthManager
}

func (ts *managerTokenSource) Token() (*oauth2.Token, error) {
	if err := ts.auth.ensureFresh(ts.ctx); err != nil {
		return nil, err
	}
	token := ts.auth.Token()
	if token == nil {
		return nil, pferrors.NewAuthenticationError("no token available")
	}
	return token, nil
}

// Claims returns the unverified JWT claims of the current access token.
// This is display-only inspection; it never feeds refresh decisions and the
// signature is not checked.
func (a *AuthManager) Claims() (jwt.MapClaims, error) {
	token := a.Token()
	if token == nil || token.AccessToken == "" {
		return nil, pferrors.NewAuthenticationError("no access token held")
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token.AccessToken, claims); err != nil {
		return nil, pferrors.Wrap(err, "parsing access token")
	}
	return claims, nil
}
