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

	pferrors "github.com/pipeflowhq/pipeflow-go/pkg/errors"
)

// CredentialsService manages stored credentials. Secret values are write
// only; reads come back redacted by the platform.
type CredentialsService struct {
	client *Client
}

// List returns one page of credentials.
func (s *CredentialsService) List(ctx context.Context, opts *CredentialListOptions) (*Page[Credential], error) {
	var o CredentialListOptions
	if opts != nil {
		o = *opts
	}
	resp, err := s.client.get(ctx, "/api/credentials", o.query())
	if err != nil {
		return nil, err
	}
	return decodeList[Credential](resp)
}

// Get fetches a single credential by ID.
func (s *CredentialsService) Get(ctx context.Context, id string) (*Credential, error) {
	resp, err := s.client.get(ctx, "/api/credentials/"+id, nil)
	if err != nil {
		if pferrors.IsNotFound(err) {
			return nil, pferrors.NewCredentialNotFoundError(id)
		}
		return nil, err
	}
	return decodeData[Credential](resp)
}

// Create stores a new credential.
func (s *CredentialsService) Create(ctx context.Context, credential *Credential) (*Credential, error) {
	resp, err := s.client.post(ctx, "/api/credentials", credential)
	if err != nil {
		return nil, err
	}
	return decodeData[Credential](resp)
}

// Update replaces a credential. Omitted data fields keep their stored
// values.
func (s *CredentialsService) Update(ctx context.Context, id string, credential *Credential) (*Credential, error) {
	resp, err := s.client.put(ctx, "/api/credentials/"+id, credential)
	if err != nil {
		if pferrors.IsNotFound(err) {
			return nil, pferrors.NewCredentialNotFoundError(id)
		}
		return nil, err
	}
	return decodeData[Credential](resp)
}

// Delete removes a credential.
func (s *CredentialsService) Delete(ctx context.Context, id string) error {
	_, err := s.client.delete(ctx, "/api/credentials/"+id)
	if pferrors.IsNotFound(err) {
		return pferrors.NewCredentialNotFoundError(id)
	}
	return err
}

// Test checks a stored credential against its target service.
func (s *CredentialsService) Test(ctx context.Context, id string) (*CredentialTest, error) {
	resp, err := s.client.post(ctx, "/api/credentials/"+id+"/test", nil)
	if err != nil {
		if pferrors.IsNotFound(err) {
			return nil, pferrors.NewCredentialNotFoundError(id)
		}
		return nil, err
	}
	return decodeData[CredentialTest](resp)
}

// OAuthStart begins an OAuth authorization flow for a credential type and
// returns the URL the user must visit.
func (s *CredentialsService) OAuthStart(ctx context.Context, credentialType, redirectURI string) (*OAuthStart, error) {
	body := map[string]string{"type": credentialType, "redirect_uri": redirectURI}
	resp, err := s.client.post(ctx, "/api/credentials/oauth/start", body)
	if err != nil {
		return nil, err
	}
	return decodeData[OAuthStart](resp)
}

// OAuthComplete exchanges the authorization code for a stored credential.
// State must match the value returned by OAuthStart.
func (s *CredentialsService) OAuthComplete(ctx context.Context, code, state string) (*Credential, error) {
	body := map[string]string{"code": code, "state": state}
	resp, err := s.client.post(ctx, "/api/credentials/oauth/complete", body)
	if err != nil {
		return nil, err
	}
	return decodeData[Credential](resp)
}

// Refresh forces a token refresh on an OAuth-backed credential.
func (s *CredentialsService) Refresh(ctx context.Context, id string) (*Credential, error) {
	resp, err := s.client.post(ctx, "/api/credentials/"+id+"/refresh", nil)
	if err != nil {
		if pferrors.IsNotFound(err) {
			return nil, pferrors.NewCredentialNotFoundError(id)
		}
		return nil, err
	}
	return decodeData[Credential](resp)
}

// Revoke invalidates an OAuth-backed credential with its provider.
func (s *CredentialsService) Revoke(ctx context.Context, id string) error {
	_, err := s.client.post(ctx, "/api/credentials/"+id+"/revoke", nil)
	if pferrors.IsNotFound(err) {
		return pferrors.NewCredentialNotFoundError(id)
	}
	return err
}

// Usage lists the executions that used a credential.
func (s *CredentialsService) Usage(ctx context.Context, id string, opts *ListOptions) (*Page[CredentialUsage], error) {
	var o ListOptions
	if opts != nil {
		o = *opts
	}
	resp, err := s.client.get(ctx, "/api/credentials/"+id+"/usage", o.query())
	if err != nil {
		if pferrors.IsNotFound(err) {
			return nil, pferrors.NewCredentialNotFoundError(id)
		}
		return nil, err
	}
	return decodeList[CredentialUsage](resp)
}
