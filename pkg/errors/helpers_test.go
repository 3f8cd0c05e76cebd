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

package errors_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pferrors "github.com/pipeflowhq/pipeflow-go/pkg/errors"
)

func TestFromStatusCode_Mapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   any
	}{
		{name: "400 validation", status: 400, want: &pferrors.ValidationError{}},
		{name: "401 authentication", status: 401, want: &pferrors.AuthenticationError{}},
		{name: "403 authorization", status: 403, want: &pferrors.AuthorizationError{}},
		{name: "404 generic", status: 404, want: &pferrors.Error{}},
		{name: "429 rate limit", status: 429, want: &pferrors.RateLimitError{}},
		{name: "500 generic", status: 500, want: &pferrors.Error{}},
		{name: "502 network", status: 502, want: &pferrors.NetworkError{}},
		{name: "503 network", status: 503, want: &pferrors.NetworkError{}},
		{name: "504 network", status: 504, want: &pferrors.NetworkError{}},
		{name: "unmapped 418 network", status: 418, want: &pferrors.NetworkError{}},
		{name: "unmapped 507 network", status: 507, want: &pferrors.NetworkError{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pferrors.FromStatusCode(tt.status, "boom", nil, nil)
			require.Error(t, err)
			assert.True(t, pferrors.As(err, &tt.want), "got %T", err)
		})
	}
}

func TestFromStatusCode_NotFoundCode(t *testing.T) {
	err := pferrors.FromStatusCode(404, "workflow not found", nil, nil)

	var generic *pferrors.Error
	require.True(t, pferrors.As(err, &generic))
	assert.Equal(t, pferrors.CodeNotFound, generic.Code)
	assert.True(t, pferrors.IsNotFound(err))
}

func TestFromStatusCode_RateLimitHeaders(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "30")
	header.Set("X-Ratelimit-Limit", "100")
	header.Set("X-Ratelimit-Remaining", "5")
	header.Set("X-Ratelimit-Reset", "1735689600")

	err := pferrors.FromStatusCode(429, "slow down", header, nil)

	var rle *pferrors.RateLimitError
	require.True(t, pferrors.As(err, &rle))
	require.NotNil(t, rle.RetryAfter)
	assert.Equal(t, 30, *rle.RetryAfter)
	require.NotNil(t, rle.Limit)
	assert.Equal(t, 100, *rle.Limit)
	require.NotNil(t, rle.Remaining)
	assert.Equal(t, 5, *rle.Remaining)
	require.NotNil(t, rle.ResetTime)
	assert.Equal(t, int64(1735689600), *rle.ResetTime)
}

func TestFromStatusCode_MalformedRateLimitHeaders(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "soon")
	header.Set("X-Ratelimit-Limit", "abc")
	header.Set("X-Ratelimit-Remaining", "5")

	err := pferrors.FromStatusCode(429, "slow down", header, nil)

	var rle *pferrors.RateLimitError
	require.True(t, pferrors.As(err, &rle))
	assert.Nil(t, rle.RetryAfter)
	assert.Nil(t, rle.Limit)
	require.NotNil(t, rle.Remaining)
	assert.Equal(t, 5, *rle.Remaining)
	assert.Nil(t, rle.ResetTime)
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantNotFound  bool
		wantRateLimit bool
		wantAuth      bool
	}{
		{
			name:         "workflow not found",
			err:          pferrors.NewWorkflowNotFoundError("wf-1"),
			wantNotFound: true,
		},
		{
			name:          "rate limit",
			err:           pferrors.NewRateLimitError(""),
			wantRateLimit: true,
		},
		{
			name:     "authentication",
			err:      pferrors.NewAuthenticationError(""),
			wantAuth: true,
		},
		{
			name:     "authorization",
			err:      pferrors.NewAuthorizationError(""),
			wantAuth: true,
		},
		{
			name: "wrapped not found survives the chain",
			err:  pferrors.Wrap(pferrors.NewExecutionNotFoundError("exec-1"), "fetching execution"),

			wantNotFound: true,
		},
		{
			name: "plain error matches nothing",
			err:  pferrors.New("boom"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantNotFound, pferrors.IsNotFound(tt.err))
			assert.Equal(t, tt.wantRateLimit, pferrors.IsRateLimit(tt.err))
			assert.Equal(t, tt.wantAuth, pferrors.IsAuth(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, pferrors.IsRetryable(pferrors.NewNetworkError("dial tcp: connection refused", 0)))
	assert.True(t, pferrors.IsRetryable(pferrors.NewNetworkError("bad gateway", 502)))
	assert.False(t, pferrors.IsRetryable(pferrors.NewRateLimitError("")))
	assert.False(t, pferrors.IsRetryable(pferrors.NewAuthenticationError("")))
}

func TestWrap_NilPassthrough(t *testing.T) {
	assert.NoError(t, pferrors.Wrap(nil, "context"))
	assert.NoError(t, pferrors.Wrapf(nil, "context %d", 1))
}
