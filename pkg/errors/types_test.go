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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pferrors "github.com/pipeflowhq/pipeflow-go/pkg/errors"
)

func TestError_Render(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "code and message",
			err:  pferrors.NewError("something broke", "API_ERROR"),
			want: "[API_ERROR] something broke",
		},
		{
			name: "message only",
			err:  pferrors.NewError("something broke", ""),
			want: "something broke",
		},
		{
			name: "authentication default message",
			err:  pferrors.NewAuthenticationError(""),
			want: "[AUTH_FAILED] Authentication failed",
		},
		{
			name: "authorization default message",
			err:  pferrors.NewAuthorizationError(""),
			want: "[AUTH_INSUFFICIENT_PERMISSIONS] Insufficient permissions",
		},
		{
			name: "workflow not found carries the id",
			err:  pferrors.NewWorkflowNotFoundError("wf-123"),
			want: `[WORKFLOW_NOT_FOUND] Workflow with ID "wf-123" not found`,
		},
		{
			name: "rate limit default message",
			err:  pferrors.NewRateLimitError(""),
			want: "[RATE_LIMIT_EXCEEDED] Rate limit exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := &pferrors.NetworkError{
		Message: "request failed",
		Code:    pferrors.CodeNetwork,
		Cause:   cause,
	}

	assert.True(t, pferrors.Is(err, cause))
}

func TestError_ToMap(t *testing.T) {
	err := pferrors.NewExecutionError("node timed out", "exec-9")
	err.NodeID = "node-3"
	err.WorkflowID = "wf-1"

	m := err.ToMap()

	assert.Equal(t, "ExecutionError", m["type"])
	assert.Equal(t, "node timed out", m["message"])
	assert.Equal(t, pferrors.CodeExecution, m["error_code"])
	assert.Equal(t, "exec-9", m["execution_id"])
	assert.Equal(t, "node-3", m["node_id"])
	assert.Equal(t, "wf-1", m["workflow_id"])
}

func TestRateLimitError_ToMap(t *testing.T) {
	err := pferrors.NewRateLimitError("")
	retryAfter := 30
	err.RetryAfter = &retryAfter

	m := err.ToMap()

	assert.Equal(t, "RateLimitError", m["type"])
	assert.Equal(t, 30, m["retry_after"])
	assert.Nil(t, m["limit"])
	assert.Nil(t, m["remaining"])
	assert.Nil(t, m["reset_time"])
}

func TestNotFoundErrors_CarryIDs(t *testing.T) {
	wf := pferrors.NewWorkflowNotFoundError("wf-1")
	ex := pferrors.NewExecutionNotFoundError("exec-1")
	cr := pferrors.NewCredentialNotFoundError("cred-1")

	require.Equal(t, "wf-1", wf.WorkflowID)
	require.Equal(t, "exec-1", ex.ExecutionID)
	require.Equal(t, "cred-1", cr.CredentialID)

	assert.Equal(t, "wf-1", wf.ToMap()["workflow_id"])
	assert.Equal(t, "exec-1", ex.ToMap()["execution_id"])
	assert.Equal(t, "cred-1", cr.ToMap()["credential_id"])
}

func TestConfigurationError_NamesField(t *testing.T) {
	err := pferrors.NewConfigurationError("timeout must be positive", "timeout")

	assert.Equal(t, "timeout", err.ConfigField)
	assert.Equal(t, "[CONFIGURATION_ERROR] timeout must be positive", err.Error())
	assert.Equal(t, "timeout", err.ToMap()["config_field"])
}
