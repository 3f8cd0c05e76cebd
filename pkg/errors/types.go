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

package errors

import (
	"fmt"
	"net/http"
)

// Machine-readable error codes. Every typed error carries one of these so
// callers can branch without string matching on messages.
const (
	CodeAuthFailed          = "AUTH_FAILED"
	CodeInsufficientPerms   = "AUTH_INSUFFICIENT_PERMISSIONS"
	CodeValidation          = "VALIDATION_ERROR"
	CodeNetwork             = "NETWORK_ERROR"
	CodeRateLimit           = "RATE_LIMIT_EXCEEDED"
	CodeExecution           = "EXECUTION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeWorkflowNotFound    = "WORKFLOW_NOT_FOUND"
	CodeExecutionNotFound   = "EXECUTION_NOT_FOUND"
	CodeCredentialNotFound  = "CREDENTIAL_NOT_FOUND"
	CodeConfiguration       = "CONFIGURATION_ERROR"
	CodeWebSocket           = "WEBSOCKET_ERROR"
	CodeAPIError            = "API_ERROR"
	CodeClientClosed        = "CLIENT_CLOSED"
)

// render formats a typed error as "[<code>] <message>", or just the message
// when no code is set.
func render(code, message string) string {
	if code != "" {
		return fmt.Sprintf("[%s] %s", code, message)
	}
	return message
}

// baseMap builds the common structured-serialization fields shared by all
// typed errors.
func baseMap(typ, message, code string, context map[string]any) map[string]any {
	m := map[string]any{
		"type":       typ,
		"message":    message,
		"error_code": code,
		"context":    context,
	}
	if context == nil {
		m["context"] = map[string]any{}
	}
	return m
}

// Error is the generic platform error. Status codes without a more specific
// kind (404, 500) map here; resource managers specialize 404s into the
// *NotFoundError types below.
type Error struct {
	Message string
	Code    string
	Context map[string]any
	Cause   error
}

// NewError creates a generic platform error.
func NewError(message, code string) *Error {
	return &Error{Message: message, Code: code}
}

func (e *Error) Error() string { return render(e.Code, e.Message) }

func (e *Error) Unwrap() error { return e.Cause }

// ToMap returns the structured serialization of the error for logging and
// telemetry.
func (e *Error) ToMap() map[string]any {
	return baseMap("Error", e.Message, e.Code, e.Context)
}

// AuthenticationError indicates a missing or invalid credential, or a failed
// token refresh.
type AuthenticationError struct {
	Message string
	Code    string
	Context map[string]any
	Cause   error
}

// NewAuthenticationError creates an AuthenticationError. An empty message
// falls back to the default.
func NewAuthenticationError(message string) *AuthenticationError {
	if message == "" {
		message = "Authentication failed"
	}
	return &AuthenticationError{Message: message, Code: CodeAuthFailed}
}

func (e *AuthenticationError) Error() string { return render(e.Code, e.Message) }

func (e *AuthenticationError) Unwrap() error { return e.Cause }

func (e *AuthenticationError) ToMap() map[string]any {
	return baseMap("AuthenticationError", e.Message, e.Code, e.Context)
}

// AuthorizationError indicates the credential was valid but lacks permission
// for the requested operation (HTTP 403).
type AuthorizationError struct {
	Message string
	Code    string
	Context map[string]any
}

// NewAuthorizationError creates an AuthorizationError with the default
// message when none is given.
func NewAuthorizationError(message string) *AuthorizationError {
	if message == "" {
		message = "Insufficient permissions"
	}
	return &AuthorizationError{Message: message, Code: CodeInsufficientPerms}
}

func (e *AuthorizationError) Error() string { return render(e.Code, e.Message) }

func (e *AuthorizationError) ToMap() map[string]any {
	return baseMap("AuthorizationError", e.Message, e.Code, e.Context)
}

// FieldError describes a single per-field validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError indicates invalid input, either rejected locally before a
// request was made or by the platform with HTTP 400.
type ValidationError struct {
	Message     string
	Code        string
	Field       string
	FieldErrors []FieldError
	Context     map[string]any
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(message, field string) *ValidationError {
	return &ValidationError{Message: message, Code: CodeValidation, Field: field}
}

func (e *ValidationError) Error() string { return render(e.Code, e.Message) }

func (e *ValidationError) ToMap() map[string]any {
	m := baseMap("ValidationError", e.Message, e.Code, e.Context)
	m["field"] = e.Field
	m["validation_errors"] = e.FieldErrors
	return m
}

// NetworkError indicates a transport-level failure or an upstream gateway
// error (502/503/504). StatusCode is zero when the request never produced a
// response.
type NetworkError struct {
	Message    string
	Code       string
	StatusCode int
	Headers    http.Header
	Context    map[string]any
	Cause      error
}

// NewNetworkError creates a NetworkError for the given status code. A zero
// status code means the failure happened before any response arrived.
func NewNetworkError(message string, statusCode int) *NetworkError {
	return &NetworkError{Message: message, Code: CodeNetwork, StatusCode: statusCode}
}

func (e *NetworkError) Error() string { return render(e.Code, e.Message) }

func (e *NetworkError) Unwrap() error { return e.Cause }

func (e *NetworkError) ToMap() map[string]any {
	m := baseMap("NetworkError", e.Message, e.Code, e.Context)
	m["status_code"] = e.StatusCode
	if e.Headers != nil {
		headers := make(map[string]string, len(e.Headers))
		for k := range e.Headers {
			headers[k] = e.Headers.Get(k)
		}
		m["response_headers"] = headers
	}
	return m
}

// RateLimitError indicates the platform rejected the request with HTTP 429.
// The pointer fields are nil when the corresponding response header was
// missing or malformed.
type RateLimitError struct {
	NetworkError

	RetryAfter *int
	Limit      *int
	Remaining  *int
	ResetTime  *int64
}

// NewRateLimitError creates a RateLimitError with the default message when
// none is given.
func NewRateLimitError(message string) *RateLimitError {
	if message == "" {
		message = "Rate limit exceeded"
	}
	return &RateLimitError{
		NetworkError: NetworkError{
			Message:    message,
			Code:       CodeRateLimit,
			StatusCode: http.StatusTooManyRequests,
		},
	}
}

func (e *RateLimitError) ToMap() map[string]any {
	m := e.NetworkError.ToMap()
	m["type"] = "RateLimitError"
	m["retry_after"] = intOrNil(e.RetryAfter)
	m["limit"] = intOrNil(e.Limit)
	m["remaining"] = intOrNil(e.Remaining)
	if e.ResetTime != nil {
		m["reset_time"] = *e.ResetTime
	} else {
		m["reset_time"] = nil
	}
	return m
}

func intOrNil(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

// ExecutionError indicates a workflow or node run failed on the platform.
type ExecutionError struct {
	Message     string
	Code        string
	ExecutionID string
	NodeID      string
	WorkflowID  string
	Context     map[string]any
}

// NewExecutionError creates an ExecutionError for the given execution.
func NewExecutionError(message, executionID string) *ExecutionError {
	return &ExecutionError{Message: message, Code: CodeExecution, ExecutionID: executionID}
}

func (e *ExecutionError) Error() string { return render(e.Code, e.Message) }

func (e *ExecutionError) ToMap() map[string]any {
	m := baseMap("ExecutionError", e.Message, e.Code, e.Context)
	m["execution_id"] = e.ExecutionID
	m["node_id"] = e.NodeID
	m["workflow_id"] = e.WorkflowID
	return m
}

// WorkflowNotFoundError indicates the referenced workflow does not exist.
type WorkflowNotFoundError struct {
	Message    string
	Code       string
	WorkflowID string
	Context    map[string]any
}

// NewWorkflowNotFoundError creates a WorkflowNotFoundError for the given ID.
func NewWorkflowNotFoundError(workflowID string) *WorkflowNotFoundError {
	return &WorkflowNotFoundError{
		Message:    fmt.Sprintf("Workflow with ID %q not found", workflowID),
		Code:       CodeWorkflowNotFound,
		WorkflowID: workflowID,
	}
}

func (e *WorkflowNotFoundError) Error() string { return render(e.Code, e.Message) }

func (e *WorkflowNotFoundError) ToMap() map[string]any {
	m := baseMap("WorkflowNotFoundError", e.Message, e.Code, e.Context)
	m["workflow_id"] = e.WorkflowID
	return m
}

// ExecutionNotFoundError indicates the referenced execution does not exist.
type ExecutionNotFoundError struct {
	Message     string
	Code        string
	ExecutionID string
	Context     map[string]any
}

// NewExecutionNotFoundError creates an ExecutionNotFoundError for the given ID.
func NewExecutionNotFoundError(executionID string) *ExecutionNotFoundError {
	return &ExecutionNotFoundError{
		Message:     fmt.Sprintf("Execution with ID %q not found", executionID),
		Code:        CodeExecutionNotFound,
		ExecutionID: executionID,
	}
}

func (e *ExecutionNotFoundError) Error() string { return render(e.Code, e.Message) }

func (e *ExecutionNotFoundError) ToMap() map[string]any {
	m := baseMap("ExecutionNotFoundError", e.Message, e.Code, e.Context)
	m["execution_id"] = e.ExecutionID
	return m
}

// CredentialNotFoundError indicates the referenced credential does not exist.
type CredentialNotFoundError struct {
	Message      string
	Code         string
	CredentialID string
	Context      map[string]any
}

// NewCredentialNotFoundError creates a CredentialNotFoundError for the given ID.
func NewCredentialNotFoundError(credentialID string) *CredentialNotFoundError {
	return &CredentialNotFoundError{
		Message:      fmt.Sprintf("Credential with ID %q not found", credentialID),
		Code:         CodeCredentialNotFound,
		CredentialID: credentialID,
	}
}

func (e *CredentialNotFoundError) Error() string { return render(e.Code, e.Message) }

func (e *CredentialNotFoundError) ToMap() map[string]any {
	m := baseMap("CredentialNotFoundError", e.Message, e.Code, e.Context)
	m["credential_id"] = e.CredentialID
	return m
}

// ConfigurationError indicates invalid client or auth construction. These
// surface before any request is made.
type ConfigurationError struct {
	Message     string
	Code        string
	ConfigField string
	Context     map[string]any
}

// NewConfigurationError creates a ConfigurationError naming the offending
// field.
func NewConfigurationError(message, configField string) *ConfigurationError {
	return &ConfigurationError{Message: message, Code: CodeConfiguration, ConfigField: configField}
}

func (e *ConfigurationError) Error() string { return render(e.Code, e.Message) }

func (e *ConfigurationError) ToMap() map[string]any {
	m := baseMap("ConfigurationError", e.Message, e.Code, e.Context)
	m["config_field"] = e.ConfigField
	return m
}

// WebSocketError indicates a streaming channel failure. CloseCode carries the
// WebSocket close code when the peer closed the connection.
type WebSocketError struct {
	Message   string
	Code      string
	CloseCode int
	Context   map[string]any
	Cause     error
}

// NewWebSocketError creates a WebSocketError.
func NewWebSocketError(message string, closeCode int) *WebSocketError {
	return &WebSocketError{Message: message, Code: CodeWebSocket, CloseCode: closeCode}
}

func (e *WebSocketError) Error() string { return render(e.Code, e.Message) }

func (e *WebSocketError) Unwrap() error { return e.Cause }

func (e *WebSocketError) ToMap() map[string]any {
	m := baseMap("WebSocketError", e.Message, e.Code, e.Context)
	m["close_code"] = e.CloseCode
	return m
}
