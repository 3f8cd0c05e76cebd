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
	"errors"
	"fmt"
	"os"

	pkgerrors "github.com/pipeflowhq/pipeflow-go/pkg/errors"
)

// Exit codes for the pipeflow CLI.
const (
	ExitSuccess   = 0
	ExitAPIError  = 1
	ExitUsage     = 2
	ExitAuth      = 3
	ExitNotFound  = 4
	ExitRateLimit = 5
)

// ExitError carries an exit code alongside the error message.
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewUsageError creates an error for invalid flags or arguments.
func NewUsageError(msg string) *ExitError {
	return &ExitError{Code: ExitUsage, Message: msg}
}

// NewAuthError creates an error for authentication failures.
func NewAuthError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitAuth, Message: msg, Cause: cause}
}

// exitCodeFor maps API error taxonomy to CLI exit codes.
func exitCodeFor(err error) int {
	switch {
	case pkgerrors.IsAuth(err):
		return ExitAuth
	case pkgerrors.IsNotFound(err):
		return ExitNotFound
	case pkgerrors.IsRateLimit(err):
		return ExitRateLimit
	default:
		return ExitAPIError
	}
}

// HandleExitError prints the error and exits with the matching code.
func HandleExitError(err error) {
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, RenderError(err.Error()))

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}
	os.Exit(exitCodeFor(err))
}
