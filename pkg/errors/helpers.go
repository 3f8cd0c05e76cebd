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
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// FromStatusCode builds the typed error for a non-2xx response. The mapping
// is fixed:
//
//	400 -> ValidationError
//	401 -> AuthenticationError
//	403 -> AuthorizationError
//	404 -> Error (NOT_FOUND; resource managers specialize)
//	429 -> RateLimitError (rate-limit headers parsed from header)
//	500 -> Error
//	502/503/504 and anything unmapped -> NetworkError
//
// header may be nil; it is only consulted for 429 responses and attached to
// NetworkError values.
func FromStatusCode(statusCode int, message string, header http.Header, context map[string]any) error {
	switch statusCode {
	case http.StatusBadRequest:
		return &ValidationError{Message: message, Code: CodeValidation, Context: context}

	case http.StatusUnauthorized:
		return &AuthenticationError{Message: message, Code: CodeAuthFailed, Context: context}

	case http.StatusForbidden:
		return &AuthorizationError{Message: message, Code: CodeInsufficientPerms, Context: context}

	case http.StatusNotFound:
		return &Error{Message: message, Code: CodeNotFound, Context: context}

	case http.StatusTooManyRequests:
		e := NewRateLimitError(message)
		e.Headers = header
		e.Context = context
		if header != nil {
			e.RetryAfter = parseIntHeader(header, "Retry-After")
			e.Limit = parseIntHeader(header, "X-Ratelimit-Limit")
			e.Remaining = parseIntHeader(header, "X-Ratelimit-Remaining")
			if reset := parseIntHeader(header, "X-Ratelimit-Reset"); reset != nil {
				v := int64(*reset)
				e.ResetTime = &v
			}
		}
		return e

	case http.StatusInternalServerError:
		return &Error{Message: message, Code: CodeAPIError, Context: context}

	default:
		return &NetworkError{
			Message:    message,
			Code:       CodeNetwork,
			StatusCode: statusCode,
			Headers:    header,
			Context:    context,
		}
	}
}

// parseIntHeader reads a header as a non-negative integer. Malformed values
// are ignored rather than reported, per the rate-limit header contract.
func parseIntHeader(header http.Header, key string) *int {
	raw := header.Get(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

// IsNotFound reports whether err is any of the not-found kinds, including the
// generic NOT_FOUND error the pipeline produces before managers specialize it.
func IsNotFound(err error) bool {
	var wnf *WorkflowNotFoundError
	var enf *ExecutionNotFoundError
	var cnf *CredentialNotFoundError
	if errors.As(err, &wnf) || errors.As(err, &enf) || errors.As(err, &cnf) {
		return true
	}
	var generic *Error
	return errors.As(err, &generic) && generic.Code == CodeNotFound
}

// IsRateLimit reports whether err is a RateLimitError.
func IsRateLimit(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}

// IsAuth reports whether err is an authentication or authorization failure.
func IsAuth(err error) bool {
	var authn *AuthenticationError
	var authz *AuthorizationError
	return errors.As(err, &authn) || errors.As(err, &authz)
}

// IsRetryable reports whether err represents a transport-level failure that
// the request pipeline is allowed to retry. Application errors (4xx) are
// never retryable.
func IsRetryable(err error) bool {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return false
	}
	var ne *NetworkError
	return errors.As(err, &ne) && (ne.StatusCode == 0 || ne.StatusCode >= 502)
}

// Wrap creates a new error that wraps the given error with additional context.
// If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf creates a new error that wraps the given error with formatted context.
// If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// As finds the first error in err's tree that matches target type.
// Convenience wrapper around errors.As from the standard library.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Is reports whether any error in err's tree matches target.
// Convenience wrapper around errors.Is from the standard library.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// New creates a new error with the given message.
// Convenience wrapper around errors.New from the standard library.
func New(message string) error {
	return errors.New(message)
}
