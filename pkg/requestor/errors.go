// Copyright 2025 Tom Barlow
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

package requestor

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/tombee/httpinvoke/pkg/invoker"
)

// ErrorType classifies transport failures.
type ErrorType string

const (
	// ErrorTypeConnection indicates a network, DNS or protocol failure
	ErrorTypeConnection ErrorType = "connection"

	// ErrorTypeTimeout indicates the per-request timeout elapsed
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeCancelled indicates the caller's context was cancelled
	ErrorTypeCancelled ErrorType = "cancelled"

	// ErrorTypeInvalidRequest indicates the request could not be built
	ErrorTypeInvalidRequest ErrorType = "invalid_request"
)

// TransportError is returned by HTTPRequestor.Send for any failure that
// prevented a response from being received.
type TransportError struct {
	// Type classifies the error for retry decisions
	Type ErrorType

	// Message is safe to log; the URL is sanitized
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// IsType returns true if the error is of the given type.
func (e *TransportError) IsType(t ErrorType) bool {
	return e.Type == t
}

// MatchType returns a retry matcher for transport errors of type t.
func MatchType(t ErrorType) invoker.ErrorMatcher {
	return func(err error) bool {
		var te *TransportError
		return errors.As(err, &te) && te.Type == t
	}
}

// MatchAny returns a retry matcher for every transport error.
func MatchAny() invoker.ErrorMatcher {
	return invoker.MatchErrorType[*TransportError]()
}

// classifyError maps a client.Do failure onto a TransportError.
func classifyError(err error, url string) *TransportError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &TransportError{Type: ErrorTypeTimeout, Message: "request timeout: " + url, Cause: err}
	case errors.Is(err, context.Canceled):
		return &TransportError{Type: ErrorTypeCancelled, Message: "request cancelled: " + url, Cause: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransportError{Type: ErrorTypeTimeout, Message: "request timeout: " + url, Cause: err}
	}
	return &TransportError{Type: ErrorTypeConnection, Message: "connection error: " + url, Cause: err}
}
