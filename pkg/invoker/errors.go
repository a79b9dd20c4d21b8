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

package invoker

import (
	"errors"
	"fmt"
)

// ErrorType classifies invocation failures.
type ErrorType string

const (
	// ErrorTypeConfigVariableMissing indicates a ${key} placeholder with no value
	ErrorTypeConfigVariableMissing ErrorType = "config_variable_missing"

	// ErrorTypePathVariableMissing indicates a {key} placeholder left after the final pass
	ErrorTypePathVariableMissing ErrorType = "path_variable_missing"

	// ErrorTypeBindingTypeViolation indicates a header or cookie argument that is not map[string]string
	ErrorTypeBindingTypeViolation ErrorType = "binding_type_violation"

	// ErrorTypeUnsuccessfulStatus indicates a response outside [200, 300)
	ErrorTypeUnsuccessfulStatus ErrorType = "unsuccessful_status"

	// ErrorTypeInvocationContract indicates a call for an undeclared operation
	ErrorTypeInvocationContract ErrorType = "invocation_contract"

	// ErrorTypeDecode indicates the response body could not be decoded or transformed
	ErrorTypeDecode ErrorType = "decode_error"
)

// Sentinels for errors.Is. Every *Error matches the sentinel of its Type.
var (
	ErrConfigVariableMissing = errors.New("missing configuration variable")
	ErrPathVariableMissing   = errors.New("missing path variable")
	ErrBindingTypeViolation  = errors.New("binding type violation")
	ErrUnsuccessfulStatus    = errors.New("unsuccessful response status")
	ErrInvocationContract    = errors.New("invocation contract violation")
	ErrDecode                = errors.New("response decode failed")
)

var sentinels = map[ErrorType]error{
	ErrorTypeConfigVariableMissing: ErrConfigVariableMissing,
	ErrorTypePathVariableMissing:   ErrPathVariableMissing,
	ErrorTypeBindingTypeViolation:  ErrBindingTypeViolation,
	ErrorTypeUnsuccessfulStatus:    ErrUnsuccessfulStatus,
	ErrorTypeInvocationContract:    ErrInvocationContract,
	ErrorTypeDecode:                ErrDecode,
}

// Error is a classified invocation failure.
type Error struct {
	// Type classifies the error
	Type ErrorType

	// Message is the human-readable description
	Message string

	// URL is the request URL at the time of failure, if any
	URL string

	// Key is the placeholder or parameter key involved, if any
	Key string

	// StatusCode and StatusMessage describe an unsuccessful response
	StatusCode    int
	StatusMessage string

	// SuggestText provides guidance on how to resolve the error
	SuggestText string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Type)
	}
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s [HTTP %d %s]", msg, e.StatusCode, e.StatusMessage)
	}
	if e.URL != "" {
		msg = fmt.Sprintf("%s (url: %s)", msg, e.URL)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel for e.Type.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Type]
	return ok && s == target
}

// IsUserVisible implements pkg/errors.UserVisibleError.
func (e *Error) IsUserVisible() bool {
	return true
}

// UserMessage implements pkg/errors.UserVisibleError.
func (e *Error) UserMessage() string {
	return e.Message
}

// Suggestion implements pkg/errors.UserVisibleError.
func (e *Error) Suggestion() string {
	return e.SuggestText
}

func configVariableMissing(key, url string) *Error {
	return &Error{
		Type:        ErrorTypeConfigVariableMissing,
		Message:     fmt.Sprintf("missing configuration variable %q", key),
		Key:         key,
		URL:         url,
		SuggestText: "Define the key in a property file or the environment",
	}
}

func pathVariableMissing(key, url string) *Error {
	return &Error{
		Type:        ErrorTypePathVariableMissing,
		Message:     fmt.Sprintf("missing path variable %q", key),
		Key:         key,
		URL:         url,
		SuggestText: "Pass a parameter with this key or supply it from a preprocessor",
	}
}

func bindingTypeViolation(kind BindingKind, index int, arg any) *Error {
	return &Error{
		Type:    ErrorTypeBindingTypeViolation,
		Message: fmt.Sprintf("argument %d bound as %s must be map[string]string, got %T", index, kind, arg),
	}
}

func unsuccessfulStatus(url string, code int, message string) *Error {
	return &Error{
		Type:          ErrorTypeUnsuccessfulStatus,
		Message:       "unsuccessful response",
		URL:           url,
		StatusCode:    code,
		StatusMessage: message,
	}
}

func contractViolation(format string, args ...any) *Error {
	return &Error{
		Type:    ErrorTypeInvocationContract,
		Message: fmt.Sprintf(format, args...),
	}
}

func decodeError(url, message string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeDecode,
		Message: message,
		URL:     url,
		Cause:   cause,
	}
}
