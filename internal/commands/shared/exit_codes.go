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

package shared

import (
	"errors"
	"fmt"
	"io"
	"os"

	pkgerrors "github.com/tombee/httpinvoke/pkg/errors"
	"github.com/tombee/httpinvoke/pkg/invoker"
	"github.com/tombee/httpinvoke/pkg/requestor"
)

// Exit codes
const (
	ExitSuccess            = 0
	ExitInvocationFailed   = 1
	ExitInvalidCatalog     = 2
	ExitInvalidArguments   = 3
	ExitUnsuccessfulStatus = 4
	ExitTransportError     = 5
)

// ExitError is an error that carries an exit code
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

// NewInvocationError creates an error for failed invocations
func NewInvocationError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitInvocationFailed, Message: msg, Cause: cause}
}

// NewInvalidCatalogError creates an error for unreadable or invalid catalogs
func NewInvalidCatalogError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitInvalidCatalog, Message: msg, Cause: cause}
}

// NewInvalidArgumentsError creates an error for bad command arguments
func NewInvalidArgumentsError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitInvalidArguments, Message: msg, Cause: cause}
}

// ExitCode maps err to the process exit code. An ExitError keeps its code
// unless its cause classifies more precisely.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var te *requestor.TransportError
	switch {
	case errors.Is(err, invoker.ErrUnsuccessfulStatus):
		return ExitUnsuccessfulStatus
	case errors.As(err, &te):
		return ExitTransportError
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	var ve *pkgerrors.ValidationError
	var ce *pkgerrors.ConfigError
	if errors.As(err, &ve) || errors.As(err, &ce) {
		return ExitInvalidCatalog
	}
	return ExitInvocationFailed
}

// HandleExitError prints err with any suggestion and exits with its code.
func HandleExitError(err error) {
	if err == nil {
		return
	}
	PrintError(os.Stderr, err)
	os.Exit(ExitCode(err))
}

// PrintError writes err and the first suggestion in its chain to w.
func PrintError(w io.Writer, err error) {
	fmt.Fprintln(w, "Error:", err.Error())
	printUserVisibleSuggestion(w, err)
}

// printUserVisibleSuggestion walks the chain to the first UserVisibleError
// and prints its suggestion.
func printUserVisibleSuggestion(w io.Writer, err error) {
	for err != nil {
		if userErr, ok := err.(pkgerrors.UserVisibleError); ok {
			if userErr.IsUserVisible() {
				if suggestion := userErr.Suggestion(); suggestion != "" {
					fmt.Fprintf(w, "\nSuggestion: %s\n", suggestion)
				}
			}
			return
		}
		err = errors.Unwrap(err)
	}
}
