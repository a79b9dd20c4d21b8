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

package cli

import (
	"github.com/spf13/cobra"

	"github.com/tombee/httpinvoke/internal/commands/shared"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root Cobra command for httpinvoke and binds
// the global flags to opts.
func NewRootCommand(opts *shared.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "httpinvoke",
		Short: "httpinvoke - declarative HTTP API invocation",
		Long: `httpinvoke calls HTTP APIs described in YAML catalogs. Each catalog
entry declares a URL template, parameter bindings, a retry policy and the
shape of the result; httpinvoke fills the template from configuration and
arguments, sends the request and decodes the response.

Run 'httpinvoke list' to see the methods in your catalog.
Run 'httpinvoke call <api>.<method> [args...]' to invoke one.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
	}

	opts.RegisterFlags(cmd)
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
	return cmd
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return shared.GetVersion()
}

// HandleExitError handles exit errors with proper exit codes
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
