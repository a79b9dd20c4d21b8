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

/*
Package cli provides the root command for the httpinvoke CLI.

This package creates the main Cobra command and handles global concerns like
version information, persistent flags, and error handling. Individual commands
are implemented in the internal/commands subpackages.

# Command Tree

	httpinvoke
	├── list          List catalog APIs and methods
	├── call          Invoke a catalog method
	├── validate      Validate catalog files
	├── version       Show version
	└── help          Show help

# Usage

From main.go:

	opts := shared.NewOptions()
	cli.SetVersion(version, commit, date)
	rootCmd := cli.NewRootCommand(opts)
	rootCmd.AddCommand(call.NewCommand(opts))
	if err := rootCmd.Execute(); err != nil {
	    cli.HandleExitError(err)
	}

# Global Flags

All commands inherit these flags:

	--verbose, -v      Enable debug logging
	--quiet, -q        Only log errors
	--json             Output in JSON format
	--file, -f         Catalog files or glob patterns
	--config, -c       Property files
	--define, -D       Config key override (key=value)
	--env-prefix       Prefix for environment lookups
	--keychain         Keychain service for secrets
	--trace-exporter   none, stdout, otlp-http or otlp-grpc
	--otlp-endpoint    OTLP collector host:port
	--otlp-insecure    Disable TLS for OTLP

# Exit Codes

	0  success
	1  invocation failed
	2  invalid catalog
	3  invalid arguments
	4  unsuccessful HTTP status
	5  transport error
*/
package cli
