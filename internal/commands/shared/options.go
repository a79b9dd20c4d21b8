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

// Package shared holds the global options and runtime wiring used by every
// httpinvoke command.
package shared

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Build-time version information
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	version = v
	commit = c
	buildDate = b
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return version, commit, buildDate
}

// Options are the persistent flags shared by all commands.
type Options struct {
	Verbose bool
	Quiet   bool
	JSON    bool

	// Catalogs are doublestar patterns of catalog files.
	Catalogs []string

	// PropertyFiles are YAML or .properties files, highest priority first.
	PropertyFiles []string

	// Defines are key=value overrides taking precedence over every file.
	Defines []string

	// EnvPrefix namespaces environment lookups ("APP" → APP_API_HOST).
	EnvPrefix string

	// Keychain is the keychain service to resolve secrets from. Empty
	// disables the keychain source.
	Keychain string

	TraceExporter string
	OTLPEndpoint  string
	OTLPInsecure  bool

	// Stderr receives logs. Default: os.Stderr
	Stderr io.Writer
}

// NewOptions returns options with defaults applied.
func NewOptions() *Options {
	return &Options{Stderr: os.Stderr}
}

// RegisterFlags binds the options to cmd's persistent flags.
func (o *Options) RegisterFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.BoolVarP(&o.Verbose, "verbose", "v", false, "Enable debug logging")
	f.BoolVarP(&o.Quiet, "quiet", "q", false, "Only log errors")
	f.BoolVar(&o.JSON, "json", false, "Output in JSON format")
	f.StringSliceVarP(&o.Catalogs, "file", "f", nil,
		"Catalog files or glob patterns (default: $HTTPINVOKE_CATALOG or apis/**/*.yaml)")
	f.StringSliceVarP(&o.PropertyFiles, "config", "c", nil,
		"Property files (.yaml, .yml or .properties); earlier files win")
	f.StringArrayVarP(&o.Defines, "define", "D", nil, "Set a config key (key=value)")
	f.StringVar(&o.EnvPrefix, "env-prefix", "", "Prefix for environment variable lookups")
	f.StringVar(&o.Keychain, "keychain", "", "Resolve config keys from this keychain service")
	f.StringVar(&o.TraceExporter, "trace-exporter", "none", "Span exporter: none, stdout, otlp-http, otlp-grpc")
	f.StringVar(&o.OTLPEndpoint, "otlp-endpoint", "", "OTLP collector host:port")
	f.BoolVar(&o.OTLPInsecure, "otlp-insecure", false, "Disable TLS for the OTLP exporter")
}
