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
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/tombee/httpinvoke/internal/catalog"
	"github.com/tombee/httpinvoke/internal/log"
	"github.com/tombee/httpinvoke/internal/tracing"
	"github.com/tombee/httpinvoke/pkg/property"
)

const (
	// EnvCatalog holds comma separated catalog patterns used when -f is
	// not given.
	EnvCatalog = "HTTPINVOKE_CATALOG"

	// DefaultCatalogPattern is used when neither -f nor EnvCatalog is set.
	DefaultCatalogPattern = "apis/**/*.yaml"

	// PriorityDefine ranks -D overrides above every other source.
	PriorityDefine = 200
)

// Logger builds the command logger from the environment and the
// verbosity flags.
func (o *Options) Logger() *slog.Logger {
	cfg := log.FromEnv()
	if o.Stderr != nil {
		cfg.Output = o.Stderr
	}
	switch {
	case o.Verbose:
		cfg.Level = "debug"
	case o.Quiet:
		cfg.Level = "error"
	}
	return log.New(cfg)
}

// Resolver assembles the property sources: -D defines, property files in
// the order given, the keychain when enabled, then the environment.
func (o *Options) Resolver() (*property.Composite, error) {
	c := property.NewComposite()

	if len(o.Defines) > 0 {
		values := make(map[string]string, len(o.Defines))
		for _, d := range o.Defines {
			k, v, ok := strings.Cut(d, "=")
			k = strings.TrimSpace(k)
			if !ok || k == "" {
				return nil, NewInvalidArgumentsError(fmt.Sprintf("invalid define %q, expected key=value", d), nil)
			}
			values[k] = v
		}
		c.Add(property.NewMapSource("define", PriorityDefine, values))
	}

	for _, path := range o.PropertyFiles {
		src, err := property.LoadFile(path)
		if err != nil {
			return nil, NewInvalidArgumentsError("failed to load property file", err)
		}
		c.Add(src)
	}

	if o.Keychain != "" {
		c.Add(property.NewKeychainSource(o.Keychain))
	}
	c.Add(property.NewEnvSource(o.EnvPrefix))
	return c, nil
}

// CatalogPatterns returns the catalog patterns in effect.
func (o *Options) CatalogPatterns() []string {
	if len(o.Catalogs) > 0 {
		return o.Catalogs
	}
	if env := os.Getenv(EnvCatalog); env != "" {
		var patterns []string
		for _, p := range strings.Split(env, ",") {
			if p = strings.TrimSpace(p); p != "" {
				patterns = append(patterns, p)
			}
		}
		if len(patterns) > 0 {
			return patterns
		}
	}
	return []string{DefaultCatalogPattern}
}

// LoadCatalog loads every catalog matching CatalogPatterns.
func (o *Options) LoadCatalog() (*catalog.Catalog, error) {
	c, err := catalog.LoadGlob(o.CatalogPatterns()...)
	if err != nil {
		return nil, NewInvalidCatalogError("failed to load catalog", err)
	}
	return c, nil
}

// TracerProvider creates the tracer provider selected by the trace flags.
// Callers must Shutdown it to flush spans.
func (o *Options) TracerProvider(ctx context.Context) (*sdktrace.TracerProvider, error) {
	tp, err := tracing.NewProvider(ctx, tracing.Config{
		Exporter:    o.TraceExporter,
		Endpoint:    o.OTLPEndpoint,
		Insecure:    o.OTLPInsecure,
		ServiceName: "httpinvoke",
		Output:      o.Stderr,
	})
	if err != nil {
		return nil, NewInvalidArgumentsError("failed to configure tracing", err)
	}
	return tp, nil
}
