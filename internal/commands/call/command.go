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

package call

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tombee/httpinvoke/internal/catalog"
	"github.com/tombee/httpinvoke/internal/commands/shared"
	"github.com/tombee/httpinvoke/pkg/errors"
	"github.com/tombee/httpinvoke/pkg/invoker"
	"github.com/tombee/httpinvoke/pkg/preprocess"
	"github.com/tombee/httpinvoke/pkg/requestor"
)

type callOptions struct {
	headers   []string
	timeout   time.Duration
	rateLimit float64
	output    string
	metrics   bool
}

// NewCommand creates the call command
func NewCommand(opts *shared.Options) *cobra.Command {
	co := &callOptions{}

	cmd := &cobra.Command{
		Use:   "call <api>.<method> [args...]",
		Short: "Invoke a catalog method",
		Long: `Call invokes one method from the catalog with positional arguments.

Each argument is parsed as JSON and falls back to a plain string, so 42,
true, {"name":"ann"} and [1,2] keep their types while ann stays a string.
An argument of the form @path uploads the file at path.

Config placeholders in URLs, headers and auth are resolved from -D defines,
property files (-c), the keychain (--keychain) and the environment, in that
order.`,
		Example: `  # GET /users/7
  httpinvoke call users.get 7

  # POST a JSON body with an override for the host
  httpinvoke call users.create '{"name":"ann"}' -D users.host=http://localhost:8080

  # Upload a file and print metrics
  httpinvoke call files.upload @report.pdf --metrics`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, co, args)
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&co.headers, "header", "H", nil, `Extra request header ("Name: value")`)
	f.DurationVar(&co.timeout, "timeout", 30*time.Second, "Timeout for methods that declare none")
	f.Float64Var(&co.rateLimit, "rate-limit", 0, "Maximum requests per second, retries included (0 disables)")
	f.StringVarP(&co.output, "output", "o", "", "Write the result to a file instead of stdout")
	f.BoolVar(&co.metrics, "metrics", false, "Print invocation metrics to stderr")
	return cmd
}

func run(cmd *cobra.Command, opts *shared.Options, co *callOptions, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	apiName, methodName, ok := strings.Cut(args[0], ".")
	if !ok || apiName == "" || methodName == "" {
		return shared.NewInvalidArgumentsError(fmt.Sprintf("invalid target %q, expected <api>.<method>", args[0]), nil)
	}

	logger := opts.Logger()
	resolver, err := opts.Resolver()
	if err != nil {
		return err
	}
	cat, err := opts.LoadCatalog()
	if err != nil {
		return err
	}

	def, method, err := lookup(cat, apiName, methodName)
	if err != nil {
		return err
	}

	callArgs, err := ParseArgs(args[1:])
	if err != nil {
		return shared.NewInvalidArgumentsError("invalid argument", err)
	}
	callArgs = CoerceArgs(method, callArgs)

	headers, err := parseHeaders(co.headers)
	if err != nil {
		return shared.NewInvalidArgumentsError("invalid header", err)
	}
	pre, err := def.Preprocessor(ctx, resolver)
	if err != nil {
		return shared.NewInvalidCatalogError("failed to configure "+def.Name, err)
	}

	tp, err := opts.TracerProvider(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("failed to flush spans", "error", err)
		}
	}()

	req, err := requestor.New(requestor.Config{
		Timeout:   co.timeout,
		RateLimit: co.rateLimit,
		Logger:    logger,
	})
	if err != nil {
		return shared.NewInvalidArgumentsError("invalid requestor settings", err)
	}

	reg := prometheus.NewRegistry()
	d, err := invoker.New(def.API(), req,
		invoker.WithProperties(resolver),
		invoker.WithPreprocessor(preprocess.Chain(pre, preprocess.StaticHeaders(headers))),
		invoker.WithLogger(logger),
		invoker.WithMetrics(invoker.NewMetrics(reg)),
		invoker.WithTracerProvider(tp),
	)
	if err != nil {
		return shared.NewInvalidCatalogError("invalid API "+def.Name, err)
	}

	result, callErr := d.Invoke(ctx, methodName, callArgs...)
	if co.metrics {
		if err := writeMetrics(opts.Stderr, reg); err != nil {
			logger.Warn("failed to write metrics", "error", err)
		}
	}
	if callErr != nil {
		return shared.NewInvocationError(args[0]+" failed", callErr)
	}

	out := cmd.OutOrStdout()
	if co.output == "" && !opts.JSON && isBinary(result) && isTerminal(out) {
		closeResult(result)
		return shared.NewInvalidArgumentsError("refusing to write binary output to a terminal", &errors.ValidationError{
			Field:       "output",
			Message:     args[0] + " returns raw bytes",
			SuggestText: "Use -o <file> or pipe the output",
		})
	}
	if co.output != "" {
		f, err := os.Create(co.output)
		if err != nil {
			closeResult(result)
			return shared.NewInvocationError("failed to create output file", err)
		}
		defer f.Close()
		out = f
	}
	return WriteResult(out, args[0], result, opts.JSON)
}

func lookup(cat *catalog.Catalog, apiName, methodName string) (*catalog.Definition, catalog.MethodDefinition, error) {
	def, ok := cat.Lookup(apiName)
	if !ok {
		return nil, catalog.MethodDefinition{}, shared.NewInvalidArgumentsError("unknown API", &errors.ValidationError{
			Field:       "api",
			Message:     fmt.Sprintf("no API named %q", apiName),
			SuggestText: "Run 'httpinvoke list' to see the catalog",
		})
	}
	for _, m := range def.Methods {
		if m.Name == methodName {
			return def, m, nil
		}
	}
	return nil, catalog.MethodDefinition{}, shared.NewInvalidArgumentsError("unknown method", &errors.ValidationError{
		Field:       "method",
		Message:     fmt.Sprintf("API %q has no method %q", apiName, methodName),
		SuggestText: fmt.Sprintf("Run 'httpinvoke list %s.*' to see its methods", apiName),
	})
}

// parseHeaders parses "Name: value" pairs.
func parseHeaders(raw []string) (map[string]string, error) {
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%q: expected \"Name: value\"", h)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

func isBinary(result any) bool {
	switch result.(type) {
	case []byte, io.ReadCloser:
		return true
	default:
		return false
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
