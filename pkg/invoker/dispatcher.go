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
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/httpinvoke/internal/jq"
	"github.com/tombee/httpinvoke/internal/log"
	"github.com/tombee/httpinvoke/internal/tracing"
	"github.com/tombee/httpinvoke/pkg/property"
)

const instrumentationName = "github.com/tombee/httpinvoke/pkg/invoker"

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithProperties sets the resolver for ${key} placeholders.
// Defaults to the process environment.
func WithProperties(r property.Resolver) Option {
	return func(d *Dispatcher) { d.resolver = r }
}

// WithPreprocessor sets the preprocessor run before the final path pass.
func WithPreprocessor(p Preprocessor) Option {
	return func(d *Dispatcher) { d.preprocessor = p }
}

// WithCodec replaces the JSON codec used for flattening and decoding.
func WithCodec(c Codec) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.codec = c
		}
	}
}

// WithTransformer replaces the jq transformer used for MethodDescriptor.Transform.
func WithTransformer(t Transformer) Option {
	return func(d *Dispatcher) { d.transformer = t }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithTracerProvider sets the provider for invocation spans.
// Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(d *Dispatcher) {
		if tp != nil {
			d.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// Dispatcher services the declared operations of one API. It holds no
// per-call state and is safe for concurrent use.
type Dispatcher struct {
	api     API
	methods map[string]*MethodDescriptor

	requestor    Requestor
	resolver     property.Resolver
	preprocessor Preprocessor
	codec        Codec
	transformer  Transformer
	logger       *slog.Logger
	metrics      *Metrics
	tracer       trace.Tracer
}

// New validates api and returns a Dispatcher that sends through r.
func New(api API, r Requestor, opts ...Option) (*Dispatcher, error) {
	if r == nil {
		return nil, fmt.Errorf("api %q: requestor is required", api.Name)
	}

	d := &Dispatcher{
		api:         api,
		methods:     make(map[string]*MethodDescriptor, len(api.Methods)),
		requestor:   r,
		resolver:    property.NewEnvSource(""),
		codec:       JSONCodec{},
		transformer: jq.NewExecutor(0, 0),
		logger:      slog.Default(),
		tracer:      otel.GetTracerProvider().Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = log.WithComponent(d.logger, "invoker")

	for i := range api.Methods {
		m := api.Methods[i]
		if m.Name == "" {
			return nil, fmt.Errorf("api %q: method %d has no name", api.Name, i)
		}
		if _, dup := d.methods[m.Name]; dup {
			return nil, fmt.Errorf("api %q: duplicate method %q", api.Name, m.Name)
		}
		if m.Result.Kind == ResultStructured && m.Result.Type == nil {
			return nil, fmt.Errorf("api %q: method %q declares a structured result without a type", api.Name, m.Name)
		}
		if v, ok := d.transformer.(interface{ Validate(string) error }); ok && m.Transform != "" {
			if err := v.Validate(m.Transform); err != nil {
				return nil, fmt.Errorf("api %q: method %q: %w", api.Name, m.Name, err)
			}
		}
		m.Method = strings.ToUpper(m.Method)
		if m.Method == "" {
			m.Method = "GET"
		}
		d.methods[m.Name] = &m
	}
	return d, nil
}

// Name returns the API name.
func (d *Dispatcher) Name() string { return d.api.Name }

// Methods returns the declared operation names in sorted order.
func (d *Dispatcher) Methods() []string {
	names := make([]string, 0, len(d.methods))
	for name := range d.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Method returns the descriptor for name.
func (d *Dispatcher) Method(name string) (MethodDescriptor, bool) {
	m, ok := d.methods[name]
	if !ok {
		return MethodDescriptor{}, false
	}
	return *m, true
}

// Invoke performs the named operation with the given positional arguments
// and returns the decoded result. Errors from the requestor are returned
// unchanged.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args ...any) (any, error) {
	m, ok := d.methods[name]
	if !ok {
		return nil, contractViolation("api %q has no remote operation %q", d.api.Name, name)
	}

	if tracing.FromContextOrEmpty(ctx) == "" {
		ctx = tracing.ToContext(ctx, tracing.NewCorrelationID())
	}
	ctx, span := d.tracer.Start(ctx, d.api.Name+"."+m.Name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("httpinvoke.api", d.api.Name),
			attribute.String("httpinvoke.method", m.Name),
			attribute.String("http.request.method", m.Method),
		))
	defer span.End()

	logger := log.WithInvocation(d.logger, d.api.Name, m.Name)
	logger = log.WithCorrelationID(logger, tracing.FromContextOrEmpty(ctx).String())

	start := time.Now()
	result, err := d.invoke(ctx, m, args, logger)
	d.metrics.recordInvocation(d.api.Name, m.Name, err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

func (d *Dispatcher) invoke(ctx context.Context, m *MethodDescriptor, args []any, logger *slog.Logger) (any, error) {
	url, err := fillConfigVariables(m.URL, d.resolver, logger)
	if err != nil {
		return nil, err
	}
	if d.api.Prefix != "" && !hasProtocol(url) {
		url = d.api.Prefix + url
	}
	// The prefix may carry its own placeholders.
	url, err = fillConfigVariables(url, d.resolver, logger)
	if err != nil {
		return nil, err
	}

	req := &Request{URL: url, Method: m.Method, Timeout: m.Timeout}
	if len(args) > 0 {
		if err := bindParams(req, m.Params, args, d.codec); err != nil {
			return nil, err
		}
		req.URL, _ = fillPathVariables(req.URL, req.Data, false, logger)
	}

	if d.preprocessor != nil {
		if err := d.preprocessor.Process(ctx, req); err != nil {
			return nil, fmt.Errorf("preprocess request: %w", err)
		}
	}

	req.URL, err = fillPathVariables(req.URL, req.Data, true, logger)
	if err != nil {
		return nil, err
	}

	policy := m.Retry
	if policy == nil {
		policy = d.api.Retry
	}

	start := time.Now()
	resp, err := executeWithRetry(ctx, policy,
		func(ctx context.Context) (*Response, error) { return d.requestor.Send(ctx, req) },
		logger,
		func(_ int, state attemptState) { d.metrics.recordAttempt(d.api.Name, m.Name, state) })
	logger.Debug("send request",
		slog.String("url", req.URL),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	if err != nil {
		return nil, err
	}

	return decodeResponse(ctx, resp, req.URL, m, d.codec, d.transformer)
}

// Call invokes name and asserts the result to T. A declared result type that
// cannot be assigned to T is rejected before anything is sent.
func Call[T any](ctx context.Context, d *Dispatcher, name string, args ...any) (T, error) {
	var zero T
	m, ok := d.methods[name]
	if !ok {
		return zero, contractViolation("api %q has no remote operation %q", d.api.Name, name)
	}
	want := reflect.TypeFor[T]()
	if m.Result.Type != nil && !m.Result.Type.AssignableTo(want) {
		return zero, contractViolation("operation %q returns %v, not %v", name, m.Result.Type, want)
	}

	v, err := d.Invoke(ctx, name, args...)
	if err != nil || v == nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, contractViolation("operation %q returned %T, not %v", name, v, want)
	}
	return t, nil
}
