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

// Package requestor is the default net/http transport for invoker
// dispatchers.
package requestor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tombee/httpinvoke/internal/log"
	"github.com/tombee/httpinvoke/pkg/httpclient"
	"github.com/tombee/httpinvoke/pkg/invoker"
)

// Config configures an HTTPRequestor.
type Config struct {
	// Timeout applies to requests whose descriptor sets no timeout.
	// Zero means no timeout.
	Timeout time.Duration

	// UserAgent is sent when the request sets none.
	// Default: httpclient.DefaultConfig().UserAgent
	UserAgent string

	// RateLimit caps requests per second. Zero disables limiting.
	RateLimit float64

	// Burst is the limiter burst size. Default: 1.
	Burst int

	// Headers are sent with every request. Request headers override them.
	Headers map[string]string

	// Client replaces the pooled client built from httpclient. Its transport
	// is wrapped so correlation and trace headers are still injected.
	Client *http.Client

	// Logger receives transport logs. Default: slog.Default().
	Logger *slog.Logger
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must be >= 0, got %v", c.RateLimit)
	}
	if c.Burst < 0 {
		return fmt.Errorf("burst must be >= 0, got %d", c.Burst)
	}
	return nil
}

// HTTPRequestor sends invoker requests over net/http. It is safe for
// concurrent use.
type HTTPRequestor struct {
	client  *http.Client
	timeout time.Duration
	headers map[string]string
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ invoker.Requestor = (*HTTPRequestor)(nil)

// New creates an HTTPRequestor from cfg.
func New(cfg Config) (*HTTPRequestor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = log.WithComponent(logger, "requestor")

	client := httpclient.Wrap(cfg.Client, cfg.UserAgent, logger)
	if client == nil {
		hc := httpclient.DefaultConfig()
		if cfg.UserAgent != "" {
			hc.UserAgent = cfg.UserAgent
		}
		hc.Logger = logger
		var err error
		client, err = httpclient.New(hc)
		if err != nil {
			return nil, err
		}
	}

	r := &HTTPRequestor{
		client:  client,
		timeout: cfg.Timeout,
		headers: make(map[string]string, len(cfg.Headers)),
		logger:  logger,
	}
	for k, v := range cfg.Headers {
		r.headers[k] = v
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst == 0 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return r, nil
}

// Send performs one HTTP exchange for req. Every failure before a response
// arrives is reported as a *TransportError; any status code is a response.
func (r *HTTPRequestor) Send(ctx context.Context, req *invoker.Request) (*invoker.Response, error) {
	logURL := httpclient.SanitizeURL(req.URL)

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Type: ErrorTypeCancelled, Message: "rate limit wait cancelled", Cause: err}
		}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}

	httpReq, err := r.buildRequest(ctx, req)
	if err != nil {
		cancel()
		return nil, &TransportError{Type: ErrorTypeInvalidRequest, Message: "failed to build request for " + logURL, Cause: err}
	}

	httpResp, err := r.client.Do(httpReq)
	if err != nil {
		cancel()
		te := classifyError(err, logURL)
		r.logger.Debug("no response received",
			slog.String(log.URLKey, logURL),
			slog.String("type", string(te.Type)))
		return nil, te
	}

	body := &cancelOnClose{ReadCloser: httpResp.Body, cancel: cancel}
	return invoker.NewResponse(httpResp.StatusCode, statusMessage(httpResp), httpResp.Header, body), nil
}

func (r *HTTPRequestor) buildRequest(ctx context.Context, req *invoker.Request) (*http.Request, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, err
	}
	if err := makeReplayable(req); err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("url %q must be absolute", httpclient.SanitizeURL(req.URL))
	}

	encoded, err := encodeRequest(&invoker.Request{
		Method:      method,
		Body:        req.Body,
		Data:        req.Data,
		FileFormKey: req.FileFormKey,
	}, u)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if encoded != nil {
		body = encoded.reader
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if encoded != nil {
		httpReq.Header.Set("Content-Type", encoded.contentType)
	}
	httpReq.Header.Set("Accept", "application/json, */*")

	for k, v := range r.headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	names := make([]string, 0, len(req.Cookies))
	for name := range req.Cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		httpReq.AddCookie(&http.Cookie{Name: name, Value: req.Cookies[name]})
	}
	return httpReq, nil
}

// statusMessage strips the leading code from resp.Status ("404 Not Found").
func statusMessage(resp *http.Response) string {
	msg := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return msg
}

// cancelOnClose releases the per-request timeout once the body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
