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
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tombee/httpinvoke/internal/tracing"
	"github.com/tombee/httpinvoke/pkg/property"
)

// recordingRequestor captures every request and answers from a script.
type recordingRequestor struct {
	mu       sync.Mutex
	requests []Request
	contexts []context.Context
	reply    func(n int, req *Request) (*Response, error)
}

func (r *recordingRequestor) Send(ctx context.Context, req *Request) (*Response, error) {
	r.mu.Lock()
	r.requests = append(r.requests, *req)
	r.contexts = append(r.contexts, ctx)
	n := len(r.requests)
	r.mu.Unlock()
	if r.reply == nil {
		return textResponse(200, `{}`), nil
	}
	return r.reply(n, req)
}

func (r *recordingRequestor) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func jsonReply(code int, body string) func(int, *Request) (*Response, error) {
	return func(int, *Request) (*Response, error) {
		return NewResponse(code, http.StatusText(code), nil, io.NopCloser(strings.NewReader(body))), nil
	}
}

var testProps = property.NewMapSource("test", 0, map[string]string{
	"svc.host": "https://api.example.com",
	"svc.ver":  "v1",
})

func usersAPI() API {
	return API{
		Name:   "users",
		Prefix: "${svc.host}/${svc.ver}",
		Methods: []MethodDescriptor{
			{
				Name:   "get",
				URL:    "/users/{id}",
				Result: Structured[user](),
				Params: []ParamBinding{Param("id")},
			},
			{
				Name:   "search",
				URL:    "/users",
				Result: Structured[[]user](),
				Params: []ParamBinding{Param("q"), HeaderMap()},
			},
			{
				Name:   "update",
				URL:    "/users/{id}",
				Method: "put",
				Result: NoResult(),
			},
			{
				Name:   "absolute",
				URL:    "https://other.example.com/${svc.ver}/ping",
				Result: TextResult(),
			},
			{
				Name:   "raw",
				URL:    "/raw",
				Result: BytesResult(),
			},
		},
	}
}

func newTestDispatcher(t *testing.T, r Requestor, opts ...Option) *Dispatcher {
	t.Helper()
	opts = append([]Option{WithProperties(testProps), WithLogger(discardLogger)}, opts...)
	d, err := New(usersAPI(), r, opts...)
	require.NoError(t, err)
	return d
}

func TestNew_Validation(t *testing.T) {
	_, err := New(API{Name: "x"}, nil)
	assert.ErrorContains(t, err, "requestor is required")

	r := &recordingRequestor{}
	_, err = New(API{Name: "x", Methods: []MethodDescriptor{{Name: ""}}}, r)
	assert.ErrorContains(t, err, "has no name")

	_, err = New(API{Name: "x", Methods: []MethodDescriptor{{Name: "a"}, {Name: "a"}}}, r)
	assert.ErrorContains(t, err, "duplicate method")

	_, err = New(API{Name: "x", Methods: []MethodDescriptor{{Name: "a", Result: ResultShape{Kind: ResultStructured}}}}, r)
	assert.ErrorContains(t, err, "without a type")

	_, err = New(API{Name: "x", Methods: []MethodDescriptor{{Name: "a", Transform: ".["}}}, r)
	assert.ErrorContains(t, err, "invalid jq expression")
}

func TestDispatcher_Methods(t *testing.T) {
	d := newTestDispatcher(t, &recordingRequestor{})
	assert.Equal(t, []string{"absolute", "get", "raw", "search", "update"}, d.Methods())
	assert.Equal(t, "users", d.Name())

	m, ok := d.Method("update")
	require.True(t, ok)
	assert.Equal(t, "PUT", m.Method)

	m, ok = d.Method("get")
	require.True(t, ok)
	assert.Equal(t, "GET", m.Method)
}

func TestDispatcher_UnknownOperation(t *testing.T) {
	r := &recordingRequestor{}
	d := newTestDispatcher(t, r)

	_, err := d.Invoke(context.Background(), "delete")
	assert.ErrorIs(t, err, ErrInvocationContract)
	assert.Zero(t, r.count())
}

func TestDispatcher_PrefixAndPathVariables(t *testing.T) {
	r := &recordingRequestor{reply: jsonReply(200, `{"id":42,"name":"zed"}`)}
	d := newTestDispatcher(t, r)

	got, err := Call[user](context.Background(), d, "get", 42)
	require.NoError(t, err)
	assert.Equal(t, user{ID: 42, Name: "zed"}, got)

	require.Equal(t, 1, r.count())
	sent := r.requests[0]
	assert.Equal(t, "https://api.example.com/v1/users/42", sent.URL)
	assert.Equal(t, "GET", sent.Method)
	assert.Empty(t, sent.Data, "path variables are consumed")
}

func TestDispatcher_AbsoluteURLSkipsPrefix(t *testing.T) {
	r := &recordingRequestor{reply: jsonReply(200, "pong")}
	d := newTestDispatcher(t, r)

	got, err := Call[string](context.Background(), d, "absolute")
	require.NoError(t, err)
	assert.Equal(t, "pong", got)
	assert.Equal(t, "https://other.example.com/v1/ping", r.requests[0].URL)
}

func TestDispatcher_ConfigVariableMissing(t *testing.T) {
	r := &recordingRequestor{}
	d, err := New(API{
		Name:    "cfg",
		Methods: []MethodDescriptor{{Name: "a", URL: "${missing.host}/a"}},
	}, r, WithProperties(testProps), WithLogger(discardLogger))
	require.NoError(t, err)

	_, err = d.Invoke(context.Background(), "a")
	assert.ErrorIs(t, err, ErrConfigVariableMissing)
	assert.Zero(t, r.count())
}

func TestDispatcher_PathVariableMissing(t *testing.T) {
	r := &recordingRequestor{}
	d := newTestDispatcher(t, r)

	_, err := d.Invoke(context.Background(), "update")
	assert.ErrorIs(t, err, ErrPathVariableMissing)
	assert.Zero(t, r.count())
}

func TestDispatcher_PreprocessorSuppliesPathVariable(t *testing.T) {
	r := &recordingRequestor{}
	var calls int
	pre := PreprocessorFunc(func(_ context.Context, req *Request) error {
		calls++
		assert.Contains(t, req.URL, "{id}", "pass 1 leaves unresolved placeholders")
		if req.Data == nil {
			req.Data = map[string]any{}
		}
		req.Data["id"] = "from-preprocessor"
		return nil
	})
	d := newTestDispatcher(t, r, WithPreprocessor(pre))

	_, err := d.Invoke(context.Background(), "update", struct {
		Name string `json:"name"`
	}{Name: "n"})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "https://api.example.com/v1/users/from-preprocessor", r.requests[0].URL)
	assert.Equal(t, "PUT", r.requests[0].Method)
	assert.Equal(t, map[string]any{"name": "n"}, r.requests[0].Data)
}

func TestDispatcher_PreprocessorError(t *testing.T) {
	r := &recordingRequestor{}
	boom := errors.New("no token")
	d := newTestDispatcher(t, r, WithPreprocessor(PreprocessorFunc(func(context.Context, *Request) error {
		return boom
	})))

	_, err := d.Invoke(context.Background(), "get", 1)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, r.count())
}

func TestDispatcher_HeaderBindingViolationSendsNothing(t *testing.T) {
	r := &recordingRequestor{}
	d := newTestDispatcher(t, r)

	_, err := d.Invoke(context.Background(), "search", "go", []string{"not", "a", "map"})
	assert.ErrorIs(t, err, ErrBindingTypeViolation)
	assert.Zero(t, r.count())
}

func TestDispatcher_HeadersAndQuery(t *testing.T) {
	r := &recordingRequestor{reply: jsonReply(200, `[{"id":1,"name":"a"}]`)}
	d := newTestDispatcher(t, r)

	got, err := Call[[]user](context.Background(), d, "search", "go", map[string]string{"X-Trace": "t1"})
	require.NoError(t, err)
	assert.Equal(t, []user{{ID: 1, Name: "a"}}, got)

	sent := r.requests[0]
	assert.Equal(t, map[string]any{"q": "go"}, sent.Data)
	assert.Equal(t, map[string]string{"X-Trace": "t1"}, sent.Headers)
}

func TestDispatcher_RetryOnStatus(t *testing.T) {
	r := &recordingRequestor{reply: func(n int, _ *Request) (*Response, error) {
		if n < 3 {
			return NewResponse(503, "Service Unavailable", nil, nil), nil
		}
		return textResponse(200, "ok"), nil
	}}
	api := API{
		Name: "svc",
		Retry: &RetryPolicy{
			Times:          3,
			FixedBackoff:   10 * time.Millisecond,
			RetryForStatus: []StatusRange{{From: 500, To: 599}},
		},
		Methods: []MethodDescriptor{{Name: "ping", URL: "http://svc/ping", Result: TextResult()}},
	}
	d, err := New(api, r, WithLogger(discardLogger))
	require.NoError(t, err)

	start := time.Now()
	got, err := Call[string](context.Background(), d, "ping")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, r.count())
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestDispatcher_RetryExhaustedSurfacesStatus(t *testing.T) {
	r := &recordingRequestor{reply: jsonReply(502, "bad gateway")}
	api := API{
		Name:  "svc",
		Retry: &RetryPolicy{Times: 2, RetryForStatus: []StatusRange{{From: 500, To: 599}}},
		Methods: []MethodDescriptor{{
			Name:   "ping",
			URL:    "http://svc/ping",
			Result: TextResult(),
		}},
	}
	d, err := New(api, r, WithLogger(discardLogger))
	require.NoError(t, err)

	_, err = d.Invoke(context.Background(), "ping")
	assert.ErrorIs(t, err, ErrUnsuccessfulStatus)
	assert.Equal(t, 2, r.count())
}

func TestDispatcher_MethodRetryOverridesAPI(t *testing.T) {
	r := &recordingRequestor{reply: func(int, *Request) (*Response, error) {
		return nil, timeoutError{}
	}}
	api := API{
		Name:  "svc",
		Retry: &RetryPolicy{Times: 5, RetryFor: []ErrorMatcher{MatchErrorType[timeoutError]()}},
		Methods: []MethodDescriptor{{
			Name:  "ping",
			URL:   "http://svc/ping",
			Retry: &RetryPolicy{Times: 2, RetryFor: []ErrorMatcher{MatchErrorType[timeoutError]()}},
		}},
	}
	d, err := New(api, r, WithLogger(discardLogger))
	require.NoError(t, err)

	_, err = d.Invoke(context.Background(), "ping")
	assert.Equal(t, timeoutError{}, err, "transport errors propagate unchanged")
	assert.Equal(t, 2, r.count())
}

func TestDispatcher_NonMatchingErrorNotRetried(t *testing.T) {
	r := &recordingRequestor{reply: func(int, *Request) (*Response, error) {
		return nil, refusedError{}
	}}
	api := API{
		Name:    "svc",
		Retry:   &RetryPolicy{Times: 3, RetryFor: []ErrorMatcher{MatchErrorType[timeoutError]()}},
		Methods: []MethodDescriptor{{Name: "ping", URL: "http://svc/ping"}},
	}
	d, err := New(api, r, WithLogger(discardLogger))
	require.NoError(t, err)

	_, err = d.Invoke(context.Background(), "ping")
	assert.ErrorAs(t, err, new(refusedError))
	assert.Equal(t, 1, r.count())
}

func TestDispatcher_RawBytes(t *testing.T) {
	payload := []byte{0xff, 0x00, 'x'}
	r := &recordingRequestor{reply: func(int, *Request) (*Response, error) {
		return NewResponse(200, "OK", nil, io.NopCloser(strings.NewReader(string(payload)))), nil
	}}
	d := newTestDispatcher(t, r, WithCodec(failingCodec{}))

	got, err := Call[[]byte](context.Background(), d, "raw")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestCall_TypeMismatch(t *testing.T) {
	r := &recordingRequestor{}
	d := newTestDispatcher(t, r)

	_, err := Call[string](context.Background(), d, "get", 1)
	assert.ErrorIs(t, err, ErrInvocationContract)
	assert.Zero(t, r.count())

	_, err = Call[string](context.Background(), d, "missing")
	assert.ErrorIs(t, err, ErrInvocationContract)
}

func TestCall_NoResult(t *testing.T) {
	r := &recordingRequestor{}
	d := newTestDispatcher(t, r)

	got, err := Call[any](context.Background(), d, "update", map[string]any{"id": 3})
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, "https://api.example.com/v1/users/3", r.requests[0].URL)
}

func TestDispatcher_RoundTrip(t *testing.T) {
	type item struct {
		ID    int      `json:"id"`
		Owner string   `json:"owner"`
		Tags  []string `json:"tags"`
		Score float64  `json:"score"`
	}
	original := item{ID: 12, Owner: "kim", Tags: []string{"a", "b"}, Score: 1.5}

	// Echo the bound data back as the response body.
	r := &recordingRequestor{reply: func(_ int, req *Request) (*Response, error) {
		body, err := json.Marshal(req.Data)
		if err != nil {
			return nil, err
		}
		return NewResponse(200, "OK", nil, io.NopCloser(strings.NewReader(string(body)))), nil
	}}
	api := API{
		Name: "items",
		Methods: []MethodDescriptor{{
			Name:   "put",
			URL:    "http://svc/owners/{owner}/items",
			Method: http.MethodPut,
			Result: Structured[item](),
			Params: []ParamBinding{BodyParam("item")},
		}},
	}
	d, err := New(api, r, WithLogger(discardLogger))
	require.NoError(t, err)

	got, err := Call[item](context.Background(), d, "put", original)
	require.NoError(t, err)

	assert.Equal(t, "http://svc/owners/kim/items", r.requests[0].URL)
	want := original
	want.Owner = ""
	assert.Equal(t, want, got)
}

func TestDispatcher_CorrelationAndSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	r := &recordingRequestor{reply: jsonReply(500, "")}
	d := newTestDispatcher(t, r, WithTracerProvider(tp))

	_, err := d.Invoke(context.Background(), "absolute")
	require.Error(t, err)

	require.Len(t, r.contexts, 1)
	assert.True(t, tracing.FromContextOrEmpty(r.contexts[0]).IsValid())

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "users.absolute", spans[0].Name())
	assert.Equal(t, "Error", spans[0].Status().Code.String())
}

func TestDispatcher_KeepsCallerCorrelationID(t *testing.T) {
	r := &recordingRequestor{reply: jsonReply(200, "pong")}
	d := newTestDispatcher(t, r)

	id := tracing.NewCorrelationID()
	_, err := d.Invoke(tracing.ToContext(context.Background(), id), "absolute")
	require.NoError(t, err)
	assert.Equal(t, id, tracing.FromContextOrEmpty(r.contexts[0]))
}

func TestDispatcher_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	r := &recordingRequestor{reply: func(n int, _ *Request) (*Response, error) {
		if n == 1 {
			return NewResponse(503, "", nil, nil), nil
		}
		return textResponse(200, "ok"), nil
	}}
	api := API{
		Name:    "svc",
		Retry:   &RetryPolicy{Times: 2, RetryForStatus: []StatusRange{Status(503)}},
		Methods: []MethodDescriptor{{Name: "ping", URL: "http://svc/ping", Result: TextResult()}},
	}
	d, err := New(api, r, WithLogger(discardLogger), WithMetrics(metrics))
	require.NoError(t, err)

	_, err = d.Invoke(context.Background(), "ping")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.invocations.WithLabelValues("svc", "ping", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.attempts.WithLabelValues("svc", "ping", "retryable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.attempts.WithLabelValues("svc", "ping", "success")))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.duration))
}

func TestDispatcher_Concurrent(t *testing.T) {
	r := &recordingRequestor{reply: func(_ int, req *Request) (*Response, error) {
		id := strings.TrimPrefix(req.URL, "https://api.example.com/v1/users/")
		return textResponse(200, `{"id":`+id+`}`), nil
	}}
	d := newTestDispatcher(t, r)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			got, err := Call[user](context.Background(), d, "get", id)
			assert.NoError(t, err)
			assert.Equal(t, id, got.ID)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, r.count())
}

func TestCall_NoContent(t *testing.T) {
	rq := &recordingRequestor{reply: jsonReply(http.StatusNoContent, "")}
	d, err := New(API{Name: "items", Methods: []MethodDescriptor{
		{Name: "touch", URL: "http://x/items", Method: http.MethodPut, Result: Structured[map[string]any]()},
	}}, rq)
	require.NoError(t, err)

	got, err := Call[map[string]any](context.Background(), d, "touch")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 1, rq.count())
}
