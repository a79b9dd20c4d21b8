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
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/httpinvoke/internal/catalog"
	"github.com/tombee/httpinvoke/internal/commands/shared"
	"github.com/tombee/httpinvoke/pkg/invoker"
)

const svcCatalog = `
name: svc
prefix: ${svc.host}
auth:
  type: bearer
  token: ${svc.token}
retry:
  times: 3
  backoff: 1ms
  status: ["503"]
methods:
  - name: get
    url: /items/{id}
    result: json
    transform: .data
    params: [id]
  - name: create
    url: /items
    method: post
    result: none
    params: [{kind: body}]
  - name: raw
    url: /raw
    result: bytes
  - name: upload
    url: /upload
    method: post
    result: text
    params: [{kind: plain, key: attachment}, desc]
  - name: flaky
    url: /flaky
    result: text
  - name: full
    url: /items/{id}
    result: response
    params: [id]
  - name: tagged
    url: /tagged
    result: text
    params: [{kind: headers}]
  - name: missing
    url: /missing
    result: text
`

// fakeService records what it receives.
type fakeService struct {
	mu      sync.Mutex
	auth    []string
	headers http.Header
	body    []byte
	upload  string
	desc    string
	flaky   atomic.Int32
}

func newFakeService(t *testing.T) (*httptest.Server, *fakeService) {
	t.Helper()
	fs := &fakeService{}
	mux := http.NewServeMux()
	record := func(r *http.Request) {
		fs.mu.Lock()
		defer fs.mu.Unlock()
		fs.auth = append(fs.auth, r.Header.Get("Authorization"))
		fs.headers = r.Header.Clone()
	}
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Item", r.PathValue("id"))
		_, _ = io.WriteString(w, `{"data":{"id":`+r.PathValue("id")+`,"tags":["a"]}}`)
	})
	mux.HandleFunc("POST /items", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		b, _ := io.ReadAll(r.Body)
		fs.mu.Lock()
		fs.body = b
		fs.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("GET /raw", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		_, _ = w.Write([]byte{0x00, 0x01, 0xff})
	})
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		f, _, err := r.FormFile("attachment")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b, _ := io.ReadAll(f)
		fs.mu.Lock()
		fs.upload = string(b)
		fs.desc = r.FormValue("desc")
		fs.mu.Unlock()
		_, _ = io.WriteString(w, "stored")
	})
	mux.HandleFunc("GET /flaky", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		if fs.flaky.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, "recovered")
	})
	mux.HandleFunc("GET /tagged", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		_, _ = io.WriteString(w, r.Header.Get("X-Tag"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, fs
}

type result struct {
	stdout string
	stderr string
	err    error
}

func execute(t *testing.T, srv *httptest.Server, args ...string) result {
	t.Helper()
	t.Setenv("HTTPINVOKE_DEBUG", "")
	t.Setenv("HTTPINVOKE_LOG_LEVEL", "")
	t.Setenv("LOG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "svc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(svcCatalog), 0o600))

	var stdout, stderr bytes.Buffer
	opts := shared.NewOptions()
	opts.Stderr = &stderr

	root := &cobra.Command{Use: "httpinvoke", SilenceUsage: true, SilenceErrors: true}
	opts.RegisterFlags(root)
	root.AddCommand(NewCommand(opts))
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	base := []string{"call", "-f", path, "-D", "svc.host=" + srv.URL, "-D", "svc.token=t0k"}
	root.SetArgs(append(base, args...))
	err := root.Execute()
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func TestCall_StructuredWithTransform(t *testing.T) {
	srv, fs := newFakeService(t)

	res := execute(t, srv, "svc.get", "7")
	require.NoError(t, res.err)
	assert.JSONEq(t, `{"id":7,"tags":["a"]}`, res.stdout)
	assert.Equal(t, []string{"Bearer t0k"}, fs.auth)
}

func TestCall_JSONBody(t *testing.T) {
	srv, fs := newFakeService(t)

	res := execute(t, srv, "svc.create", `{"name":"ann","age":30}`)
	require.NoError(t, res.err)
	assert.Empty(t, res.stdout)
	assert.JSONEq(t, `{"name":"ann","age":30}`, string(fs.body))
}

func TestCall_Upload(t *testing.T) {
	srv, fs := newFakeService(t)
	file := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(file, []byte("quarterly"), 0o600))

	res := execute(t, srv, "svc.upload", "@"+file, "Q3 report")
	require.NoError(t, res.err)
	assert.Equal(t, "stored", res.stdout)
	assert.Equal(t, "quarterly", fs.upload)
	assert.Equal(t, "Q3 report", fs.desc)
}

func TestCall_RetryAndMetrics(t *testing.T) {
	srv, fs := newFakeService(t)

	res := execute(t, srv, "svc.flaky", "--metrics")
	require.NoError(t, res.err)
	assert.Equal(t, "recovered", res.stdout)
	assert.Equal(t, int32(2), fs.flaky.Load())
	assert.Contains(t, res.stderr, `httpinvoke_attempts_total{api="svc",method="flaky",state="retryable"} 1`)
	assert.Contains(t, res.stderr, `httpinvoke_invocations_total{api="svc",method="flaky",outcome="success"} 1`)
}

func TestCall_UnsuccessfulStatus(t *testing.T) {
	srv, _ := newFakeService(t)

	res := execute(t, srv, "svc.missing")
	require.Error(t, res.err)
	assert.ErrorIs(t, res.err, invoker.ErrUnsuccessfulStatus)
	assert.Equal(t, shared.ExitUnsuccessfulStatus, shared.ExitCode(res.err))
}

func TestCall_HeadersFlagAndHeaderBinding(t *testing.T) {
	srv, fs := newFakeService(t)

	res := execute(t, srv, "svc.tagged", `{"X-Tag":"blue"}`, "-H", "X-Trace-Me: yes")
	require.NoError(t, res.err)
	assert.Equal(t, "blue", res.stdout)
	assert.Equal(t, "yes", fs.headers.Get("X-Trace-Me"))
}

func TestCall_BytesToFile(t *testing.T) {
	srv, _ := newFakeService(t)
	out := filepath.Join(t.TempDir(), "raw.bin")

	res := execute(t, srv, "svc.raw", "-o", out)
	require.NoError(t, res.err)
	assert.Empty(t, res.stdout)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01, 0xff}, b)
}

func TestCall_ResponseResult(t *testing.T) {
	srv, _ := newFakeService(t)

	res := execute(t, srv, "svc.full", "3")
	require.NoError(t, res.err)
	assert.True(t, strings.HasPrefix(res.stdout, "200 OK\n"), res.stdout)
	assert.Contains(t, res.stdout, "X-Item: 3\n")
	assert.True(t, strings.HasSuffix(res.stdout, `{"data":{"id":3,"tags":["a"]}}`), res.stdout)
}

func TestCall_JSONEnvelope(t *testing.T) {
	srv, _ := newFakeService(t)

	res := execute(t, srv, "svc.flaky", "--json")
	require.NoError(t, res.err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "svc.flaky", resp.Command)
	assert.Equal(t, "recovered", resp.Result)
}

func TestCall_ArgumentErrors(t *testing.T) {
	srv, _ := newFakeService(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "bad target", args: []string{"svc"}, want: "expected <api>.<method>"},
		{name: "unknown api", args: []string{"nope.get"}, want: `no API named "nope"`},
		{name: "unknown method", args: []string{"svc.nope"}, want: `has no method "nope"`},
		{name: "bad header", args: []string{"svc.flaky", "-H", "novalue"}, want: "invalid header"},
		{name: "empty upload path", args: []string{"svc.upload", "@"}, want: "missing file path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(t, srv, tt.args...)
			require.Error(t, res.err)
			assert.Contains(t, res.err.Error(), tt.want)
			assert.Equal(t, shared.ExitInvalidArguments, shared.ExitCode(res.err))
		})
	}
}

func TestParseArgs(t *testing.T) {
	args, err := ParseArgs([]string{"42", "true", "null", `{"a":1}`, "[1,2]", "ann", `"quoted"`, "@/tmp/f", "1 2"})
	require.NoError(t, err)
	assert.Equal(t, []any{
		json.Number("42"),
		true,
		nil,
		map[string]any{"a": json.Number("1")},
		[]any{json.Number("1"), json.Number("2")},
		"ann",
		"quoted",
		invoker.FilePath("/tmp/f"),
		"1 2",
	}, args)
}

func TestCoerceArgs(t *testing.T) {
	m := catalog.MethodDefinition{Params: []catalog.ParamDefinition{
		{Kind: "headers"},
		{Kind: "cookies"},
		{Key: "q"},
	}}
	args := CoerceArgs(m, []any{
		map[string]any{"X-A": "1"},
		map[string]any{"n": json.Number("1")},
		map[string]any{"k": "v"},
	})
	assert.Equal(t, map[string]string{"X-A": "1"}, args[0])
	assert.Equal(t, map[string]any{"n": json.Number("1")}, args[1])
	assert.Equal(t, map[string]any{"k": "v"}, args[2])
}

func TestWriteResult(t *testing.T) {
	tests := []struct {
		name   string
		result any
		want   string
	}{
		{name: "nil", result: nil, want: ""},
		{name: "text", result: "hello", want: "hello"},
		{name: "bytes", result: []byte("raw"), want: "raw"},
		{name: "stream", result: io.NopCloser(strings.NewReader("streamed")), want: "streamed"},
		{name: "structured", result: map[string]any{"a": 1}, want: "{\n  \"a\": 1\n}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteResult(&buf, "svc.m", tt.result, false))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriteResult_JSONResponse(t *testing.T) {
	resp := invoker.NewResponse(201, "Created", http.Header{"X-Id": {"9"}}, io.NopCloser(strings.NewReader("done")))

	var buf bytes.Buffer
	require.NoError(t, WriteResult(&buf, "svc.m", resp, true))

	var out struct {
		Result HTTPResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, 201, out.Result.Status)
	assert.Equal(t, "Created", out.Result.StatusMessage)
	assert.Equal(t, []string{"9"}, out.Result.Headers["X-Id"])
	assert.Equal(t, "done", out.Result.Body)
}

func TestBinaryGuard(t *testing.T) {
	assert.True(t, isBinary([]byte("x")))
	assert.True(t, isBinary(io.NopCloser(strings.NewReader("x"))))
	assert.False(t, isBinary("x"))
	assert.False(t, isBinary(invoker.NewResponse(200, "OK", nil, io.NopCloser(strings.NewReader("")))))

	assert.False(t, isTerminal(&bytes.Buffer{}))
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, isTerminal(f))
}
