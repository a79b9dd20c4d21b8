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
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"time"
)

// FilePath marks a string argument as a filesystem path to upload.
type FilePath string

// Request is the in-flight state of one invocation. It is owned by a single
// call and never shared.
type Request struct {
	URL     string
	Method  string
	Timeout time.Duration

	Headers map[string]string
	Cookies map[string]string

	// Body is a file-like value (io.Reader, FilePath) or a structured value.
	Body any

	// Data is the resolved parameter map. It feeds path placeholders and is
	// sent as query or form fields.
	Data map[string]any

	// FileFormKey is the multipart field name when Body is file-like.
	FileFormKey string
}

// Response is what a Requestor returns for one attempt.
type Response struct {
	StatusCode    int
	StatusMessage string
	Header        http.Header

	mu     sync.Mutex
	body   io.ReadCloser
	cached []byte
	read   bool
	err    error
}

// NewResponse wraps a status line and body. A nil body reads as empty.
func NewResponse(code int, message string, header http.Header, body io.ReadCloser) *Response {
	if header == nil {
		header = http.Header{}
	}
	return &Response{StatusCode: code, StatusMessage: message, Header: header, body: body}
}

// Successful reports whether the status code lies in [200, 300).
func (r *Response) Successful() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Bytes reads the whole body. The body is consumed once and cached, so later
// calls return the same content.
func (r *Response) Bytes() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.read {
		return r.cached, r.err
	}
	r.read = true
	if r.body == nil {
		return nil, nil
	}
	defer r.body.Close()
	r.cached, r.err = io.ReadAll(r.body)
	return r.cached, r.err
}

// Text returns the body as a string.
func (r *Response) Text() (string, error) {
	b, err := r.Bytes()
	return string(b), err
}

// Stream returns the body as a reader. If the body has already been read
// the cached bytes are served instead.
func (r *Response) Stream() io.ReadCloser {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.read {
		return io.NopCloser(bytes.NewReader(r.cached))
	}
	if r.body == nil {
		r.read = true
		return io.NopCloser(bytes.NewReader(nil))
	}
	r.read = true
	return r.body
}

// Close releases the body if it has not been consumed.
func (r *Response) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.read || r.body == nil {
		return nil
	}
	r.read = true
	return r.body.Close()
}

// Requestor performs exactly one HTTP exchange per call.
type Requestor interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// RequestorFunc adapts a function to the Requestor interface.
type RequestorFunc func(ctx context.Context, req *Request) (*Response, error)

// Send calls f(ctx, req).
func (f RequestorFunc) Send(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Preprocessor mutates a request after binding and before the final path
// resolution pass. It runs once per invocation.
type Preprocessor interface {
	Process(ctx context.Context, req *Request) error
}

// PreprocessorFunc adapts a function to the Preprocessor interface.
type PreprocessorFunc func(ctx context.Context, req *Request) error

// Process calls f(ctx, req).
func (f PreprocessorFunc) Process(ctx context.Context, req *Request) error {
	return f(ctx, req)
}
