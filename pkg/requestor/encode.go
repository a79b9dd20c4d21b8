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

package requestor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"sort"

	"github.com/tombee/httpinvoke/pkg/invoker"
)

// defaultFileFormKey is the multipart field used when no key is bound.
const defaultFileFormKey = "file"

// queryMethods carry parameters in the query string.
var queryMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// encodedBody is a prepared request payload.
type encodedBody struct {
	reader      io.Reader
	contentType string
}

// encodeRequest chooses the wire form of req:
//   - a file-like Body is sent as multipart/form-data with Data as extra fields
//   - query methods put Data in the query string
//   - other methods send Body, or Data when there is no body, as JSON
func encodeRequest(req *invoker.Request, u *url.URL) (*encodedBody, error) {
	if isFile(req.Body) {
		return encodeMultipart(req)
	}

	if queryMethods[req.Method] {
		if len(req.Data) > 0 {
			q := u.Query()
			for _, k := range sortedKeys(req.Data) {
				addValues(q, k, req.Data[k])
			}
			u.RawQuery = q.Encode()
		}
		if req.Body == nil {
			return nil, nil
		}
		return encodeJSON(req.Body)
	}

	switch {
	case req.Body != nil:
		return encodeJSON(req.Body)
	case len(req.Data) > 0:
		return encodeJSON(req.Data)
	default:
		return nil, nil
	}
}

func encodeJSON(v any) (*encodedBody, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode JSON body: %w", err)
	}
	return &encodedBody{reader: bytes.NewReader(b), contentType: "application/json"}, nil
}

func encodeMultipart(req *invoker.Request) (*encodedBody, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, k := range sortedKeys(req.Data) {
		values := url.Values{}
		addValues(values, k, req.Data[k])
		for _, v := range values[k] {
			if err := w.WriteField(k, v); err != nil {
				return nil, err
			}
		}
	}

	src, name, closeFn, err := openFile(req.Body)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	key := req.FileFormKey
	if key == "" {
		key = defaultFileFormKey
	}
	part, err := w.CreateFormFile(key, name)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return &encodedBody{reader: &buf, contentType: w.FormDataContentType()}, nil
}

func openFile(body any) (io.Reader, string, func(), error) {
	noop := func() {}
	switch v := body.(type) {
	case *replayableUpload:
		if err := v.rewind(); err != nil {
			return nil, "", noop, fmt.Errorf("rewind upload: %w", err)
		}
		return v, v.name, noop, nil
	case invoker.FilePath:
		return openPath(string(v))
	case *invoker.FilePath:
		return openPath(string(*v))
	case *os.File:
		return v, filepath.Base(v.Name()), noop, nil
	case interface {
		io.Reader
		Name() string
	}:
		return v, filepath.Base(v.Name()), noop, nil
	case io.Reader:
		return v, defaultFileFormKey, noop, nil
	default:
		return nil, "", noop, fmt.Errorf("unsupported file body %T", body)
	}
}

// replayableUpload is a reader body that can be sent again on a retried
// attempt.
type replayableUpload struct {
	src   io.ReadSeeker
	start int64
	name  string
}

func (u *replayableUpload) Read(p []byte) (int, error) { return u.src.Read(p) }

func (u *replayableUpload) Name() string { return u.name }

func (u *replayableUpload) rewind() error {
	_, err := u.src.Seek(u.start, io.SeekStart)
	return err
}

// makeReplayable swaps a reader Body for a replayableUpload. Seekable readers
// restart from their current offset on every attempt; other readers are
// buffered on the first attempt.
func makeReplayable(req *invoker.Request) error {
	switch req.Body.(type) {
	case nil, invoker.FilePath, *invoker.FilePath, *replayableUpload:
		return nil
	}
	r, ok := req.Body.(io.Reader)
	if !ok {
		return nil
	}

	name := defaultFileFormKey
	if n, ok := r.(interface{ Name() string }); ok {
		name = filepath.Base(n.Name())
	}
	if s, ok := r.(io.ReadSeeker); ok {
		if start, err := s.Seek(0, io.SeekCurrent); err == nil {
			req.Body = &replayableUpload{src: s, start: start, name: name}
			return nil
		}
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	req.Body = &replayableUpload{src: bytes.NewReader(b), name: name}
	return nil
}

func openPath(path string) (io.Reader, string, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", func() {}, fmt.Errorf("open upload: %w", err)
	}
	return f, filepath.Base(path), func() { f.Close() }, nil
}

func isFile(v any) bool {
	switch v.(type) {
	case io.Reader, invoker.FilePath, *invoker.FilePath:
		return true
	default:
		return false
	}
}

// addValues stringifies v into q under key. Slices contribute one value per
// element; nested maps and structs are sent as JSON.
func addValues(q url.Values, key string, v any) {
	if v == nil {
		return
	}
	if b, ok := v.([]byte); ok {
		q.Add(key, string(b))
		return
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			addValues(q, key, rv.Index(i).Interface())
		}
	case reflect.Map, reflect.Struct:
		b, err := json.Marshal(v)
		if err != nil {
			q.Add(key, fmt.Sprint(v))
			return
		}
		q.Add(key, string(b))
	default:
		q.Add(key, fmt.Sprint(v))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
