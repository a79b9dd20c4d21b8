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
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textResponse(code int, body string) *Response {
	return NewResponse(code, "", nil, io.NopCloser(strings.NewReader(body)))
}

type upperTransformer struct{ calls int }

func (u *upperTransformer) Transform(_ context.Context, _ string, body []byte) ([]byte, error) {
	u.calls++
	return []byte(strings.ToUpper(string(body))), nil
}

func TestDecodeResponse(t *testing.T) {
	ctx := context.Background()

	t.Run("nil response yields no value", func(t *testing.T) {
		v, err := decodeResponse(ctx, nil, "u", &MethodDescriptor{Result: TextResult()}, JSONCodec{}, nil)
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("unsuccessful status fails even without result", func(t *testing.T) {
		resp := NewResponse(404, "Not Found", nil, nil)
		_, err := decodeResponse(ctx, resp, "http://x/y", &MethodDescriptor{Result: NoResult()}, JSONCodec{}, nil)
		require.ErrorIs(t, err, ErrUnsuccessfulStatus)

		var ie *Error
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, 404, ie.StatusCode)
		assert.Equal(t, "Not Found", ie.StatusMessage)
		assert.Equal(t, "http://x/y", ie.URL)
		assert.Contains(t, err.Error(), "http://x/y")
	})

	t.Run("no result", func(t *testing.T) {
		v, err := decodeResponse(ctx, textResponse(204, ""), "u", &MethodDescriptor{Result: NoResult()}, JSONCodec{}, nil)
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("text", func(t *testing.T) {
		v, err := decodeResponse(ctx, textResponse(200, "hello"), "u", &MethodDescriptor{Result: TextResult()}, JSONCodec{}, nil)
		require.NoError(t, err)
		assert.Equal(t, "hello", v)
	})

	t.Run("bytes are returned unmodified", func(t *testing.T) {
		raw := "\x00\x01{not json"
		v, err := decodeResponse(ctx, textResponse(200, raw), "u", &MethodDescriptor{Result: BytesResult()}, failingCodec{}, nil)
		require.NoError(t, err)
		assert.Equal(t, []byte(raw), v)
	})

	t.Run("stream", func(t *testing.T) {
		v, err := decodeResponse(ctx, textResponse(200, "streamed"), "u", &MethodDescriptor{Result: StreamResult()}, JSONCodec{}, nil)
		require.NoError(t, err)
		rc, ok := v.(io.ReadCloser)
		require.True(t, ok)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "streamed", string(b))
	})

	t.Run("response wrapper", func(t *testing.T) {
		resp := textResponse(201, "created")
		v, err := decodeResponse(ctx, resp, "u", &MethodDescriptor{Result: ResponseResult()}, JSONCodec{}, nil)
		require.NoError(t, err)
		assert.Same(t, resp, v)
	})

	t.Run("structured generic", func(t *testing.T) {
		v, err := decodeResponse(ctx, textResponse(200, `[{"id":1,"name":"a"},{"id":2,"name":"b"}]`), "u",
			&MethodDescriptor{Result: Structured[[]user]()}, JSONCodec{}, nil)
		require.NoError(t, err)
		assert.Equal(t, []user{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}, v)
	})

	t.Run("structured decode failure", func(t *testing.T) {
		_, err := decodeResponse(ctx, textResponse(200, `{"id":"x"}`), "u",
			&MethodDescriptor{Result: Structured[user]()}, JSONCodec{}, nil)
		assert.ErrorIs(t, err, ErrDecode)
	})

	t.Run("structured empty body is the zero value", func(t *testing.T) {
		tr := &upperTransformer{}
		v, err := decodeResponse(ctx, NewResponse(204, "No Content", nil, io.NopCloser(strings.NewReader(""))), "u",
			&MethodDescriptor{Result: Structured[map[string]any](), Transform: ".items"}, JSONCodec{}, tr)
		require.NoError(t, err)
		m, ok := v.(map[string]any)
		require.True(t, ok)
		assert.Nil(t, m)
		assert.Zero(t, tr.calls)

		v, err = decodeResponse(ctx, textResponse(200, " \n"), "u", &MethodDescriptor{Result: Structured[user]()}, JSONCodec{}, nil)
		require.NoError(t, err)
		assert.Equal(t, user{}, v)

		v, err = decodeResponse(ctx, NewResponse(200, "OK", nil, nil), "u", &MethodDescriptor{Result: Structured[any]()}, JSONCodec{}, nil)
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("transform runs before decode", func(t *testing.T) {
		tr := &upperTransformer{}
		v, err := decodeResponse(ctx, textResponse(200, `"abc"`), "u",
			&MethodDescriptor{Result: Structured[string](), Transform: "ascii_upcase"}, JSONCodec{}, tr)
		require.NoError(t, err)
		assert.Equal(t, "ABC", v)
		assert.Equal(t, 1, tr.calls)
	})

	t.Run("transform skipped for text", func(t *testing.T) {
		tr := &upperTransformer{}
		v, err := decodeResponse(ctx, textResponse(200, "abc"), "u",
			&MethodDescriptor{Result: TextResult(), Transform: "."}, JSONCodec{}, tr)
		require.NoError(t, err)
		assert.Equal(t, "abc", v)
		assert.Zero(t, tr.calls)
	})
}

type failingCodec struct{}

func (failingCodec) Encode(any) ([]byte, error) { return nil, errors.New("codec used") }

func (failingCodec) Decode([]byte, reflect.Type) (any, error) { return nil, errors.New("codec used") }

func TestResponse_ReadOnce(t *testing.T) {
	resp := textResponse(200, "body")

	b, err := resp.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "body", string(b))

	text, err := resp.Text()
	require.NoError(t, err)
	assert.Equal(t, "body", text)

	again, err := io.ReadAll(resp.Stream())
	require.NoError(t, err)
	assert.Equal(t, "body", string(again))
	assert.NoError(t, resp.Close())
}

func TestResponse_NilBody(t *testing.T) {
	resp := NewResponse(200, "OK", nil, nil)
	b, err := resp.Bytes()
	require.NoError(t, err)
	assert.Empty(t, b)
	assert.NotNil(t, resp.Header)
	assert.True(t, resp.Successful())
	assert.False(t, NewResponse(300, "", nil, nil).Successful())
	assert.False(t, NewResponse(199, "", nil, nil).Successful())
}
