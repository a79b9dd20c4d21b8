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
	"fmt"
	"reflect"
)

// Transformer rewrites a JSON body with an expression before decoding.
type Transformer interface {
	Transform(ctx context.Context, expression string, body []byte) ([]byte, error)
}

// decodeResponse converts resp into the declared shape. The status check runs
// before anything else, even when no value is wanted.
func decodeResponse(ctx context.Context, resp *Response, url string, m *MethodDescriptor, c Codec, t Transformer) (any, error) {
	if resp == nil {
		return nil, nil
	}
	if !resp.Successful() {
		resp.Close()
		return nil, unsuccessfulStatus(url, resp.StatusCode, resp.StatusMessage)
	}

	switch m.Result.Kind {
	case ResultNone:
		resp.Close()
		return nil, nil
	case ResultText:
		text, err := resp.Text()
		if err != nil {
			return nil, decodeError(url, "failed to read response body", err)
		}
		return text, nil
	case ResultBytes:
		b, err := resp.Bytes()
		if err != nil {
			return nil, decodeError(url, "failed to read response body", err)
		}
		return b, nil
	case ResultStream:
		return resp.Stream(), nil
	case ResultResponse:
		return resp, nil
	}

	body, err := resp.Bytes()
	if err != nil {
		return nil, decodeError(url, "failed to read response body", err)
	}
	// An empty 2xx body carries no document; it decodes to the zero value.
	if len(bytes.TrimSpace(body)) == 0 {
		return zeroValue(m.Result.Type), nil
	}
	if m.Transform != "" && t != nil {
		body, err = t.Transform(ctx, m.Transform, body)
		if err != nil {
			return nil, decodeError(url, fmt.Sprintf("response transform failed: %s", m.Transform), err)
		}
	}
	v, err := c.Decode(body, m.Result.Type)
	if err != nil {
		return nil, decodeError(url, fmt.Sprintf("failed to decode response into %v", m.Result.Type), err)
	}
	return v, nil
}

func zeroValue(t reflect.Type) any {
	if t == nil {
		return nil
	}
	return reflect.Zero(t).Interface()
}
