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
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/tombee/httpinvoke/internal/commands/shared"
	"github.com/tombee/httpinvoke/pkg/invoker"
)

// Response is the JSON output of call.
type Response struct {
	shared.JSONResponse
	Result any `json:"result"`
}

// HTTPResult is the JSON form of a raw response result.
type HTTPResult struct {
	Status        int                 `json:"status"`
	StatusMessage string              `json:"status_message"`
	Headers       map[string][]string `json:"headers"`
	Body          string              `json:"body"`
}

// WriteResult renders an invocation result. Text, bytes and streams are
// written raw; responses as a status line, headers and body; anything
// else as indented JSON. With asJSON every result is wrapped in the
// standard envelope.
func WriteResult(w io.Writer, command string, result any, asJSON bool) error {
	if asJSON {
		v, err := jsonValue(result)
		if err != nil {
			return err
		}
		return shared.EmitJSON(w, Response{JSONResponse: shared.NewJSONResponse(command), Result: v})
	}

	switch v := result.(type) {
	case nil:
		return nil
	case string:
		_, err := io.WriteString(w, v)
		return err
	case []byte:
		_, err := w.Write(v)
		return err
	case *invoker.Response:
		defer v.Close()
		fmt.Fprintf(w, "%d %s\n", v.StatusCode, v.StatusMessage)
		for _, k := range sortedHeaderKeys(v.Header) {
			for _, hv := range v.Header[k] {
				fmt.Fprintf(w, "%s: %s\n", k, hv)
			}
		}
		fmt.Fprintln(w)
		_, err := io.Copy(w, v.Stream())
		return err
	case io.ReadCloser:
		defer v.Close()
		_, err := io.Copy(w, v)
		return err
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

func jsonValue(result any) (any, error) {
	switch v := result.(type) {
	case []byte:
		return string(v), nil
	case *invoker.Response:
		text, err := v.Text()
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
		return HTTPResult{
			Status:        v.StatusCode,
			StatusMessage: v.StatusMessage,
			Headers:       v.Header,
			Body:          text,
		}, nil
	case io.ReadCloser:
		defer v.Close()
		b, err := io.ReadAll(v)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
		return string(b), nil
	default:
		return v, nil
	}
}

// closeResult releases a result that will not be written.
func closeResult(result any) {
	switch v := result.(type) {
	case *invoker.Response:
		v.Close()
	case io.Closer:
		v.Close()
	}
}

func sortedHeaderKeys(h map[string][]string) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
