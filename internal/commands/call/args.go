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
	"fmt"
	"strings"

	"github.com/tombee/httpinvoke/internal/catalog"
	"github.com/tombee/httpinvoke/pkg/invoker"
)

// ParseArgs converts command line arguments into call arguments. JSON
// values keep their type with numbers as json.Number; "@path" becomes an
// invoker.FilePath; anything else is a string.
func ParseArgs(raw []string) ([]any, error) {
	args := make([]any, 0, len(raw))
	for _, s := range raw {
		if path, ok := strings.CutPrefix(s, "@"); ok {
			if path == "" {
				return nil, fmt.Errorf("%q: missing file path", s)
			}
			args = append(args, invoker.FilePath(path))
			continue
		}
		args = append(args, parseValue(s))
	}
	return args, nil
}

func parseValue(s string) any {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return s
	}
	return v
}

// CoerceArgs converts JSON objects bound as headers or cookies into the
// map[string]string form those bindings require. Objects with non-string
// values are left alone.
func CoerceArgs(m catalog.MethodDefinition, args []any) []any {
	for i, p := range m.Params {
		if i >= len(args) {
			break
		}
		if p.Kind != "headers" && p.Kind != "cookies" {
			continue
		}
		obj, ok := args[i].(map[string]any)
		if !ok {
			continue
		}
		strs := make(map[string]string, len(obj))
		for k, v := range obj {
			s, ok := v.(string)
			if !ok {
				strs = nil
				break
			}
			strs[k] = s
		}
		if strs != nil {
			args[i] = strs
		}
	}
	return args
}
