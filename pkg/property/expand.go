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

package property

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholder = regexp.MustCompile(`\$\{([^/]+?)\}`)

// MissingKeyError reports a ${key} placeholder with no value.
type MissingKeyError struct {
	Key string
}

// Error implements the error interface.
func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("no value for config key %q", e.Key)
}

// Expand replaces every ${key} in s with its value from r. Values are
// inserted literally and not expanded again.
func Expand(r Resolver, s string) (string, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}
	var missing error
	out := placeholder.ReplaceAllStringFunc(s, func(m string) string {
		if missing != nil {
			return m
		}
		key := placeholder.FindStringSubmatch(m)[1]
		var (
			v  string
			ok bool
		)
		if r != nil {
			v, ok = r.Lookup(key)
		}
		if !ok {
			missing = &MissingKeyError{Key: key}
			return m
		}
		return v
	})
	if missing != nil {
		return "", missing
	}
	return out, nil
}
