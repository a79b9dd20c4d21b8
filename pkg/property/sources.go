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
	"os"
	"strings"
)

// MapSource is an in-memory source. The map is copied on construction.
type MapSource struct {
	name     string
	priority int
	values   map[string]string
}

// NewMapSource creates a source over a copy of values.
func NewMapSource(name string, priority int, values map[string]string) *MapSource {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &MapSource{name: name, priority: priority, values: copied}
}

// Name returns the source name.
func (m *MapSource) Name() string { return m.name }

// Priority returns the source priority.
func (m *MapSource) Priority() int { return m.priority }

// Lookup returns the stored value for key.
func (m *MapSource) Lookup(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Len returns the number of keys held by the source.
func (m *MapSource) Len() int { return len(m.values) }

// EnvSource resolves keys from the process environment.
//
// Keys are looked up verbatim first. When a prefix is configured, or the key
// contains characters that are not valid in variable names, the normalised
// form is tried too: "api.base-url" with prefix "APP" becomes APP_API_BASE_URL.
type EnvSource struct {
	prefix string
	lookup func(string) (string, bool)
}

// NewEnvSource creates an environment source with an optional prefix.
func NewEnvSource(prefix string) *EnvSource {
	return &EnvSource{prefix: prefix, lookup: os.LookupEnv}
}

// Name returns "env".
func (e *EnvSource) Name() string { return "env" }

// Priority returns PriorityEnv.
func (e *EnvSource) Priority() int { return PriorityEnv }

// Lookup resolves key against the environment.
func (e *EnvSource) Lookup(key string) (string, bool) {
	if e.prefix == "" {
		if v, ok := e.lookup(key); ok {
			return v, true
		}
	}
	normalized := EnvKey(e.prefix, key)
	if normalized == key && e.prefix == "" {
		return "", false
	}
	return e.lookup(normalized)
}

// EnvKey converts a dotted property key into an environment variable name.
func EnvKey(prefix, key string) string {
	var b strings.Builder
	if prefix != "" {
		b.WriteString(strings.ToUpper(prefix))
		b.WriteByte('_')
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
