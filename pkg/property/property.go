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

/*
Package property resolves configuration keys against one or more sources.

A Resolver answers a single question: which value does a key map to, if any.
Sources are the concrete key/value stores (in-memory maps, the process
environment, YAML or .properties files, the OS keychain). A Composite
resolver queries its sources in priority order and returns the first hit.

# Usage

	resolver := property.NewComposite(
	    fileSource,                      // priority 100
	    property.NewEnvSource(""),       // priority 10
	)

	if value, ok := resolver.Lookup("api.base"); ok {
	    ...
	}

Sources are populated once at setup and are read-only afterwards, so a
Resolver can be shared by any number of concurrent callers.
*/
package property

// Standard priorities. Higher is checked first.
const (
	PriorityFile     = 100
	PriorityKeychain = 50
	PriorityEnv      = 10
)

// Resolver resolves a configuration key to its value.
type Resolver interface {
	// Lookup returns the value for key and whether the key is present.
	Lookup(key string) (string, bool)
}

// Source is a named, prioritised Resolver that can take part in a Composite.
type Source interface {
	Resolver

	// Name returns the source identifier (e.g., "env", "file:app.yaml").
	Name() string

	// Priority returns the resolution priority (higher = checked first).
	Priority() int
}

// ResolverFunc adapts a plain function to the Resolver interface.
type ResolverFunc func(key string) (string, bool)

// Lookup calls f(key).
func (f ResolverFunc) Lookup(key string) (string, bool) {
	return f(key)
}

// Contains reports whether r can produce a value for key.
func Contains(r Resolver, key string) bool {
	if r == nil {
		return false
	}
	_, ok := r.Lookup(key)
	return ok
}

// Get returns the value for key, or the empty string when absent.
func Get(r Resolver, key string) string {
	if r == nil {
		return ""
	}
	v, _ := r.Lookup(key)
	return v
}
