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
	"sort"
)

// Composite resolves keys by querying its sources in priority order.
// Sources with equal priority keep the order in which they were given.
type Composite struct {
	sources []Source
}

// NewComposite creates a composite resolver over the given sources.
// Nil sources are ignored.
func NewComposite(sources ...Source) *Composite {
	c := &Composite{sources: make([]Source, 0, len(sources))}
	for _, s := range sources {
		if s != nil {
			c.sources = append(c.sources, s)
		}
	}
	c.sort()
	return c
}

// Add registers another source. It must not be called once the composite is
// shared with concurrent readers.
func (c *Composite) Add(s Source) {
	if s == nil {
		return
	}
	c.sources = append(c.sources, s)
	c.sort()
}

func (c *Composite) sort() {
	sort.SliceStable(c.sources, func(i, j int) bool {
		return c.sources[i].Priority() > c.sources[j].Priority()
	})
}

// Lookup returns the value from the first source that contains key.
func (c *Composite) Lookup(key string) (string, bool) {
	for _, s := range c.sources {
		if v, ok := s.Lookup(key); ok {
			return v, true
		}
	}
	return "", false
}

// Sources returns the source names in resolution order.
func (c *Composite) Sources() []string {
	names := make([]string, len(c.sources))
	for i, s := range c.sources {
		names[i] = s.Name()
	}
	return names
}
