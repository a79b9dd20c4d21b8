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

package catalog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/tombee/httpinvoke/pkg/errors"
)

// Catalog is a set of API definitions keyed by name.
type Catalog struct {
	defs map[string]*Definition
}

// New builds a catalog, rejecting duplicate API names.
func New(defs ...*Definition) (*Catalog, error) {
	c := &Catalog{defs: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		if err := c.add(d); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) add(d *Definition) error {
	if prev, ok := c.defs[d.Name]; ok {
		return &errors.ValidationError{
			Field:       "name",
			Message:     fmt.Sprintf("duplicate API %q in %s and %s", d.Name, prev.Source, d.Source),
			SuggestText: "API names must be unique across catalog files",
		}
	}
	c.defs[d.Name] = d
	return nil
}

// Names returns the API names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.defs))
	for name := range c.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the definition for name.
func (c *Catalog) Lookup(name string) (*Definition, bool) {
	d, ok := c.defs[name]
	return d, ok
}

// Len returns the number of APIs in the catalog.
func (c *Catalog) Len() int { return len(c.defs) }

// Parse reads every YAML document in data as a Definition and validates it.
// Unknown fields are rejected.
func Parse(data []byte, source string) ([]*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var defs []*Definition
	for {
		var d Definition
		err := dec.Decode(&d)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &errors.ConfigError{Key: source, Reason: "invalid catalog YAML", Cause: err}
		}
		d.Source = source
		if err := d.Validate(); err != nil {
			return nil, errors.Wrapf(err, "catalog %s", source)
		}
		defs = append(defs, &d)
	}
	if len(defs) == 0 {
		return nil, &errors.ConfigError{Key: source, Reason: "catalog holds no API definitions"}
	}
	return defs, nil
}

// LoadFile reads and parses a single catalog file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errors.ConfigError{Key: path, Reason: "read catalog error", Cause: err}
	}
	defs, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	return New(defs...)
}

// LoadGlob loads every file matching the doublestar patterns, for example
// "apis/**/*.yaml". A pattern that matches nothing is an error.
func LoadGlob(patterns ...string) (*Catalog, error) {
	c := &Catalog{defs: make(map[string]*Definition)}
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, &errors.ConfigError{Key: pattern, Reason: "invalid catalog pattern", Cause: err}
		}
		if len(matches) == 0 {
			return nil, &errors.ConfigError{Key: pattern, Reason: "no catalog files match"}
		}
		sort.Strings(matches)
		for _, path := range matches {
			if seen[path] {
				continue
			}
			seen[path] = true

			data, err := os.ReadFile(path)
			if err != nil {
				return nil, &errors.ConfigError{Key: path, Reason: "read catalog error", Cause: err}
			}
			defs, err := Parse(data, path)
			if err != nil {
				return nil, err
			}
			for _, d := range defs {
				if err := c.add(d); err != nil {
					return nil, err
				}
			}
		}
	}
	return c, nil
}
