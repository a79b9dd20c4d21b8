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
	"encoding/json"
	"fmt"
	"io"
	"reflect"
)

// Codec converts between structured values and bytes.
type Codec interface {
	Encode(v any) ([]byte, error)

	// Decode parses data into a fresh value of type t and returns it.
	Decode(data []byte, t reflect.Type) (any, error)
}

// JSONCodec is the default Codec. Numbers decoded into untyped targets are
// kept as json.Number so integers survive a flatten round trip.
type JSONCodec struct{}

// Encode marshals v as JSON.
func (JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode unmarshals data into a new value of type t.
func (JSONCodec) Decode(data []byte, t reflect.Type) (any, error) {
	if t == nil {
		return nil, fmt.Errorf("decode target type is nil")
	}
	ptr := reflect.New(t)
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}

var mapType = reflect.TypeFor[map[string]any]()

// flatten converts v into a key/value map through the codec. It reports false
// for values that have no field structure.
func flatten(c Codec, v any) (map[string]any, bool) {
	if !flattenable(v) {
		return nil, false
	}
	data, err := c.Encode(v)
	if err != nil {
		return nil, false
	}
	out, err := c.Decode(data, mapType)
	if err != nil {
		return nil, false
	}
	m, ok := out.(map[string]any)
	if !ok || m == nil {
		return nil, false
	}
	return m, true
}

func flattenable(v any) bool {
	if v == nil || isFileLike(v) {
		return false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct, reflect.Map:
		return true
	default:
		return false
	}
}

func isFileLike(v any) bool {
	switch v.(type) {
	case io.Reader, FilePath, *FilePath:
		return true
	default:
		return false
	}
}

func isCollection(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	return rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
