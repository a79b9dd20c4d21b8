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

import "reflect"

// bindParams maps call arguments onto req following the binding precedence:
//
//  1. A non-empty map built from Param/BodyParam bindings becomes Data.
//  2. Otherwise, with no body set, the first argument is used: a collection
//     becomes Body verbatim, a struct or map is flattened into Data, and a
//     bare file-like value is ignored.
//  3. Otherwise the body set by a file binding is flattened into Data when
//     it has field structure, and Body is cleared.
func bindParams(req *Request, bindings []ParamBinding, args []any, c Codec) error {
	if len(args) == 0 {
		return nil
	}

	annotated, err := bindAnnotated(req, bindings, args, c)
	if err != nil {
		return err
	}

	var data map[string]any
	switch {
	case len(annotated) > 0:
		data = annotated
	case req.Body == nil:
		first := args[0]
		switch {
		case isNil(first), isFileLike(first):
		case isCollection(first):
			req.Body = first
		default:
			data, _ = flatten(c, first)
		}
	default:
		if m, ok := flatten(c, req.Body); ok {
			data = m
			req.Body = nil
		}
	}
	req.Data = data
	return nil
}

// bindAnnotated processes every non-nil argument that carries a binding.
// The returned map is non-nil as soon as one Param/BodyParam binding is seen.
func bindAnnotated(req *Request, bindings []ParamBinding, args []any, c Codec) (map[string]any, error) {
	var m map[string]any
	for i, arg := range args {
		if i >= len(bindings) {
			break
		}
		if isNil(arg) {
			continue
		}

		b := bindings[i]
		switch b.Kind {
		case BindingPlain, BindingBody:
			if m == nil {
				m = make(map[string]any)
			}
			switch {
			case isFileLike(arg):
				req.Body = arg
				req.FileFormKey = b.Key
			case b.Kind == BindingBody:
				if fields, ok := flatten(c, arg); ok {
					for k, v := range fields {
						m[k] = v
					}
				} else {
					m[b.Key] = arg
				}
			case b.Key != "":
				m[b.Key] = arg
			}

		case BindingHeaders, BindingCookies:
			copied, ok := copyStringMap(arg)
			if !ok {
				return nil, bindingTypeViolation(b.Kind, i, arg)
			}
			if b.Kind == BindingHeaders {
				req.Headers = copied
			} else {
				req.Cookies = copied
			}
		}
	}
	return m, nil
}

// copyStringMap copies any map whose key and element kinds are string,
// including named types such as `type Headers map[string]string`.
func copyStringMap(arg any) (map[string]string, bool) {
	if values, ok := arg.(map[string]string); ok {
		copied := make(map[string]string, len(values))
		for k, v := range values {
			copied[k] = v
		}
		return copied, true
	}

	rv := reflect.ValueOf(arg)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String || rv.Type().Elem().Kind() != reflect.String {
		return nil, false
	}
	copied := make(map[string]string, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		copied[iter.Key().String()] = iter.Value().String()
	}
	return copied, true
}
