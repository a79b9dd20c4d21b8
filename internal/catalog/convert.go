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
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tombee/httpinvoke/pkg/errors"
	"github.com/tombee/httpinvoke/pkg/invoker"
	"github.com/tombee/httpinvoke/pkg/requestor"
)

var validName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

var validMethods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true,
	"PATCH": true, "DELETE": true, "OPTIONS": true,
}

var resultShapes = map[string]func() invoker.ResultShape{
	"":         invoker.TextResult,
	"none":     invoker.NoResult,
	"text":     invoker.TextResult,
	"bytes":    invoker.BytesResult,
	"stream":   invoker.StreamResult,
	"response": invoker.ResponseResult,
	"json":     invoker.Structured[any],
}

var bindingKinds = map[string]invoker.BindingKind{
	"":        invoker.BindingPlain,
	"plain":   invoker.BindingPlain,
	"body":    invoker.BindingBody,
	"headers": invoker.BindingHeaders,
	"cookies": invoker.BindingCookies,
	"none":    invoker.BindingNone,
}

var errorMatchers = map[string]func() invoker.ErrorMatcher{
	"timeout":         func() invoker.ErrorMatcher { return requestor.MatchType(requestor.ErrorTypeTimeout) },
	"connection":      func() invoker.ErrorMatcher { return requestor.MatchType(requestor.ErrorTypeConnection) },
	"cancelled":       func() invoker.ErrorMatcher { return requestor.MatchType(requestor.ErrorTypeCancelled) },
	"invalid_request": func() invoker.ErrorMatcher { return requestor.MatchType(requestor.ErrorTypeInvalidRequest) },
	"transport":       requestor.MatchAny,
}

// Validate checks the definition for structural errors.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return &errors.ValidationError{Field: "name", Message: "API name is required"}
	}
	if !validName.MatchString(d.Name) {
		return &errors.ValidationError{
			Field:       "name",
			Message:     fmt.Sprintf("invalid API name %q", d.Name),
			SuggestText: "use letters, digits, '-' and '_', starting with a letter",
		}
	}
	if len(d.Methods) == 0 {
		return &errors.ValidationError{Field: d.Name + ".methods", Message: "at least one method is required"}
	}
	if err := d.Retry.validate(d.Name + ".retry"); err != nil {
		return err
	}
	if err := d.Auth.validate(d.Name + ".auth"); err != nil {
		return err
	}

	seen := make(map[string]bool, len(d.Methods))
	for i := range d.Methods {
		m := &d.Methods[i]
		field := fmt.Sprintf("%s.methods[%d]", d.Name, i)
		if m.Name == "" {
			return &errors.ValidationError{Field: field + ".name", Message: "method name is required"}
		}
		if !validName.MatchString(m.Name) {
			return &errors.ValidationError{Field: field + ".name", Message: fmt.Sprintf("invalid method name %q", m.Name)}
		}
		if seen[m.Name] {
			return &errors.ValidationError{Field: field + ".name", Message: fmt.Sprintf("duplicate method %q", m.Name)}
		}
		seen[m.Name] = true

		field = d.Name + "." + m.Name
		if err := m.validate(field); err != nil {
			return err
		}
	}
	return nil
}

func (m *MethodDefinition) validate(field string) error {
	if m.URL == "" {
		return &errors.ValidationError{Field: field + ".url", Message: "url is required"}
	}
	if m.Method != "" && !validMethods[strings.ToUpper(m.Method)] {
		return &errors.ValidationError{Field: field + ".method", Message: fmt.Sprintf("unsupported HTTP method %q", m.Method)}
	}
	if _, err := parseDuration(m.Timeout); err != nil {
		return &errors.ValidationError{Field: field + ".timeout", Message: err.Error()}
	}
	if _, ok := resultShapes[m.Result]; !ok {
		return &errors.ValidationError{
			Field:       field + ".result",
			Message:     fmt.Sprintf("unknown result %q", m.Result),
			SuggestText: "use one of none, text, bytes, stream, response, json",
		}
	}
	if m.Transform != "" && m.Result != "json" {
		return &errors.ValidationError{Field: field + ".transform", Message: "transform requires result: json"}
	}
	for i, p := range m.Params {
		if _, ok := bindingKinds[p.Kind]; !ok {
			return &errors.ValidationError{
				Field:       fmt.Sprintf("%s.params[%d].kind", field, i),
				Message:     fmt.Sprintf("unknown param kind %q", p.Kind),
				SuggestText: "use one of plain, body, headers, cookies, none",
			}
		}
	}
	return m.Retry.validate(field + ".retry")
}

func (r *RetryDefinition) validate(field string) error {
	if r == nil {
		return nil
	}
	if r.Times < 0 {
		return &errors.ValidationError{Field: field + ".times", Message: "times must be >= 0"}
	}
	if _, err := parseDuration(r.Backoff); err != nil {
		return &errors.ValidationError{Field: field + ".backoff", Message: err.Error()}
	}
	for _, s := range r.Status {
		if _, err := ParseStatusRange(s); err != nil {
			return &errors.ValidationError{Field: field + ".status", Message: err.Error()}
		}
	}
	for _, e := range r.Errors {
		if _, ok := errorMatchers[e]; !ok {
			return &errors.ValidationError{
				Field:       field + ".errors",
				Message:     fmt.Sprintf("unknown error kind %q", e),
				SuggestText: "use one of timeout, connection, cancelled, invalid_request, transport",
			}
		}
	}
	return nil
}

// API converts the definition into an invoker.API. The definition must
// have passed Validate.
func (d *Definition) API() invoker.API {
	api := invoker.API{
		Name:    d.Name,
		Prefix:  d.Prefix,
		Retry:   d.Retry.policy(),
		Methods: make([]invoker.MethodDescriptor, 0, len(d.Methods)),
	}
	for _, m := range d.Methods {
		timeout, _ := parseDuration(m.Timeout)
		md := invoker.MethodDescriptor{
			Name:      m.Name,
			URL:       m.URL,
			Method:    strings.ToUpper(m.Method),
			Timeout:   timeout,
			Retry:     m.Retry.policy(),
			Result:    resultShapes[m.Result](),
			Transform: m.Transform,
		}
		for _, p := range m.Params {
			md.Params = append(md.Params, invoker.ParamBinding{Kind: bindingKinds[p.Kind], Key: p.Key})
		}
		api.Methods = append(api.Methods, md)
	}
	return api
}

func (r *RetryDefinition) policy() *invoker.RetryPolicy {
	if r == nil {
		return nil
	}
	backoff, _ := parseDuration(r.Backoff)
	p := &invoker.RetryPolicy{Times: r.Times, FixedBackoff: backoff}
	for _, s := range r.Status {
		sr, _ := ParseStatusRange(s)
		p.RetryForStatus = append(p.RetryForStatus, sr)
	}
	for _, e := range r.Errors {
		p.RetryFor = append(p.RetryFor, errorMatchers[e]())
	}
	return p
}

// ParseStatusRange parses "503" or "500-599".
func ParseStatusRange(s string) (invoker.StatusRange, error) {
	from, to, isRange := strings.Cut(strings.TrimSpace(s), "-")
	lo, err := parseStatus(from)
	if err != nil {
		return invoker.StatusRange{}, fmt.Errorf("invalid status %q: %w", s, err)
	}
	if !isRange {
		return invoker.Status(lo), nil
	}
	hi, err := parseStatus(to)
	if err != nil {
		return invoker.StatusRange{}, fmt.Errorf("invalid status %q: %w", s, err)
	}
	if hi < lo {
		return invoker.StatusRange{}, fmt.Errorf("invalid status %q: range end before start", s)
	}
	return invoker.StatusRange{From: lo, To: hi}, nil
}

func parseStatus(s string) (int, error) {
	code, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if code < 100 || code > 599 {
		return 0, fmt.Errorf("status %d out of range 100-599", code)
	}
	return code, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q must not be negative", s)
	}
	return d, nil
}
