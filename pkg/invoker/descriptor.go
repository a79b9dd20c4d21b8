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
	"errors"
	"fmt"
	"io"
	"reflect"
	"time"
)

// BindingKind is the declared role of a call parameter.
type BindingKind int

const (
	// BindingNone leaves the argument unbound. It only takes part in the
	// first-argument fallback.
	BindingNone BindingKind = iota

	// BindingPlain puts the argument into the parameter map under Key.
	BindingPlain

	// BindingBody spreads the argument's fields into the parameter map, or
	// stores it under Key when it cannot be flattened.
	BindingBody

	// BindingHeaders uses the argument as the request header map.
	BindingHeaders

	// BindingCookies uses the argument as the request cookie map.
	BindingCookies
)

// String returns the kind name used in catalogs and logs.
func (k BindingKind) String() string {
	switch k {
	case BindingPlain:
		return "plain"
	case BindingBody:
		return "body"
	case BindingHeaders:
		return "headers"
	case BindingCookies:
		return "cookies"
	default:
		return "none"
	}
}

// ParamBinding declares how one positional argument maps onto the request.
type ParamBinding struct {
	Kind BindingKind
	Key  string
}

// Param binds an argument to key in the parameter map. An empty key drops
// the argument unless it is file-like.
func Param(key string) ParamBinding { return ParamBinding{Kind: BindingPlain, Key: key} }

// BodyParam binds an argument as a body contributor.
func BodyParam(key string) ParamBinding { return ParamBinding{Kind: BindingBody, Key: key} }

// HeaderMap binds a map[string]string argument as the request headers.
func HeaderMap() ParamBinding { return ParamBinding{Kind: BindingHeaders} }

// CookieMap binds a map[string]string argument as the request cookies.
func CookieMap() ParamBinding { return ParamBinding{Kind: BindingCookies} }

// Unbound declares an argument with no binding.
func Unbound() ParamBinding { return ParamBinding{Kind: BindingNone} }

// ResultKind enumerates the result shapes a method can declare.
type ResultKind int

const (
	// ResultNone discards the body after the status check.
	ResultNone ResultKind = iota
	// ResultText returns the body as a string.
	ResultText
	// ResultBytes returns the body as []byte.
	ResultBytes
	// ResultStream returns the body as an io.ReadCloser.
	ResultStream
	// ResultResponse returns the *Response itself.
	ResultResponse
	// ResultStructured decodes the body into ResultShape.Type.
	ResultStructured
)

// String returns the kind name used in catalogs and logs.
func (k ResultKind) String() string {
	switch k {
	case ResultText:
		return "text"
	case ResultBytes:
		return "bytes"
	case ResultStream:
		return "stream"
	case ResultResponse:
		return "response"
	case ResultStructured:
		return "structured"
	default:
		return "none"
	}
}

// ResultShape is the statically declared form of a method's result.
type ResultShape struct {
	Kind ResultKind

	// Type is the decode target for ResultStructured, including any type
	// parameters (e.g. []User, map[string][]Item).
	Type reflect.Type
}

// NoResult declares a method without a return value.
func NoResult() ResultShape { return ResultShape{Kind: ResultNone} }

// TextResult declares a string result.
func TextResult() ResultShape {
	return ResultShape{Kind: ResultText, Type: reflect.TypeFor[string]()}
}

// BytesResult declares a []byte result.
func BytesResult() ResultShape {
	return ResultShape{Kind: ResultBytes, Type: reflect.TypeFor[[]byte]()}
}

// StreamResult declares an io.ReadCloser result.
func StreamResult() ResultShape {
	return ResultShape{Kind: ResultStream, Type: reflect.TypeFor[io.ReadCloser]()}
}

// ResponseResult declares a *Response result.
func ResponseResult() ResultShape {
	return ResultShape{Kind: ResultResponse, Type: reflect.TypeFor[*Response]()}
}

// Structured declares a result decoded into T.
func Structured[T any]() ResultShape {
	return ResultShape{Kind: ResultStructured, Type: reflect.TypeFor[T]()}
}

// StatusRange is an inclusive range of HTTP status codes.
type StatusRange struct {
	From int
	To   int
}

// Status returns a range holding a single status code.
func Status(code int) StatusRange { return StatusRange{From: code, To: code} }

// Contains reports whether code lies within the range.
func (r StatusRange) Contains(code int) bool {
	return code >= r.From && code <= r.To
}

// String formats the range as "500-599" or "503".
func (r StatusRange) String() string {
	if r.From == r.To {
		return fmt.Sprintf("%d", r.From)
	}
	return fmt.Sprintf("%d-%d", r.From, r.To)
}

// ErrorMatcher reports whether an error belongs to a retryable kind.
type ErrorMatcher func(err error) bool

// MatchErrorType matches any error whose chain contains an E.
func MatchErrorType[E error]() ErrorMatcher {
	return func(err error) bool {
		var target E
		return errors.As(err, &target)
	}
}

// MatchError matches errors for which errors.Is(err, target) holds.
func MatchError(target error) ErrorMatcher {
	return func(err error) bool {
		return errors.Is(err, target)
	}
}

// RetryPolicy governs attempt count, backoff, and which outcomes are retried.
type RetryPolicy struct {
	// Times is the total number of attempts including the first.
	// Values <= 0 mean a single attempt with no retry judgement.
	Times int

	// FixedBackoff is the pause before attempts 2..Times.
	FixedBackoff time.Duration

	// RetryForStatus lists status ranges that make an attempt retryable.
	RetryForStatus []StatusRange

	// RetryFor lists error kinds that make an attempt retryable.
	RetryFor []ErrorMatcher
}

func (p *RetryPolicy) retryableStatus(code int) bool {
	for _, r := range p.RetryForStatus {
		if r.Contains(code) {
			return true
		}
	}
	return false
}

func (p *RetryPolicy) retryableError(err error) bool {
	for _, match := range p.RetryFor {
		if match != nil && match(err) {
			return true
		}
	}
	return false
}

// MethodDescriptor is the immutable metadata of one remote operation.
type MethodDescriptor struct {
	// Name is the logical operation name callers dispatch on.
	Name string

	// URL is the template, possibly holding ${config} and {path} placeholders.
	URL string

	// Method is the HTTP verb. Defaults to GET.
	Method string

	// Timeout is handed to the requestor as a per-call hint.
	Timeout time.Duration

	// Retry overrides the API-level retry policy when set.
	Retry *RetryPolicy

	// Result is the declared result shape.
	Result ResultShape

	// Params holds one binding per positional argument.
	Params []ParamBinding

	// Transform is an optional jq expression applied to the JSON document
	// before structured decoding.
	Transform string
}

// API groups the methods of one remote interface.
type API struct {
	// Name identifies the interface in logs and metrics.
	Name string

	// Prefix is prepended to method URLs that carry no protocol.
	Prefix string

	// Retry is the interface-level retry policy.
	Retry *RetryPolicy

	Methods []MethodDescriptor
}
