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
Package invoker turns declared HTTP operations into calls.

An API is a static table of MethodDescriptors. Each descriptor names an
operation, its URL template, verb, timeout, retry policy, result shape and
one ParamBinding per positional argument. A Dispatcher built from the table
resolves templates, binds arguments, sends the request with retry and
decodes the response into the declared shape.

# URL templates

Two placeholder forms are supported:

	${key}   resolved from a property.Resolver; a missing key fails the call
	{key}    resolved from the bound parameters and removed from them

Path placeholders are filled twice: once after binding, leaving misses in
place, and once after the optional Preprocessor, where a miss fails the call.

# Usage

	api := invoker.API{
	    Name:   "users",
	    Prefix: "${users.base}",
	    Retry: &invoker.RetryPolicy{
	        Times:          3,
	        FixedBackoff:   200 * time.Millisecond,
	        RetryForStatus: []invoker.StatusRange{{From: 500, To: 599}},
	    },
	    Methods: []invoker.MethodDescriptor{{
	        Name:   "get",
	        URL:    "/users/{id}",
	        Result: invoker.Structured[User](),
	        Params: []invoker.ParamBinding{invoker.Param("id")},
	    }},
	}

	d, err := invoker.New(api, requestor, invoker.WithProperties(props))
	...
	u, err := invoker.Call[User](ctx, d, "get", 42)

A Dispatcher keeps no per-call state. All request state lives in a fresh
Request owned by the invocation, so one Dispatcher serves any number of
concurrent callers.
*/
package invoker
