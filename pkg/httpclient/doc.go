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

// Package httpclient builds the pooled *http.Client used by the default
// requestor.
//
// The client's transport stack:
//   - sets the User-Agent header when the request has none
//   - injects the correlation ID and W3C trace context from the request context
//   - logs every exchange with a sanitized URL, status and duration
//
// Retries are not handled here. They belong to the invoker's retry policy,
// which sees every attempt.
//
//	client, err := httpclient.New(httpclient.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//
// Sensitive query parameters (api_key, token, password, ...) are redacted
// from logs and Authorization headers are never logged.
package httpclient
