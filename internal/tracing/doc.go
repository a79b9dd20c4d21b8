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
Package tracing carries correlation IDs and OpenTelemetry trace context from
an invocation onto the outbound HTTP request.

Every invocation runs with a correlation ID in its context. The requestor
copies it into the X-Correlation-ID header together with the W3C
traceparent/baggage headers of the current span:

	ctx = tracing.ToContext(ctx, tracing.NewCorrelationID())
	...
	tracing.InjectHeaders(ctx, req.Header)

NewProvider builds an SDK tracer provider for the CLI, exporting to stdout
or an OTLP collector.
*/
package tracing
