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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the invocation collectors. A nil *Metrics records nothing.
type Metrics struct {
	invocations *prometheus.CounterVec
	attempts    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics registers the invocation collectors with reg. A nil registerer
// creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		// invocations tracks finished invocations by outcome
		invocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "httpinvoke_invocations_total",
				Help: "Total invocations by api, method and outcome",
			},
			[]string{"api", "method", "outcome"},
		),
		// attempts tracks individual send attempts by retry state
		attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "httpinvoke_attempts_total",
				Help: "Total send attempts by api, method and state",
			},
			[]string{"api", "method", "state"},
		),
		// duration tracks end-to-end invocation latency
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "httpinvoke_invocation_duration_seconds",
				Help:    "Invocation duration including retries and decoding",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"api", "method"},
		),
	}
}

func (m *Metrics) recordAttempt(api, method string, state attemptState) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(api, method, string(state)).Inc()
}

func (m *Metrics) recordInvocation(api, method string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(api, method, outcome(err)).Inc()
	m.duration.WithLabelValues(api, method).Observe(elapsed.Seconds())
}

// outcome labels an invocation result: "success", an ErrorType, or "error"
// for foreign errors such as transport failures.
func outcome(err error) string {
	if err == nil {
		return "success"
	}
	var ie *Error
	if errors.As(err, &ie) {
		return string(ie.Type)
	}
	return "error"
}
