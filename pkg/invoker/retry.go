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
	"context"
	"log/slog"
	"time"
)

// attemptState is the outcome of a single send attempt.
type attemptState string

const (
	stateSuccess   attemptState = "success"
	stateRetryable attemptState = "retryable"
	stateFatal     attemptState = "fatal"
)

// sendFunc performs one attempt.
type sendFunc func(ctx context.Context) (*Response, error)

// attemptHook observes every finished attempt.
type attemptHook func(attempt int, state attemptState)

// executeWithRetry runs send under policy.
//
// Without a policy, or with Times <= 0, exactly one attempt is made and its
// result is returned untouched. Otherwise:
//   - attempts after the first wait FixedBackoff; a cancelled context ends
//     the wait early and the attempt still runs
//   - a response in RetryForStatus is retried, except on the last attempt
//     where it is returned for the caller's status check
//   - an error on the last attempt, or one not matched by RetryFor, is
//     returned immediately
func executeWithRetry(ctx context.Context, policy *RetryPolicy, send sendFunc, logger *slog.Logger, hook attemptHook) (*Response, error) {
	if hook == nil {
		hook = func(int, attemptState) {}
	}

	if policy == nil || policy.Times <= 0 {
		resp, err := send(ctx)
		if err != nil {
			hook(1, stateFatal)
		} else {
			hook(1, stateSuccess)
		}
		return resp, err
	}

	var resp *Response
	for attempt := 1; attempt <= policy.Times; attempt++ {
		if attempt > 1 && policy.FixedBackoff > 0 {
			pause(ctx, policy.FixedBackoff)
		}

		r, err := send(ctx)
		if err != nil {
			if attempt >= policy.Times || !policy.retryableError(err) {
				hook(attempt, stateFatal)
				return nil, err
			}
			hook(attempt, stateRetryable)
			logger.Warn("send request error, retrying",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			continue
		}

		if r == nil || !policy.retryableStatus(r.StatusCode) {
			hook(attempt, stateSuccess)
			return r, nil
		}

		hook(attempt, stateRetryable)
		if attempt >= policy.Times {
			return r, nil
		}
		logger.Debug("retryable status, retrying",
			slog.Int("attempt", attempt),
			slog.Int("status", r.StatusCode))
		r.Close()
		resp = r
	}
	return resp, nil
}

// pause blocks for d or until ctx is done, whichever comes first.
func pause(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
