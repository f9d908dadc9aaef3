// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cloud_test contains unit tests for the quota-aware call wrapper:
// the failure classification predicates, the backoff schedule, and the retry
// loop itself, driven by counting closures instead of live API calls.
package cloud_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/sudan-mm/gcp-go-media-collector/internal/cloud"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/model"
	"google.golang.org/api/googleapi"
)

// fastRetry is a retry policy with near-zero backoff so the loop tests run
// in milliseconds.
func fastRetry(attempts int) cloud.Retry {
	return cloud.Retry{
		MaxAttempts:          attempts,
		InitialBackoffMillis: 1,
		MaxBackoffMillis:     2,
	}
}

// apiError builds a googleapi error with the given status code and reasons.
func apiError(code int, reasons ...string) *googleapi.Error {
	err := &googleapi.Error{Code: code, Message: "simulated"}
	for _, reason := range reasons {
		err.Errors = append(err.Errors, googleapi.ErrorItem{Reason: reason})
	}
	return err
}

// TestIsTransientClassification pins the retry predicate: rate limiting and
// server errors are worth retrying, everything else is permanent.
func TestIsTransientClassification(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		transient bool
	}{
		{"nil", nil, false},
		{"too many requests", apiError(429), true},
		{"internal error", apiError(500), true},
		{"bad gateway", apiError(502), true},
		{"service unavailable", apiError(503), true},
		{"gateway timeout", apiError(504), true},
		{"rate limited 403", apiError(403, "rateLimitExceeded"), true},
		{"user rate limited 403", apiError(403, "userRateLimitExceeded"), true},
		{"quota 403 is not transient", apiError(403, "quotaExceeded"), false},
		{"plain 403", apiError(403), false},
		{"not found", apiError(404), false},
		{"bad request", apiError(400), false},
		{"generic error", errors.New("broken pipe"), false},
		{"cancellation", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"network timeout", &net.DNSError{IsTimeout: true}, true},
		{"network failure", &net.DNSError{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.transient, cloud.IsTransient(tc.err))
		})
	}
}

// TestIsQuotaClassification pins the consumed-quota predicate, including
// errors already wrapped with the sentinel.
func TestIsQuotaClassification(t *testing.T) {
	assert.True(t, cloud.IsQuota(apiError(403, "quotaExceeded")))
	assert.True(t, cloud.IsQuota(apiError(403, "storageQuotaExceeded")))
	assert.True(t, cloud.IsQuota(apiError(403, "dailyLimitExceeded")))
	assert.True(t, cloud.IsQuota(model.ErrQuotaExceeded))

	// Rate limiting means slow down, not stop.
	assert.False(t, cloud.IsQuota(apiError(403, "rateLimitExceeded")))
	assert.False(t, cloud.IsQuota(apiError(500)))
	assert.False(t, cloud.IsQuota(errors.New("broken pipe")))
}

// TestCallRetriesTransient verifies that a call failing transiently succeeds
// once the store recovers within the attempt budget.
func TestCallRetriesTransient(t *testing.T) {
	caller := cloud.NewQuotaAwareCaller("drive", 1000, fastRetry(5))

	calls := 0
	err := caller.Call(context.Background(), "files.list", func() error {
		calls++
		if calls < 3 {
			return apiError(503)
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

// TestCallPermanentFailsImmediately verifies that a permanent failure is
// returned after a single attempt, with the original error reachable.
func TestCallPermanentFailsImmediately(t *testing.T) {
	caller := cloud.NewQuotaAwareCaller("drive", 1000, fastRetry(5))

	calls := 0
	err := caller.Call(context.Background(), "files.get", func() error {
		calls++
		return apiError(404)
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)

	var apiErr *googleapi.Error
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 404, apiErr.Code)
}

// TestCallQuotaWrapped verifies that consumed quota comes back wrapped with
// the sentinel after a single attempt, so workflows surface it verbatim.
func TestCallQuotaWrapped(t *testing.T) {
	caller := cloud.NewQuotaAwareCaller("sheets", 1000, fastRetry(5))

	calls := 0
	err := caller.Call(context.Background(), "values.append", func() error {
		calls++
		return apiError(403, "quotaExceeded")
	})

	assert.ErrorIs(t, err, model.ErrQuotaExceeded)
	assert.Equal(t, 1, calls)
}

// TestCallExhaustsBudget verifies the bounded retry: a store that never
// recovers costs exactly the configured number of attempts.
func TestCallExhaustsBudget(t *testing.T) {
	caller := cloud.NewQuotaAwareCaller("drive", 1000, fastRetry(3))

	calls := 0
	err := caller.Call(context.Background(), "files.create", func() error {
		calls++
		return apiError(503)
	})

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorContains(t, err, "retries exhausted")

	var apiErr *googleapi.Error
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 503, apiErr.Code)
}

// TestCallCancelledDuringBackoff verifies that cancellation interrupts the
// backoff sleep instead of letting the loop finish its budget.
func TestCallCancelledDuringBackoff(t *testing.T) {
	// A long backoff guarantees the cancelled context wins the select.
	retry := cloud.Retry{MaxAttempts: 5, InitialBackoffMillis: 60000, MaxBackoffMillis: 60000}
	caller := cloud.NewQuotaAwareCaller("drive", 1000, retry)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := caller.Call(ctx, "files.list", func() error {
		calls++
		cancel()
		return apiError(503)
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

// TestBackoffDelayBounds pins the schedule: doubling from the initial
// delay, capped at the maximum, with up to a quarter of jitter on top.
func TestBackoffDelayBounds(t *testing.T) {
	retry := cloud.Retry{InitialBackoffMillis: 500, MaxBackoffMillis: 8000}

	cases := []struct {
		attempt int
		base    time.Duration
	}{
		{0, 500 * time.Millisecond},
		{1, 1000 * time.Millisecond},
		{2, 2000 * time.Millisecond},
		{4, 8 * time.Second},
		{10, 8 * time.Second},
	}
	for _, tc := range cases {
		delay := cloud.BackoffDelay(tc.attempt, retry)
		assert.GreaterOrEqual(t, delay, tc.base)
		assert.LessOrEqual(t, delay, tc.base+tc.base/4)
	}

	// A zero policy falls back to a half-second base delay.
	delay := cloud.BackoffDelay(0, cloud.Retry{})
	assert.GreaterOrEqual(t, delay, 500*time.Millisecond)
	assert.LessOrEqual(t, delay, 625*time.Millisecond)
}

// TestNewQuotaAwareCallerRates verifies the limiter configuration, including
// the floor applied to nonsense rates.
func TestNewQuotaAwareCallerRates(t *testing.T) {
	caller := cloud.NewQuotaAwareCaller("drive", 5, fastRetry(1))
	assert.InDelta(t, 5, float64(caller.Limiter.Limit()), 0.01)
	assert.Equal(t, 5, caller.Limiter.Burst())

	floored := cloud.NewQuotaAwareCaller("sheets", 0, fastRetry(1))
	assert.InDelta(t, 1, float64(floored.Limiter.Limit()), 0.01)
	assert.Equal(t, 1, floored.Limiter.Burst())
}
