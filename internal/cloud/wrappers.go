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

// Package cloud provides components for interacting with Google services.
// This file implements the quota-aware call wrapper both store
// implementations route every remote call through. It is a decorator over a
// plain closure: a client-side rate limiter keeps the process inside its API
// quota, and a bounded retry loop with jittered exponential backoff absorbs
// transient failures.
//
// Classification is the load-bearing part. A rate-limit response or a 5xx is
// transient and retried; a permission failure, a not-found, or a consumed
// quota is permanent and propagates immediately. Quota exhaustion is wrapped
// with model.ErrQuotaExceeded so the workflow surfaces it verbatim instead
// of burning retries against a dead store.
//
// Structs:
//   - QuotaAwareCaller: the rate limiter plus retry policy for one store.
//
// Functions:
//   - NewQuotaAwareCaller: constructor.
//   - Call: runs one store call under the limiter and retry policy.
//   - IsTransient, IsQuota: the failure classification predicates.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"

	"github.com/sudan-mm/gcp-go-media-collector/internal/core/model"
)

// transientReasons are the googleapi 403 reasons that mean "slow down",
// not "stop": the request can succeed after a backoff.
var transientReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
}

// quotaReasons are the googleapi 403 reasons that mean the quota itself is
// consumed. Retrying cannot help within the request's lifetime.
var quotaReasons = map[string]bool{
	"quotaExceeded":        true,
	"storageQuotaExceeded": true,
	"dailyLimitExceeded":   true,
}

// QuotaAwareCaller is a decorator applied to every remote store call. One
// caller instance is shared by all workflows using a store, so the rate
// limiter sees the process-wide request stream.
type QuotaAwareCaller struct {
	Name    string        // Store name used in wrapped error messages ("drive", "sheets").
	Limiter *rate.Limiter // Client-side request pacing for the whole process.
	Retry   Retry         // Bounded retry and backoff policy.
}

// NewQuotaAwareCaller builds the caller for one store.
//
// Inputs:
//   - name: the store name used in error messages.
//   - requestsPerSecond: the client-side rate cap; values below 1 fall back to 1.
//   - retry: the retry policy from configuration.
//
// Outputs:
//   - *QuotaAwareCaller: a pointer to the newly created wrapper.
func NewQuotaAwareCaller(name string, requestsPerSecond int, retry Retry) *QuotaAwareCaller {
	if requestsPerSecond < 1 {
		requestsPerSecond = 1
	}
	return &QuotaAwareCaller{
		Name:    name,
		Limiter: rate.NewLimiter(rate.Every(time.Second/time.Duration(requestsPerSecond)), requestsPerSecond),
		Retry:   retry,
	}
}

// Call runs fn under the rate limiter, retrying transient failures up to the
// configured attempt budget with jittered exponential backoff. Permanent
// failures return immediately; quota exhaustion returns wrapped with
// model.ErrQuotaExceeded. Context cancellation aborts both the limiter wait
// and the backoff sleeps.
//
// Inputs:
//   - ctx: the request context; controls cancellation of waits.
//   - op: the operation name used in wrapped error messages (e.g. "files.list").
//   - fn: the store call to run.
//
// Outputs:
//   - error: nil on success, the classified failure otherwise.
func (q *QuotaAwareCaller) Call(ctx context.Context, op string, fn func() error) error {
	attempts := q.Retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if waitErr := q.Limiter.Wait(ctx); waitErr != nil {
			return fmt.Errorf("%s %s: %w", q.Name, op, waitErr)
		}

		err = fn()
		if err == nil {
			return nil
		}
		if IsQuota(err) {
			return fmt.Errorf("%s %s: %v: %w", q.Name, op, err, model.ErrQuotaExceeded)
		}
		if !IsTransient(err) {
			return fmt.Errorf("%s %s: %w", q.Name, op, err)
		}

		// Transient: back off before the next attempt, unless the budget
		// or the context is spent.
		if attempt == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s %s: %w", q.Name, op, ctx.Err())
		case <-time.After(BackoffDelay(attempt, q.Retry)):
		}
	}
	return fmt.Errorf("%s %s: retries exhausted: %w", q.Name, op, err)
}

// IsQuota reports whether err is a consumed-quota failure, which is
// permanent for the lifetime of the request.
func IsQuota(err error) bool {
	if errors.Is(err, model.ErrQuotaExceeded) {
		return true
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code != 403 {
		return false
	}
	for _, item := range apiErr.Errors {
		if quotaReasons[item.Reason] {
			return true
		}
	}
	return false
}

// IsTransient reports whether err is worth retrying: HTTP 429 and 5xx
// responses, 403 rate-limit reasons, and network timeouts. Everything else,
// including context cancellation, is permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429, 500, 502, 503, 504:
			return true
		case 403:
			for _, item := range apiErr.Errors {
				if transientReasons[item.Reason] {
					return true
				}
			}
			return false
		default:
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
