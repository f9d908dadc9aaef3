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

// Package model defines the core data structures for the application.
// This file, `errors.go`, contains the error taxonomy shared by every layer:
// sentinel errors for each failure class, the Step enumeration naming the
// workflow stage a failure belongs to, and the StepError wrapper that the
// submission service hands back to callers. Everything is built on standard
// errors wrapping so call sites classify with errors.Is / errors.As.
package model

import (
	"errors"
	"fmt"
)

// Validation failures. None of these imply any remote write happened.
var (
	// ErrIncompleteSubmission marks a structurally unusable submission
	// (missing blob, empty caption, unknown kind or category).
	ErrIncompleteSubmission = errors.New("incomplete submission")
	// ErrUnsupportedFormat marks a media or audio file whose extension or
	// sniffed content type is outside the kind's whitelist.
	ErrUnsupportedFormat = errors.New("unsupported media format")
	// ErrDurationOutOfRange marks a video or audio file whose probed
	// duration falls outside the configured bounds.
	ErrDurationOutOfRange = errors.New("duration out of range")
	// ErrUnreadableMedia marks a file both duration probes failed to read.
	// The file is rejected rather than assumed to have any duration.
	ErrUnreadableMedia = errors.New("unreadable media")
)

// Folder resolution failures.
var (
	// ErrFolderCreateFailed marks a failed folder lookup or create while
	// resolving the team structure.
	ErrFolderCreateFailed = errors.New("folder create failed")
	// ErrAmbiguousDuplicate marks a parent that already holds more than one
	// non-trashed folder with the requested name. The store has no
	// conditional create, so concurrent resolvers can produce this; it is
	// recoverable (first match wins on re-resolution), never fatal here.
	ErrAmbiguousDuplicate = errors.New("ambiguous duplicate folder")
)

// Allocation, upload, and log failures.
var (
	// ErrAllocationConflict marks an identifier allocation whose re-read
	// still disagreed with the first read after the bounded retry.
	ErrAllocationConflict = errors.New("concurrent allocation conflict")
	// ErrTransferFailed marks an object upload that exhausted its retries.
	ErrTransferFailed = errors.New("object transfer failed")
	// ErrDuplicateIdentifier marks an append that found its identifier
	// already held by an existing row. The workflow treats this as the one
	// recoverable race and re-allocates.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	// ErrAppendFailed marks a metadata row append that failed for any
	// reason other than a duplicate identifier.
	ErrAppendFailed = errors.New("row append failed")
)

// ErrQuotaExceeded is the cross-cutting permanent failure surfaced verbatim
// when a store reports its quota consumed. It is never retried.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Step names the workflow stage an error escaped from. The values appear in
// API responses and logs, so they are stable strings rather than iota ints.
type Step string

const (
	StepValidation Step = "validation"
	StepFolder     Step = "folder"
	StepAllocation Step = "allocation"
	StepUpload     Step = "upload"
	StepLog        Step = "log"
)

// StepError is the caller-facing failure: the stage that failed plus the
// underlying cause. The submission service guarantees every error it returns
// is a *StepError, so handlers can always name the failing step.
type StepError struct {
	Step Step
	Err  error
}

// NewStepError wraps err with the stage it escaped from. A nil err returns
// nil so call sites can wrap unconditionally.
func NewStepError(step Step, err error) error {
	if err == nil {
		return nil
	}
	return &StepError{Step: step, Err: err}
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *StepError) Unwrap() error {
	return e.Err
}

// FailingStep extracts the workflow stage from an error chain, or "" when
// the error carries no StepError.
func FailingStep(err error) Step {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step
	}
	return ""
}
