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

// Package services contains the business logic for interacting with data
// sources. This file defines the SubmissionService, the caller-facing entry
// point for one submission. It owns the translation between the plain
// request/response world of its callers and the workflow engine underneath:
// it builds the engine context, runs the submission pipeline, and turns the
// outcome back into a Record or a step-tagged error.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/sudan-mm/gcp-go-media-collector/internal/cloud"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/commands"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/cor"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/model"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/workflow"
)

// SubmissionService runs submissions through the pipeline, capping how many
// execute at once. Each submission is one independent workflow run; the only
// state shared between concurrent runs lives in the remote stores.
type SubmissionService struct {
	Config   *cloud.Config
	Workflow *workflow.SubmissionWorkflow
	slots    chan struct{} // Buffered to the concurrency cap.
}

// NewSubmissionService is the constructor for the SubmissionService.
//
// Inputs:
//   - config: The application's overall configuration.
//   - wf: The submission workflow to run.
//
// Outputs:
//   - *SubmissionService: A pointer to the newly instantiated service.
func NewSubmissionService(config *cloud.Config, wf *workflow.SubmissionWorkflow) *SubmissionService {
	capacity := config.Application.MaxConcurrentSubmissions
	if capacity < 1 {
		capacity = 1
	}
	return &SubmissionService{
		Config:   config,
		Workflow: wf,
		slots:    make(chan struct{}, capacity),
	}
}

// Submit runs one submission end to end and returns its persisted Record.
// Failures from the pipeline are *model.StepError values naming the step
// that failed; resubmitting the same submission after a failure is always
// safe, compensation guarantees a failed run leaves no objects behind.
//
// Inputs:
//   - ctx: The context for the request, used for cancellation, deadlines, and tracing.
//   - submission: The submission to process.
//
// Outputs:
//   - *model.Record: The persisted record on success.
//   - error: The step-tagged failure otherwise.
func (s *SubmissionService) Submit(ctx context.Context, submission *model.Submission) (*model.Record, error) {
	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	start := time.Now()
	slog.Info("submission started",
		"correlation_id", submission.CorrelationId,
		"kind", string(submission.Kind),
		"media", submission.Media.Name,
		"category", submission.Category)

	// Build the engine context for this run. Closing it removes any
	// temporary files the pipeline spooled.
	corCtx := cor.NewBaseContext()
	corCtx.SetContext(ctx)
	defer corCtx.Close()
	corCtx.Add(commands.SubmissionParam, submission)

	s.Workflow.Execute(corCtx)

	if err := cor.FirstError(corCtx); err != nil {
		slog.Warn("submission failed",
			"correlation_id", submission.CorrelationId,
			"step", string(model.FailingStep(err)),
			"duration", time.Since(start),
			"error", err)
		return nil, err
	}

	record := corCtx.Get(commands.RecordParam).(*model.Record)
	slog.Info("submission complete",
		"correlation_id", submission.CorrelationId,
		"id", record.Id,
		"duration", time.Since(start))
	return record, nil
}
