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

// Package workflow defines the high-level business logic orchestrations,
// combining various commands into coherent pipelines. This file implements
// the submission workflow: one contributor submission carried from raw input
// to a durable metadata row, across a file store and a row store that share
// no transaction.
package workflow

import (
	"errors"
	"log/slog"

	"github.com/sudan-mm/gcp-go-media-collector/internal/cloud"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/commands"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/cor"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/model"
)

// Command names used by the submission pipeline. The workflow maps a failed
// command back to its step through these, so the resolver handed to the
// constructor should carry ResolveCommandName.
const (
	ValidateCommandName = "validate-submission"
	ResolveCommandName  = "resolve-folders"
	AllocateCommandName = "allocate-identifier"
	UploadCommandName   = "upload-pair"
	AppendCommandName   = "append-record"
)

// commandSteps maps a command name to the step reported when it fails.
var commandSteps = map[string]model.Step{
	ValidateCommandName: model.StepValidation,
	ResolveCommandName:  model.StepFolder,
	AllocateCommandName: model.StepAllocation,
	UploadCommandName:   model.StepUpload,
	AppendCommandName:   model.StepLog,
}

// SubmissionWorkflow orchestrates one submission as a saga in two segments.
//
// The intake segment (validate, resolve folders) makes no writes beyond
// idempotent folder creation, so its failures need no cleanup. The commit
// segment (allocate identifier, upload the media and audio pair, append the
// metadata row) does write, and any failure inside it triggers compensating
// deletes of whatever objects that attempt uploaded.
//
// The commit segment runs under a fresh scoped context per attempt. One
// failure is recoverable by design: a duplicate identifier detected at
// append time means a concurrent submission claimed the same id after this
// one allocated it, and the answer is to clean up, reallocate, and try
// again, up to the configured attempt budget. Every other failure surfaces
// after a single attempt.
//
// On success the workflow publishes the final Record; on failure it records
// exactly one error, a *model.StepError naming the step that failed.
type SubmissionWorkflow struct {
	cor.BaseCommand
	config            *cloud.Config
	files             cloud.FileStore // For compensating deletes.
	maxCommitAttempts int
	intake            cor.Chain // validate -> resolve folders
	commit            cor.Chain // allocate -> upload -> append
}

// Execute runs the submission workflow. The context must hold the
// *model.Submission under commands.SubmissionParam.
//
// Inputs:
//   - context: The chain of responsibility context for this execution.
func (w *SubmissionWorkflow) Execute(context cor.Context) {
	submission, _ := context.Get(commands.SubmissionParam).(*model.Submission)
	if submission == nil {
		w.fail(context, model.StepValidation, model.ErrIncompleteSubmission)
		return
	}

	if !w.runIntake(context, submission) {
		return
	}
	w.runCommitLoop(context, submission)
}

// runIntake executes the validation and folder resolution segment. Returns
// true when the workflow may proceed to the commit loop.
func (w *SubmissionWorkflow) runIntake(context cor.Context, submission *model.Submission) bool {
	scope := cor.NewScopedContext(context, commands.SubmissionParam)
	scope.Add(cor.CtxIn, submission)

	w.intake.Execute(scope)
	cor.MergeTempFiles(context, scope)

	if name, err := firstFailure(scope); err != nil {
		w.fail(context, w.stepFor(name, model.StepValidation), err)
		return false
	}

	// The commit attempts scope their contexts from the parent, so the
	// intake results must be visible there.
	context.Add(commands.FolderSetParam, scope.Get(commands.FolderSetParam))
	return true
}

// runCommitLoop executes the commit segment under a fresh scoped context per
// attempt, compensating and reallocating on duplicate identifiers.
func (w *SubmissionWorkflow) runCommitLoop(context cor.Context, submission *model.Submission) {
	var lastName string
	var lastErr error

	for attempt := 1; attempt <= w.maxCommitAttempts; attempt++ {
		scope := cor.NewScopedContext(context, commands.SubmissionParam, commands.FolderSetParam)
		scope.Add(cor.CtxIn, submission)

		w.commit.Execute(scope)
		cor.MergeTempFiles(context, scope)

		name, err := firstFailure(scope)
		if err == nil {
			record := scope.Get(commands.RecordParam).(*model.Record)
			context.Add(commands.RecordParam, record)
			context.Add(cor.CtxOut, record)
			w.GetSuccessCounter().Add(context.GetContext(), 1)
			return
		}

		// The attempt failed with uploads possibly in place. Delete them
		// before surfacing or retrying; the row is the commit point and it
		// was not written.
		w.compensate(scope)

		lastName, lastErr = name, err
		if errors.Is(err, model.ErrDuplicateIdentifier) && attempt < w.maxCommitAttempts {
			slog.Warn("identifier claimed by a concurrent submission, reallocating",
				"attempt", attempt,
				"correlation_id", submission.CorrelationId,
				"error", err)
			continue
		}
		break
	}

	w.fail(context, w.stepFor(lastName, model.StepLog), lastErr)
}

// compensate deletes whatever objects the attempt recorded in its scope.
// Delete failures are logged and the object id left in place; the objects
// are orphans without a row either way.
func (w *SubmissionWorkflow) compensate(scope cor.Context) {
	for _, key := range []string{commands.AudioObjectParam, commands.MediaObjectParam} {
		objectId, ok := scope.Get(key).(string)
		if !ok || objectId == "" {
			continue
		}
		if err := w.files.DeleteObject(scope.GetContext(), objectId); err != nil {
			slog.Error("compensating delete failed", "object", objectId, "error", err)
			continue
		}
		scope.Remove(key)
	}
}

// fail records the workflow's single caller-facing error.
func (w *SubmissionWorkflow) fail(context cor.Context, step model.Step, err error) {
	w.GetErrorCounter().Add(context.GetContext(), 1)
	context.AddError(w.GetName(), model.NewStepError(step, err))
}

// stepFor maps a failed command name to its step, falling back to the
// segment's terminal step for unrecognized names.
func (w *SubmissionWorkflow) stepFor(commandName string, fallback model.Step) model.Step {
	if step, ok := commandSteps[commandName]; ok {
		return step
	}
	return fallback
}

// firstFailure returns one recorded failure and the command that raised it.
// Chains stop at the first error, so the map holds at most one entry in
// practice.
func firstFailure(scope cor.Context) (string, error) {
	for name, err := range scope.GetErrors() {
		return name, err
	}
	return "", nil
}

// initializeChains builds the two command segments. The resolver arrives
// from the caller because startup shares it: the same memoized instance
// resolves folders once for the spreadsheet bootstrap and then serves every
// submission.
func (w *SubmissionWorkflow) initializeChains(
	serviceClients *cloud.ServiceClients,
	spreadsheetId string,
	prober commands.DurationProber,
	resolver *commands.ResolveFolders) {

	intake := cor.NewBaseChain("submission-intake")
	intake.AddCommand(commands.NewValidateSubmission(ValidateCommandName, w.config.Validation, prober))
	intake.AddCommand(resolver)
	w.intake = intake

	commit := cor.NewBaseChain("submission-commit")
	commit.AddCommand(commands.NewAllocateIdentifier(AllocateCommandName, serviceClients.Rows, spreadsheetId))
	commit.AddCommand(commands.NewUploadPair(UploadCommandName, serviceClients.Files))
	commit.AddCommand(commands.NewAppendRecord(AppendCommandName, serviceClients.Rows, spreadsheetId))
	w.commit = commit
}

// NewSubmissionPipeline is the constructor for the SubmissionWorkflow. It
// wires the validation and commit segments against the shared service
// clients.
//
// Inputs:
//   - config: The application's overall configuration.
//   - serviceClients: A struct containing initialized clients for Google services.
//   - spreadsheetId: The id of the metadata spreadsheet, resolved at startup.
//   - prober: The duration prober used by validation.
//   - resolver: The shared folder resolution command, named ResolveCommandName.
//
// Returns:
//   - A pointer to a newly created and fully initialized SubmissionWorkflow.
func NewSubmissionPipeline(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	spreadsheetId string,
	prober commands.DurationProber,
	resolver *commands.ResolveFolders) *SubmissionWorkflow {

	pipeline := &SubmissionWorkflow{
		BaseCommand:       *cor.NewBaseCommand("submission-workflow"),
		config:            config,
		files:             serviceClients.Files,
		maxCommitAttempts: config.Retry.MaxCommitAttempts,
	}
	if pipeline.maxCommitAttempts < 1 {
		pipeline.maxCommitAttempts = 1
	}
	pipeline.initializeChains(serviceClients, spreadsheetId, prober, resolver)
	return pipeline
}
