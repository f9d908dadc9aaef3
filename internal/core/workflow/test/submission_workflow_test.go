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

// Package workflow_test contains end-to-end tests for the submission
// workflow. This file runs complete submissions against in-memory stores and
// pins the saga's outcomes: what a successful run leaves in the two stores,
// which step each failure surfaces from, and that every failed attempt is
// compensated down to nothing. The row store's read hook lands concurrent
// rows at exact points in a run to drive the identifier races.
package workflow_test

import (
	"errors"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/sudan-mm/gcp-go-media-collector/internal/cloud"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/commands"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/cor"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/model"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/workflow"
	test "github.com/sudan-mm/gcp-go-media-collector/internal/testutil"
	"go.opentelemetry.io/otel/codes"
)

// newTestPipeline wires a submission workflow against the given fakes, the
// way the server wires it against the live stores at startup.
func newTestPipeline(files *test.FakeFileStore, rows *test.FakeRowStore, prober commands.DurationProber) *workflow.SubmissionWorkflow {
	clients := &cloud.ServiceClients{Files: files, Rows: rows}
	resolver := commands.NewResolveFolders(workflow.ResolveCommandName, files, config.Collection)
	return workflow.NewSubmissionPipeline(config, clients, rows.Id, prober, resolver)
}

// runSubmission executes one submission through the pipeline on a fresh
// engine context and returns that context for inspection.
func runSubmission(pipeline *workflow.SubmissionWorkflow, submission *model.Submission) cor.Context {
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	chainCtx.Add(commands.SubmissionParam, submission)
	pipeline.Execute(chainCtx)
	return chainCtx
}

// TestSubmissionFirstImage performs an end-to-end run of the first image
// submission against empty stores: the folder structure is created, the
// media and audio objects land under the identifier's name, and the
// metadata row is appended as img_1.
//
// Inputs:
//   - t: A pointer to the testing.T object, provided by the Go testing
//     framework, used for logging, error reporting, and assertions.
func TestSubmissionFirstImage(t *testing.T) {
	// Start a trace span for the test so a configured exporter would show
	// this run the way it shows a production submission.
	traceCtx, span := tracer.Start(ctx, "submission-first-image-test")
	defer span.End()

	files := test.NewFakeFileStore()
	rows := test.NewFakeRowStore()
	pipeline := newTestPipeline(files, rows, &test.StubProber{})

	submission := test.GetTestImageSubmission()
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(traceCtx)
	chainCtx.Add(commands.SubmissionParam, submission)

	// Execute the entire submission workflow.
	pipeline.Execute(chainCtx)

	// Print any recorded errors for debugging before asserting on them.
	for k, err := range chainCtx.GetErrors() {
		fmt.Printf("Error: (%s): %v\n", k, err)
	}
	if chainCtx.HasErrors() {
		span.SetStatus(codes.Error, "failed to execute first image submission")
	}
	assert.False(t, chainCtx.HasErrors())

	// The workflow publishes the committed record both by name and as the
	// piped output, and the first image record is fully determined.
	record := chainCtx.Get(commands.RecordParam).(*model.Record)
	assert.Equal(t, model.GetExampleRecord(), record)
	assert.Same(t, record, chainCtx.Get(cor.CtxOut))

	// Exactly one metadata row landed, in the image tab.
	assert.Equal(t, []string{"img_1"}, rows.IdsInTab(model.KindImage.TabName()))
	assert.Equal(t, 1, rows.RowCount(model.KindVideo.TabName()))

	// The object pair landed in the resolved folders, named by the
	// identifier rather than by the original file names.
	folders := chainCtx.Get(commands.FolderSetParam).(*model.FolderSet)
	assert.Equal(t, []string{"img_1.jpg"}, files.ObjectNames(folders.Images))
	assert.Equal(t, []string{"img_1.mp3"}, files.ObjectNames(folders.ImageAudio))
	assert.Equal(t, 2, files.ObjectCount())

	span.SetStatus(codes.Ok, "passed - first image submission")
	log.Println(chainCtx.Get(commands.RecordParam))
}

// TestSubmissionSequentialIdentifiers verifies that serial submissions
// through one pipeline take consecutive identifiers, that the image and
// video sequences are independent, and that the folder structure is built
// once and reused.
func TestSubmissionSequentialIdentifiers(t *testing.T) {
	files := test.NewFakeFileStore()
	rows := test.NewFakeRowStore()
	pipeline := newTestPipeline(files, rows, &test.StubProber{})

	first := runSubmission(pipeline, test.GetTestImageSubmission())
	second := runSubmission(pipeline, test.GetTestImageSubmission())
	third := runSubmission(pipeline, test.GetTestVideoSubmission())

	assert.False(t, first.HasErrors())
	assert.False(t, second.HasErrors())
	assert.False(t, third.HasErrors())

	assert.Equal(t, "img_1", first.Get(commands.RecordParam).(*model.Record).Id)
	assert.Equal(t, "img_2", second.Get(commands.RecordParam).(*model.Record).Id)
	assert.Equal(t, "vid_1", third.Get(commands.RecordParam).(*model.Record).Id)

	assert.Equal(t, []string{"img_1", "img_2"}, rows.IdsInTab(model.KindImage.TabName()))
	assert.Equal(t, []string{"vid_1"}, rows.IdsInTab(model.KindVideo.TabName()))

	// The memoized resolver built the team root and its four children on
	// the first run only.
	assert.Equal(t, 5, files.CreateCalls)
}

// TestSubmissionReusesProvisionedFolders verifies that a structure an
// administrator provisioned by hand is found and used as is.
func TestSubmissionReusesProvisionedFolders(t *testing.T) {
	files := test.NewFakeFileStore()
	parent := files.AddFolder("", config.Collection.ParentFolderName)
	images := files.AddFolder(parent, model.KindImage.MediaFolderName())
	files.AddFolder(parent, model.KindVideo.MediaFolderName())
	imageAudio := files.AddFolder(parent, model.KindImage.AudioFolderName())
	files.AddFolder(parent, model.KindVideo.AudioFolderName())
	rows := test.NewFakeRowStore()
	pipeline := newTestPipeline(files, rows, &test.StubProber{})

	chainCtx := runSubmission(pipeline, test.GetTestImageSubmission())

	assert.False(t, chainCtx.HasErrors())
	assert.Equal(t, 0, files.CreateCalls)
	assert.Equal(t, []string{"img_1.jpg"}, files.ObjectNames(images))
	assert.Equal(t, []string{"img_1.mp3"}, files.ObjectNames(imageAudio))
}

// TestSubmissionRejectsLongVideo verifies that a video outside the duration
// window fails in the validation step before the workflow touches either
// store.
func TestSubmissionRejectsLongVideo(t *testing.T) {
	files := test.NewFakeFileStore()
	rows := test.NewFakeRowStore()
	prober := &test.StubProber{Durations: map[string]time.Duration{
		"market.mp4": 12 * time.Second,
	}}
	pipeline := newTestPipeline(files, rows, prober)

	chainCtx := runSubmission(pipeline, test.GetTestVideoSubmission())

	err := cor.FirstError(chainCtx)
	assert.ErrorIs(t, err, model.ErrDurationOutOfRange)
	assert.Equal(t, model.StepValidation, model.FailingStep(err))

	// No uploads, no identifier reads, no rows.
	assert.Equal(t, 0, files.UploadCalls)
	assert.Equal(t, 0, rows.ReadColumnCalls)
	assert.Equal(t, 1, rows.RowCount(model.KindVideo.TabName()))
	assert.Nil(t, chainCtx.Get(commands.RecordParam))
	assert.Nil(t, chainCtx.Get(cor.CtxOut))
}

// TestSubmissionCompensatesFailedAudioUpload verifies the saga's core
// guarantee: when the audio half of the pair cannot be written, the already
// uploaded media object is deleted, and the run surfaces as an upload-step
// failure with nothing left in either store.
func TestSubmissionCompensatesFailedAudioUpload(t *testing.T) {
	files := test.NewFakeFileStore()
	files.UploadErr = func(name string) error {
		if name == "img_1.mp3" {
			return errors.New("insufficient storage for object")
		}
		return nil
	}
	rows := test.NewFakeRowStore()
	pipeline := newTestPipeline(files, rows, &test.StubProber{})

	chainCtx := runSubmission(pipeline, test.GetTestImageSubmission())

	err := cor.FirstError(chainCtx)
	assert.ErrorIs(t, err, model.ErrTransferFailed)
	assert.Equal(t, model.StepUpload, model.FailingStep(err))

	// The media object went up and was compensated away again.
	assert.Equal(t, 0, files.ObjectCount())
	assert.Equal(t, 1, files.DeleteCalls)
	assert.Equal(t, 1, rows.RowCount(model.KindImage.TabName()))
	assert.Nil(t, chainCtx.Get(commands.RecordParam))
}

// TestSubmissionAppendFailureCompensatesPair verifies compensation at the
// commit point: when the metadata append itself fails for a reason other
// than a claimed identifier, both uploaded objects are deleted and the run
// surfaces as a log-step failure with no row written and no retry.
func TestSubmissionAppendFailureCompensatesPair(t *testing.T) {
	errWriteDown := errors.New("append rejected")
	files := test.NewFakeFileStore()
	rows := test.NewFakeRowStore()
	rows.AppendErr = func(string, []string) error { return errWriteDown }
	pipeline := newTestPipeline(files, rows, &test.StubProber{})

	chainCtx := runSubmission(pipeline, test.GetTestImageSubmission())

	err := cor.FirstError(chainCtx)
	assert.ErrorIs(t, err, model.ErrAppendFailed)
	assert.ErrorIs(t, err, errWriteDown)
	assert.Equal(t, model.StepLog, model.FailingStep(err))

	// Both halves of the pair were uploaded and compensated away; the tab
	// still holds only its header.
	assert.Equal(t, 0, files.ObjectCount())
	assert.Equal(t, 2, files.DeleteCalls)
	assert.Equal(t, 1, rows.RowCount(model.KindImage.TabName()))
	assert.Nil(t, chainCtx.Get(commands.RecordParam))

	// A failed write is not a claimed identifier, so the run does not
	// burn further attempts: two allocator reads and one append re-check.
	assert.Equal(t, 3, rows.ReadColumnCalls)
	assert.Equal(t, 1, rows.AppendCalls)
}

// TestSubmissionReallocatesClaimedIdentifier drives the one recoverable
// race: a concurrent submission claims img_1 after this run allocated it
// and before its append re-read. The run must clean up its first attempt's
// uploads, reallocate, and commit as img_2, leaving exactly one row per
// identifier and no orphan objects.
func TestSubmissionReallocatesClaimedIdentifier(t *testing.T) {
	traceCtx, span := tracer.Start(ctx, "submission-reallocation-test")
	defer span.End()

	files := test.NewFakeFileStore()
	rows := test.NewFakeRowStore()
	// Reads 1 and 2 belong to this run's allocator. Read 3 is the append
	// command's duplicate check; landing the rival row just before it
	// simulates the claim inside the allocate-to-append window.
	rows.BeforeReadColumn = func(store *test.FakeRowStore, tab string, call int) {
		if call == 3 {
			store.SeedRow(tab, []string{"img_1", "Images/img_1.jpg", "m", "s", "a", "Food"})
		}
	}
	pipeline := newTestPipeline(files, rows, &test.StubProber{})

	submission := test.GetTestImageSubmission()
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(traceCtx)
	chainCtx.Add(commands.SubmissionParam, submission)

	pipeline.Execute(chainCtx)

	for k, err := range chainCtx.GetErrors() {
		fmt.Printf("Error: (%s): %v\n", k, err)
	}
	if chainCtx.HasErrors() {
		span.SetStatus(codes.Error, "failed to execute reallocation run")
	}
	assert.False(t, chainCtx.HasErrors())

	// The run committed under the next free identifier.
	record := chainCtx.Get(commands.RecordParam).(*model.Record)
	assert.Equal(t, "img_2", record.Id)
	assert.Equal(t, "Images/img_2.jpg", record.FileLink)

	// One row per identifier, no double booking.
	assert.Equal(t, []string{"img_1", "img_2"}, rows.IdsInTab(model.KindImage.TabName()))

	// The first attempt's pair was compensated; only the committed pair
	// remains.
	folders := chainCtx.Get(commands.FolderSetParam).(*model.FolderSet)
	assert.Equal(t, []string{"img_2.jpg"}, files.ObjectNames(folders.Images))
	assert.Equal(t, []string{"img_2.mp3"}, files.ObjectNames(folders.ImageAudio))
	assert.Equal(t, 2, files.DeleteCalls)

	// Two allocator reads and a failed append read, then two allocator
	// reads and the committing append read.
	assert.Equal(t, 6, rows.ReadColumnCalls)

	span.SetStatus(codes.Ok, "passed - reallocation run")
}

// TestSubmissionConflictExhaustsAttempts verifies the attempt budget: when a
// rival claims every identifier this run allocates, the workflow gives up
// after the configured number of attempts with fully compensated stores.
func TestSubmissionConflictExhaustsAttempts(t *testing.T) {
	files := test.NewFakeFileStore()
	rows := test.NewFakeRowStore()
	// Each attempt reads three times (two allocator reads, one append
	// re-check). Seeding the just-allocated id at every third read makes
	// every append find its identifier claimed.
	rows.BeforeReadColumn = func(store *test.FakeRowStore, tab string, call int) {
		if call%3 == 0 {
			id := fmt.Sprintf("img_%d", call/3)
			store.SeedRow(tab, []string{id, "Images/" + id + ".jpg", "m", "s", "a", "Food"})
		}
	}
	pipeline := newTestPipeline(files, rows, &test.StubProber{})

	chainCtx := runSubmission(pipeline, test.GetTestImageSubmission())

	err := cor.FirstError(chainCtx)
	assert.ErrorIs(t, err, model.ErrDuplicateIdentifier)
	assert.Equal(t, model.StepLog, model.FailingStep(err))
	assert.Nil(t, chainCtx.Get(commands.RecordParam))

	// Every attempt uploaded a pair and compensated it away again.
	attempts := config.Retry.MaxCommitAttempts
	assert.Equal(t, 0, files.ObjectCount())
	assert.Equal(t, 2*attempts, files.DeleteCalls)
	assert.Equal(t, 3*attempts, rows.ReadColumnCalls)
}

// TestSubmissionAllocationFailureSurfaces verifies that a row store outage
// during allocation surfaces as an allocation-step failure after a single
// attempt, before anything is uploaded.
func TestSubmissionAllocationFailureSurfaces(t *testing.T) {
	errReadDown := errors.New("worksheet is offline")
	files := test.NewFakeFileStore()
	rows := test.NewFakeRowStore()
	rows.ReadErr = func(string) error { return errReadDown }
	pipeline := newTestPipeline(files, rows, &test.StubProber{})

	chainCtx := runSubmission(pipeline, test.GetTestImageSubmission())

	err := cor.FirstError(chainCtx)
	assert.ErrorIs(t, err, errReadDown)
	assert.Equal(t, model.StepAllocation, model.FailingStep(err))
	assert.Equal(t, 0, files.UploadCalls)
	assert.Equal(t, 0, files.DeleteCalls)
}

// TestSubmissionWithoutInput verifies that a run with no submission on the
// context fails validation without touching either store.
func TestSubmissionWithoutInput(t *testing.T) {
	files := test.NewFakeFileStore()
	rows := test.NewFakeRowStore()
	pipeline := newTestPipeline(files, rows, &test.StubProber{})

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	pipeline.Execute(chainCtx)

	err := cor.FirstError(chainCtx)
	assert.ErrorIs(t, err, model.ErrIncompleteSubmission)
	assert.Equal(t, model.StepValidation, model.FailingStep(err))
	assert.Equal(t, 0, files.ListCalls)
	assert.Equal(t, 0, rows.ReadColumnCalls)
}
