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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// paired-upload command: the media object and its spoken-caption audio
// object are written to their destination folders under the allocated
// identifier's name.
//
// Logic Flow:
//  1. Upload the media blob to the kind's media folder as {id}.{ext}.
//  2. Upload the audio blob to the kind's audio folder as {id}.mp3.
//  3. If the audio upload fails after the media upload succeeded, delete
//     the media object before reporting the failure. The metadata row joins
//     the two objects by name only, so a media object without its audio
//     pair must not survive the attempt.
//
// Retries for transient failures happen inside the file store's call
// wrapper; an error surfacing here is final for this attempt. The uploaded
// object ids are published under MediaObjectParam and AudioObjectParam so
// the orchestrator can run compensating deletes if a later step fails.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/sudan-mm/gcp-go-media-collector/internal/cloud"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/cor"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/model"
)

// UploadPair is the command that writes a submission's media and audio
// objects into the resolved destination folders.
type UploadPair struct {
	cor.BaseCommand
	files cloud.FileStore // File store the objects are written to.
}

// NewUploadPair is the constructor for the UploadPair command.
//
// Inputs:
//   - name: A string name for this command instance, used for logging and telemetry.
//   - files: The file store collaborator.
//
// Outputs:
//   - *UploadPair: A pointer to the newly instantiated command.
func NewUploadPair(name string, files cloud.FileStore) *UploadPair {
	return &UploadPair{BaseCommand: *cor.NewBaseCommand(name), files: files}
}

// IsExecutable overrides the default to require the submission and folder
// set alongside the piped identifier.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
//
// Outputs:
//   - bool: True when every input the upload needs is present.
func (c *UploadPair) IsExecutable(context cor.Context) bool {
	return context != nil &&
		context.Get(c.GetInputParam()) != nil &&
		context.Get(SubmissionParam) != nil &&
		context.Get(FolderSetParam) != nil &&
		context.GetContext() != nil
}

// Execute contains the core logic for the command. It uploads the pair and
// compensates the media object when the audio half fails.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (c *UploadPair) Execute(context cor.Context) {
	identifier := context.Get(c.GetInputParam()).(*model.Identifier)
	submission := context.Get(SubmissionParam).(*model.Submission)
	folders := context.Get(FolderSetParam).(*model.FolderSet)

	goCtx := context.GetContext()
	kind := submission.Kind

	mediaName := model.MediaObjectName(*identifier, submission.Media.Extension)
	mediaId, err := c.files.UploadObject(
		goCtx,
		folders.MediaFolderId(kind),
		mediaName,
		model.MimeTypeForExtension(submission.Media.Extension),
		submission.Media.Data)
	if err != nil {
		c.GetErrorCounter().Add(goCtx, 1)
		context.AddError(c.GetName(), fmt.Errorf("%w: media object %s: %w", model.ErrTransferFailed, mediaName, err))
		return
	}
	context.Add(MediaObjectParam, mediaId)

	audioName := model.AudioObjectName(*identifier)
	audioId, err := c.files.UploadObject(
		goCtx,
		folders.AudioFolderId(kind),
		audioName,
		model.MimeTypeForExtension(model.AudioExtension),
		submission.Audio.Data)
	if err != nil {
		// The media object is up but its pair is not. Remove it so the
		// attempt leaves nothing behind.
		if deleteErr := c.files.DeleteObject(goCtx, mediaId); deleteErr != nil {
			slog.Error("compensating delete of media object failed",
				"object", mediaId, "name", mediaName, "error", deleteErr)
		} else {
			context.Remove(MediaObjectParam)
		}
		c.GetErrorCounter().Add(goCtx, 1)
		context.AddError(c.GetName(), fmt.Errorf("%w: audio object %s: %w", model.ErrTransferFailed, audioName, err))
		return
	}
	context.Add(AudioObjectParam, audioId)

	slog.Info("uploaded submission pair",
		"id", identifier.String(),
		"media_object", mediaId,
		"audio_object", audioId,
		"correlation_id", submission.CorrelationId)
	c.GetSuccessCounter().Add(goCtx, 1)
	context.Add(cor.CtxOut, identifier)
}
