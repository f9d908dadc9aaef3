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

// Package commands_test contains unit tests for the workflow commands. This
// file tests the paired upload: both objects landing under the identifier's
// name in the right folders, and the compensating delete that keeps a media
// object from surviving without its audio pair.
package commands_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/commands"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/cor"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/model"
	test "github.com/sudan-mm/gcp-go-media-collector/internal/testutil"
)

// resolvedFolders builds a complete folder set against the fake store so
// uploads have real destination ids to land in.
func resolvedFolders(files *test.FakeFileStore) *model.FolderSet {
	parent := files.AddFolder("", "Sudan-MM-Submission-KhartoumNorth")
	return &model.FolderSet{
		Parent:     parent,
		Images:     files.AddFolder(parent, "Images"),
		Videos:     files.AddFolder(parent, "Videos"),
		ImageAudio: files.AddFolder(parent, "Image_Audio_Transcriptions"),
		VideoAudio: files.AddFolder(parent, "Video_Audio_Transcriptions"),
	}
}

// uploadContext assembles the context the upload command expects: the piped
// identifier plus the submission and folder set under their named keys.
func uploadContext(submission *model.Submission, folders *model.FolderSet, id model.Identifier) cor.Context {
	chainCtx := newCommandContext()
	chainCtx.Add(cor.CtxIn, &id)
	chainCtx.Add(commands.SubmissionParam, submission)
	chainCtx.Add(commands.FolderSetParam, folders)
	return chainCtx
}

// TestUploadPairWritesBothObjects verifies the happy path for an image
// submission: the media object lands in Images, the audio object in
// Image_Audio_Transcriptions, both named after the identifier, with the
// object ids published for later compensation.
func TestUploadPairWritesBothObjects(t *testing.T) {
	files := test.NewFakeFileStore()
	folders := resolvedFolders(files)
	submission := test.GetTestImageSubmission()
	id := model.NewIdentifier(model.KindImage, 1)

	uploader := commands.NewUploadPair("upload", files)
	chainCtx := uploadContext(submission, folders, id)

	assert.True(t, uploader.IsExecutable(chainCtx))
	uploader.Execute(chainCtx)

	assert.False(t, chainCtx.HasErrors())
	assert.Equal(t, []string{"img_1.jpg"}, files.ObjectNames(folders.Images))
	assert.Equal(t, []string{"img_1.mp3"}, files.ObjectNames(folders.ImageAudio))
	assert.NotNil(t, chainCtx.Get(commands.MediaObjectParam))
	assert.NotNil(t, chainCtx.Get(commands.AudioObjectParam))
	// The identifier is passed through for the append command.
	assert.Equal(t, &id, chainCtx.Get(cor.CtxOut))
}

// TestUploadPairVideoFolders verifies the video submission routes to the
// video folders.
func TestUploadPairVideoFolders(t *testing.T) {
	files := test.NewFakeFileStore()
	folders := resolvedFolders(files)
	submission := test.GetTestVideoSubmission()
	id := model.NewIdentifier(model.KindVideo, 3)

	uploader := commands.NewUploadPair("upload", files)
	chainCtx := uploadContext(submission, folders, id)
	uploader.Execute(chainCtx)

	assert.False(t, chainCtx.HasErrors())
	assert.Equal(t, []string{"vid_3.mp4"}, files.ObjectNames(folders.Videos))
	assert.Equal(t, []string{"vid_3.mp3"}, files.ObjectNames(folders.VideoAudio))
	assert.Equal(t, 0, len(files.ObjectNames(folders.Images)))
}

// TestUploadPairMediaFailureLeavesNothing verifies that a failed media
// upload reports a transfer failure with no objects and no object ids left
// behind.
func TestUploadPairMediaFailureLeavesNothing(t *testing.T) {
	files := test.NewFakeFileStore()
	files.UploadErr = func(name string) error {
		if name == "img_1.jpg" {
			return errors.New("connection reset")
		}
		return nil
	}
	folders := resolvedFolders(files)
	submission := test.GetTestImageSubmission()

	uploader := commands.NewUploadPair("upload", files)
	chainCtx := uploadContext(submission, folders, model.NewIdentifier(model.KindImage, 1))
	uploader.Execute(chainCtx)

	assert.ErrorIs(t, cor.FirstError(chainCtx), model.ErrTransferFailed)
	assert.Equal(t, 0, files.ObjectCount())
	assert.Nil(t, chainCtx.Get(commands.MediaObjectParam))
	assert.Nil(t, chainCtx.Get(commands.AudioObjectParam))
}

// TestUploadPairAudioFailureCompensatesMedia verifies the in-command
// compensation: when the audio half fails after the media upload succeeded,
// the media object is deleted and its id withdrawn from the context, so the
// attempt leaves no orphan behind.
func TestUploadPairAudioFailureCompensatesMedia(t *testing.T) {
	files := test.NewFakeFileStore()
	files.UploadErr = func(name string) error {
		if name == "img_1.mp3" {
			return errors.New("connection reset")
		}
		return nil
	}
	folders := resolvedFolders(files)
	submission := test.GetTestImageSubmission()

	uploader := commands.NewUploadPair("upload", files)
	chainCtx := uploadContext(submission, folders, model.NewIdentifier(model.KindImage, 1))
	uploader.Execute(chainCtx)

	assert.ErrorIs(t, cor.FirstError(chainCtx), model.ErrTransferFailed)
	// The compensating delete ran and the store holds nothing.
	assert.Equal(t, 1, files.DeleteCalls)
	assert.Equal(t, 0, files.ObjectCount())
	assert.Nil(t, chainCtx.Get(commands.MediaObjectParam))
}

// TestUploadPairCompensationFailureKeepsObjectId verifies the degraded
// path: when even the compensating delete fails, the media object id stays
// in the context so the orchestrator can retry the delete.
func TestUploadPairCompensationFailureKeepsObjectId(t *testing.T) {
	files := test.NewFakeFileStore()
	files.UploadErr = func(name string) error {
		if name == "img_1.mp3" {
			return errors.New("connection reset")
		}
		return nil
	}
	files.DeleteErr = func(objectId string) error {
		return errors.New("backend unavailable")
	}
	folders := resolvedFolders(files)
	submission := test.GetTestImageSubmission()

	uploader := commands.NewUploadPair("upload", files)
	chainCtx := uploadContext(submission, folders, model.NewIdentifier(model.KindImage, 1))
	uploader.Execute(chainCtx)

	assert.ErrorIs(t, cor.FirstError(chainCtx), model.ErrTransferFailed)
	// The media object survived the failed delete, and its id is still
	// published for a later compensation pass.
	assert.Equal(t, 1, files.ObjectCount())
	assert.NotNil(t, chainCtx.Get(commands.MediaObjectParam))
}

// TestUploadPairPreconditions verifies that the command refuses to run
// without the folder set, the submission, or the piped identifier.
func TestUploadPairPreconditions(t *testing.T) {
	files := test.NewFakeFileStore()
	folders := resolvedFolders(files)
	submission := test.GetTestImageSubmission()
	id := model.NewIdentifier(model.KindImage, 1)
	uploader := commands.NewUploadPair("upload", files)

	missingFolders := newCommandContext()
	missingFolders.Add(cor.CtxIn, &id)
	missingFolders.Add(commands.SubmissionParam, submission)
	assert.False(t, uploader.IsExecutable(missingFolders))

	missingSubmission := newCommandContext()
	missingSubmission.Add(cor.CtxIn, &id)
	missingSubmission.Add(commands.FolderSetParam, folders)
	assert.False(t, uploader.IsExecutable(missingSubmission))

	missingIdentifier := newCommandContext()
	missingIdentifier.Add(commands.SubmissionParam, submission)
	missingIdentifier.Add(commands.FolderSetParam, folders)
	assert.False(t, uploader.IsExecutable(missingIdentifier))
}
