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
// validation command that gates every submission before any remote call is
// made. A submission rejected here has caused no external side effects, so
// the caller can correct the input and resubmit freely.
//
// Logic Flow:
//  1. Run the structural checks on the submission itself: both files
//     present, captions non-empty, category in the catalogue.
//  2. Check the declared media extension against the kind's whitelist and
//     the audio extension against .mp3.
//  3. Sniff the leading bytes of both files. An unrecognized signature is
//     tolerated (some encoders emit unusual but valid files); a signature
//     that identifies a DIFFERENT format than the declared extension is
//     rejected.
//  4. Probe durations: videos must fall inside the configured video window,
//     audio inside the audio window. Images have no duration. A file whose
//     duration cannot be measured at all is rejected as unreadable.
//
// On success the validated submission is published to the context under
// both the positional output key and SubmissionParam.
package commands

import (
	"fmt"
	"time"

	"github.com/h2non/filetype"
	"github.com/sudan-mm/gcp-go-media-collector/internal/cloud"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/cor"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/model"
)

// ValidateSubmission is the command that applies every input check to a
// submission. It is always the first command of the workflow chain.
type ValidateSubmission struct {
	cor.BaseCommand
	validation cloud.Validation // Duration windows and probe settings.
	prober     DurationProber   // Measures video and audio durations.
}

// NewValidateSubmission is the constructor for the ValidateSubmission command.
//
// Inputs:
//   - name: A string name for this command instance, used for logging and telemetry.
//   - validation: The validation section of the application configuration.
//   - prober: The duration prober to measure media with.
//
// Outputs:
//   - *ValidateSubmission: A pointer to the newly instantiated command.
func NewValidateSubmission(name string, validation cloud.Validation, prober DurationProber) *ValidateSubmission {
	return &ValidateSubmission{
		BaseCommand: *cor.NewBaseCommand(name),
		validation:  validation,
		prober:      prober,
	}
}

// Execute contains the core logic for the command. It applies the checks in
// order and stops at the first failure.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (c *ValidateSubmission) Execute(context cor.Context) {
	submission := context.Get(c.GetInputParam()).(*model.Submission)

	if err := c.validate(context, submission); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(SubmissionParam, submission)
	context.Add(cor.CtxOut, submission)
}

// validate runs every check and returns the first failure.
func (c *ValidateSubmission) validate(context cor.Context, submission *model.Submission) error {
	if err := submission.Validate(); err != nil {
		return err
	}

	if !submission.Kind.AllowsExtension(submission.Media.Extension) {
		return fmt.Errorf("%w: %s file %q has extension %q, allowed: %v",
			model.ErrUnsupportedFormat, submission.Kind, submission.Media.Name,
			submission.Media.Extension, submission.Kind.AllowedExtensions())
	}
	if submission.Audio.Extension != model.AudioExtension {
		return fmt.Errorf("%w: audio file %q has extension %q, allowed: %s",
			model.ErrUnsupportedFormat, submission.Audio.Name,
			submission.Audio.Extension, model.AudioExtension)
	}

	if err := checkSignature(submission.Media); err != nil {
		return err
	}
	if err := checkSignature(submission.Audio); err != nil {
		return err
	}

	if submission.Kind == model.KindVideo {
		duration, err := c.prober.Probe(context.GetContext(), submission.Media)
		if err != nil {
			return err
		}
		if err := checkWindow("video", duration, c.validation.VideoMinSeconds, c.validation.VideoMaxSeconds); err != nil {
			return err
		}
	}

	duration, err := c.prober.Probe(context.GetContext(), submission.Audio)
	if err != nil {
		return err
	}
	return checkWindow("audio", duration, c.validation.AudioMinSeconds, c.validation.AudioMaxSeconds)
}

// checkSignature compares a blob's magic bytes against its declared
// extension. Unknown signatures pass; a recognized signature of another
// format fails.
func checkSignature(blob model.Blob) error {
	kind, err := filetype.Match(blob.Data)
	if err != nil || kind == filetype.Unknown {
		return nil
	}
	sniffed := model.NormalizeExtension(kind.Extension)
	if extensionsEquivalent(blob.Extension, sniffed) {
		return nil
	}
	return fmt.Errorf("%w: file %q declares %q but its content is %q (%s)",
		model.ErrUnsupportedFormat, blob.Name, blob.Extension, sniffed, kind.MIME.Value)
}

// extensionsEquivalent treats .jpg and .jpeg as the same format; every other
// pair must match exactly.
func extensionsEquivalent(declared string, sniffed string) bool {
	if declared == sniffed {
		return true
	}
	jpeg := map[string]bool{".jpg": true, ".jpeg": true}
	return jpeg[declared] && jpeg[sniffed]
}

// checkWindow verifies a measured duration sits inside an inclusive window
// given in seconds.
func checkWindow(label string, duration time.Duration, minSeconds float64, maxSeconds float64) error {
	seconds := duration.Seconds()
	if seconds < minSeconds || seconds > maxSeconds {
		return fmt.Errorf("%w: %s duration %.2fs outside [%.0fs, %.0fs]",
			model.ErrDurationOutOfRange, label, seconds, minSeconds, maxSeconds)
	}
	return nil
}
