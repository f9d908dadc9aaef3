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
// well-known context parameter names the submission commands share. Commands
// publish under these keys in addition to the chain's positional output key,
// so a value survives the chain's output-to-input flipping and stays
// addressable by name for the whole workflow run. The orchestrator copies
// exactly these keys into the scoped context it creates per commit attempt.
package commands

const (
	// SubmissionParam holds the *model.Submission being processed.
	SubmissionParam = "__SUBMISSION__"
	// FolderSetParam holds the resolved *model.FolderSet.
	FolderSetParam = "__FOLDER_SET__"
	// IdentifierParam holds the allocated *model.Identifier.
	IdentifierParam = "__IDENTIFIER__"
	// MediaObjectParam holds the file-store id of the uploaded media object.
	MediaObjectParam = "__MEDIA_OBJECT_ID__"
	// AudioObjectParam holds the file-store id of the uploaded audio object.
	AudioObjectParam = "__AUDIO_OBJECT_ID__"
	// RecordParam holds the *model.Record after a successful append.
	RecordParam = "__RECORD__"
)
