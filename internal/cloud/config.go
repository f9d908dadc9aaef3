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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files, and the clients and store implementations for the
// two external collaborators (the Drive file store and the Sheets metadata
// store).
//
// This file centralizes all configuration-related structs.
//
// Structs:
//   - Collection: names of the team parent folder and the metadata spreadsheet.
//   - Validation: duration bounds and the ffprobe binary used for probing.
//   - Retry: bounded retry and backoff settings for remote calls and commits.
//   - Quotas: client-side request rate caps per store.
//   - Config: the top-level struct aggregating the above.
//
// Functions:
//   - NewConfig: a constructor that applies the compiled-in defaults.
package cloud

import "time"

// Collection holds the identity of the data-collection drop: which parent
// folder the four destination folders live under and which spreadsheet the
// metadata tabs belong to. When ParentFolderId is set, the folder is used
// as-is after an access check; otherwise ParentFolderName is resolved or
// created at the Drive root.
type Collection struct {
	TeamName         string `toml:"team_name"`          // Display name of the contributing team.
	ParentFolderName string `toml:"parent_folder_name"` // Name of the team root folder to resolve or create.
	ParentFolderId   string `toml:"parent_folder_id"`   // Optional pre-provisioned parent folder id.
	SpreadsheetName  string `toml:"spreadsheet_name"`   // Name of the metadata spreadsheet.
}

// Validation holds the media acceptance bounds. Durations are seconds.
type Validation struct {
	VideoMinSeconds float64 `toml:"video_min_seconds"` // Minimum accepted video duration.
	VideoMaxSeconds float64 `toml:"video_max_seconds"` // Maximum accepted video duration.
	AudioMinSeconds float64 `toml:"audio_min_seconds"` // Minimum accepted audio duration.
	AudioMaxSeconds float64 `toml:"audio_max_seconds"` // Maximum accepted audio duration.
	FFProbeCommand  string  `toml:"ffprobe_command"`   // Path to the ffprobe binary used for duration probing.
}

// Retry holds the bounded-retry policy for remote calls and the commit loop.
type Retry struct {
	MaxAttempts          int `toml:"max_attempts"`           // Attempts per remote call before a transient failure becomes permanent.
	InitialBackoffMillis int `toml:"initial_backoff_millis"` // First backoff delay; doubles per attempt.
	MaxBackoffMillis     int `toml:"max_backoff_millis"`     // Cap on the backoff delay.
	MaxCommitAttempts    int `toml:"max_commit_attempts"`    // Allocate-upload-append attempts per submission before giving up on duplicate ids.
}

// InitialBackoff returns the first backoff delay as a duration.
func (r Retry) InitialBackoff() time.Duration {
	return time.Duration(r.InitialBackoffMillis) * time.Millisecond
}

// MaxBackoff returns the backoff cap as a duration.
func (r Retry) MaxBackoff() time.Duration {
	return time.Duration(r.MaxBackoffMillis) * time.Millisecond
}

// Quotas holds the client-side request rate caps, in requests per second,
// applied before any call reaches the Google APIs. These keep one busy
// collection drive from consuming the per-user API quota.
type Quotas struct {
	DriveRequestsPerSecond  int `toml:"drive_requests_per_second"`  // Rate cap for Drive calls.
	SheetsRequestsPerSecond int `toml:"sheets_requests_per_second"` // Rate cap for Sheets calls.
}

// Config represents the overall configuration for the application, loaded
// from TOML files. It acts as the root container for the section structs.
type Config struct {
	// Application holds general application settings.
	Application struct {
		Name                     string `toml:"name"`                       // The name of the application.
		GoogleProjectId          string `toml:"google_project_id"`          // The Google Cloud project ID.
		GoogleLocation           string `toml:"location"`                   // The Google Cloud location.
		CredentialsFile          string `toml:"credentials_file"`           // Optional service-account key file; empty uses application default credentials.
		MaxConcurrentSubmissions int    `toml:"max_concurrent_submissions"` // Cap on in-flight submission workflows.
		Port                     int    `toml:"port"`                       // HTTP listen port.
	} `toml:"application"`
	Collection Collection `toml:"collection"` // Team folder and spreadsheet identity.
	Validation Validation `toml:"validation"` // Media acceptance bounds.
	Retry      Retry      `toml:"retry"`      // Remote call and commit retry policy.
	Quotas     Quotas     `toml:"quotas"`     // Client-side rate caps.
}

// NewConfig creates a Config instance carrying the compiled-in defaults.
// The TOML loader decodes over these, so a sparse config file only has to
// name the values it changes.
//
// Outputs:
//   - *Config: a pointer to a new Config struct with defaults applied.
func NewConfig() *Config {
	c := &Config{}
	c.Application.Name = "media-collector"
	c.Application.MaxConcurrentSubmissions = 8
	c.Application.Port = 8080
	c.Collection.ParentFolderName = "Sudan-MM-Submission-DefaultTeam"
	c.Collection.SpreadsheetName = "Sudan-MM-Metadata"
	c.Validation.VideoMinSeconds = 3.0
	c.Validation.VideoMaxSeconds = 10.0
	c.Validation.AudioMinSeconds = 5.0
	c.Validation.AudioMaxSeconds = 15.0
	c.Validation.FFProbeCommand = "/usr/bin/ffprobe"
	c.Retry.MaxAttempts = 5
	c.Retry.InitialBackoffMillis = 500
	c.Retry.MaxBackoffMillis = 8000
	c.Retry.MaxCommitAttempts = 3
	c.Quotas.DriveRequestsPerSecond = 5
	c.Quotas.SheetsRequestsPerSecond = 2
	return c
}
