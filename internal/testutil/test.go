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

// Package test provides utility functions and mock data to support the
// application's test suite. It helps in setting up a consistent test
// environment, loading test-specific configurations, and providing sample
// submissions for workflow and service tests.
package test

import (
	"log"
	"os"
	"testing"

	"github.com/sudan-mm/gcp-go-media-collector/internal/cloud"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/model"
)

// StateManager acts as a simple in-memory cache for the application
// configuration during test runs, so the TOML files are parsed once per
// suite instead of once per test.
type StateManager struct {
	config *cloud.Config
}

// state holds the singleton StateManager for the package.
var state = &StateManager{}

// HandleErr fails the test when err is non-nil. A convenience to keep
// error-checking boilerplate out of test bodies.
//
// Inputs:
//   - err: The error to check.
//   - t: The *testing.T object from the current test.
func HandleErr(err error, t *testing.T) {
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// GetTestImageSubmission returns a structurally valid image submission with
// sniffable blob content. Tests mutate the returned value per case.
//
// Returns:
//   - A pointer to a fresh image Submission.
func GetTestImageSubmission() *model.Submission {
	return model.GetExampleSubmission()
}

// GetTestVideoSubmission returns a structurally valid video submission with
// sniffable blob content. The stub prober decides its duration; the bytes
// themselves carry only the mp4 signature.
//
// Returns:
//   - A pointer to a fresh video Submission.
func GetTestVideoSubmission() *model.Submission {
	return model.NewSubmission(
		model.KindVideo,
		model.NewBlob("market.mp4", model.ExampleMp4()),
		model.NewBlob("market_caption.mp3", model.ExampleMp3()),
		"A crowded vegetable market at noon",
		"Suug al-khudaar zaahim fi nus an-nahaar",
		"Marketplaces",
	)
}

// SetupOS configures the environment variables the configuration loader
// depends on, pointing it at the test configuration files
// (configs/.env.toml overlaid with configs/.env.test.toml).
//
// Returns:
//   - An error if setting any environment variable fails.
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "test")
	return err
}

// GetConfig is a singleton accessor for the test configuration. The TOML
// files load on first call and later calls serve the cached struct.
//
// Returns:
//   - A pointer to the loaded and cached cloud.Config struct.
func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}
