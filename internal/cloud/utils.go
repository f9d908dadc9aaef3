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

// Package cloud provides components for interacting with Google services.
// This file contains general-purpose utility functions that support the
// cloud package: hierarchical configuration loading, file system checks, and
// the backoff schedule used by the retrying store wrappers.
//
// Functions:
//   - fileExists: a simple helper to check if a file exists.
//   - LoadConfig: a hierarchical configuration loader. It first reads a base
//     configuration file and then overwrites values with a second,
//     environment-specific file (e.g. .env.local.toml, .env.test.toml). The
//     environment is selected by an environment variable.
//   - BackoffDelay: the jittered exponential backoff schedule for retries.
package cloud

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Cloud constants define the key strings used for configuration loading.
const (
	ConfigFileBaseName  = ".env"              // The base name for configuration files (e.g., ".env.toml").
	ConfigFileExtension = ".toml"             // The file extension for configuration files.
	ConfigSeparator     = "."                 // The separator used in config file names (e.g., ".env.local.toml").
	EnvConfigFilePrefix = "GCP_CONFIG_PREFIX" // The environment variable for specifying the config directory.
	EnvConfigRuntime    = "GCP_RUNTIME"       // The environment variable for specifying the runtime context (e.g., "local", "test", "prod").
)

// fileExists checks if a file or directory exists at the given path.
//
// Inputs:
//   - in: the path to the file or directory as a string.
//
// Outputs:
//   - bool: true if the file exists, false if it does not.
func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// LoadConfig provides hierarchical configuration loading. It first loads a
// base configuration file and then overwrites its values with an
// environment-specific configuration file. The directory and environment are
// selected through the EnvConfigFilePrefix and EnvConfigRuntime variables.
//
// Inputs:
//   - baseConfig: a pointer to the target configuration struct that will be
//     populated from the TOML files.
func LoadConfig(baseConfig interface{}) {
	configurationFilePrefix := os.Getenv(EnvConfigFilePrefix)
	if len(configurationFilePrefix) > 0 && !strings.HasSuffix(configurationFilePrefix, string(os.PathSeparator)) {
		configurationFilePrefix = configurationFilePrefix + string(os.PathSeparator)
	}

	// Default to the test runtime so a bare process never points at a
	// production drop by accident.
	runtimeEnvironment := os.Getenv(EnvConfigRuntime)
	if runtimeEnvironment == "" {
		runtimeEnvironment = "test"
	}

	baseConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigFileExtension
	fmt.Printf("Base Configuration File: %s\n", baseConfigFileName)

	envConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigSeparator + runtimeEnvironment + ConfigFileExtension
	fmt.Printf("Environment Configuration File: %s\n", envConfigFileName)

	if fileExists(baseConfigFileName) {
		_, err := toml.DecodeFile(baseConfigFileName, baseConfig)
		if err != nil {
			log.Fatalf("failed to decode base configuration file %s with error: %s", baseConfigFileName, err)
		}
	}

	// Values in the environment file overwrite the base configuration.
	if fileExists(envConfigFileName) {
		_, err := toml.DecodeFile(envConfigFileName, baseConfig)
		if err != nil {
			log.Fatalf("failed to decode environment configuration file: %s with error: %s", envConfigFileName, err)
		}
	}
}

// BackoffDelay computes the wait before retry number attempt (0-based):
// initial * 2^attempt, capped at the configured maximum, plus up to 25%
// random jitter so concurrent workflows retrying against the same store do
// not fall into lockstep.
//
// Inputs:
//   - attempt: the 0-based index of the attempt that just failed.
//   - retry: the retry policy holding the initial and maximum delays.
//
// Outputs:
//   - time.Duration: the delay to sleep before the next attempt.
func BackoffDelay(attempt int, retry Retry) time.Duration {
	delay := retry.InitialBackoff()
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	for i := 0; i < attempt; i++ {
		delay *= 2
		if limit := retry.MaxBackoff(); limit > 0 && delay >= limit {
			delay = limit
			break
		}
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
	return delay + jitter
}
