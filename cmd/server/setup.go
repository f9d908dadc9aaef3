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

// Package main contains the setup and initialization logic for the application's state.
// This file is responsible for creating and managing a centralized state manager
// that holds all shared dependencies, such as configuration, Google Workspace service
// clients, and application-level services for submissions and record queries.
//
// It ensures that the application is configured correctly based on the environment,
// initializes the Drive and Sheets clients, resolves the destination folder tree,
// and prepares the metadata spreadsheet before the first request arrives.
//
// Functions:
//   - SetupOS: Configures necessary environment variables for the application,
//     pointing to the correct configuration files.
//   - GetConfig: A singleton function that loads the application's configuration
//     from TOML files. It ensures the configuration is loaded only once.
//   - InitState: The core initialization function that creates all service clients,
//     resolves the Drive folders, ensures the metadata spreadsheet exists, and
//     wires the submission pipeline and services together.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/sudan-mm/gcp-go-media-collector/internal/cloud"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/commands"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/model"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/services"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/workflow"
)

// StateManager holds all the shared dependencies for the application, acting as a
// centralized container for service clients and configurations. This avoids the
// need for global variables and makes dependency management cleaner.
type StateManager struct {
	config            *cloud.Config
	cloud             *cloud.ServiceClients
	folders           *model.FolderSet
	spreadsheetId     string
	submissionService *services.SubmissionService
	recordService     *services.RecordService
}

// state is a package-level variable that holds the single instance of StateManager.
var state = &StateManager{}

// SetupOS sets the necessary environment variables that the configuration loader
// uses to find the correct TOML files.
//
// This function sets the prefix for the configuration directory and specifies
// the runtime environment (e.g., "local", "test", "prod"), allowing for
// environment-specific overrides of the base configuration.
//
// Outputs:
//   - error: An error if setting any of the environment variables fails.
func SetupOS() (err error) {
	// Set the directory where configuration files are located.
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	// Set the current runtime environment to "local". The config loader will
	// look for a ".env.local.toml" file to override base settings.
	err = os.Setenv(cloud.EnvConfigRuntime, "local")
	return err
}

// GetConfig provides a singleton instance of the application configuration.
// It ensures that the configuration is loaded from the file system only once.
// On the first call, it sets up the OS environment and loads the configuration
// from the TOML files. Subsequent calls return the cached configuration.
//
// Outputs:
//   - *cloud.Config: A pointer to the loaded application configuration struct.
func GetConfig() *cloud.Config {
	// If the config has not been loaded yet...
	if state.config == nil {
		// Set up the environment variables required for config loading.
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup os environment: %v\n", err)
		}
		// Create a new, empty config struct.
		config := cloud.NewConfig()
		// Load the configuration from the .toml files into the struct.
		cloud.LoadConfig(&config)
		// Store the loaded config in the state manager.
		state.config = config
	}
	// Return the cached config.
	return state.config
}

// InitState initializes the entire application state.
// It orchestrates the creation of all necessary services and clients based on the
// application configuration and wires them together.
//
// Inputs:
//   - ctx: The root context.Context for the application, used for managing
//     the lifecycle of client connections and startup calls.
//
// This function performs the following steps:
//  1. Loads the application configuration.
//  2. Initializes the Drive and Sheets service clients.
//  3. Resolves (or creates) the team root folder and the four destination folders.
//  4. Finds or creates the metadata spreadsheet under the team root and makes
//     sure both tabs exist with their header rows.
//  5. Builds the submission pipeline and the services the API routes call.
func InitState(ctx context.Context) {
	// Get the application configuration.
	config := GetConfig()

	// Initialize the Google Workspace service clients.
	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	// Store the initialized clients in the global state.
	state.cloud = cloudClients

	// Resolve the destination folder tree up front. The resolver memoizes the
	// result, so the submission pipeline reuses these ids instead of paying
	// for folder lookups on each request.
	resolver := commands.NewResolveFolders(workflow.ResolveCommandName, cloudClients.Files, config.Collection)
	folders, err := resolver.Resolve(ctx)
	if err != nil {
		panic(err)
	}
	state.folders = folders

	// Find or create the metadata spreadsheet under the team root, with one
	// tab per media kind and the header row in place.
	tabs := []string{model.KindImage.TabName(), model.KindVideo.TabName()}
	spreadsheetId, err := cloud.EnsureMetadataSpreadsheet(
		ctx, cloudClients.Files, cloudClients.Rows,
		config.Collection.SpreadsheetName, folders.Parent, tabs, model.RecordHeader)
	if err != nil {
		panic(err)
	}
	state.spreadsheetId = spreadsheetId

	// Build the submission pipeline: validate, resolve, then the bounded
	// allocate-upload-append commit loop.
	prober := commands.NewFFProbe(config.Validation.FFProbeCommand)
	pipeline := workflow.NewSubmissionPipeline(config, cloudClients, spreadsheetId, prober, resolver)

	// Initialize the services the API routes depend on.
	state.submissionService = services.NewSubmissionService(config, pipeline)
	state.recordService = &services.RecordService{
		Rows:          cloudClients.Rows,
		SpreadsheetId: spreadsheetId,
		TeamName:      config.Collection.TeamName,
	}

	slog.Info("application state ready",
		"parent_folder_id", folders.Parent,
		"spreadsheet_id", spreadsheetId)
}
