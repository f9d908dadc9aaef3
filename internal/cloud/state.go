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
// This file is central to the application's architecture, as it's responsible
// for initializing and holding all the client objects needed to communicate
// with Google Workspace services. It acts as a dependency injection
// container, creating a single, shared `ServiceClients` struct that can be
// passed throughout the application.
//
// Logic Flow:
//  1. The `NewCloudServiceClients` function is called at application startup.
//  2. It takes the application's configuration (`Config`) and a `context.Context`.
//  3. It initializes the Drive v3 and Sheets v4 service handles, using the
//     configured service-account key file when one is set and Application
//     Default Credentials otherwise.
//  4. It wraps each service in its store implementation together with a
//     per-service QuotaAwareCaller, so the two APIs are throttled and
//     retried independently.
//  5. All initialized clients and stores are bundled into a single
//     `ServiceClients` struct used by the workflows and API handlers.
//
// Structs:
//   - ServiceClients: A container struct holding the initialized Google
//     service clients and the store interfaces built on them.
//
// Functions:
//   - NewCloudServiceClients: A factory function that creates and configures
//     all necessary Google service clients based on the application's
//     configuration. The underlying clients are plain REST handles with no
//     connections to close, so there is no Close counterpart.
package cloud

import (
	"context"
	"fmt"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ServiceClients is a struct that acts as a central container for all the
// clients that interact with external Google services. This pattern is a form
// of dependency injection, making it easy to manage and share these client
// connections across the entire application. Workflow code should depend on
// the Files and Rows interfaces rather than the raw service handles.
type ServiceClients struct {
	DriveService  *drive.Service  // Client for the Drive v3 API.
	SheetsService *sheets.Service // Client for the Sheets v4 API.
	Files         FileStore       // Drive-backed file store used by the workflows.
	Rows          RowStore        // Sheets-backed row store used by the workflows.
}

// NewCloudServiceClients is a factory function that initializes all required
// Google service clients based on the provided configuration. It serves as
// the main entry point for setting up the application's external
// dependencies.
//
// Inputs:
//   - ctx: The root context.Context for the application, used to manage the lifecycle of the clients.
//   - config: A pointer to the loaded application configuration (`Config`).
//
// Outputs:
//   - *ServiceClients: A pointer to the fully initialized ServiceClients struct.
//   - error: An error if any of the clients fail to initialize.
func NewCloudServiceClients(ctx context.Context, config *Config) (*ServiceClients, error) {
	var opts []option.ClientOption
	if config.Application.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.Application.CredentialsFile))
	}

	driveService, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating drive client: %w", err)
	}

	sheetsService, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets client: %w", err)
	}

	// Each API gets its own limiter so a burst against one cannot starve
	// the other.
	driveCaller := NewQuotaAwareCaller("drive", config.Quotas.DriveRequestsPerSecond, config.Retry)
	sheetsCaller := NewQuotaAwareCaller("sheets", config.Quotas.SheetsRequestsPerSecond, config.Retry)

	return &ServiceClients{
		DriveService:  driveService,
		SheetsService: sheetsService,
		Files:         NewDriveStore(driveService, driveCaller),
		Rows:          NewSheetStore(sheetsService, sheetsCaller),
	}, nil
}
