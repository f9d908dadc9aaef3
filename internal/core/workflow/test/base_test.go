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
// workflow. This file, `base_test.go`, provides the foundational setup for
// all tests within this package through the special `TestMain` function. The
// suite runs against in-memory stores, so setup stops at configuration and
// logging: no telemetry exporter and no remote clients are initialized, and
// the shared tracer yields no-op spans that keep the test bodies identical
// to traced production flows.
package workflow_test

import (
	"context"
	"os"
	"testing"

	"github.com/sudan-mm/gcp-go-media-collector/internal/cloud"
	"github.com/sudan-mm/gcp-go-media-collector/internal/telemetry"
	test "github.com/sudan-mm/gcp-go-media-collector/internal/testutil"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
)

// Declare global variables to hold shared resources for the test suite.
// These are initialized once in TestMain and can be accessed by other
// test functions in the `workflow_test` package.
var (
	ctx    context.Context // The root context for all tests in the suite.
	config *cloud.Config   // The application configuration loaded from test files.
)

// Constants and global tracers/loggers for telemetry.
const tName = "github.com/sudan-mm/gcp-go-media-collector/tests/workflow"

var (
	tracer = otel.Tracer(tName)
	logger = otelslog.NewLogger(tName)
)

// TestMain is a special function that Go's testing framework executes before
// any other tests in this package. It allows for setting up shared state
// and performing teardown actions after all tests have run.
//
// Inputs:
//   - m: A pointer to testing.M, which provides access to the test suite and
//     allows running the tests via m.Run().
func TestMain(m *testing.M) {
	// ---- Setup Phase ----

	// Create a root context with a cancellation function. `defer cancel()`
	// ensures the context is released when TestMain exits.
	var cancel context.CancelFunc
	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	// Load application configuration. The compiled-in defaults apply when no
	// test override files are present, which keeps the suite hermetic.
	config = test.GetConfig()

	// Initialize structured logging.
	telemetry.SetupLogging()

	logger.Info("completed test setup")

	// ---- Execution Phase ----

	// m.Run() executes all the other TestXxx functions in the package.
	exitCode := m.Run()

	// ---- Teardown Phase ----

	os.Exit(exitCode)
}
