// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// *****************************************************************************************************//
// Package main is the entry point for the media collection backend server.
//
// This application sets up and runs a web server using the Gin framework. It provides a REST API
// for submitting captioned media (an image or short video paired with a spoken-caption audio file)
// and for reading back the collected metadata. The server is instrumented with OpenTelemetry for
// logging, tracing, and metrics, providing observability into the application's performance.
//
// The main function initializes the application's configuration, sets up logging and telemetry,
// and initializes the application state, including the Drive and Sheets clients, the destination
// folder tree, and the metadata spreadsheet. It defines API routes for submitting media pairs,
// listing persisted records, and reading the category catalogue.
//
// Functions:
//   - main: The main entry point of the application. It sets up the server, configures routes,
//     initializes services, and handles graceful shutdown.
//   - SubmissionRouter: Configures the API endpoint for handling multipart/form-data submissions,
//     running each one through the validation and commit pipeline.
//   - RecordRouter: Sets up the read-side API routes, such as listing records per media kind
//     and retrieving the category catalogue.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/sudan-mm/gcp-go-media-collector/internal/core/model"
	"github.com/sudan-mm/gcp-go-media-collector/internal/telemetry"
)

// main is the primary entry point for the application.
// It orchestrates the setup of logging, telemetry, configuration, cloud services,
// the web server, and API routes. It also handles graceful shutdown of the server
// upon receiving an interrupt signal.
func main() {
	// Initialize structured logging for the application.
	telemetry.SetupLogging()
	slog.Info("Logging initialized")

	// Create a new context that can be cancelled. This is the root context for the application.
	ctx, cancel := context.WithCancel(context.Background())
	// Defer the cancel function to be called when main exits, ensuring all child contexts are cancelled.
	defer cancel()

	// Load application configuration from TOML files.
	config := GetConfig()

	// Initialize OpenTelemetry for distributed tracing and metrics.
	_, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	slog.Info("Tracing initialized")

	// Initialize the application's state, including all necessary service clients.
	InitState(ctx)
	slog.Info("Initialized State")

	// Set up the Gin web server with default middleware.
	r := gin.Default()

	// Add OpenTelemetry middleware to the Gin router to trace incoming requests.
	// This will automatically create spans for each request.
	r.Use(otelgin.Middleware("media-collector-server"))

	// Configure Cross-Origin Resource Sharing (CORS) middleware.
	// Using cors.Default() provides a permissive configuration suitable for development,
	// allowing requests from any origin.
	r.Use(cors.Default())

	// Group routes under the "/api/v1" prefix.
	apiV1 := r.Group("/api/v1")
	{
		// Register the routes for submissions, record queries, and the dashboard.
		SubmissionRouter(apiV1)
		RecordRouter(apiV1)
		Dashboard(apiV1)
	}

	// Configure the HTTP server with the address and handler. The generous
	// read timeout accounts for multipart bodies carrying whole media files.
	addr := ":" + strconv.Itoa(config.Application.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	// Start the HTTP server in a separate goroutine so it doesn't block the main thread.
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to listen: ", "error", err)
		}
	}()
	slog.Info("Server Ready", "addr", addr)

	// Set up a channel to listen for OS interrupt signals (e.g., Ctrl+C).
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	// Block until a signal is received on the quit channel.
	<-quit
	slog.Info("Shutdown Server ...")

	// Create a context with a timeout for the graceful shutdown.
	// This gives active requests 5 seconds to complete.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	// Attempt to gracefully shut down the server.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed:", "error", err)
	}

	log.Println("Server exiting")
}

// SubmissionRouter sets up the API route for submitting a captioned media pair.
//
// Inputs:
//   - r: A *gin.RouterGroup to which the submission route will be added. This allows
//     nesting routes under a common path prefix (e.g., "/api/v1").
//
// Outputs:
//   - This function does not return any values. It registers a POST route on the
//     provided router group.
//
// This function configures a POST endpoint at "/submissions" that accepts
// multipart/form-data with the following parts:
//   - kind: "image" or "video".
//   - media: the image or video file.
//   - audio: the spoken-caption .mp3 file.
//   - msa_caption: the Modern Standard Arabic caption.
//   - sudanese_caption: the Sudanese dialect caption.
//   - category: one of the catalogue categories.
//
// On success it responds 201 with the persisted metadata record. Failures map
// to a status by their cause: rejected input is 400, identifier contention is
// 409, an exhausted API quota is 429, and any other upstream failure is 502.
func SubmissionRouter(r *gin.RouterGroup) {
	// Group the submission route under "/submissions".
	submissions := r.Group("/submissions")
	{
		// Handler for POST /submissions
		submissions.POST("", func(c *gin.Context) {
			// Parse the media kind from the form field.
			kind, err := model.ParseMediaKind(c.PostForm("kind"))
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			// Read both file parts into memory. Submissions are short clips
			// and single images, so whole-body buffering is acceptable here.
			media, err := formBlob(c, "media")
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			audio, err := formBlob(c, "audio")
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			// Assemble the submission from the form fields.
			submission := model.NewSubmission(kind, media, audio,
				c.PostForm("msa_caption"),
				c.PostForm("sudanese_caption"),
				c.PostForm("category"))

			// Run the full pipeline: validate, resolve folders, allocate an
			// identifier, upload the pair, and append the metadata row.
			record, err := state.submissionService.Submit(c.Request.Context(), submission)
			if err != nil {
				c.JSON(statusForError(err), gin.H{
					"error":          err.Error(),
					"correlation_id": submission.CorrelationId,
				})
				return
			}
			// Return the persisted record as JSON.
			c.JSON(http.StatusCreated, record)
		})
	}
}

// RecordRouter sets up the read-side API routes.
//
// Inputs:
//   - r: A *gin.RouterGroup to which the record routes will be added.
//
// Outputs:
//   - This function does not return any values. It modifies the provided *gin.RouterGroup
//     by adding new route handlers.
//
// This function defines the following endpoints:
//   - GET /records?kind=image|video: Lists the persisted metadata records for a media kind.
//   - GET /categories: Returns the category catalogue contributors choose from.
func RecordRouter(r *gin.RouterGroup) {
	// Group all record-related routes under the "/records" path.
	records := r.Group("/records")
	{
		// Handler for GET /records?kind=<image|video>
		records.GET("", func(c *gin.Context) {
			// Get the 'kind' parameter, defaulting to images.
			kind, err := model.ParseMediaKind(c.DefaultQuery("kind", string(model.KindImage)))
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			// Read the rows for the kind's tab.
			out, err := state.recordService.List(c, kind)
			if err != nil {
				log.Printf("Error listing %s records: %v\n", kind, err)
				c.Status(http.StatusInternalServerError)
				return
			}
			// Return the records as a JSON array.
			c.JSON(http.StatusOK, out)
		})
	}

	// Handler for GET /categories
	r.GET("/categories", func(c *gin.Context) {
		c.JSON(http.StatusOK, model.Categories())
	})
}

// formBlob reads one named file part of the multipart form into a blob.
func formBlob(c *gin.Context, field string) (model.Blob, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return model.Blob{}, fmt.Errorf("missing %q file part: %w", field, err)
	}
	file, err := header.Open()
	if err != nil {
		return model.Blob{}, fmt.Errorf("open %q file part: %w", field, err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Printf("failed to close %q file part: %v\n", field, err)
		}
	}()
	content, err := io.ReadAll(file)
	if err != nil {
		return model.Blob{}, fmt.Errorf("read %q file part: %w", field, err)
	}
	return model.NewBlob(header.Filename, content), nil
}

// statusForError maps a submission failure to an HTTP status code.
// Rejected input is the caller's fault, identifier contention is retryable
// by resubmitting, and everything else means an upstream store misbehaved.
func statusForError(err error) int {
	switch {
	case errors.Is(err, model.ErrIncompleteSubmission),
		errors.Is(err, model.ErrUnsupportedFormat),
		errors.Is(err, model.ErrDurationOutOfRange),
		errors.Is(err, model.ErrUnreadableMedia):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrAllocationConflict),
		errors.Is(err, model.ErrDuplicateIdentifier):
		return http.StatusConflict
	case errors.Is(err, model.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}
