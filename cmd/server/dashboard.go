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

// Package main contains the API route definitions for the server. This file
// defines the dashboard endpoint coordinators use to track collection progress.
//
// Functions:
//   - Dashboard: Sets up a route group for statistics-related endpoints,
//     exposing per-kind record counts for the team.
package main

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Dashboard configures the API routes for collection statistics.
// It creates a new route group "/stats" nested under the main API router group.
//
// Inputs:
//   - r: A *gin.RouterGroup to which the new "/stats" route group will be added.
//
// Outputs:
//   - This function does not return any value. It modifies the provided *gin.RouterGroup
//     by adding a new route handler.
//
// The GET endpoint at the root of the "/stats" group (e.g., /api/v1/stats)
// reads both metadata tabs and returns the team name with the image, video,
// and total record counts.
func Dashboard(r *gin.RouterGroup) {
	// Create a new router group for any statistics-related endpoints, prefixed with "/stats".
	stats := r.Group("/stats")
	{
		// Register a handler for a GET request to the "/stats" endpoint.
		stats.GET("", func(c *gin.Context) {
			out, err := state.recordService.Stats(c)
			if err != nil {
				log.Printf("Error computing collection stats: %v\n", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, out)
		})
	}
}
