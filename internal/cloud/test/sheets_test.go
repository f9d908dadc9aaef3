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

// This file tests the metadata spreadsheet bootstrap that server startup
// runs: find the spreadsheet by name or create it with its tabs and header
// rows, and file a newly created one under the team root folder.
package cloud_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sudan-mm/gcp-go-media-collector/internal/cloud"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/model"
	test "github.com/sudan-mm/gcp-go-media-collector/internal/testutil"
)

// metadataTabs returns the standard pair of tab names.
func metadataTabs() []string {
	return []string{model.KindImage.TabName(), model.KindVideo.TabName()}
}

// TestEnsureMetadataSpreadsheetCreates verifies the first-run path: no
// spreadsheet exists yet, so one is created with both tabs and their header
// rows and moved under the team root folder.
func TestEnsureMetadataSpreadsheetCreates(t *testing.T) {
	ctx := context.Background()
	files := test.NewFakeFileStore()
	parent := files.AddFolder("", "Sudan-MM-Submission-KhartoumNorth")
	rows := test.NewEmptyFakeRowStore()

	id, err := cloud.EnsureMetadataSpreadsheet(
		ctx, files, rows, "Sudan-MM-Metadata", parent, metadataTabs(), model.RecordHeader)

	assert.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, rows.Id, id)

	// Both tabs exist holding exactly the header row.
	assert.Equal(t, 1, rows.RowCount(model.KindImage.TabName()))
	assert.Equal(t, 1, rows.RowCount(model.KindVideo.TabName()))

	// The new spreadsheet was filed under the team root.
	assert.Equal(t, parent, files.Moves[id])
}

// TestEnsureMetadataSpreadsheetFindsExisting verifies the steady-state path:
// an existing spreadsheet is adopted as is, with any missing tab added.
func TestEnsureMetadataSpreadsheetFindsExisting(t *testing.T) {
	ctx := context.Background()
	files := test.NewFakeFileStore()
	files.Spreadsheets["Sudan-MM-Metadata"] = "sheet-77"

	// The existing spreadsheet has the image tab with a committed row, but
	// the video tab is missing, as an older drop would leave it.
	rows := test.NewEmptyFakeRowStore()
	rows.Id = "sheet-77"
	rows.SeedRow(model.KindImage.TabName(), model.RecordHeader)
	rows.SeedRow(model.KindImage.TabName(), model.GetExampleRecord().ToRow())

	id, err := cloud.EnsureMetadataSpreadsheet(
		ctx, files, rows, "Sudan-MM-Metadata", "folder-9", metadataTabs(), model.RecordHeader)

	assert.NoError(t, err)
	assert.Equal(t, "sheet-77", id)

	// The existing tab and its data survived untouched, the missing tab was
	// added with its header, and nothing was moved anywhere.
	assert.Equal(t, 2, rows.RowCount(model.KindImage.TabName()))
	assert.Equal(t, []string{"img_1"}, rows.IdsInTab(model.KindImage.TabName()))
	assert.Equal(t, 1, rows.RowCount(model.KindVideo.TabName()))
	assert.Empty(t, files.Moves)
}
