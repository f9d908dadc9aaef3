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

// Package services_test contains the test suite for the services package.
// This file tests the RecordService, the read side of the collection: per
// kind listings tolerant of hand-edited rows, and the dashboard summary.
package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sudan-mm/gcp-go-media-collector/internal/core/model"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/services"
	test "github.com/sudan-mm/gcp-go-media-collector/internal/testutil"
	"github.com/zeebo/assert"
)

// seedVideoRow plants a complete video record row in the video tab.
func seedVideoRow(rows *test.FakeRowStore, id string) {
	record := model.Record{
		Id:              id,
		FileLink:        "Videos/" + id + ".mp4",
		MsaCaption:      "A minibus waiting at the station",
		SudaneseCaption: "Hafla wagfa fi al-mahatta",
		AudioFileLink:   "Video_Audio_Transcriptions/" + id + ".mp3",
		Category:        "Transportation",
	}
	rows.SeedRow(model.KindVideo.TabName(), record.ToRow())
}

// TestRecordServiceList verifies the listing contract: rows come back in
// order as parsed records, while the header, hand-typed junk, and rows of
// the other kind are silently skipped.
//
// Inputs:
//   - t: The testing framework's test handler.
func TestRecordServiceList(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rows := test.NewFakeRowStore()
	imageTab := model.KindImage.TabName()

	// Two real records, surrounded by the debris a shared spreadsheet
	// accumulates: a note typed under the table, a blank-ish row, and a
	// video row pasted into the wrong tab.
	rows.SeedRow(imageTab, model.GetExampleRecord().ToRow())
	rows.SeedRow(imageTab, []string{"totals below", "", "", "", "", ""})
	rows.SeedRow(imageTab, []string{"   "})
	rows.SeedRow(imageTab, []string{"vid_9", "Videos/vid_9.mp4", "m", "s", "a", "Transportation"})
	rows.SeedRow(imageTab, []string{"img_2", "Images/img_2.png", "m", "s", "Image_Audio_Transcriptions/img_2.mp3", "Food"})

	service := &services.RecordService{Rows: rows, SpreadsheetId: rows.Id, TeamName: "Khartoum North"}

	out, err := service.List(ctx, model.KindImage)
	assert.Nil(t, err)
	assert.Equal(t, 2, len(out))
	assert.DeepEqual(t, model.GetExampleRecord(), out[0])
	assert.Equal(t, "img_2", out[1].Id)

	// The video tab holds nothing yet.
	count, err := service.Count(ctx, model.KindVideo)
	assert.Nil(t, err)
	assert.Equal(t, 0, count)
}

// TestRecordServiceListSurfacesReadFailure verifies that a store outage is
// returned to the caller rather than flattened into an empty listing.
func TestRecordServiceListSurfacesReadFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rows := test.NewFakeRowStore()
	rows.ReadErr = func(string) error { return errors.New("tab read refused") }
	service := &services.RecordService{Rows: rows, SpreadsheetId: rows.Id, TeamName: "Khartoum North"}

	out, err := service.List(ctx, model.KindImage)
	assert.NotNil(t, err)
	assert.Nil(t, out)
}

// TestRecordServiceStats verifies the dashboard summary across both tabs.
func TestRecordServiceStats(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rows := test.NewFakeRowStore()
	rows.SeedRow(model.KindImage.TabName(), model.GetExampleRecord().ToRow())
	rows.SeedRow(model.KindImage.TabName(), []string{"img_2", "Images/img_2.jpg", "m", "s", "Image_Audio_Transcriptions/img_2.mp3", "Food"})
	seedVideoRow(rows, "vid_1")

	service := &services.RecordService{Rows: rows, SpreadsheetId: rows.Id, TeamName: "Khartoum North"}

	stats, err := service.Stats(ctx)
	assert.Nil(t, err)
	assert.DeepEqual(t, &services.CollectionStats{
		Team:   "Khartoum North",
		Images: 2,
		Videos: 1,
		Total:  3,
	}, stats)
}
