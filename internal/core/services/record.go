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

// Package services contains the business logic for interacting with data
// sources. This file defines the RecordService, the read side of the
// collection: listing persisted records per media kind and summarizing the
// collection for the dashboard.
package services

import (
	"context"
	"fmt"

	"github.com/sudan-mm/gcp-go-media-collector/internal/cloud"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/model"
)

// CollectionStats summarizes how much each tab of the collection holds.
type CollectionStats struct {
	Team   string `json:"team"`   // Display name of the contributing team.
	Images int    `json:"images"` // Number of persisted image records.
	Videos int    `json:"videos"` // Number of persisted video records.
	Total  int    `json:"total"`  // Images plus videos.
}

// RecordService reads persisted records back out of the metadata store.
type RecordService struct {
	Rows          cloud.RowStore // Row store holding the metadata tabs.
	SpreadsheetId string         // Id of the metadata spreadsheet.
	TeamName      string         // Reported in stats responses.
}

// List returns every record of the kind's tab in row order. The header row
// and any row whose id cell does not parse as the kind's identifier are
// skipped, so hand-edited or partially written rows degrade to omissions
// rather than failures.
//
// Inputs:
//   - ctx: The context for the request, used for cancellation, deadlines, and tracing.
//   - kind: The media kind whose tab to read.
//
// Outputs:
//   - []*model.Record: The parsed records, possibly empty.
//   - error: An error if the tab cannot be read.
func (s *RecordService) List(ctx context.Context, kind model.MediaKind) ([]*model.Record, error) {
	rows, err := s.Rows.ReadRows(ctx, s.SpreadsheetId, kind.TabName())
	if err != nil {
		return nil, fmt.Errorf("reading %s tab: %w", kind.TabName(), err)
	}

	out := make([]*model.Record, 0, len(rows))
	for _, row := range rows {
		record, err := model.RecordFromRow(row)
		if err != nil {
			continue
		}
		id, ok := model.ParseIdentifier(record.Id)
		if !ok || id.Prefix != kind.Prefix() {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

// Count returns how many records the kind's tab holds.
func (s *RecordService) Count(ctx context.Context, kind model.MediaKind) (int, error) {
	records, err := s.List(ctx, kind)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Stats reads both tabs and returns the collection summary.
//
// Inputs:
//   - ctx: The context for the request, used for cancellation, deadlines, and tracing.
//
// Outputs:
//   - *CollectionStats: Per-kind and total record counts.
//   - error: An error if either tab cannot be read.
func (s *RecordService) Stats(ctx context.Context) (*CollectionStats, error) {
	images, err := s.Count(ctx, model.KindImage)
	if err != nil {
		return nil, err
	}
	videos, err := s.Count(ctx, model.KindVideo)
	if err != nil {
		return nil, err
	}
	return &CollectionStats{
		Team:   s.TeamName,
		Images: images,
		Videos: videos,
		Total:  images + videos,
	}, nil
}
