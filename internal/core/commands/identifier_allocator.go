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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// identifier allocation command. Identifiers are sequential per media kind
// (img_1, img_2, ... and vid_1, vid_2, ...) and the row store offers no
// atomic increment, so allocation is the read-recompute-retry sequence
// below rather than a counter fetch.
//
// Logic Flow:
//  1. Read the id column of the kind's tab and find the highest numeric
//     suffix carrying the kind's prefix. Header cells, blank cells, and
//     malformed values are skipped.
//  2. The candidate is highest+1.
//  3. Re-read the column. A changed maximum means another submission landed
//     a row between the two reads; recompute the candidate from the new
//     maximum and confirm with one more read.
//  4. A maximum that moved again on the confirming read means sustained
//     contention; give up with ErrAllocationConflict instead of looping.
//
// This bounds the race window, it does not close it. Two processes can
// still pass step 4 with the same candidate, which is why the append
// command re-checks the id immediately before writing and the orchestrator
// reallocates on a duplicate.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sudan-mm/gcp-go-media-collector/internal/cloud"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/cor"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/model"
)

// AllocateIdentifier is the command that derives the next sequential
// identifier for a submission's media kind.
type AllocateIdentifier struct {
	cor.BaseCommand
	rows          cloud.RowStore // Row store holding the metadata tabs.
	spreadsheetId string         // Id of the metadata spreadsheet.
}

// NewAllocateIdentifier is the constructor for the AllocateIdentifier command.
//
// Inputs:
//   - name: A string name for this command instance, used for logging and telemetry.
//   - rows: The row store collaborator.
//   - spreadsheetId: The id of the metadata spreadsheet to allocate against.
//
// Outputs:
//   - *AllocateIdentifier: A pointer to the newly instantiated command.
func NewAllocateIdentifier(name string, rows cloud.RowStore, spreadsheetId string) *AllocateIdentifier {
	return &AllocateIdentifier{
		BaseCommand:   *cor.NewBaseCommand(name),
		rows:          rows,
		spreadsheetId: spreadsheetId,
	}
}

// Execute contains the core logic for the command. It runs the
// read-recompute-retry sequence and publishes the allocated identifier.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (c *AllocateIdentifier) Execute(context cor.Context) {
	submission := context.Get(c.GetInputParam()).(*model.Submission)

	identifier, err := c.Allocate(context.GetContext(), submission.Kind)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(IdentifierParam, identifier)
	context.Add(cor.CtxOut, identifier)
}

// Allocate derives the next identifier for the kind. Exported so the
// allocation sequence is testable as a unit, independent of chain plumbing.
//
// Inputs:
//   - ctx: The Go context bounding the remote reads.
//   - kind: The media kind to allocate for.
//
// Outputs:
//   - *model.Identifier: The allocated identifier.
//   - error: ErrAllocationConflict under sustained contention, or the
//     first read failure.
func (c *AllocateIdentifier) Allocate(ctx context.Context, kind model.MediaKind) (*model.Identifier, error) {
	tab := kind.TabName()

	first, err := c.maxSequence(ctx, tab, kind)
	if err != nil {
		return nil, err
	}

	second, err := c.maxSequence(ctx, tab, kind)
	if err != nil {
		return nil, err
	}

	if second != first {
		// A row landed between the reads. Recompute once and confirm.
		third, err := c.maxSequence(ctx, tab, kind)
		if err != nil {
			return nil, err
		}
		if third != second {
			return nil, fmt.Errorf("%w: %s maximum moved twice (%d, %d, %d)",
				model.ErrAllocationConflict, tab, first, second, third)
		}
		second = third
	}

	identifier := model.NewIdentifier(kind, second+1)
	slog.Debug("allocated identifier", "id", identifier.String(), "tab", tab)
	return &identifier, nil
}

// maxSequence scans the tab's id column for the highest numeric suffix with
// the kind's prefix. An empty tab yields zero, making the first allocation
// prefix_1.
func (c *AllocateIdentifier) maxSequence(ctx context.Context, tab string, kind model.MediaKind) (int, error) {
	column, err := c.rows.ReadColumn(ctx, c.spreadsheetId, tab)
	if err != nil {
		return 0, fmt.Errorf("reading id column of %s: %w", tab, err)
	}

	maxSeq := 0
	for _, cell := range column {
		id, ok := model.ParseIdentifier(cell)
		if !ok || id.Prefix != kind.Prefix() {
			continue
		}
		if id.Sequence > maxSeq {
			maxSeq = id.Sequence
		}
	}
	return maxSeq, nil
}
