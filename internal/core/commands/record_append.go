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
// metadata append command, the commit point of a submission. Once the row
// is in the tab the submission is durable; everything before it can be
// compensated, the row itself is never rewritten or deleted.
//
// Logic Flow:
//  1. Re-read the id column and check the allocated identifier is still
//     unclaimed. Allocation and append are separated by the uploads, which
//     leaves a window for a concurrent submission to claim the same id; the
//     check closes most of it and a detected claim becomes
//     ErrDuplicateIdentifier, which the orchestrator answers by cleaning up
//     the uploads and reallocating.
//  2. Assemble the Record from the submission, the identifier, and the
//     naming convention's relative links.
//  3. Append the row to the kind's tab.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/sudan-mm/gcp-go-media-collector/internal/cloud"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/cor"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/model"
)

// AppendRecord is the command that writes a submission's metadata row.
type AppendRecord struct {
	cor.BaseCommand
	rows          cloud.RowStore // Row store holding the metadata tabs.
	spreadsheetId string         // Id of the metadata spreadsheet.
}

// NewAppendRecord is the constructor for the AppendRecord command.
//
// Inputs:
//   - name: A string name for this command instance, used for logging and telemetry.
//   - rows: The row store collaborator.
//   - spreadsheetId: The id of the metadata spreadsheet to append into.
//
// Outputs:
//   - *AppendRecord: A pointer to the newly instantiated command.
func NewAppendRecord(name string, rows cloud.RowStore, spreadsheetId string) *AppendRecord {
	return &AppendRecord{
		BaseCommand:   *cor.NewBaseCommand(name),
		rows:          rows,
		spreadsheetId: spreadsheetId,
	}
}

// IsExecutable overrides the default to require the submission alongside
// the piped identifier.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
//
// Outputs:
//   - bool: True when both the identifier and the submission are present.
func (c *AppendRecord) IsExecutable(context cor.Context) bool {
	return context != nil &&
		context.Get(c.GetInputParam()) != nil &&
		context.Get(SubmissionParam) != nil &&
		context.GetContext() != nil
}

// Execute contains the core logic for the command. It re-checks the
// identifier, assembles the record, and appends it.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (c *AppendRecord) Execute(context cor.Context) {
	identifier := context.Get(c.GetInputParam()).(*model.Identifier)
	submission := context.Get(SubmissionParam).(*model.Submission)

	goCtx := context.GetContext()
	kind := submission.Kind
	tab := kind.TabName()

	column, err := c.rows.ReadColumn(goCtx, c.spreadsheetId, tab)
	if err != nil {
		c.GetErrorCounter().Add(goCtx, 1)
		context.AddError(c.GetName(), fmt.Errorf("duplicate check read of %s: %w", tab, err))
		return
	}
	for _, cell := range column {
		if cell == identifier.String() {
			c.GetErrorCounter().Add(goCtx, 1)
			context.AddError(c.GetName(), fmt.Errorf("%w: %s already has a row in %s",
				model.ErrDuplicateIdentifier, identifier.String(), tab))
			return
		}
	}

	record := &model.Record{
		Id:              identifier.String(),
		FileLink:        model.MediaLink(kind, *identifier, submission.Media.Extension),
		MsaCaption:      submission.MsaCaption,
		SudaneseCaption: submission.SudaneseCaption,
		AudioFileLink:   model.AudioLink(kind, *identifier),
		Category:        submission.Category,
	}

	if err := c.rows.AppendRow(goCtx, c.spreadsheetId, tab, record.ToRow()); err != nil {
		c.GetErrorCounter().Add(goCtx, 1)
		context.AddError(c.GetName(), fmt.Errorf("%w: row %s in %s: %w",
			model.ErrAppendFailed, identifier.String(), tab, err))
		return
	}

	slog.Info("appended metadata row",
		"id", record.Id,
		"tab", tab,
		"category", record.Category,
		"correlation_id", submission.CorrelationId)
	c.GetSuccessCounter().Add(goCtx, 1)
	context.Add(RecordParam, record)
	context.Add(cor.CtxOut, record)
}
