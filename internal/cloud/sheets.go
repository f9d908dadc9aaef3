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
// This file implements the RowStore interface on the Sheets v4 API and holds
// the spreadsheet bootstrap. Sheets has no transactions and no conditional
// writes; appends land after the last populated row of whatever the tab
// contains at that instant. The workflow layer builds its duplicate checks
// and allocation retries on exactly that contract, so nothing here hides it.
package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/sheets/v4"
)

const (
	// defaultGridRows is the row capacity of a newly created tab. Sheets
	// grows tabs on append, so this is a starting size, not a limit.
	defaultGridRows = 1000
	// appendValueInputOption makes Sheets parse appended cells the way a
	// person typing them would be parsed.
	appendValueInputOption = "USER_ENTERED"
	// headerValueInputOption writes header cells verbatim.
	headerValueInputOption = "RAW"
)

// SheetStore implements RowStore on a Sheets service handle.
type SheetStore struct {
	Service *sheets.Service   // The underlying Sheets v4 client.
	Caller  *QuotaAwareCaller // Rate limiting and retry for every call.
}

// NewSheetStore wraps a Sheets service handle in the store interface.
//
// Inputs:
//   - service: the Sheets v4 client.
//   - caller: the shared quota-aware call wrapper for Sheets.
//
// Outputs:
//   - *SheetStore: the store implementation.
func NewSheetStore(service *sheets.Service, caller *QuotaAwareCaller) *SheetStore {
	return &SheetStore{Service: service, Caller: caller}
}

// a1Tab quotes a tab name for use in A1 notation. Quoting is always legal
// and covers names containing spaces or punctuation.
func a1Tab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

// rowToCells converts a string row into the interface cells the API wants.
func rowToCells(row []string) []interface{} {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}

// cellString renders one cell as a string. Sheets returns cells as untyped
// values even when they were written as text.
func cellString(cell interface{}) string {
	if cell == nil {
		return ""
	}
	if s, ok := cell.(string); ok {
		return s
	}
	return fmt.Sprint(cell)
}

// CreateSpreadsheet creates a spreadsheet with one tab per entry of tabs and
// writes header as the first row of each tab.
func (s *SheetStore) CreateSpreadsheet(ctx context.Context, title string, tabs []string, header []string) (string, error) {
	sheetList := make([]*sheets.Sheet, 0, len(tabs))
	for _, tab := range tabs {
		sheetList = append(sheetList, &sheets.Sheet{
			Properties: &sheets.SheetProperties{
				Title: tab,
				GridProperties: &sheets.GridProperties{
					RowCount:    defaultGridRows,
					ColumnCount: int64(len(header)),
				},
			},
		})
	}

	var id string
	err := s.Caller.Call(ctx, "spreadsheets.create", func() error {
		created, err := s.Service.Spreadsheets.Create(&sheets.Spreadsheet{
			Properties: &sheets.SpreadsheetProperties{Title: title},
			Sheets:     sheetList,
		}).Context(ctx).Do()
		if err != nil {
			return err
		}
		id = created.SpreadsheetId
		return nil
	})
	if err != nil {
		return "", err
	}

	for _, tab := range tabs {
		if err := s.writeHeader(ctx, id, tab, header); err != nil {
			return "", err
		}
	}
	slog.Info("created spreadsheet", "title", title, "id", id, "tabs", tabs)
	return id, nil
}

// EnsureTab adds the named tab when missing and writes the header row when
// the tab's first row is empty. Safe to call on every startup.
func (s *SheetStore) EnsureTab(ctx context.Context, spreadsheetId string, tab string, header []string) error {
	var exists bool
	err := s.Caller.Call(ctx, "spreadsheets.get", func() error {
		spreadsheet, err := s.Service.Spreadsheets.Get(spreadsheetId).
			Fields("sheets.properties.title").
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		exists = false
		for _, sheet := range spreadsheet.Sheets {
			if sheet.Properties != nil && sheet.Properties.Title == tab {
				exists = true
				break
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if !exists {
		err := s.Caller.Call(ctx, "spreadsheets.batchUpdate", func() error {
			_, err := s.Service.Spreadsheets.BatchUpdate(spreadsheetId, &sheets.BatchUpdateSpreadsheetRequest{
				Requests: []*sheets.Request{{
					AddSheet: &sheets.AddSheetRequest{
						Properties: &sheets.SheetProperties{
							Title: tab,
							GridProperties: &sheets.GridProperties{
								RowCount:    defaultGridRows,
								ColumnCount: int64(len(header)),
							},
						},
					},
				}},
			}).Context(ctx).Do()
			return err
		})
		if err != nil {
			return err
		}
		slog.Info("added tab", "spreadsheet", spreadsheetId, "tab", tab)
	}

	firstRow, err := s.readRange(ctx, spreadsheetId, fmt.Sprintf("%s!1:1", a1Tab(tab)))
	if err != nil {
		return err
	}
	if len(firstRow) == 0 {
		return s.writeHeader(ctx, spreadsheetId, tab, header)
	}
	return nil
}

// ReadColumn returns the first column of the tab, header cell included.
func (s *SheetStore) ReadColumn(ctx context.Context, spreadsheetId string, tab string) ([]string, error) {
	rows, err := s.readRange(ctx, spreadsheetId, fmt.Sprintf("%s!A:A", a1Tab(tab)))
	if err != nil {
		return nil, err
	}
	column := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			column = append(column, "")
			continue
		}
		column = append(column, cellString(row[0]))
	}
	return column, nil
}

// ReadRows returns every populated row of the tab, header row included.
func (s *SheetStore) ReadRows(ctx context.Context, spreadsheetId string, tab string) ([][]string, error) {
	rows, err := s.readRange(ctx, spreadsheetId, a1Tab(tab))
	if err != nil {
		return nil, err
	}
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = cellString(cell)
		}
		out = append(out, cells)
	}
	return out, nil
}

// AppendRow appends one row after the last populated row of the tab.
func (s *SheetStore) AppendRow(ctx context.Context, spreadsheetId string, tab string, row []string) error {
	return s.Caller.Call(ctx, "spreadsheets.values.append", func() error {
		_, err := s.Service.Spreadsheets.Values.Append(
			spreadsheetId,
			fmt.Sprintf("%s!A:A", a1Tab(tab)),
			&sheets.ValueRange{Values: [][]interface{}{rowToCells(row)}},
		).ValueInputOption(appendValueInputOption).Context(ctx).Do()
		return err
	})
}

// readRange fetches one A1 range under the caller wrapper.
func (s *SheetStore) readRange(ctx context.Context, spreadsheetId string, a1 string) ([][]interface{}, error) {
	var values [][]interface{}
	err := s.Caller.Call(ctx, "spreadsheets.values.get", func() error {
		resp, err := s.Service.Spreadsheets.Values.Get(spreadsheetId, a1).Context(ctx).Do()
		if err != nil {
			return err
		}
		values = resp.Values
		return nil
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// writeHeader writes header into the first row of the tab.
func (s *SheetStore) writeHeader(ctx context.Context, spreadsheetId string, tab string, header []string) error {
	return s.Caller.Call(ctx, "spreadsheets.values.update", func() error {
		_, err := s.Service.Spreadsheets.Values.Update(
			spreadsheetId,
			fmt.Sprintf("%s!A1", a1Tab(tab)),
			&sheets.ValueRange{Values: [][]interface{}{rowToCells(header)}},
		).ValueInputOption(headerValueInputOption).Context(ctx).Do()
		return err
	})
}

// EnsureMetadataSpreadsheet finds the named metadata spreadsheet or creates
// it, and in both cases makes sure every expected tab exists with its header
// row. A newly created spreadsheet is moved under parentFolderId so the
// whole collection lives in one place. Returns the spreadsheet id.
func EnsureMetadataSpreadsheet(ctx context.Context, files FileStore, rows RowStore, name string, parentFolderId string, tabs []string, header []string) (string, error) {
	id, err := files.FindSpreadsheet(ctx, name)
	if err != nil {
		return "", fmt.Errorf("spreadsheet lookup for %q: %w", name, err)
	}

	if id == "" {
		id, err = rows.CreateSpreadsheet(ctx, name, tabs, header)
		if err != nil {
			return "", fmt.Errorf("spreadsheet create for %q: %w", name, err)
		}
		if parentFolderId != "" {
			if err := files.MoveToFolder(ctx, id, parentFolderId); err != nil {
				return "", fmt.Errorf("moving spreadsheet %s under folder %s: %w", id, parentFolderId, err)
			}
		}
		return id, nil
	}

	for _, tab := range tabs {
		if err := rows.EnsureTab(ctx, id, tab, header); err != nil {
			return "", fmt.Errorf("ensuring tab %q: %w", tab, err)
		}
	}
	return id, nil
}
