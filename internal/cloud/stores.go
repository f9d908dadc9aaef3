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
// This file defines the two collaborator interfaces the workflow commands
// depend on. The production implementations (DriveStore, SheetStore) live in
// drive.go and sheets.go; the test fakes live in internal/testutil. Commands
// only ever see these interfaces, which is what keeps the saga, compensation,
// and allocation races testable without a network.
package cloud

import "context"

// FileStore is the hierarchical file-store collaborator: named folders
// holding uploaded objects, addressed by opaque ids. An empty parentId means
// the store root.
type FileStore interface {
	// ListFolders returns the ids of every non-trashed folder with the
	// exact name under parentId, in the store's listing order. An empty
	// result means the folder does not exist yet. More than one entry is
	// the accepted folder-create race anomaly; callers take the first.
	ListFolders(ctx context.Context, parentId string, name string) ([]string, error)

	// CreateFolder creates a folder with the given name under parentId and
	// returns its id. The store has no conditional create, so callers must
	// tolerate a concurrent creator having won.
	CreateFolder(ctx context.Context, parentId string, name string) (string, error)

	// VerifyFolderAccess confirms the folder exists and is reachable with
	// the current credentials, distinguishing not-found from
	// permission-denied in the returned error.
	VerifyFolderAccess(ctx context.Context, folderId string) error

	// UploadObject writes content as an object named name under folderId
	// and returns the new object's id.
	UploadObject(ctx context.Context, folderId string, name string, mimeType string, content []byte) (string, error)

	// DeleteObject removes an object by id. Deleting an object that is
	// already gone is not an error; compensation must be retry-safe.
	DeleteObject(ctx context.Context, objectId string) error

	// FindSpreadsheet returns the id of the named spreadsheet, or "" when
	// absent.
	FindSpreadsheet(ctx context.Context, name string) (string, error)

	// MoveToFolder reparents a file under targetFolderId, detaching it
	// from its previous parents.
	MoveToFolder(ctx context.Context, fileId string, targetFolderId string) error
}

// RowStore is the tabular metadata collaborator: named tabs of string rows
// inside one spreadsheet. It offers reads and appends only; there is no
// atomic increment or compare-and-swap, which is why identifier allocation
// is read-recompute-retry.
type RowStore interface {
	// CreateSpreadsheet creates a spreadsheet holding one tab per entry of
	// tabs, writes header as the first row of each, and returns the new
	// spreadsheet id.
	CreateSpreadsheet(ctx context.Context, title string, tabs []string, header []string) (string, error)

	// EnsureTab adds the named tab with its header row when the
	// spreadsheet does not already have it. Idempotent.
	EnsureTab(ctx context.Context, spreadsheetId string, tab string, header []string) error

	// ReadColumn returns the first column of the tab, one string per row,
	// including the header cell. This is the allocator's scan.
	ReadColumn(ctx context.Context, spreadsheetId string, tab string) ([]string, error)

	// ReadRows returns every row of the tab, including the header row.
	ReadRows(ctx context.Context, spreadsheetId string, tab string) ([][]string, error)

	// AppendRow appends one row after the last populated row of the tab.
	AppendRow(ctx context.Context, spreadsheetId string, tab string, row []string) error
}
