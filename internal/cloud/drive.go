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
// This file implements the FileStore interface on the Drive v3 API. Folders
// are Drive files with the folder MIME type; lookup is a files.list query
// filtered on exact name, folder type, non-trashed state, and parent; object
// uploads go through the resumable media protocol so a dropped connection
// resumes instead of restarting. Every call runs under the shared
// QuotaAwareCaller, so rate limiting and transient-failure retries are
// uniform across operations.
package cloud

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

const (
	// folderMimeType is the Drive MIME type that marks a file as a folder.
	folderMimeType = "application/vnd.google-apps.folder"
	// spreadsheetMimeType is the Drive MIME type of a Sheets spreadsheet.
	spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"
	// uploadChunkSize is the resumable upload chunk size. The minimum keeps
	// retransmits small for the short clips this system collects.
	uploadChunkSize = googleapi.MinUploadChunkSize
)

// DriveStore implements FileStore on a Drive service handle.
type DriveStore struct {
	Service *drive.Service    // The underlying Drive v3 client.
	Caller  *QuotaAwareCaller // Rate limiting and retry for every call.
}

// NewDriveStore wraps a Drive service handle in the store interface.
//
// Inputs:
//   - service: the Drive v3 client.
//   - caller: the shared quota-aware call wrapper for Drive.
//
// Outputs:
//   - *DriveStore: the store implementation.
func NewDriveStore(service *drive.Service, caller *QuotaAwareCaller) *DriveStore {
	return &DriveStore{Service: service, Caller: caller}
}

// escapeQueryTerm escapes the characters Drive query string literals treat
// specially, so folder names containing quotes cannot break the query.
func escapeQueryTerm(in string) string {
	escaped := strings.ReplaceAll(in, `\`, `\\`)
	return strings.ReplaceAll(escaped, `'`, `\'`)
}

// ListFolders returns the ids of every non-trashed folder named name under
// parentId. An empty parentId searches the Drive root.
func (d *DriveStore) ListFolders(ctx context.Context, parentId string, name string) ([]string, error) {
	query := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", escapeQueryTerm(name), folderMimeType)
	if parentId != "" {
		query += fmt.Sprintf(" and '%s' in parents", escapeQueryTerm(parentId))
	}

	var ids []string
	err := d.Caller.Call(ctx, "files.list", func() error {
		ids = ids[:0]
		list, err := d.Service.Files.List().
			Q(query).
			Spaces("drive").
			Fields("files(id, name)").
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		for _, f := range list.Files {
			ids = append(ids, f.Id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// CreateFolder creates a folder named name under parentId and returns its
// id. An empty parentId creates the folder at the Drive root.
func (d *DriveStore) CreateFolder(ctx context.Context, parentId string, name string) (string, error) {
	metadata := &drive.File{
		Name:     name,
		MimeType: folderMimeType,
	}
	if parentId != "" {
		metadata.Parents = []string{parentId}
	}

	var id string
	err := d.Caller.Call(ctx, "files.create", func() error {
		created, err := d.Service.Files.Create(metadata).
			Fields("id, name").
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		id = created.Id
		return nil
	})
	if err != nil {
		return "", err
	}
	slog.Info("created folder", "name", name, "id", id, "parent", parentId)
	return id, nil
}

// VerifyFolderAccess confirms folderId names a reachable folder. A 404 and a
// 403 produce distinct errors so operators can tell a bad id from a missing
// share grant.
func (d *DriveStore) VerifyFolderAccess(ctx context.Context, folderId string) error {
	return d.Caller.Call(ctx, "files.get", func() error {
		file, err := d.Service.Files.Get(folderId).
			Fields("id, name, mimeType").
			Context(ctx).
			Do()
		if err != nil {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) {
				switch apiErr.Code {
				case 404:
					return fmt.Errorf("folder %s not found: %w", folderId, err)
				case 403:
					return fmt.Errorf("no permission to access folder %s: %w", folderId, err)
				}
			}
			return err
		}
		if file.MimeType != folderMimeType {
			return fmt.Errorf("file %s is not a folder (mime type %s)", folderId, file.MimeType)
		}
		return nil
	})
}

// UploadObject writes content as an object named name under folderId using
// the resumable media protocol and returns the new object id.
func (d *DriveStore) UploadObject(ctx context.Context, folderId string, name string, mimeType string, content []byte) (string, error) {
	var id string
	err := d.Caller.Call(ctx, "files.create media", func() error {
		metadata := &drive.File{
			Name:    name,
			Parents: []string{folderId},
		}
		created, err := d.Service.Files.Create(metadata).
			Media(bytes.NewReader(content), googleapi.ContentType(mimeType), googleapi.ChunkSize(uploadChunkSize)).
			Fields("id, name, webViewLink").
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		id = created.Id
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// DeleteObject removes an object by id. A 404 counts as success so
// compensation can be retried after a partial failure.
func (d *DriveStore) DeleteObject(ctx context.Context, objectId string) error {
	return d.Caller.Call(ctx, "files.delete", func() error {
		err := d.Service.Files.Delete(objectId).Context(ctx).Do()
		if err != nil {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) && apiErr.Code == 404 {
				return nil
			}
		}
		return err
	})
}

// FindSpreadsheet returns the id of the non-trashed spreadsheet named name,
// or "" when no such spreadsheet exists. When duplicates exist the first
// listed wins, matching folder resolution.
func (d *DriveStore) FindSpreadsheet(ctx context.Context, name string) (string, error) {
	query := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", escapeQueryTerm(name), spreadsheetMimeType)

	var id string
	err := d.Caller.Call(ctx, "files.list", func() error {
		id = ""
		list, err := d.Service.Files.List().
			Q(query).
			Spaces("drive").
			Fields("files(id, name)").
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		if len(list.Files) > 0 {
			id = list.Files[0].Id
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// MoveToFolder reparents fileId under targetFolderId, removing its previous
// parents so the file does not appear in two places.
func (d *DriveStore) MoveToFolder(ctx context.Context, fileId string, targetFolderId string) error {
	var previousParents string
	err := d.Caller.Call(ctx, "files.get parents", func() error {
		file, err := d.Service.Files.Get(fileId).Fields("parents").Context(ctx).Do()
		if err != nil {
			return err
		}
		previousParents = strings.Join(file.Parents, ",")
		return nil
	})
	if err != nil {
		return err
	}

	return d.Caller.Call(ctx, "files.update parents", func() error {
		call := d.Service.Files.Update(fileId, nil).
			AddParents(targetFolderId).
			Fields("id, parents").
			Context(ctx)
		if previousParents != "" {
			call = call.RemoveParents(previousParents)
		}
		_, err := call.Do()
		return err
	})
}
