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
// folder resolution command: it makes sure the team root folder and the four
// fixed destination folders underneath it exist, and hands their ids to the
// rest of the workflow as a complete FolderSet.
//
// Logic Flow:
//  1. Resolve the team root. When a parent folder id is configured the
//     folder is verified, never created, so a misconfigured id fails loudly
//     instead of silently building a parallel tree. Otherwise the configured
//     folder name is looked up at the store root and created on first use.
//  2. Ensure each of the four destination folders under the team root:
//     Images, Videos, Image_Audio_Transcriptions, Video_Audio_Transcriptions.
//  3. Any failure aborts the whole resolution; callers never see a partial
//     FolderSet.
//
// The file store has no atomic create-if-absent, so two processes racing on
// first use can each create a same-named folder. The resolver takes the
// first listed id and logs the anomaly; submissions keep working, every
// upload just lands in the folder that listing reports first.
//
// Resolution is memoized. Folder ids never change once created, so each
// process pays the lookup cost once and every later submission reuses the
// cached set.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sudan-mm/gcp-go-media-collector/internal/cloud"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/cor"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/model"
)

// ResolveFolders is the command that ensures the destination folder
// structure exists and publishes the resulting FolderSet.
type ResolveFolders struct {
	cor.BaseCommand
	files      cloud.FileStore  // File store the folders live in.
	collection cloud.Collection // Team root and naming configuration.

	mu     sync.Mutex       // Guards the cached set; also serializes first resolution.
	cached *model.FolderSet // Populated on first successful resolution.
}

// NewResolveFolders is the constructor for the ResolveFolders command.
//
// Inputs:
//   - name: A string name for this command instance, used for logging and telemetry.
//   - files: The file store collaborator.
//   - collection: The collection section of the application configuration.
//
// Outputs:
//   - *ResolveFolders: A pointer to the newly instantiated command.
func NewResolveFolders(name string, files cloud.FileStore, collection cloud.Collection) *ResolveFolders {
	return &ResolveFolders{
		BaseCommand: *cor.NewBaseCommand(name),
		files:       files,
		collection:  collection,
	}
}

// Execute contains the core logic for the command. It resolves the folder
// structure and publishes the set for the commit stage.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (c *ResolveFolders) Execute(context cor.Context) {
	folders, err := c.Resolve(context.GetContext())
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(FolderSetParam, folders)
	context.Add(cor.CtxOut, folders)
}

// Resolve returns the complete FolderSet, resolving and creating folders on
// the first call and serving the memoized set afterwards. Startup calls this
// directly to fail fast and to obtain the parent for the metadata
// spreadsheet.
//
// Inputs:
//   - ctx: The Go context bounding the remote calls.
//
// Outputs:
//   - *model.FolderSet: The complete set of destination folder ids.
//   - error: An error when any part of the structure cannot be resolved.
func (c *ResolveFolders) Resolve(ctx context.Context) (*model.FolderSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached != nil {
		return c.cached, nil
	}

	parent, err := c.resolveTeamRoot(ctx)
	if err != nil {
		return nil, err
	}

	folders := &model.FolderSet{Parent: parent}
	names := []struct {
		name   string
		target *string
	}{
		{model.KindImage.MediaFolderName(), &folders.Images},
		{model.KindVideo.MediaFolderName(), &folders.Videos},
		{model.KindImage.AudioFolderName(), &folders.ImageAudio},
		{model.KindVideo.AudioFolderName(), &folders.VideoAudio},
	}
	for _, entry := range names {
		id, err := c.ensureFolder(ctx, parent, entry.name)
		if err != nil {
			return nil, err
		}
		*entry.target = id
	}

	c.cached = folders
	slog.Info("resolved folder structure",
		"team", c.collection.TeamName,
		"parent", folders.Parent,
		"images", folders.Images,
		"videos", folders.Videos,
		"image_audio", folders.ImageAudio,
		"video_audio", folders.VideoAudio)
	return folders, nil
}

// resolveTeamRoot returns the id of the folder the collection lives under.
func (c *ResolveFolders) resolveTeamRoot(ctx context.Context) (string, error) {
	if c.collection.ParentFolderId != "" {
		if err := c.files.VerifyFolderAccess(ctx, c.collection.ParentFolderId); err != nil {
			return "", fmt.Errorf("configured parent folder is unusable: %w", err)
		}
		return c.collection.ParentFolderId, nil
	}
	return c.ensureFolder(ctx, "", c.collection.ParentFolderName)
}

// ensureFolder finds the named folder under parentId or creates it. When
// duplicates exist the first listed id wins.
func (c *ResolveFolders) ensureFolder(ctx context.Context, parentId string, name string) (string, error) {
	ids, err := c.files.ListFolders(ctx, parentId, name)
	if err != nil {
		return "", fmt.Errorf("listing folder %q under %q: %w", name, parentId, err)
	}
	if len(ids) > 1 {
		slog.Warn("multiple folders share a name, using the first",
			"name", name, "parent", parentId, "count", len(ids), "anomaly", model.ErrAmbiguousDuplicate.Error())
	}
	if len(ids) > 0 {
		return ids[0], nil
	}

	id, err := c.files.CreateFolder(ctx, parentId, name)
	if err != nil {
		return "", fmt.Errorf("%w: folder %q under %q: %w", model.ErrFolderCreateFailed, name, parentId, err)
	}
	return id, nil
}
