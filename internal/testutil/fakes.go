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

// Package test provides utility functions and mock data to support the
// application's test suite. This file holds in-memory implementations of
// the file-store and row-store collaborators. They reproduce the contracts
// the workflow depends on, including the ones that make races possible: no
// conditional folder create, no atomic row append, reads that see whatever
// is there at that instant. Failure and interleaving hooks let tests inject
// errors and concurrent writes at exact points in a run.
package test

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sudan-mm/gcp-go-media-collector/internal/core/model"
)

// FakeObject is one uploaded object held by the fake file store.
type FakeObject struct {
	FolderId string
	Name     string
	MimeType string
	Size     int
}

type fakeFolder struct {
	parentId string
	name     string
}

// FakeFileStore is an in-memory cloud.FileStore. All exported hook fields
// are consulted with no lock held, so hooks may call back into the store.
type FakeFileStore struct {
	mu      sync.Mutex
	folders map[string]*fakeFolder
	objects map[string]*FakeObject
	nextId  int

	// Spreadsheets maps a spreadsheet name to its id for FindSpreadsheet.
	Spreadsheets map[string]string
	// Moves records MoveToFolder calls, file id to target folder id.
	Moves map[string]string

	// ListErr, when set, can fail a folder listing by folder name.
	ListErr func(name string) error
	// CreateErr, when set, can fail a folder create by folder name.
	CreateErr func(name string) error
	// UploadErr, when set, can fail an upload by object name.
	UploadErr func(name string) error
	// DeleteErr, when set, can fail a delete by object id.
	DeleteErr func(objectId string) error

	ListCalls   int
	CreateCalls int
	UploadCalls int
	DeleteCalls int
}

// NewFakeFileStore returns an empty in-memory file store.
func NewFakeFileStore() *FakeFileStore {
	return &FakeFileStore{
		folders:      make(map[string]*fakeFolder),
		objects:      make(map[string]*FakeObject),
		Spreadsheets: make(map[string]string),
		Moves:        make(map[string]string),
	}
}

func (f *FakeFileStore) newId(prefix string) string {
	f.nextId++
	return prefix + "-" + strconv.Itoa(f.nextId)
}

// ListFolders returns every folder with the name under parentId, in
// creation order.
func (f *FakeFileStore) ListFolders(_ context.Context, parentId string, name string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls++
	if f.ListErr != nil {
		if err := f.ListErr(name); err != nil {
			return nil, err
		}
	}

	var ids []string
	// Map iteration order is random; sort by the numeric id suffix so
	// "first listed" is deterministic in tests.
	for i := 1; i <= f.nextId; i++ {
		id := "folder-" + strconv.Itoa(i)
		folder, ok := f.folders[id]
		if ok && folder.parentId == parentId && folder.name == name {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// CreateFolder creates a folder unconditionally, like the real store: two
// racing creators get two folders.
func (f *FakeFileStore) CreateFolder(_ context.Context, parentId string, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateCalls++
	if f.CreateErr != nil {
		if err := f.CreateErr(name); err != nil {
			return "", err
		}
	}

	id := f.newId("folder")
	f.folders[id] = &fakeFolder{parentId: parentId, name: name}
	return id, nil
}

// VerifyFolderAccess succeeds only for folder ids the store knows.
func (f *FakeFileStore) VerifyFolderAccess(_ context.Context, folderId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.folders[folderId]; !ok {
		return fmt.Errorf("folder %s not found", folderId)
	}
	return nil
}

// AddFolder seeds a folder and returns its id. For tests that preprovision
// the parent the way an administrator would.
func (f *FakeFileStore) AddFolder(parentId string, name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.newId("folder")
	f.folders[id] = &fakeFolder{parentId: parentId, name: name}
	return id
}

// UploadObject stores the object and returns its id.
func (f *FakeFileStore) UploadObject(_ context.Context, folderId string, name string, mimeType string, content []byte) (string, error) {
	if f.UploadErr != nil {
		if err := f.UploadErr(name); err != nil {
			f.mu.Lock()
			f.UploadCalls++
			f.mu.Unlock()
			return "", err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.UploadCalls++

	id := f.newId("object")
	f.objects[id] = &FakeObject{FolderId: folderId, Name: name, MimeType: mimeType, Size: len(content)}
	return id, nil
}

// DeleteObject removes the object. Deleting an unknown id succeeds, like
// the real store's 404 tolerance.
func (f *FakeFileStore) DeleteObject(_ context.Context, objectId string) error {
	if f.DeleteErr != nil {
		if err := f.DeleteErr(objectId); err != nil {
			f.mu.Lock()
			f.DeleteCalls++
			f.mu.Unlock()
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteCalls++
	delete(f.objects, objectId)
	return nil
}

// FindSpreadsheet consults the seeded Spreadsheets map.
func (f *FakeFileStore) FindSpreadsheet(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Spreadsheets[name], nil
}

// MoveToFolder records the reparenting.
func (f *FakeFileStore) MoveToFolder(_ context.Context, fileId string, targetFolderId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Moves[fileId] = targetFolderId
	return nil
}

// ObjectNames returns the names of the objects in a folder, in upload
// order.
func (f *FakeFileStore) ObjectNames(folderId string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var names []string
	for i := 1; i <= f.nextId; i++ {
		id := "object-" + strconv.Itoa(i)
		object, ok := f.objects[id]
		if ok && object.FolderId == folderId {
			names = append(names, object.Name)
		}
	}
	return names
}

// ObjectCount returns how many objects the store holds across all folders.
func (f *FakeFileStore) ObjectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// FakeRowStore is an in-memory cloud.RowStore holding one spreadsheet.
type FakeRowStore struct {
	mu   sync.Mutex
	Id   string
	Tabs map[string][][]string

	// BeforeReadColumn runs before each column read snapshot, with no lock
	// held, receiving the 1-based call number. Tests use it to land
	// concurrent rows between an allocator's reads.
	BeforeReadColumn func(store *FakeRowStore, tab string, call int)

	// ReadErr, when set, can fail a column or row read by tab name.
	ReadErr func(tab string) error
	// AppendErr, when set, can fail an append by tab name.
	AppendErr func(tab string, row []string) error

	ReadColumnCalls int
	ReadRowsCalls   int
	AppendCalls     int
	createCalls     int
}

// NewFakeRowStore returns a row store preloaded with the standard two tabs
// and their header rows, as the bootstrap would leave it.
func NewFakeRowStore() *FakeRowStore {
	return &FakeRowStore{
		Id: "sheet-1",
		Tabs: map[string][][]string{
			model.KindImage.TabName(): {append([]string(nil), model.RecordHeader...)},
			model.KindVideo.TabName(): {append([]string(nil), model.RecordHeader...)},
		},
	}
}

// NewEmptyFakeRowStore returns a row store with no spreadsheet at all, for
// exercising the bootstrap path.
func NewEmptyFakeRowStore() *FakeRowStore {
	return &FakeRowStore{Tabs: make(map[string][][]string)}
}

// CreateSpreadsheet creates the tabs with their header rows and assigns the
// store its id.
func (r *FakeRowStore) CreateSpreadsheet(_ context.Context, title string, tabs []string, header []string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++

	if r.Id == "" {
		r.Id = "sheet-" + strconv.Itoa(r.createCalls)
	}
	for _, tab := range tabs {
		r.Tabs[tab] = [][]string{append([]string(nil), header...)}
	}
	_ = title
	return r.Id, nil
}

// EnsureTab adds the tab with its header when missing.
func (r *FakeRowStore) EnsureTab(_ context.Context, _ string, tab string, header []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Tabs[tab]; !ok {
		r.Tabs[tab] = [][]string{append([]string(nil), header...)}
	}
	return nil
}

// ReadColumn returns the first column of the tab.
func (r *FakeRowStore) ReadColumn(_ context.Context, _ string, tab string) ([]string, error) {
	r.mu.Lock()
	r.ReadColumnCalls++
	call := r.ReadColumnCalls
	hook := r.BeforeReadColumn
	r.mu.Unlock()

	if hook != nil {
		hook(r, tab, call)
	}
	if r.ReadErr != nil {
		if err := r.ReadErr(tab); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var column []string
	for _, row := range r.Tabs[tab] {
		if len(row) == 0 {
			column = append(column, "")
			continue
		}
		column = append(column, row[0])
	}
	return column, nil
}

// ReadRows returns every row of the tab.
func (r *FakeRowStore) ReadRows(_ context.Context, _ string, tab string) ([][]string, error) {
	if r.ReadErr != nil {
		if err := r.ReadErr(tab); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ReadRowsCalls++

	rows := make([][]string, 0, len(r.Tabs[tab]))
	for _, row := range r.Tabs[tab] {
		rows = append(rows, append([]string(nil), row...))
	}
	return rows, nil
}

// AppendRow appends the row to the tab.
func (r *FakeRowStore) AppendRow(_ context.Context, _ string, tab string, row []string) error {
	if r.AppendErr != nil {
		if err := r.AppendErr(tab, row); err != nil {
			r.mu.Lock()
			r.AppendCalls++
			r.mu.Unlock()
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.AppendCalls++
	r.Tabs[tab] = append(r.Tabs[tab], append([]string(nil), row...))
	return nil
}

// SeedRow places a row in the tab directly, outside the counted API. Hooks
// use it to simulate a concurrent submission's append.
func (r *FakeRowStore) SeedRow(tab string, row []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Tabs[tab] = append(r.Tabs[tab], append([]string(nil), row...))
}

// RowCount returns the number of rows in the tab, header included.
func (r *FakeRowStore) RowCount(tab string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Tabs[tab])
}

// IdsInTab returns the id cells of the tab's data rows.
func (r *FakeRowStore) IdsInTab(tab string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string
	for _, row := range r.Tabs[tab] {
		if len(row) == 0 {
			continue
		}
		if _, ok := model.ParseIdentifier(row[0]); ok {
			ids = append(ids, row[0])
		}
	}
	return ids
}

// StubProber is a DurationProber returning canned durations by blob name.
type StubProber struct {
	// Durations maps a blob name to its reported duration.
	Durations map[string]time.Duration
	// Err, when set, fails every probe.
	Err error
}

// Probe returns the configured duration for the blob's name, or a midrange
// default that passes both the audio and video windows.
func (p *StubProber) Probe(_ context.Context, blob model.Blob) (time.Duration, error) {
	if p.Err != nil {
		return 0, p.Err
	}
	if d, ok := p.Durations[blob.Name]; ok {
		return d, nil
	}
	return 7 * time.Second, nil
}
