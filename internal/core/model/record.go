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

// Package model defines the core data structures for the application.
// This file, `record.go`, contains the persistent side of the domain: the
// prefix-scoped sequential Identifier, the resolved FolderSet, and the Record
// row that is appended to the metadata store. A Record with id X exists in
// the metadata store iff objects named X.* exist in the matching folders;
// that naming convention is the only cross-store join the system has, so the
// link helpers here are the single place link strings are assembled.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Identifier is the human-readable sequential key for one record, rendered
// as "{prefix}_{n}" (img_12, vid_3). Sequence numbers start at 1, increase
// strictly per prefix, and are never reused once a row holds them.
type Identifier struct {
	Prefix   string // "img" or "vid"
	Sequence int    // positive, 1-based
}

// NewIdentifier builds the identifier for the given kind and sequence number.
func NewIdentifier(kind MediaKind, sequence int) Identifier {
	return Identifier{Prefix: kind.Prefix(), Sequence: sequence}
}

// ParseIdentifier reads an identifier back from its string form. Rows in the
// metadata store can contain blanks or hand-edited junk, so the parse is
// strict and reports ok=false rather than erroring; callers scanning a tab
// just skip non-conforming cells.
func ParseIdentifier(value string) (Identifier, bool) {
	parts := strings.SplitN(strings.TrimSpace(value), "_", 2)
	if len(parts) != 2 {
		return Identifier{}, false
	}
	if parts[0] != KindImage.Prefix() && parts[0] != KindVideo.Prefix() {
		return Identifier{}, false
	}
	seq, err := strconv.Atoi(parts[1])
	if err != nil || seq < 1 {
		return Identifier{}, false
	}
	return Identifier{Prefix: parts[0], Sequence: seq}, true
}

// String renders the identifier in its canonical "{prefix}_{n}" form.
func (id Identifier) String() string {
	return fmt.Sprintf("%s_%d", id.Prefix, id.Sequence)
}

// IsZero reports whether the identifier has not been assigned.
func (id Identifier) IsZero() bool {
	return id.Prefix == "" || id.Sequence < 1
}

// FolderSet holds the opaque container ids of the team root and the four
// fixed destination folders beneath it. A FolderSet is only ever handed out
// fully populated; a failed resolution never yields a partial set.
type FolderSet struct {
	Parent     string `json:"parent"`      // team root folder id
	Images     string `json:"images"`      // id of the Images folder
	Videos     string `json:"videos"`      // id of the Videos folder
	ImageAudio string `json:"image_audio"` // id of Image_Audio_Transcriptions
	VideoAudio string `json:"video_audio"` // id of Video_Audio_Transcriptions
}

// MediaFolderId returns the destination folder id for the kind's media
// objects.
func (f *FolderSet) MediaFolderId(kind MediaKind) string {
	if kind == KindVideo {
		return f.Videos
	}
	return f.Images
}

// AudioFolderId returns the destination folder id for the kind's paired
// audio objects.
func (f *FolderSet) AudioFolderId(kind MediaKind) string {
	if kind == KindVideo {
		return f.VideoAudio
	}
	return f.ImageAudio
}

// IsComplete reports whether every container id in the set is populated.
func (f *FolderSet) IsComplete() bool {
	return f.Parent != "" && f.Images != "" && f.Videos != "" && f.ImageAudio != "" && f.VideoAudio != ""
}

// RecordHeader is the fixed header row written to each metadata tab when the
// spreadsheet is first created. Column order is load-bearing: ToRow and
// RecordFromRow index into rows by these positions.
var RecordHeader = []string{"id", "file_link", "msa_caption", "sudanese_caption", "audio_file_link", "category"}

// Record is one persisted metadata row. FileLink and AudioFileLink are paths
// relative to the team root, of the form "<FolderName>/<id>.<ext>".
type Record struct {
	Id              string `json:"id"`               // sequential identifier, e.g. "img_1"
	FileLink        string `json:"file_link"`        // e.g. "Images/img_1.jpg"
	MsaCaption      string `json:"msa_caption"`      // Modern Standard Arabic caption
	SudaneseCaption string `json:"sudanese_caption"` // Sudanese dialect caption
	AudioFileLink   string `json:"audio_file_link"`  // e.g. "Image_Audio_Transcriptions/img_1.mp3"
	Category        string `json:"category"`         // catalogue category
}

// ToRow flattens the record into the tab's column order for an append call.
func (r *Record) ToRow() []string {
	return []string{r.Id, r.FileLink, r.MsaCaption, r.SudaneseCaption, r.AudioFileLink, r.Category}
}

// RecordFromRow rebuilds a Record from a raw tab row. Short rows are padded
// so partially filled rows read back with empty fields instead of panicking;
// a row without an id cell is rejected.
func RecordFromRow(row []string) (*Record, error) {
	if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
		return nil, fmt.Errorf("row has no identifier cell: %w", ErrIncompleteSubmission)
	}
	padded := make([]string, len(RecordHeader))
	copy(padded, row)
	return &Record{
		Id:              padded[0],
		FileLink:        padded[1],
		MsaCaption:      padded[2],
		SudaneseCaption: padded[3],
		AudioFileLink:   padded[4],
		Category:        padded[5],
	}, nil
}

// MediaObjectName returns the file-store object name for a media blob,
// "{id}.{ext}".
func MediaObjectName(id Identifier, ext string) string {
	return id.String() + NormalizeExtension(ext)
}

// AudioObjectName returns the file-store object name for the paired audio,
// "{id}.mp3".
func AudioObjectName(id Identifier) string {
	return id.String() + AudioExtension
}

// MediaLink returns the parent-relative link stored in Record.FileLink.
func MediaLink(kind MediaKind, id Identifier, ext string) string {
	return kind.MediaFolderName() + "/" + MediaObjectName(id, ext)
}

// AudioLink returns the parent-relative link stored in Record.AudioFileLink.
func AudioLink(kind MediaKind, id Identifier) string {
	return kind.AudioFolderName() + "/" + AudioObjectName(id)
}
