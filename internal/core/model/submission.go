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
// This file, `submission.go`, contains the transient input side of the domain:
// the MediaKind enumeration, the raw Blob container for uploaded bytes, the
// Submission aggregate built from one contributor action, and the fixed
// category catalogue. A Submission is consumed exactly once by the submission
// workflow and is never persisted itself; on success it is transformed into a
// Record (see record.go).
package model

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MediaKind identifies which of the two collection pipelines a submission
// belongs to. The kind decides the allowed media extensions, the identifier
// prefix, the destination folders, and the metadata tab.
type MediaKind string

const (
	// KindImage is a still-image submission (.jpg, .jpeg, .png).
	KindImage MediaKind = "image"
	// KindVideo is a short-video submission (.mp4).
	KindVideo MediaKind = "video"
)

// AudioExtension is the only accepted extension for spoken-caption audio.
const AudioExtension = ".mp3"

// ParseMediaKind converts a wire value (e.g. a form field) into a MediaKind.
//
// Inputs:
//   - value: the raw string, matched case-insensitively.
//
// Outputs:
//   - MediaKind: the parsed kind.
//   - error: wraps ErrIncompleteSubmission when the value names no known kind.
func ParseMediaKind(value string) (MediaKind, error) {
	switch MediaKind(strings.ToLower(strings.TrimSpace(value))) {
	case KindImage:
		return KindImage, nil
	case KindVideo:
		return KindVideo, nil
	}
	return "", fmt.Errorf("unknown media kind %q: %w", value, ErrIncompleteSubmission)
}

// Prefix returns the identifier prefix for the kind ("img" or "vid").
func (k MediaKind) Prefix() string {
	if k == KindVideo {
		return "vid"
	}
	return "img"
}

// TabName returns the metadata tab the kind's records are appended to.
func (k MediaKind) TabName() string {
	if k == KindVideo {
		return "Videos"
	}
	return "Images"
}

// MediaFolderName returns the destination folder name for media objects.
// The folder names double as the directory component of Record links, so
// they must stay in sync with FolderSet resolution.
func (k MediaKind) MediaFolderName() string {
	if k == KindVideo {
		return "Videos"
	}
	return "Images"
}

// AudioFolderName returns the destination folder name for the paired
// spoken-caption audio objects.
func (k MediaKind) AudioFolderName() string {
	if k == KindVideo {
		return "Video_Audio_Transcriptions"
	}
	return "Image_Audio_Transcriptions"
}

// AllowedExtensions returns the whitelist of media file extensions for the
// kind, lowercased and dot-prefixed.
func (k MediaKind) AllowedExtensions() []string {
	if k == KindVideo {
		return []string{".mp4"}
	}
	return []string{".jpg", ".jpeg", ".png"}
}

// AllowsExtension reports whether ext (any case, with or without the leading
// dot) is in the kind's whitelist.
func (k MediaKind) AllowsExtension(ext string) bool {
	ext = NormalizeExtension(ext)
	for _, allowed := range k.AllowedExtensions() {
		if ext == allowed {
			return true
		}
	}
	return false
}

// NormalizeExtension lowercases an extension and guarantees a leading dot so
// comparisons against the whitelists are exact.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// MimeTypeForExtension maps an accepted extension to the MIME type uploads
// are tagged with. Unknown extensions fall back to a generic binary type;
// validation rejects those before any upload happens.
func MimeTypeForExtension(ext string) string {
	switch NormalizeExtension(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".mp4":
		return "video/mp4"
	case ".mp3":
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}

// Blob carries the raw bytes of one uploaded file together with the name the
// contributor gave it. The extension is derived once at construction so every
// later check sees the same normalized value.
type Blob struct {
	Name      string // original filename as declared by the contributor
	Extension string // lowercased extension including the leading dot
	Data      []byte // raw file content
}

// NewBlob builds a Blob from a declared filename and its content.
func NewBlob(name string, data []byte) Blob {
	return Blob{
		Name:      name,
		Extension: NormalizeExtension(filepath.Ext(name)),
		Data:      data,
	}
}

// Size returns the blob length in bytes.
func (b Blob) Size() int64 {
	return int64(len(b.Data))
}

// IsEmpty reports whether the blob holds no content.
func (b Blob) IsEmpty() bool {
	return len(b.Data) == 0
}

// Submission is one contributor action: a media file, its spoken-caption
// audio, two text captions, and a category. The CorrelationId ties the log
// and trace records of a single workflow run together and has no meaning
// outside the process.
type Submission struct {
	CorrelationId   string    `json:"correlation_id"`   // per-run id used for log and span correlation
	Kind            MediaKind `json:"kind"`             // image or video
	Media           Blob      `json:"-"`                // the media file bytes
	Audio           Blob      `json:"-"`                // the paired .mp3 spoken caption
	MsaCaption      string    `json:"msa_caption"`      // Modern Standard Arabic caption
	SudaneseCaption string    `json:"sudanese_caption"` // Sudanese dialect caption
	Category        string    `json:"category"`         // one of the fixed category catalogue
}

// NewSubmission assembles a Submission and assigns it a fresh correlation id.
// Captions are trimmed here so the persisted Record never carries stray
// whitespace from the form.
func NewSubmission(kind MediaKind, media Blob, audio Blob, msaCaption string, sudaneseCaption string, category string) *Submission {
	return &Submission{
		CorrelationId:   uuid.NewString(),
		Kind:            kind,
		Media:           media,
		Audio:           audio,
		MsaCaption:      strings.TrimSpace(msaCaption),
		SudaneseCaption: strings.TrimSpace(sudaneseCaption),
		Category:        strings.TrimSpace(category),
	}
}

// Validate performs the structural checks that need no media decoding: both
// blobs present, both captions non-empty, and the category drawn from the
// catalogue. Format and duration checks belong to the validation stage of the
// workflow, not here.
func (s *Submission) Validate() error {
	switch {
	case s.Kind != KindImage && s.Kind != KindVideo:
		return fmt.Errorf("media kind is required: %w", ErrIncompleteSubmission)
	case s.Media.IsEmpty():
		return fmt.Errorf("media file is required: %w", ErrIncompleteSubmission)
	case s.Audio.IsEmpty():
		return fmt.Errorf("audio file is required: %w", ErrIncompleteSubmission)
	case s.MsaCaption == "":
		return fmt.Errorf("msa_caption is required: %w", ErrIncompleteSubmission)
	case s.SudaneseCaption == "":
		return fmt.Errorf("sudanese_caption is required: %w", ErrIncompleteSubmission)
	case s.Category == "":
		return fmt.Errorf("category is required: %w", ErrIncompleteSubmission)
	case !IsValidCategory(s.Category):
		return fmt.Errorf("unknown category %q: %w", s.Category, ErrIncompleteSubmission)
	}
	return nil
}

// categories is the fixed catalogue contributors pick from. Ordering is
// stable because the form renders the list as returned.
var categories = []string{
	"Urban daily life",
	"Rural daily life",
	"Marketplaces",
	"Food",
	"Clothing & textiles",
	"Landscapes & nature",
	"Transportation",
	"Public spaces & infrastructure",
	"Agriculture & livestock",
	"Local objects & cultural items",
}

// Categories returns a copy of the category catalogue.
func Categories() []string {
	out := make([]string, len(categories))
	copy(out, categories)
	return out
}

// IsValidCategory reports whether name is one of the catalogue entries.
func IsValidCategory(name string) bool {
	for _, c := range categories {
		if c == name {
			return true
		}
	}
	return false
}
