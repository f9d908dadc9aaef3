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

// Package model defines the data structures for the application. This file,
// `examples.go`, provides factory functions for creating hardcoded, example
// instances of the data models. The blobs carry real magic bytes so the
// examples survive content sniffing, which makes them usable end to end in
// workflow tests and in local smoke checks against a scratch folder.
package model

// ExampleJpeg returns a minimal JFIF header. It is not a renderable image,
// but it is enough for magic-byte identification as image/jpeg.
func ExampleJpeg() []byte {
	return []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46, 0x00, 0x01}
}

// ExamplePng returns the PNG signature followed by the start of an IHDR
// chunk, enough for magic-byte identification as image/png.
func ExamplePng() []byte {
	return []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52}
}

// ExampleMp4 returns an ftyp box header, enough for magic-byte
// identification as video/mp4.
func ExampleMp4() []byte {
	return []byte{0x00, 0x00, 0x00, 0x18, 0x66, 0x74, 0x79, 0x70, 0x6D, 0x70, 0x34, 0x32, 0x00, 0x00, 0x00, 0x00}
}

// ExampleMp3 returns an ID3v2 tag header, enough for magic-byte
// identification as audio/mpeg.
func ExampleMp3() []byte {
	return []byte{0x49, 0x44, 0x33, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
}

// GetExampleSubmission creates a complete, structurally valid image
// submission with sniffable blobs. Tests use it as the baseline input and
// override individual fields per case.
//
// Outputs:
//   - *Submission: a pointer to a fresh Submission with its own correlation id.
func GetExampleSubmission() *Submission {
	return NewSubmission(
		KindImage,
		NewBlob("cat.jpg", ExampleJpeg()),
		NewBlob("cat_caption.mp3", ExampleMp3()),
		"A cat sleeping on a woven mat",
		"Kadiisa naayma fi al-birish",
		"Local objects & cultural items",
	)
}

// GetExampleRecord creates the Record the example submission commits to as
// the first image row.
//
// Outputs:
//   - *Record: a pointer to a hardcoded Record object.
func GetExampleRecord() *Record {
	id := Identifier{Prefix: "img", Sequence: 1}
	return &Record{
		Id:              id.String(),
		FileLink:        MediaLink(KindImage, id, ".jpg"),
		MsaCaption:      "A cat sleeping on a woven mat",
		SudaneseCaption: "Kadiisa naayma fi al-birish",
		AudioFileLink:   AudioLink(KindImage, id),
		Category:        "Local objects & cultural items",
	}
}
