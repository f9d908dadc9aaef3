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

// Package commands_test contains unit tests for the workflow commands. This
// file tests identifier allocation: the read-recompute-retry sequence that
// derives sequential ids from a row store with no atomic increment. The row
// store fake's read hook plants concurrent rows between reads to drive the
// contention paths deterministically.
package commands_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/commands"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/cor"
	"github.com/sudan-mm/gcp-go-media-collector/internal/core/model"
	test "github.com/sudan-mm/gcp-go-media-collector/internal/testutil"
)

// seedImageRow plants a minimal record row for the given id in the Images
// tab, outside the fake's counted API.
func seedImageRow(rows *test.FakeRowStore, id string) {
	rows.SeedRow(model.KindImage.TabName(), []string{id, "Images/" + id + ".jpg", "m", "s", "a", "Food"})
}

// TestAllocateFirstIdentifier verifies that an empty tab (header row only)
// yields prefix_1, and that the quiet path costs exactly two column reads.
func TestAllocateFirstIdentifier(t *testing.T) {
	rows := test.NewFakeRowStore()
	allocator := commands.NewAllocateIdentifier("allocate", rows, rows.Id)

	id, err := allocator.Allocate(context.Background(), model.KindImage)

	assert.NoError(t, err)
	assert.Equal(t, "img_1", id.String())
	assert.Equal(t, 2, rows.ReadColumnCalls)
}

// TestAllocateNextIdentifier verifies the common case: the next id is one
// past the highest existing suffix, regardless of row order.
func TestAllocateNextIdentifier(t *testing.T) {
	rows := test.NewFakeRowStore()
	seedImageRow(rows, "img_2")
	seedImageRow(rows, "img_1")
	seedImageRow(rows, "img_3")
	allocator := commands.NewAllocateIdentifier("allocate", rows, rows.Id)

	id, err := allocator.Allocate(context.Background(), model.KindImage)

	assert.NoError(t, err)
	assert.Equal(t, "img_4", id.String())
}

// TestAllocateSkipsForeignAndJunkCells verifies the column scan's
// tolerance: header cells, blanks, hand-typed junk, and ids of the other
// kind are all ignored when finding the maximum.
func TestAllocateSkipsForeignAndJunkCells(t *testing.T) {
	rows := test.NewFakeRowStore()
	seedImageRow(rows, "img_5")
	rows.SeedRow(model.KindImage.TabName(), []string{""})
	rows.SeedRow(model.KindImage.TabName(), []string{"totals below"})
	// A video id pasted into the Images tab must not leak into the image
	// sequence.
	rows.SeedRow(model.KindImage.TabName(), []string{"vid_99"})
	allocator := commands.NewAllocateIdentifier("allocate", rows, rows.Id)

	id, err := allocator.Allocate(context.Background(), model.KindImage)

	assert.NoError(t, err)
	assert.Equal(t, "img_6", id.String())
}

// TestAllocateKindsAreIndependent verifies that the two kinds draw from
// separate sequences in separate tabs.
func TestAllocateKindsAreIndependent(t *testing.T) {
	rows := test.NewFakeRowStore()
	seedImageRow(rows, "img_7")
	allocator := commands.NewAllocateIdentifier("allocate", rows, rows.Id)

	id, err := allocator.Allocate(context.Background(), model.KindVideo)

	assert.NoError(t, err)
	assert.Equal(t, "vid_1", id.String())
}

// TestAllocateRecomputesAfterConcurrentAppend drives the single-recompute
// path: a concurrent submission lands img_2 between the first and second
// reads, the maximum moves, and the allocator recomputes to img_3 after a
// confirming third read.
func TestAllocateRecomputesAfterConcurrentAppend(t *testing.T) {
	rows := test.NewFakeRowStore()
	seedImageRow(rows, "img_1")
	rows.BeforeReadColumn = func(store *test.FakeRowStore, tab string, call int) {
		if call == 2 {
			seedImageRow(store, "img_2")
		}
	}
	allocator := commands.NewAllocateIdentifier("allocate", rows, rows.Id)

	id, err := allocator.Allocate(context.Background(), model.KindImage)

	assert.NoError(t, err)
	assert.Equal(t, "img_3", id.String())
	assert.Equal(t, 3, rows.ReadColumnCalls)
}

// TestAllocateConflictUnderSustainedContention drives the give-up path: the
// maximum moves again on the confirming read, so the allocator reports a
// conflict instead of looping.
func TestAllocateConflictUnderSustainedContention(t *testing.T) {
	rows := test.NewFakeRowStore()
	seedImageRow(rows, "img_1")
	rows.BeforeReadColumn = func(store *test.FakeRowStore, tab string, call int) {
		// A new row lands before both the second and third reads.
		if call == 2 {
			seedImageRow(store, "img_2")
		}
		if call == 3 {
			seedImageRow(store, "img_3")
		}
	}
	allocator := commands.NewAllocateIdentifier("allocate", rows, rows.Id)

	_, err := allocator.Allocate(context.Background(), model.KindImage)

	assert.ErrorIs(t, err, model.ErrAllocationConflict)
	assert.Equal(t, 3, rows.ReadColumnCalls)
}

// TestAllocateSurfacesReadFailure verifies that a failed column read stops
// the allocation with the cause attached.
func TestAllocateSurfacesReadFailure(t *testing.T) {
	readErr := errors.New("read quota burned")
	rows := test.NewFakeRowStore()
	rows.ReadErr = func(tab string) error { return readErr }
	allocator := commands.NewAllocateIdentifier("allocate", rows, rows.Id)

	_, err := allocator.Allocate(context.Background(), model.KindImage)

	assert.ErrorIs(t, err, readErr)
}

// TestAllocateExecutePublishesIdentifier verifies the chain-facing side of
// the command: the identifier lands under its named key and the piping
// output key.
func TestAllocateExecutePublishesIdentifier(t *testing.T) {
	rows := test.NewFakeRowStore()
	allocator := commands.NewAllocateIdentifier("allocate", rows, rows.Id)

	chainCtx := newCommandContext()
	chainCtx.Add(cor.CtxIn, test.GetTestImageSubmission())
	allocator.Execute(chainCtx)

	assert.False(t, chainCtx.HasErrors())
	id := chainCtx.Get(commands.IdentifierParam).(*model.Identifier)
	assert.Equal(t, "img_1", id.String())
	assert.Equal(t, id, chainCtx.Get(cor.CtxOut))
}
