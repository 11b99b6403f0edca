// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(i int) ActivityEntry {
	return ActivityEntry{Kind: ActivityUserMessage, Description: fmt.Sprintf("e%d", i)}
}

func TestActivityRing_PushAndSnapshot(t *testing.T) {
	r := NewActivityRing(3)
	assert.Equal(t, 0, r.Len())
	_, ok := r.Last()
	assert.False(t, ok)

	r.Push(entry(1))
	r.Push(entry(2))
	assert.Equal(t, 2, r.Len())

	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, "e2", last.Description)

	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "e1", snap[0].Description)
	assert.Equal(t, "e2", snap[1].Description)
}

func TestActivityRing_EvictsOldestFIFO(t *testing.T) {
	r := NewActivityRing(3)
	for i := 1; i <= 7; i++ {
		r.Push(entry(i))
	}

	assert.Equal(t, 3, r.Len())
	snap := r.Snapshot()
	assert.Equal(t, "e5", snap[0].Description)
	assert.Equal(t, "e6", snap[1].Description)
	assert.Equal(t, "e7", snap[2].Description)

	last, _ := r.Last()
	assert.Equal(t, "e7", last.Description)
}

func TestActivityRing_SnapshotIsCopy(t *testing.T) {
	r := NewActivityRing(2)
	r.Push(entry(1))
	snap := r.Snapshot()
	snap[0].Description = "mutated"

	fresh := r.Snapshot()
	assert.Equal(t, "e1", fresh[0].Description)
}

func TestActivityRing_MinimumCapacity(t *testing.T) {
	r := NewActivityRing(0)
	r.Push(entry(1))
	r.Push(entry(2))
	assert.Equal(t, 1, r.Len())
	last, _ := r.Last()
	assert.Equal(t, "e2", last.Description)
}
