// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package transcript

// ActivityRing is a fixed-capacity FIFO of activity entries. Pushing
// past capacity evicts the oldest entry in O(1); emission order is
// preserved.
type ActivityRing struct {
	buf  []ActivityEntry
	head int // index of the oldest entry
	n    int
}

// NewActivityRing creates a ring with the given capacity.
func NewActivityRing(capacity int) *ActivityRing {
	if capacity < 1 {
		capacity = 1
	}
	return &ActivityRing{buf: make([]ActivityEntry, capacity)}
}

// Push appends an entry, evicting the oldest if the ring is full.
func (r *ActivityRing) Push(e ActivityEntry) {
	if r.n == len(r.buf) {
		r.buf[r.head] = e
		r.head = (r.head + 1) % len(r.buf)
		return
	}
	r.buf[(r.head+r.n)%len(r.buf)] = e
	r.n++
}

// Len returns the number of entries held.
func (r *ActivityRing) Len() int { return r.n }

// Cap returns the ring capacity.
func (r *ActivityRing) Cap() int { return len(r.buf) }

// Last returns the most recently pushed entry.
func (r *ActivityRing) Last() (ActivityEntry, bool) {
	if r.n == 0 {
		return ActivityEntry{}, false
	}
	return r.buf[(r.head+r.n-1)%len(r.buf)], true
}

// Snapshot returns the held entries oldest-first as a fresh slice.
func (r *ActivityRing) Snapshot() []ActivityEntry {
	out := make([]ActivityEntry, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}
