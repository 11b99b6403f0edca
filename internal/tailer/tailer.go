// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package tailer follows a session transcript in real time. It combines
// fsnotify with a periodic health tick: inotify watches can silently go
// stale (editors replacing files, network filesystems), so a file that
// grew without producing an event for a while is re-read and re-watched.
package tailer

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/wingedpig/agentmon/internal/transcript"
)

const (
	// healthInterval is how often the tailer re-checks the file and the
	// timeout-driven status without filesystem events.
	healthInterval = 1 * time.Second

	// staleGrace is how long a grown file may go without an fsnotify
	// event before the watch is considered stale.
	staleGrace = 5 * time.Second
)

// Update is delivered on the tailer's own goroutine whenever the
// session's content or derived status changes. Result is the tailer's
// live aggregate: read what you need and return, do not retain it.
type Update struct {
	SessionID  string
	Path       string
	Status     transcript.Status
	Result     *transcript.ParseResult
	NewContent bool
}

// UpdateFunc receives updates. It must not block for long; the tailer
// does not read the file again until it returns.
type UpdateFunc func(u Update)

// FileTailer follows one transcript file.
type FileTailer struct {
	sessionID  string
	path       string
	thresholds transcript.Thresholds
	onUpdate   UpdateFunc

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// Owned by the run goroutine after Start returns.
	watcher    *fsnotify.Watcher
	result     *transcript.ParseResult
	offset     int64
	lastSize   int64
	lastStatus transcript.Status
	lastEvent  time.Time
}

// New creates a tailer for one session transcript. Updates are
// delivered to onUpdate starting with the seed parse in Start.
func New(sessionID, path string, thresholds transcript.Thresholds, onUpdate UpdateFunc) *FileTailer {
	return &FileTailer{
		sessionID:  sessionID,
		path:       path,
		thresholds: thresholds,
		onUpdate:   onUpdate,
		stopCh:     make(chan struct{}),
		result:     transcript.NewParseResult(),
	}
}

// Start performs the seed parse synchronously, emits the initial
// update, and begins watching. Starting twice is an error.
func (t *FileTailer) Start() error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return fmt.Errorf("tailer already started for %s", t.path)
	}
	if t.stopped {
		t.mu.Unlock()
		return fmt.Errorf("tailer already stopped for %s", t.path)
	}
	t.started = true
	t.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create transcript watcher: %w", err)
	}
	t.watcher = watcher

	// Seed parse: fold the whole existing transcript before any events
	// arrive, so the first update reflects the full session.
	if err := t.readNew(); err != nil {
		watcher.Close()
		return err
	}
	if err := watcher.Add(t.path); err != nil {
		watcher.Close()
		return fmt.Errorf("watch transcript %s: %w", t.path, err)
	}
	t.lastEvent = time.Now()

	t.lastStatus = transcript.RecomputeStatus(t.result, time.Now(), t.thresholds)
	t.deliver(true)

	t.wg.Add(1)
	go t.run()
	return nil
}

// Stop halts tailing. It is idempotent, and no update is delivered
// after it returns.
func (t *FileTailer) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		t.wg.Wait()
		return
	}
	t.stopped = true
	started := t.started
	t.mu.Unlock()

	close(t.stopCh)
	t.wg.Wait()
	if started && t.watcher != nil {
		t.watcher.Close()
	}
}

// run is the single goroutine that owns the aggregate. All reads,
// recomputes, and update deliveries happen here after Start.
func (t *FileTailer) run() {
	defer t.wg.Done()

	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return

		case event, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			t.lastEvent = time.Now()
			t.ingest()

		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("tailer: watch error for %s: %v", t.path, err)

		case <-ticker.C:
			t.healthCheck()
		}
	}
}

// ingest reads new bytes and emits an update if anything changed.
func (t *FileTailer) ingest() {
	before := t.offset
	if err := t.readNew(); err != nil {
		log.Printf("tailer: read %s: %v", t.path, err)
		return
	}
	t.maybeDeliver(t.offset > before)
}

// healthCheck recovers from stale watches and advances timeout-driven
// status transitions that happen without any file activity.
func (t *FileTailer) healthCheck() {
	info, err := os.Stat(t.path)
	if err == nil && t.watchStale(info.Size()) {
		// The file grew but fsnotify said nothing: the watch is stale.
		// Catch up on content and reattach the watch.
		log.Printf("tailer: stale watch for %s, re-reading", t.path)
		t.lastEvent = time.Now()
		t.watcher.Remove(t.path)
		if err := t.watcher.Add(t.path); err != nil {
			log.Printf("tailer: rewatch %s: %v", t.path, err)
		}
		t.ingest()
		return
	}
	t.maybeDeliver(false)
}

// watchStale reports whether the file grew without an fsnotify event
// arriving in time. Growth is judged against the size seen on the last
// read, not the consumed offset: a transcript whose final line never
// gains its newline keeps size above the offset forever and must not
// retrigger recovery on every tick.
func (t *FileTailer) watchStale(size int64) bool {
	return size > t.lastSize && time.Since(t.lastEvent) > staleGrace
}

// maybeDeliver recomputes the status and delivers an update when the
// status changed or new content was folded in. Quiet ticks emit
// nothing.
func (t *FileTailer) maybeDeliver(newContent bool) {
	status := transcript.RecomputeStatus(t.result, time.Now(), t.thresholds)
	if status == t.lastStatus && !newContent {
		return
	}
	t.lastStatus = status
	t.deliver(newContent)
}

func (t *FileTailer) deliver(newContent bool) {
	if t.onUpdate == nil {
		return
	}
	t.onUpdate(Update{
		SessionID:  t.sessionID,
		Path:       t.path,
		Status:     t.lastStatus,
		Result:     t.result,
		NewContent: newContent,
	})
}

// readNew folds bytes from the current offset to EOF into the
// aggregate. Only complete lines are consumed; a partial last line
// stays unconsumed until the writer finishes it.
func (t *FileTailer) readNew() error {
	f, err := os.Open(t.path)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat transcript: %w", err)
	}
	if info.Size() < t.offset {
		// Truncated or replaced. Start over with a fresh aggregate.
		t.offset = 0
		t.result = transcript.NewParseResult()
	}
	t.lastSize = info.Size()
	if info.Size() == t.offset {
		return nil
	}

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek transcript: %w", err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}

	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		return nil
	}
	t.result.ProcessLines(data[:end])
	t.offset += int64(end + 1)
	return nil
}
