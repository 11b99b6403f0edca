// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package mapping persists session-to-repository assignments so that a
// session stays with the repository it was first matched to, even when
// a worktree path is later reused by a different repository.
package mapping

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Record is one persisted assignment.
type Record struct {
	SessionID      string    `json:"session_id"`
	ParentRepoPath string    `json:"parent_repo_path"`
	WorktreePath   string    `json:"worktree_path"`
	AssignedAt     time.Time `json:"assigned_at"`
}

// Store is a file-backed sessionId -> assignment store. Upserts are
// visible to subsequent gets in the same process immediately; the file
// is rewritten atomically on every mutation.
type Store struct {
	mu       sync.RWMutex
	filePath string
	records  map[string]Record
}

// Open loads the store from filePath, creating an empty store when the
// file does not exist. A corrupt file degrades to an empty store
// rather than failing: mappings are a stickiness optimization, not
// ground truth.
func Open(filePath string) (*Store, error) {
	s := &Store{
		filePath: filePath,
		records:  make(map[string]Record),
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read mapping store: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return s, nil
	}
	for _, rec := range records {
		if rec.SessionID != "" {
			s.records[rec.SessionID] = rec
		}
	}
	return s, nil
}

// Get returns the assignment for a session id.
func (s *Store) Get(sessionID string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[sessionID]
	return rec, ok
}

// GetBatch returns the assignments for the given session ids. Missing
// ids are simply absent from the result.
func (s *Store) GetBatch(sessionIDs []string) map[string]Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Record, len(sessionIDs))
	for _, id := range sessionIDs {
		if rec, ok := s.records[id]; ok {
			out[id] = rec
		}
	}
	return out
}

// Upsert writes an assignment and persists the store.
func (s *Store) Upsert(rec Record) error {
	if rec.SessionID == "" {
		return fmt.Errorf("upsert mapping: empty session id")
	}
	if rec.AssignedAt.IsZero() {
		rec.AssignedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.SessionID] = rec
	return s.save()
}

// Delete removes an assignment. Deleting an unknown id is a no-op.
func (s *Store) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[sessionID]; !ok {
		return nil
	}
	delete(s.records, sessionID)
	return s.save()
}

// Len returns the number of stored assignments.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// save writes all records atomically (tmp + rename). Caller holds the
// write lock.
func (s *Store) save() error {
	records := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal mappings: %w", err)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create mapping dir: %w", err)
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp mapping file: %w", err)
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename mapping file: %w", err)
	}
	return nil
}
