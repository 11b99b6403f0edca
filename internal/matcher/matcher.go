// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package matcher assigns discovered sessions to repository worktrees.
// Session records are ambiguous: the transcript records a working
// directory and maybe a branch, but worktree paths can be reused by
// different repositories over time. A persisted mapping makes
// assignments sticky across refreshes and restarts.
package matcher

import (
	"log"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/wingedpig/agentmon/internal/discovery"
	"github.com/wingedpig/agentmon/internal/mapping"
	"github.com/wingedpig/agentmon/internal/worktree"
)

// Repository is one monitored repository with its current worktrees,
// main checkout first.
type Repository struct {
	Path      string
	Worktrees []worktree.Info
}

// SessionView is a session placed in a worktree.
type SessionView struct {
	Session      discovery.Session
	LastActivity time.Time
	DisplayText  string
	Active       bool
}

// WorktreeView is one worktree with its assigned sessions, most recent
// first.
type WorktreeView struct {
	Worktree worktree.Info
	Sessions []SessionView
}

// RepositoryView is one repository with its worktrees in discovery
// order.
type RepositoryView struct {
	Path      string
	Worktrees []WorktreeView
}

// MappingStore is the persistence the matcher needs. A nil store
// degrades the matcher to pure path/branch heuristics with no
// stickiness.
type MappingStore interface {
	GetBatch(sessionIDs []string) map[string]mapping.Record
	Upsert(rec mapping.Record) error
}

// Matcher assigns sessions to worktrees.
type Matcher struct {
	store MappingStore
}

// New creates a matcher. store may be nil.
func New(store MappingStore) *Matcher {
	return &Matcher{store: store}
}

// Match assigns every session to at most one worktree. Sessions that
// match nothing are omitted; they are never forced into a worktree.
func (m *Matcher) Match(repos []Repository, sessions []discovery.Session, history map[string]discovery.HistoryRecord, now time.Time) []RepositoryView {
	views := make([]RepositoryView, len(repos))
	// Keyed by repository and worktree path together: a worktree path
	// shared between two monitored repositories must not show the same
	// sessions twice.
	assigned := make(map[assignKey][]SessionView)
	for i, repo := range repos {
		views[i] = RepositoryView{Path: repo.Path}
		for _, wt := range repo.Worktrees {
			views[i].Worktrees = append(views[i].Worktrees, WorktreeView{Worktree: wt})
		}
	}

	mappings := m.loadMappings(sessions)

	for _, sess := range sessions {
		repoPath, wt, ok := m.place(repos, sess, mappings)
		if !ok {
			continue
		}

		if _, had := mappings[sess.ID]; !had && m.store != nil {
			rec := mapping.Record{
				SessionID:      sess.ID,
				ParentRepoPath: repoPath,
				WorktreePath:   wt.Path,
				AssignedAt:     now,
			}
			if err := m.store.Upsert(rec); err != nil {
				log.Printf("matcher: persist mapping for %s: %v", sess.ID, err)
			}
		}

		view := SessionView{
			Session:      sess,
			LastActivity: sess.LastModified,
			Active:       sess.Active(now),
		}
		if rec, ok := history[sess.ID]; ok {
			view.DisplayText = rec.DisplayText
			if ts := rec.Time(); ts.After(view.LastActivity) {
				view.LastActivity = ts
			}
		}
		key := assignKey{repoPath, wt.Path}
		assigned[key] = append(assigned[key], view)
	}

	for i := range views {
		for j := range views[i].Worktrees {
			list := assigned[assignKey{views[i].Path, views[i].Worktrees[j].Worktree.Path}]
			sort.SliceStable(list, func(a, b int) bool {
				return list[a].LastActivity.After(list[b].LastActivity)
			})
			views[i].Worktrees[j].Sessions = list
		}
	}
	return views
}

type assignKey struct {
	repoPath     string
	worktreePath string
}

// loadMappings batch-reads persisted assignments. An unavailable store
// yields no mappings and the matcher falls back to heuristics.
func (m *Matcher) loadMappings(sessions []discovery.Session) map[string]mapping.Record {
	if m.store == nil {
		return map[string]mapping.Record{}
	}
	ids := make([]string, 0, len(sessions))
	for _, sess := range sessions {
		ids = append(ids, sess.ID)
	}
	return m.store.GetBatch(ids)
}

// place finds the single worktree a session belongs to, in priority
// order: persisted mapping first, then exact path match, then
// subdirectory fallback, with branch disambiguation throughout.
func (m *Matcher) place(repos []Repository, sess discovery.Session, mappings map[string]mapping.Record) (string, worktree.Info, bool) {
	candidates := repos
	if rec, ok := mappings[sess.ID]; ok {
		// The mapping is binding: only this repository may be
		// considered, even when another repository's worktree path
		// matches equally well.
		candidates = nil
		for _, repo := range repos {
			if samePath(repo.Path, rec.ParentRepoPath) {
				candidates = []Repository{repo}
				break
			}
		}
		if candidates == nil {
			return "", worktree.Info{}, false
		}
	}

	// Exact path matches outrank subdirectory matches across all
	// candidate repositories.
	if repoPath, wt, ok := findMatch(candidates, sess, samePath); ok {
		return repoPath, wt, true
	}
	return findMatch(candidates, sess, isSubdir)
}

// findMatch scans candidate worktrees with the given path predicate,
// applying branch disambiguation.
func findMatch(repos []Repository, sess discovery.Session, pathMatch func(got, want string) bool) (string, worktree.Info, bool) {
	for _, repo := range repos {
		for _, wt := range repo.Worktrees {
			if wt.IsBare || !pathMatch(sess.ProjectPath, wt.Path) {
				continue
			}
			if !branchAccepts(sess, wt) {
				continue
			}
			return repo.Path, wt, true
		}
	}
	return "", worktree.Info{}, false
}

// branchAccepts applies the branch disambiguation rule: a session with
// a recorded branch must land on the worktree checked out to that
// branch; a session with no recorded branch may only land on the main
// checkout.
func branchAccepts(sess discovery.Session, wt worktree.Info) bool {
	if sess.GitBranch == "" {
		return !wt.IsLinked
	}
	return sess.GitBranch == wt.Branch
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

// isSubdir reports whether child is strictly nested under parent.
func isSubdir(child, parent string) bool {
	child = filepath.Clean(child)
	parent = filepath.Clean(parent)
	if child == parent {
		return false
	}
	return strings.HasPrefix(child, parent+string(filepath.Separator))
}
