// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package matcher

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/agentmon/internal/discovery"
	"github.com/wingedpig/agentmon/internal/mapping"
	"github.com/wingedpig/agentmon/internal/worktree"
)

var testNow = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *mapping.Store {
	t.Helper()
	store, err := mapping.Open(filepath.Join(t.TempDir(), "mappings.json"))
	require.NoError(t, err)
	return store
}

func newMatcher(t *testing.T) *Matcher {
	t.Helper()
	return New(openStore(t))
}

func repoAlpha() Repository {
	return Repository{
		Path: "/home/user/alpha",
		Worktrees: []worktree.Info{
			{Path: "/home/user/alpha", Branch: "main"},
			{Path: "/home/user/alpha-wt/feature-x", Branch: "feature-x", IsLinked: true},
		},
	}
}

// sessionsIn flattens the sessions assigned to a worktree path.
func sessionsIn(views []RepositoryView, wtPath string) []SessionView {
	for _, rv := range views {
		for _, wv := range rv.Worktrees {
			if wv.Worktree.Path == wtPath {
				return wv.Sessions
			}
		}
	}
	return nil
}

func TestMatch_ExactPath(t *testing.T) {
	m := New(openStore(t))
	sess := discovery.Session{ID: "s1", ProjectPath: "/home/user/alpha", GitBranch: "main", LastModified: testNow}

	views := m.Match([]Repository{repoAlpha()}, []discovery.Session{sess}, nil, testNow)

	got := sessionsIn(views, "/home/user/alpha")
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].Session.ID)
	assert.True(t, got[0].Active)
}

func TestMatch_SubdirectoryFallback(t *testing.T) {
	m := New(openStore(t))
	sess := discovery.Session{ID: "s1", ProjectPath: "/home/user/alpha/cmd/server", GitBranch: "main", LastModified: testNow}

	views := m.Match([]Repository{repoAlpha()}, []discovery.Session{sess}, nil, testNow)

	require.Len(t, sessionsIn(views, "/home/user/alpha"), 1)
}

func TestMatch_ExactOutranksSubdirectory(t *testing.T) {
	// The linked worktree lives under the main checkout's directory, so
	// a session inside it matches the main checkout as a subdirectory
	// too. The exact match must win.
	repo := Repository{
		Path: "/home/user/alpha",
		Worktrees: []worktree.Info{
			{Path: "/home/user/alpha", Branch: "main"},
			{Path: "/home/user/alpha/wt/feature-x", Branch: "feature-x", IsLinked: true},
		},
	}
	sess := discovery.Session{ID: "s1", ProjectPath: "/home/user/alpha/wt/feature-x", GitBranch: "feature-x", LastModified: testNow}

	views := newMatcher(t).Match([]Repository{repo}, []discovery.Session{sess}, nil, testNow)

	assert.Empty(t, sessionsIn(views, "/home/user/alpha"))
	require.Len(t, sessionsIn(views, "/home/user/alpha/wt/feature-x"), 1)
}

func TestMatch_BranchDisambiguatesSharedPath(t *testing.T) {
	// Two repositories both have a worktree checked out at /tmp/shared,
	// on different branches. The session's recorded branch picks the
	// right one.
	repos := []Repository{
		{
			Path: "/home/user/alpha",
			Worktrees: []worktree.Info{
				{Path: "/home/user/alpha", Branch: "main"},
				{Path: "/tmp/shared", Branch: "main", IsLinked: true},
			},
		},
		{
			Path: "/home/user/beta",
			Worktrees: []worktree.Info{
				{Path: "/home/user/beta", Branch: "main"},
				{Path: "/tmp/shared", Branch: "feature-x", IsLinked: true},
			},
		},
	}
	sess := discovery.Session{ID: "s1", ProjectPath: "/tmp/shared", GitBranch: "feature-x", LastModified: testNow}

	views := newMatcher(t).Match(repos, []discovery.Session{sess}, nil, testNow)

	assert.Empty(t, sessionsIn(views[:1], "/tmp/shared"), "alpha's worktree is on the wrong branch")
	require.Len(t, sessionsIn(views[1:], "/tmp/shared"), 1)
}

func TestMatch_BranchlessOnlyIntoMainCheckout(t *testing.T) {
	repo := repoAlpha()
	sessions := []discovery.Session{
		{ID: "no-branch", ProjectPath: "/home/user/alpha-wt/feature-x", LastModified: testNow},
	}

	views := newMatcher(t).Match([]Repository{repo}, sessions, nil, testNow)

	assert.Empty(t, sessionsIn(views, "/home/user/alpha-wt/feature-x"),
		"a session without a recorded branch may not land on a linked worktree")
	assert.Empty(t, sessionsIn(views, "/home/user/alpha"))
}

func TestMatch_BranchMismatchOmitted(t *testing.T) {
	sess := discovery.Session{ID: "s1", ProjectPath: "/home/user/alpha", GitBranch: "gone-branch", LastModified: testNow}

	views := newMatcher(t).Match([]Repository{repoAlpha()}, []discovery.Session{sess}, nil, testNow)

	for _, rv := range views {
		for _, wv := range rv.Worktrees {
			assert.Empty(t, wv.Sessions)
		}
	}
}

func TestMatch_PersistsFirstAssignment(t *testing.T) {
	store := openStore(t)
	sess := discovery.Session{ID: "s1", ProjectPath: "/home/user/alpha", GitBranch: "main", LastModified: testNow}

	New(store).Match([]Repository{repoAlpha()}, []discovery.Session{sess}, nil, testNow)

	rec, ok := store.Get("s1")
	require.True(t, ok)
	assert.Equal(t, "/home/user/alpha", rec.ParentRepoPath)
	assert.Equal(t, "/home/user/alpha", rec.WorktreePath)
	assert.Equal(t, testNow, rec.AssignedAt)
}

func TestMatch_MappingIsSticky(t *testing.T) {
	store := openStore(t)
	matcher := New(store)
	sess := discovery.Session{ID: "s1", ProjectPath: "/tmp/shared", GitBranch: "main", LastModified: testNow}

	alpha := Repository{
		Path: "/home/user/alpha",
		Worktrees: []worktree.Info{
			{Path: "/home/user/alpha", Branch: "main"},
			{Path: "/tmp/shared", Branch: "main", IsLinked: true},
		},
	}
	views := matcher.Match([]Repository{alpha}, []discovery.Session{sess}, nil, testNow)
	require.Len(t, sessionsIn(views, "/tmp/shared"), 1)

	// A second repository with an equally good worktree shows up,
	// listed first. The persisted mapping keeps the session with alpha.
	beta := Repository{
		Path: "/home/user/beta",
		Worktrees: []worktree.Info{
			{Path: "/home/user/beta", Branch: "main"},
			{Path: "/tmp/shared", Branch: "main", IsLinked: true},
		},
	}
	views = matcher.Match([]Repository{beta, alpha}, []discovery.Session{sess}, nil, testNow)

	assert.Empty(t, sessionsIn(views[:1], "/tmp/shared"))
	require.Len(t, sessionsIn(views[1:], "/tmp/shared"), 1)
}

func TestMatch_MappedRepoAbsentOmitsSession(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.Upsert(mapping.Record{
		SessionID:      "s1",
		ParentRepoPath: "/home/user/gone",
		WorktreePath:   "/home/user/gone",
	}))
	sess := discovery.Session{ID: "s1", ProjectPath: "/home/user/alpha", GitBranch: "main", LastModified: testNow}

	views := New(store).Match([]Repository{repoAlpha()}, []discovery.Session{sess}, nil, testNow)

	assert.Empty(t, sessionsIn(views, "/home/user/alpha"),
		"the mapping binds the session to a repository that is no longer monitored")
}

func TestMatch_NilStoreHeuristicsOnly(t *testing.T) {
	matcher := New(nil)
	sess := discovery.Session{ID: "s1", ProjectPath: "/home/user/alpha", GitBranch: "main", LastModified: testNow}

	views := matcher.Match([]Repository{repoAlpha()}, []discovery.Session{sess}, nil, testNow)
	require.Len(t, sessionsIn(views, "/home/user/alpha"), 1)
}

func TestMatch_SortsByActivityAndUsesHistory(t *testing.T) {
	sessions := []discovery.Session{
		{ID: "old", ProjectPath: "/home/user/alpha", GitBranch: "main", LastModified: testNow.Add(-time.Hour)},
		{ID: "new", ProjectPath: "/home/user/alpha", GitBranch: "main", LastModified: testNow.Add(-time.Minute)},
	}
	history := map[string]discovery.HistoryRecord{
		// History shows "old" was touched after "new"'s transcript write.
		"old": {SessionID: "old", Timestamp: testNow.Add(-30 * time.Second).Unix(), DisplayText: "resume work"},
	}

	views := newMatcher(t).Match([]Repository{repoAlpha()}, sessions, history, testNow)

	got := sessionsIn(views, "/home/user/alpha")
	require.Len(t, got, 2)
	assert.Equal(t, "old", got[0].Session.ID)
	assert.Equal(t, "resume work", got[0].DisplayText)
	assert.Equal(t, "new", got[1].Session.ID)
}

func TestMatch_BareWorktreeNeverMatches(t *testing.T) {
	repo := Repository{
		Path: "/home/user/alpha",
		Worktrees: []worktree.Info{
			{Path: "/home/user/alpha", IsBare: true},
			{Path: "/home/user/alpha-wt/main", Branch: "main", IsLinked: true},
		},
	}
	sess := discovery.Session{ID: "s1", ProjectPath: "/home/user/alpha", GitBranch: "main", LastModified: testNow}

	views := newMatcher(t).Match([]Repository{repo}, []discovery.Session{sess}, nil, testNow)
	assert.Empty(t, sessionsIn(views, "/home/user/alpha"))
}
