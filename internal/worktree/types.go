// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package worktree lists git worktrees for monitored repositories.
// Listings are queried fresh on every refresh and never cached here.
package worktree

import (
	"context"
	"path/filepath"
)

// Info describes one git worktree.
type Info struct {
	Path     string
	Commit   string // current HEAD SHA
	Branch   string
	IsLinked bool // secondary worktree, as opposed to the main checkout
	Detached bool
	IsBare   bool
}

// Name returns the directory name of the worktree.
func (w *Info) Name() string {
	return filepath.Base(w.Path)
}

// GitExecutor is the interface for the git operations the monitor
// needs. The real implementation shells out to git; tests substitute a
// mock.
type GitExecutor interface {
	// ListWorktrees returns the worktrees of the repository at
	// repoPath, main checkout first.
	ListWorktrees(ctx context.Context, repoPath string) ([]Info, error)

	// CurrentBranch returns the checked-out branch for a path, or an
	// empty name when HEAD is detached.
	CurrentBranch(ctx context.Context, path string) (string, error)
}
