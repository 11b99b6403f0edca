// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package worktree

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// gitTimeout bounds every git subprocess. The monitoring core has no
// hard timeouts of its own; subprocess collaborators carry theirs.
const gitTimeout = 10 * time.Second

// RealGitExecutor executes real git commands.
type RealGitExecutor struct{}

// NewRealGitExecutor creates a new git executor.
func NewRealGitExecutor() *RealGitExecutor {
	return &RealGitExecutor{}
}

// ListWorktrees returns the worktrees of the repository at repoPath.
// Uses --porcelain format for reliable parsing of paths with spaces.
func (e *RealGitExecutor) ListWorktrees(ctx context.Context, repoPath string) ([]Info, error) {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "-C", repoPath, "worktree", "list", "--porcelain")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git worktree list %s: %w", repoPath, err)
	}
	return ParseWorktreeListPorcelain(string(output)), nil
}

// CurrentBranch returns the checked-out branch for a path.
func (e *RealGitExecutor) CurrentBranch(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "-C", path, "branch", "--show-current")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git branch --show-current %s: %w", path, err)
	}
	return strings.TrimSpace(string(output)), nil
}

// ParseWorktreeListPorcelain parses the output of `git worktree list
// --porcelain`. The first block is the main checkout; every later
// block is a linked worktree.
// Format:
//
//	worktree /path/to/worktree
//	HEAD abc1234...
//	branch refs/heads/main
//
//	worktree /path/to/bare
//	bare
func ParseWorktreeListPorcelain(output string) []Info {
	result := []Info{}

	blocks := strings.Split(output, "\n\n")
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		info := parseWorktreeBlock(block)
		if info.Path == "" {
			continue
		}
		info.IsLinked = len(result) > 0
		result = append(result, info)
	}

	return result
}

func parseWorktreeBlock(block string) Info {
	var info Info

	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "worktree "):
			info.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "HEAD "):
			info.Commit = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			// Format: branch refs/heads/main -> extract "main"
			ref := strings.TrimPrefix(line, "branch ")
			info.Branch = strings.TrimPrefix(ref, "refs/heads/")
		case line == "bare":
			info.IsBare = true
		case line == "detached":
			info.Detached = true
		}
	}

	return info
}
