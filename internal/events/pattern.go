// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"errors"
	"strings"
)

// MatchPattern checks if an event type matches a pattern.
// Patterns support wildcards:
//   - "session.*" matches "session.status", "session.approval", etc.
//   - "*.stopped" matches "session.stopped", "repo.stopped", etc.
//   - "*" matches everything
func MatchPattern(eventType, pattern string) bool {
	if pattern == "" || eventType == "" {
		return false
	}
	if pattern == "*" || pattern == eventType {
		return true
	}
	if strings.HasSuffix(pattern, ".*") {
		prefix := strings.TrimSuffix(pattern, ".*")
		return strings.HasPrefix(eventType, prefix+".")
	}
	if strings.HasPrefix(pattern, "*.") {
		suffix := strings.TrimPrefix(pattern, "*.")
		return strings.HasSuffix(eventType, "."+suffix)
	}
	return false
}

// CompilePattern validates a pattern up front so Subscribe can reject
// bad input instead of silently never matching.
func CompilePattern(pattern string) (Pattern, error) {
	if pattern == "" {
		return Pattern{}, errors.New("empty pattern")
	}
	return Pattern{pattern: pattern}, nil
}

// Pattern is a validated subscription pattern.
type Pattern struct {
	pattern string
}

// Match reports whether the event type matches the pattern.
func (p Pattern) Match(eventType string) bool {
	return MatchPattern(eventType, p.pattern)
}
