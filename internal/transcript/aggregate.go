// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"bytes"
	"strings"
	"time"
)

// ActivityBufferSize is the capacity of the recent-activity ring.
const ActivityBufferSize = 100

// ActivityKind discriminates activity entry variants.
type ActivityKind int

const (
	ActivityToolUse ActivityKind = iota
	ActivityToolResult
	ActivityThinking
	ActivityUserMessage
	ActivityAssistantMessage
)

// ActivityEntry is one emitted activity.
type ActivityEntry struct {
	Timestamp   time.Time
	Kind        ActivityKind
	ToolName    string      // ActivityToolUse, ActivityToolResult
	Success     bool        // ActivityToolResult
	Description string      // short preview text
	Change      *CodeChange // ActivityToolUse for editing tools
}

// PendingToolUse is an open tool invocation awaiting its result.
type PendingToolUse struct {
	ToolName     string
	ToolUseID    string
	Timestamp    time.Time
	InputPreview string
	Change       *CodeChange
}

// CodeChange is the structured payload of an Edit/Write/MultiEdit
// tool_use. Either OldString/NewString or Edits is set.
type CodeChange struct {
	FilePath  string
	OldString string
	NewString string
	Edits     []EditOperation
}

// ParseResult is the mutable per-session aggregate built by folding
// decoded entries. It is owned by a single goroutine and never shared;
// observers receive snapshots.
type ParseResult struct {
	Model               string
	InputTokens         int
	OutputTokens        int
	CacheReadTokens     int
	CacheCreationTokens int
	MessageCount        int
	TotalCostUSD        float64
	ToolCounts          map[string]int
	Pending             map[string]PendingToolUse
	Activities          *ActivityRing
	SessionStartedAt    time.Time
	LastActivityAt      time.Time
	GitBranch           string
	Slug                string
}

// NewParseResult creates an empty aggregate.
func NewParseResult() *ParseResult {
	return &ParseResult{
		ToolCounts: make(map[string]int),
		Pending:    make(map[string]PendingToolUse),
		Activities: NewActivityRing(ActivityBufferSize),
	}
}

// ProcessLines feeds newline-delimited transcript bytes through the
// decoder and aggregator. It returns the number of entries processed.
// Incomplete or malformed lines are skipped, never errors.
func (p *ParseResult) ProcessLines(data []byte) int {
	processed := 0
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		entry, ok := DecodeEntry(line)
		if !ok {
			continue
		}
		p.ProcessEntry(entry)
		processed++
	}
	return processed
}

// ProcessEntry folds one decoded entry into the aggregate.
func (p *ParseResult) ProcessEntry(e *Entry) {
	ts := parseTimestamp(e.Timestamp)
	if !ts.IsZero() && p.SessionStartedAt.IsZero() {
		p.SessionStartedAt = ts
	}
	if e.GitBranch != "" {
		p.GitBranch = e.GitBranch
	}
	if e.Slug != "" {
		p.Slug = e.Slug
	}
	p.TotalCostUSD += e.CostUSD

	switch e.Type {
	case "user":
		p.processUser(e, ts)
	case "assistant":
		p.processAssistant(e, ts)
	}
}

// processUser handles a user-role entry. Tool results arrive inside
// user entries; a userMessage activity is emitted only when the entry
// carries non-empty visible text.
func (p *ParseResult) processUser(e *Entry, ts time.Time) {
	p.MessageCount++
	if e.Message == nil {
		return
	}
	var visible []string
	for _, block := range e.Message.Content {
		switch block.Kind {
		case BlockToolResult:
			p.resolveToolResult(block, ts)
		case BlockText:
			if strings.TrimSpace(block.Text) != "" {
				visible = append(visible, block.Text)
			}
		}
	}
	if len(visible) > 0 {
		p.emit(ActivityEntry{
			Timestamp:   ts,
			Kind:        ActivityUserMessage,
			Description: truncateLine(strings.Join(visible, " "), 50),
		})
	}
}

func (p *ParseResult) processAssistant(e *Entry, ts time.Time) {
	p.MessageCount++
	if e.Message == nil {
		return
	}
	if e.Message.Model != "" {
		p.Model = e.Message.Model
	}
	if u := e.Message.Usage; u != nil {
		p.InputTokens += u.InputTokens
		p.OutputTokens += u.OutputTokens
		p.CacheReadTokens += u.CacheReadInputTokens
		p.CacheCreationTokens += u.CacheCreationInputTokens
	}
	for _, block := range e.Message.Content {
		switch block.Kind {
		case BlockToolUse:
			p.openToolUse(block, ts)
		case BlockThinking:
			p.emit(ActivityEntry{
				Timestamp:   ts,
				Kind:        ActivityThinking,
				Description: truncateLine(block.Text, 50),
			})
		case BlockText:
			if strings.TrimSpace(block.Text) != "" {
				p.emit(ActivityEntry{
					Timestamp:   ts,
					Kind:        ActivityAssistantMessage,
					Description: truncateLine(block.Text, 50),
				})
			}
		}
	}
}

func (p *ParseResult) openToolUse(block ContentBlock, ts time.Time) {
	preview := ""
	if block.Input != nil {
		preview = block.Input.Preview()
	}
	change := codeChange(block.Input)
	p.ToolCounts[block.Name]++
	p.Pending[block.ID] = PendingToolUse{
		ToolName:     block.Name,
		ToolUseID:    block.ID,
		Timestamp:    ts,
		InputPreview: preview,
		Change:       change,
	}
	p.emit(ActivityEntry{
		Timestamp:   ts,
		Kind:        ActivityToolUse,
		ToolName:    block.Name,
		Description: preview,
		Change:      change,
	})
}

// resolveToolResult closes the matching pending tool use. A result for
// an id that was never opened is a no-op.
func (p *ParseResult) resolveToolResult(block ContentBlock, ts time.Time) {
	pending, ok := p.Pending[block.ToolUseID]
	if !ok {
		return
	}
	delete(p.Pending, block.ToolUseID)
	p.emit(ActivityEntry{
		Timestamp:   ts,
		Kind:        ActivityToolResult,
		ToolName:    pending.ToolName,
		Success:     !strings.Contains(strings.ToLower(block.Text), "error"),
		Description: truncateLine(block.Text, 50),
	})
}

func (p *ParseResult) emit(e ActivityEntry) {
	p.Activities.Push(e)
	if !e.Timestamp.IsZero() && e.Timestamp.After(p.LastActivityAt) {
		p.LastActivityAt = e.Timestamp
	}
}

// LastActivity returns the most recent emitted activity.
func (p *ParseResult) LastActivity() (ActivityEntry, bool) {
	return p.Activities.Last()
}

// codeChange materializes the structured payload for editing tools.
func codeChange(input ToolInput) *CodeChange {
	switch in := input.(type) {
	case EditInput:
		return &CodeChange{FilePath: in.FilePath, OldString: in.OldString, NewString: in.NewString}
	case WriteInput:
		return &CodeChange{FilePath: in.FilePath, NewString: in.Content}
	case MultiEditInput:
		return &CodeChange{FilePath: in.FilePath, Edits: in.Edits}
	default:
		return nil
	}
}
