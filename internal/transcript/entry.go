// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package transcript parses Claude CLI transcript files and infers
// coarse session activity from them.
package transcript

import (
	"encoding/json"
	"strings"
	"time"
)

// Entry is one decoded transcript line. Transcript files contain record
// kinds the monitor does not care about (file-history snapshots, queue
// markers); those never decode into an Entry.
type Entry struct {
	Type       string        `json:"type"`
	Timestamp  string        `json:"timestamp"`
	GitBranch  string        `json:"gitBranch,omitempty"`
	Slug       string        `json:"slug,omitempty"`
	CWD        string        `json:"cwd,omitempty"`
	SessionID  string        `json:"sessionId,omitempty"`
	CostUSD    float64       `json:"costUSD,omitempty"`
	DurationMS int64         `json:"durationMs,omitempty"`
	Message    *EntryMessage `json:"message,omitempty"`
}

// EntryMessage is the message payload of a user or assistant entry.
type EntryMessage struct {
	Role    string      `json:"role"`
	Model   string      `json:"model,omitempty"`
	Content BlockList   `json:"content"`
	Usage   *TokenUsage `json:"usage,omitempty"`
}

// TokenUsage holds the per-entry API token counts.
type TokenUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
}

// BlockKind discriminates content block variants.
type BlockKind int

const (
	BlockOpaque BlockKind = iota // unrecognized block type, kept but ignored
	BlockText
	BlockToolUse
	BlockToolResult
	BlockThinking
)

// ContentBlock is one decoded content block. Fields are populated
// according to Kind; unknown block types decode as BlockOpaque rather
// than failing the whole entry.
type ContentBlock struct {
	Kind      BlockKind
	Text      string    // BlockText, BlockThinking, and tool_result payload text
	ID        string    // BlockToolUse
	Name      string    // BlockToolUse
	Input     ToolInput // BlockToolUse
	ToolUseID string    // BlockToolResult
}

// BlockList decodes a message content field, which is either a plain
// string or an array of typed blocks.
type BlockList []ContentBlock

// rawBlock is the wire shape of a content block.
type rawBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Thinking  string          `json:"thinking,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
}

// UnmarshalJSON accepts both the string form and the block-array form.
func (l *BlockList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimLeft(string(data), " \t\r\n")
	if strings.HasPrefix(trimmed, "\"") {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		if text == "" {
			*l = nil
			return nil
		}
		*l = BlockList{{Kind: BlockText, Text: text}}
		return nil
	}

	var raws []rawBlock
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	blocks := make(BlockList, 0, len(raws))
	for _, rb := range raws {
		blocks = append(blocks, decodeBlock(rb))
	}
	*l = blocks
	return nil
}

func decodeBlock(rb rawBlock) ContentBlock {
	switch rb.Type {
	case "text":
		return ContentBlock{Kind: BlockText, Text: rb.Text}
	case "thinking":
		return ContentBlock{Kind: BlockThinking, Text: rb.Thinking}
	case "tool_use":
		return ContentBlock{
			Kind:  BlockToolUse,
			ID:    rb.ID,
			Name:  rb.Name,
			Input: decodeToolInput(rb.Name, rb.Input),
		}
	case "tool_result":
		return ContentBlock{
			Kind:      BlockToolResult,
			ToolUseID: rb.ToolUseID,
			Text:      resultText(rb.Content),
		}
	default:
		return ContentBlock{Kind: BlockOpaque}
	}
}

// resultText extracts the textual payload of a tool_result content
// field, which is either a string or an array of text blocks.
func resultText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var b strings.Builder
	for _, p := range parts {
		if p.Type == "text" && p.Text != "" {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// DecodeEntry decodes one raw transcript line. It returns false for
// blank lines, lines that are not valid JSON, and record kinds the
// monitor ignores. A schema mismatch is never an error.
func DecodeEntry(line []byte) (*Entry, bool) {
	if len(strings.TrimSpace(string(line))) == 0 {
		return nil, false
	}
	var e Entry
	if err := json.Unmarshal(line, &e); err != nil {
		return nil, false
	}
	switch e.Type {
	case "user", "assistant", "summary":
		return &e, true
	default:
		return nil, false
	}
}

// parseTimestamp parses an ISO-8601 timestamp with or without
// fractional seconds. Unparsable timestamps return a zero time and do
// not block processing.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts
	}
	return time.Time{}
}
