// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEntry_UserMessage(t *testing.T) {
	line := `{"type":"user","timestamp":"2026-01-15T10:30:00.123Z","gitBranch":"main","message":{"role":"user","content":[{"type":"text","text":"fix the bug"}]}}`

	entry, ok := DecodeEntry([]byte(line))
	require.True(t, ok)
	assert.Equal(t, "user", entry.Type)
	assert.Equal(t, "main", entry.GitBranch)
	require.NotNil(t, entry.Message)
	require.Len(t, entry.Message.Content, 1)
	assert.Equal(t, BlockText, entry.Message.Content[0].Kind)
	assert.Equal(t, "fix the bug", entry.Message.Content[0].Text)
}

func TestDecodeEntry_StringContent(t *testing.T) {
	line := `{"type":"user","timestamp":"2026-01-15T10:30:00Z","message":{"role":"user","content":"plain string prompt"}}`

	entry, ok := DecodeEntry([]byte(line))
	require.True(t, ok)
	require.Len(t, entry.Message.Content, 1)
	assert.Equal(t, BlockText, entry.Message.Content[0].Kind)
	assert.Equal(t, "plain string prompt", entry.Message.Content[0].Text)
}

func TestDecodeEntry_AssistantToolUse(t *testing.T) {
	line := `{"type":"assistant","timestamp":"2026-01-15T10:30:05Z","message":{"role":"assistant","model":"claude-sonnet-4","usage":{"input_tokens":100,"output_tokens":50,"cache_read_input_tokens":10,"cache_creation_input_tokens":5},"content":[{"type":"tool_use","id":"toolu_01","name":"Bash","input":{"command":"go test ./..."}}]}}`

	entry, ok := DecodeEntry([]byte(line))
	require.True(t, ok)
	assert.Equal(t, "claude-sonnet-4", entry.Message.Model)
	require.NotNil(t, entry.Message.Usage)
	assert.Equal(t, 100, entry.Message.Usage.InputTokens)

	require.Len(t, entry.Message.Content, 1)
	block := entry.Message.Content[0]
	assert.Equal(t, BlockToolUse, block.Kind)
	assert.Equal(t, "toolu_01", block.ID)
	assert.Equal(t, "Bash", block.Name)
	assert.Equal(t, "go test ./...", block.Input.Preview())
}

func TestDecodeEntry_Skips(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"empty line", ""},
		{"whitespace", "   \t"},
		{"not json", "garbage {{{"},
		{"file history snapshot", `{"type":"file-history-snapshot","messageId":"x","snapshot":{}}`},
		{"queue marker", `{"type":"queued-command"}`},
		{"no type", `{"timestamp":"2026-01-15T10:30:00Z"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := DecodeEntry([]byte(tt.line))
			assert.False(t, ok)
		})
	}
}

func TestDecodeEntry_UnknownBlockIsOpaque(t *testing.T) {
	line := `{"type":"assistant","timestamp":"2026-01-15T10:30:00Z","message":{"role":"assistant","content":[{"type":"server_tool_use","id":"x"},{"type":"text","text":"hello"}]}}`

	entry, ok := DecodeEntry([]byte(line))
	require.True(t, ok)
	require.Len(t, entry.Message.Content, 2)
	assert.Equal(t, BlockOpaque, entry.Message.Content[0].Kind)
	assert.Equal(t, BlockText, entry.Message.Content[1].Kind)
}

func TestDecodeEntry_ToolResultContentForms(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{
			"string content",
			`{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"t1","content":"ok"}]}}`,
			"ok",
		},
		{
			"block array content",
			`{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"t1","content":[{"type":"text","text":"line one"},{"type":"text","text":"line two"}]}]}}`,
			"line one\nline two",
		},
		{
			"missing content",
			`{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"t1"}]}}`,
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, ok := DecodeEntry([]byte(tt.line))
			require.True(t, ok)
			require.Len(t, entry.Message.Content, 1)
			block := entry.Message.Content[0]
			assert.Equal(t, BlockToolResult, block.Kind)
			assert.Equal(t, "t1", block.ToolUseID)
			assert.Equal(t, tt.want, block.Text)
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	ts := parseTimestamp("2026-01-15T10:30:00.123456Z")
	assert.Equal(t, 2026, ts.Year())
	assert.Equal(t, 123456000, ts.Nanosecond())

	ts = parseTimestamp("2026-01-15T10:30:00Z")
	assert.Equal(t, 30, ts.Minute())

	assert.True(t, parseTimestamp("not a time").IsZero())
	assert.True(t, parseTimestamp("").IsZero())
}

func TestDecodeToolInput_Variants(t *testing.T) {
	edit := decodeToolInput("Edit", []byte(`{"file_path":"/tmp/a.go","old_string":"foo","new_string":"bar"}`))
	require.IsType(t, EditInput{}, edit)
	assert.Equal(t, "/tmp/a.go", edit.(EditInput).FilePath)

	write := decodeToolInput("Write", []byte(`{"file_path":"/tmp/b.go","content":"package b"}`))
	require.IsType(t, WriteInput{}, write)

	multi := decodeToolInput("MultiEdit", []byte(`{"file_path":"/tmp/c.go","edits":[{"old_string":"x","new_string":"y"}]}`))
	require.IsType(t, MultiEditInput{}, multi)
	assert.Len(t, multi.(MultiEditInput).Edits, 1)

	opaque := decodeToolInput("Grep", []byte(`{"pattern":"TODO"}`))
	require.IsType(t, OpaqueInput{}, opaque)
	assert.Equal(t, "TODO", opaque.Preview())

	// An Edit without a file path degrades to opaque rather than a
	// half-populated typed input.
	degraded := decodeToolInput("Edit", []byte(`{"old_string":"x"}`))
	require.IsType(t, OpaqueInput{}, degraded)
}

func TestRecomputeHonorsFractionalElapsed(t *testing.T) {
	now := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	last := ActivityEntry{Timestamp: now.Add(-4900 * time.Millisecond), Kind: ActivityToolUse, ToolName: "Bash"}
	got := recompute(last, now, DefaultThresholds())
	assert.Equal(t, StatusExecutingTool, got.Kind)
}
