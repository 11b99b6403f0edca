// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"encoding/json"
	"strings"
)

// ToolInput is the decoded input of a tool_use block. Known editing
// tools decode into typed variants; everything else stays opaque so new
// tool names never break decoding.
type ToolInput interface {
	// Preview returns a short single-line description for activity
	// entries.
	Preview() string
}

// EditInput is the input of the Edit tool.
type EditInput struct {
	FilePath  string `json:"file_path"`
	OldString string `json:"old_string"`
	NewString string `json:"new_string"`
}

// WriteInput is the input of the Write tool.
type WriteInput struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

// EditOperation is one entry of a MultiEdit input.
type EditOperation struct {
	OldString string `json:"old_string"`
	NewString string `json:"new_string"`
}

// MultiEditInput is the input of the MultiEdit tool.
type MultiEditInput struct {
	FilePath string          `json:"file_path"`
	Edits    []EditOperation `json:"edits"`
}

// OpaqueInput wraps tool input the monitor has no schema for.
type OpaqueInput struct {
	Raw json.RawMessage
}

func (i EditInput) Preview() string      { return i.FilePath }
func (i WriteInput) Preview() string     { return i.FilePath }
func (i MultiEditInput) Preview() string { return i.FilePath }

func (i OpaqueInput) Preview() string {
	// Pull out a few well-known keys so Bash commands and file reads
	// still get a useful one-liner.
	var fields struct {
		Command     string `json:"command"`
		FilePath    string `json:"file_path"`
		Pattern     string `json:"pattern"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(i.Raw, &fields); err == nil {
		for _, s := range []string{fields.Command, fields.FilePath, fields.Pattern, fields.Description} {
			if s != "" {
				return truncateLine(s, 80)
			}
		}
	}
	return truncateLine(string(i.Raw), 80)
}

// decodeToolInput decodes a tool_use input by tool name. A decode
// failure degrades to the opaque variant.
func decodeToolInput(name string, raw json.RawMessage) ToolInput {
	switch name {
	case "Edit":
		var in EditInput
		if err := json.Unmarshal(raw, &in); err == nil && in.FilePath != "" {
			return in
		}
	case "Write":
		var in WriteInput
		if err := json.Unmarshal(raw, &in); err == nil && in.FilePath != "" {
			return in
		}
	case "MultiEdit":
		var in MultiEditInput
		if err := json.Unmarshal(raw, &in); err == nil && in.FilePath != "" {
			return in
		}
	}
	return OpaqueInput{Raw: raw}
}

// truncateLine collapses a string onto one line and truncates it.
func truncateLine(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
