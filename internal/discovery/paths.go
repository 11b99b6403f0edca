// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"encoding/json"
	"strings"
)

// EncodeProjectDir converts a project path into the directory name the
// CLI uses under projects/. Path separators and dots collapse to '-',
// so the encoding is lossy: distinct paths can encode to the same
// directory name. Consumers must treat the decoded form as a hint and
// prefer the cwd recorded in the transcript head.
func EncodeProjectDir(projectPath string) string {
	var b strings.Builder
	for _, r := range projectPath {
		switch r {
		case '/', '\\', '.', '_', ' ':
			b.WriteByte('-')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DecodeProjectDir reverses the encoding as far as possible: every '-'
// becomes a path separator. This mangles paths that legitimately
// contained '-', which is why it is only a fallback.
func DecodeProjectDir(dirName string) string {
	return strings.ReplaceAll(dirName, "-", "/")
}

// headMeta is the subset of a transcript line read during discovery.
type headMeta struct {
	SessionID string `json:"sessionId"`
	CWD       string `json:"cwd"`
	GitBranch string `json:"gitBranch"`
	Slug      string `json:"slug"`
}

// decodeHeadLine decodes one head line; non-JSON lines are skipped.
func decodeHeadLine(line []byte) (headMeta, bool) {
	var meta headMeta
	if err := json.Unmarshal(line, &meta); err != nil {
		return headMeta{}, false
	}
	return meta, true
}
