// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package discovery finds Claude CLI sessions on disk. Sessions live
// under <claude home>/projects/<encoded project path>/<session>.jsonl;
// the directory name is a lossy encoding of the project path, so the
// authoritative path and branch come from the transcript head, not the
// directory name.
package discovery

import (
	"bufio"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ActiveWindow is how recently a transcript must have been written for
// its session to count as active. This is a filesystem-timestamp
// heuristic, independent of live tailing.
const ActiveWindow = 60 * time.Second

// headScanLines is how many lines of a transcript head are examined
// for session metadata before giving up.
const headScanLines = 25

// Session is one discovered session.
type Session struct {
	ID             string
	ProjectPath    string // working directory recorded in the transcript
	TranscriptPath string
	GitBranch      string
	Slug           string
	LastModified   time.Time
}

// Active reports whether the session's transcript was written within
// the active window of now.
func (s Session) Active(now time.Time) bool {
	return now.Sub(s.LastModified) <= ActiveWindow
}

// Scanner discovers sessions under a Claude home directory.
type Scanner struct {
	claudeDir string
}

// NewScanner creates a scanner rooted at claudeDir (e.g. ~/.claude).
func NewScanner(claudeDir string) *Scanner {
	return &Scanner{claudeDir: claudeDir}
}

// HistoryPath returns the path of the global history index.
func (s *Scanner) HistoryPath() string {
	return filepath.Join(s.claudeDir, "history.jsonl")
}

// ListSessions scans every project directory for transcripts. I/O
// errors on individual directories or files skip that item and keep
// going; a missing projects directory yields an empty list.
func (s *Scanner) ListSessions() []Session {
	projectsDir := filepath.Join(s.claudeDir, "projects")
	projectEntries, err := os.ReadDir(projectsDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("discovery: read projects dir: %v", err)
		}
		return nil
	}

	var sessions []Session
	for _, projEntry := range projectEntries {
		if !projEntry.IsDir() {
			continue
		}
		projDir := filepath.Join(projectsDir, projEntry.Name())
		fileEntries, err := os.ReadDir(projDir)
		if err != nil {
			continue
		}

		for _, fe := range fileEntries {
			// Only top-level .jsonl files; subdirectories hold
			// subagent transcripts.
			if fe.IsDir() || !strings.HasSuffix(fe.Name(), ".jsonl") {
				continue
			}
			path := filepath.Join(projDir, fe.Name())
			sess, ok := readSession(path)
			if !ok {
				continue
			}
			// The directory encoding is lossy; fall back to decoding
			// it only when the transcript head carried no cwd.
			if sess.ProjectPath == "" {
				sess.ProjectPath = DecodeProjectDir(projEntry.Name())
			}
			sessions = append(sessions, sess)
		}
	}
	return sessions
}

// readSession reads the head of a transcript for session metadata.
func readSession(path string) (Session, bool) {
	f, err := os.Open(path)
	if err != nil {
		return Session{}, false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Session{}, false
	}

	sess := Session{TranscriptPath: path, LastModified: info.ModTime()}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 256*1024), 1024*1024)
	for i := 0; i < headScanLines && scanner.Scan(); i++ {
		meta, ok := decodeHeadLine(scanner.Bytes())
		if !ok {
			continue
		}
		if sess.ID == "" {
			sess.ID = meta.SessionID
		}
		if sess.ProjectPath == "" {
			sess.ProjectPath = meta.CWD
		}
		if sess.GitBranch == "" {
			sess.GitBranch = meta.GitBranch
		}
		if sess.Slug == "" {
			sess.Slug = meta.Slug
		}
		if sess.ID != "" && sess.ProjectPath != "" && sess.GitBranch != "" {
			break
		}
	}

	// Sessions without an id cannot be tracked or matched. Fall back
	// to the file name, which the CLI derives from the session id.
	if sess.ID == "" {
		sess.ID = strings.TrimSuffix(filepath.Base(path), ".jsonl")
	}
	return sess, true
}
