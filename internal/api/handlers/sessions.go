// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wingedpig/agentmon/internal/matcher"
	"github.com/wingedpig/agentmon/internal/transcript"
)

// Monitor is the view the handlers need of the monitoring manager.
type Monitor interface {
	Views() []matcher.RepositoryView
	SessionStatus(sessionID string) (transcript.StatusKind, bool)
}

// SessionHandler serves the matched repository and session views.
type SessionHandler struct {
	monitor Monitor
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(monitor Monitor) *SessionHandler {
	return &SessionHandler{monitor: monitor}
}

// repositoryInfo is the JSON shape of a matched repository.
type repositoryInfo struct {
	Path      string         `json:"path"`
	Worktrees []worktreeInfo `json:"worktrees"`
}

type worktreeInfo struct {
	Path     string        `json:"path"`
	Branch   string        `json:"branch,omitempty"`
	IsLinked bool          `json:"isLinkedWorktree"`
	Sessions []sessionInfo `json:"sessions"`
}

type sessionInfo struct {
	ID           string    `json:"id"`
	ProjectPath  string    `json:"projectPath"`
	GitBranch    string    `json:"gitBranch,omitempty"`
	Slug         string    `json:"slug,omitempty"`
	DisplayText  string    `json:"displayText,omitempty"`
	LastActivity time.Time `json:"lastActivity"`
	Active       bool      `json:"active"`
	Status       string    `json:"status"`
}

// ListRepositories returns all matched repositories with their
// worktrees and sessions.
func (h *SessionHandler) ListRepositories(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.repositories())
}

// ListSessions returns a flat list of all matched sessions.
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	var sessions []sessionInfo
	for _, repo := range h.repositories() {
		for _, wt := range repo.Worktrees {
			sessions = append(sessions, wt.Sessions...)
		}
	}
	if sessions == nil {
		sessions = []sessionInfo{}
	}
	WriteJSON(w, http.StatusOK, sessions)
}

// GetSession returns one session by id.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	for _, repo := range h.repositories() {
		for _, wt := range repo.Worktrees {
			for _, sess := range wt.Sessions {
				if sess.ID == id {
					WriteJSON(w, http.StatusOK, sess)
					return
				}
			}
		}
	}
	WriteError(w, http.StatusNotFound, ErrNotFound, "session not found: "+id)
}

func (h *SessionHandler) repositories() []repositoryInfo {
	views := h.monitor.Views()
	repos := make([]repositoryInfo, 0, len(views))
	for _, rv := range views {
		repo := repositoryInfo{Path: rv.Path, Worktrees: []worktreeInfo{}}
		for _, wv := range rv.Worktrees {
			wt := worktreeInfo{
				Path:     wv.Worktree.Path,
				Branch:   wv.Worktree.Branch,
				IsLinked: wv.Worktree.IsLinked,
				Sessions: []sessionInfo{},
			}
			for _, sv := range wv.Sessions {
				status := transcript.StatusIdle
				if kind, ok := h.monitor.SessionStatus(sv.Session.ID); ok {
					status = kind
				}
				wt.Sessions = append(wt.Sessions, sessionInfo{
					ID:           sv.Session.ID,
					ProjectPath:  sv.Session.ProjectPath,
					GitBranch:    sv.Session.GitBranch,
					Slug:         sv.Session.Slug,
					DisplayText:  sv.DisplayText,
					LastActivity: sv.LastActivity,
					Active:       sv.Active,
					Status:       status.String(),
				})
			}
			repo.Worktrees = append(repo.Worktrees, wt)
		}
		repos = append(repos, repo)
	}
	return repos
}
