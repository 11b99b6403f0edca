// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/agentmon/internal/discovery"
	"github.com/wingedpig/agentmon/internal/events"
	"github.com/wingedpig/agentmon/internal/matcher"
	"github.com/wingedpig/agentmon/internal/transcript"
	"github.com/wingedpig/agentmon/internal/worktree"
)

type fakeMonitor struct {
	views    []matcher.RepositoryView
	statuses map[string]transcript.StatusKind
}

func (f fakeMonitor) Views() []matcher.RepositoryView { return f.views }

func (f fakeMonitor) SessionStatus(id string) (transcript.StatusKind, bool) {
	kind, ok := f.statuses[id]
	return kind, ok
}

func testMonitor() fakeMonitor {
	return fakeMonitor{
		views: []matcher.RepositoryView{
			{
				Path: "/home/user/alpha",
				Worktrees: []matcher.WorktreeView{
					{
						Worktree: worktree.Info{Path: "/home/user/alpha", Branch: "main"},
						Sessions: []matcher.SessionView{
							{
								Session: discovery.Session{
									ID:          "sess-1",
									ProjectPath: "/home/user/alpha",
									GitBranch:   "main",
								},
								LastActivity: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
								DisplayText:  "fix the tests",
								Active:       true,
							},
						},
					},
				},
			},
		},
		statuses: map[string]transcript.StatusKind{"sess-1": transcript.StatusExecutingTool},
	}
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NoError(t, json.Unmarshal(resp.Data, out))
}

func TestListRepositories(t *testing.T) {
	h := NewSessionHandler(testMonitor())
	rec := httptest.NewRecorder()
	h.ListRepositories(rec, httptest.NewRequest("GET", "/api/v1/repositories", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var repos []repositoryInfo
	decodeData(t, rec, &repos)
	require.Len(t, repos, 1)
	require.Len(t, repos[0].Worktrees, 1)
	require.Len(t, repos[0].Worktrees[0].Sessions, 1)
	sess := repos[0].Worktrees[0].Sessions[0]
	assert.Equal(t, "sess-1", sess.ID)
	assert.Equal(t, "executing_tool", sess.Status)
	assert.Equal(t, "fix the tests", sess.DisplayText)
}

func TestGetSession(t *testing.T) {
	h := NewSessionHandler(testMonitor())
	router := mux.NewRouter()
	router.HandleFunc("/api/v1/sessions/{id}", h.GetSession)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/sessions/sess-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var sess sessionInfo
	decodeData(t, rec, &sess)
	assert.Equal(t, "sess-1", sess.ID)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/sessions/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListSessionsEmpty(t *testing.T) {
	h := NewSessionHandler(fakeMonitor{})
	rec := httptest.NewRecorder()
	h.ListSessions(rec, httptest.NewRequest("GET", "/api/v1/sessions", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var sessions []sessionInfo
	decodeData(t, rec, &sessions)
	assert.Empty(t, sessions)
}

func TestEventHistoryEndpoint(t *testing.T) {
	bus := events.NewMemoryBus(events.MemoryBusConfig{})
	defer bus.Close()

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, events.Event{Type: events.EventSessionStatus, SessionID: "s1"}))
	require.NoError(t, bus.Publish(ctx, events.Event{Type: events.EventRepoRefreshed}))

	h := NewEventHandler(bus)
	rec := httptest.NewRecorder()
	h.History(rec, httptest.NewRequest("GET", "/api/v1/events?type=session.*&session=s1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got []events.Event
	decodeData(t, rec, &got)
	require.Len(t, got, 1)
	assert.Equal(t, events.EventSessionStatus, got[0].Type)
}
