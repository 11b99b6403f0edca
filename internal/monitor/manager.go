// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package monitor ties discovery, matching, and tailing together. The
// manager periodically rescans repositories and sessions, keeps one
// tailer per active session, and turns tailer updates into bus events
// and approval notifications.
package monitor

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wingedpig/agentmon/internal/config"
	"github.com/wingedpig/agentmon/internal/discovery"
	"github.com/wingedpig/agentmon/internal/events"
	"github.com/wingedpig/agentmon/internal/mapping"
	"github.com/wingedpig/agentmon/internal/matcher"
	"github.com/wingedpig/agentmon/internal/tailer"
	"github.com/wingedpig/agentmon/internal/transcript"
	"github.com/wingedpig/agentmon/internal/worktree"
)

// Manager owns the monitoring loop.
type Manager struct {
	cfg        *config.Config
	bus        events.Bus
	scanner    *discovery.Scanner
	git        worktree.GitExecutor
	match      *matcher.Matcher
	notifier   Notifier
	thresholds transcript.Thresholds
	interval   time.Duration

	mu sync.Mutex
	// tailers holds one running tailer per active session. known tracks
	// every session seen this process, statuses the last published kind,
	// notified whether the current blocking episode was announced, and
	// repoFor the session's assigned repository.
	tailers  map[string]*tailer.FileTailer
	known    map[string]discovery.Session
	statuses map[string]transcript.StatusKind
	notified map[string]bool
	repoFor  map[string]string
	views    []matcher.RepositoryView
}

// NewManager wires a manager. notifier may be nil to disable approval
// notifications; store may be nil to disable sticky mappings.
func NewManager(cfg *config.Config, bus events.Bus, git worktree.GitExecutor, store *mapping.Store, notifier Notifier) *Manager {
	var matchStore matcher.MappingStore
	if store != nil {
		matchStore = store
	}
	return &Manager{
		cfg:      cfg,
		bus:      bus,
		scanner:  discovery.NewScanner(cfg.ClaudeDir()),
		git:      git,
		match:    matcher.New(matchStore),
		notifier: notifier,
		thresholds: transcript.Thresholds{
			ApprovalTimeout: config.ParseDuration(cfg.Monitor.ApprovalTimeout, transcript.DefaultApprovalTimeout),
			BackgroundTools: cfg.BackgroundToolSet(),
		},
		interval: config.ParseDuration(cfg.Monitor.RefreshInterval, 10*time.Second),
		tailers:  make(map[string]*tailer.FileTailer),
		known:    make(map[string]discovery.Session),
		statuses: make(map[string]transcript.StatusKind),
		notified: make(map[string]bool),
		repoFor:  make(map[string]string),
	}
}

// Run refreshes on the configured interval until ctx is done, then
// stops all tailers.
func (m *Manager) Run(ctx context.Context) error {
	defer m.stopAll()

	if err := m.Refresh(ctx); err != nil {
		log.Printf("monitor: initial refresh: %v", err)
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := m.Refresh(ctx); err != nil {
				log.Printf("monitor: refresh: %v", err)
			}
		}
	}
}

// Refresh rescans repositories and sessions and reconciles tailers.
// Worktree listings for different repositories run concurrently; a
// repository whose git invocation fails keeps its main checkout only.
func (m *Manager) Refresh(ctx context.Context) error {
	repos := make([]matcher.Repository, len(m.cfg.Repositories))

	g, gctx := errgroup.WithContext(ctx)
	for i, repoPath := range m.cfg.Repositories {
		i, repoPath := i, repoPath
		g.Go(func() error {
			infos, err := m.git.ListWorktrees(gctx, repoPath)
			if err != nil {
				log.Printf("monitor: list worktrees for %s: %v", repoPath, err)
				infos = []worktree.Info{{Path: repoPath}}
			}
			repos[i] = matcher.Repository{Path: repoPath, Worktrees: infos}
			return nil
		})
	}

	var sessions []discovery.Session
	g.Go(func() error {
		sessions = m.scanner.ListSessions()
		return nil
	})

	var history map[string]discovery.HistoryRecord
	g.Go(func() error {
		var err error
		history, err = discovery.ReadHistory(m.scanner.HistoryPath())
		if err != nil {
			log.Printf("monitor: read history: %v", err)
			history = map[string]discovery.HistoryRecord{}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	now := time.Now()
	views := m.match.Match(repos, sessions, history, now)
	m.reconcile(ctx, views, now)

	m.bus.Publish(ctx, events.Event{
		Type: events.EventRepoRefreshed,
		Payload: map[string]interface{}{
			"repositories":   len(repos),
			"sessions":       len(sessions),
			"agentProcesses": CountAgentProcesses(),
		},
	})
	return nil
}

// reconcile starts tailers for newly active sessions and stops tailers
// whose sessions went inactive or unmatched.
func (m *Manager) reconcile(ctx context.Context, views []matcher.RepositoryView, now time.Time) {
	m.mu.Lock()
	m.views = views

	// Publishing happens after the lock is released; a synchronous
	// subscriber may call back into the manager.
	var discovered []events.Event
	desired := make(map[string]discovery.Session)
	present := make(map[string]bool)
	for _, rv := range views {
		for _, wv := range rv.Worktrees {
			for _, sv := range wv.Sessions {
				present[sv.Session.ID] = true
				m.repoFor[sv.Session.ID] = rv.Path
				if _, seen := m.known[sv.Session.ID]; !seen {
					m.known[sv.Session.ID] = sv.Session
					discovered = append(discovered, events.Event{
						Type:      events.EventSessionDiscovered,
						SessionID: sv.Session.ID,
						RepoPath:  rv.Path,
						Payload: map[string]interface{}{
							"projectPath": sv.Session.ProjectPath,
							"gitBranch":   sv.Session.GitBranch,
						},
					})
				}
				if sv.Active {
					desired[sv.Session.ID] = sv.Session
				}
			}
		}
	}

	var toStart []discovery.Session
	for id, sess := range desired {
		if _, running := m.tailers[id]; !running {
			toStart = append(toStart, sess)
		}
	}
	var toStop []string
	for id := range m.tailers {
		if _, want := desired[id]; !want {
			toStop = append(toStop, id)
		}
	}

	// Sessions gone from every view release their bookkeeping. Ones
	// with a running tailer are cleaned in the stop path below.
	for id := range m.known {
		if _, running := m.tailers[id]; running || present[id] {
			continue
		}
		delete(m.known, id)
		delete(m.repoFor, id)
		delete(m.statuses, id)
		delete(m.notified, id)
	}
	m.mu.Unlock()

	for _, e := range discovered {
		m.bus.Publish(ctx, e)
	}

	for _, sess := range toStart {
		ft := tailer.New(sess.ID, sess.TranscriptPath, m.thresholds, m.onUpdate)
		if err := ft.Start(); err != nil {
			log.Printf("monitor: start tailer for %s: %v", sess.ID, err)
			continue
		}
		m.mu.Lock()
		m.tailers[sess.ID] = ft
		m.mu.Unlock()
	}

	for _, id := range toStop {
		m.mu.Lock()
		ft := m.tailers[id]
		delete(m.tailers, id)
		repoPath := m.repoFor[id]
		m.mu.Unlock()

		ft.Stop()

		// Updates from this tailer can land until Stop returns, so the
		// per-session bookkeeping is cleared only afterwards.
		m.mu.Lock()
		delete(m.statuses, id)
		delete(m.notified, id)
		if !present[id] {
			delete(m.known, id)
			delete(m.repoFor, id)
		}
		m.mu.Unlock()

		m.bus.Publish(ctx, events.Event{
			Type:      events.EventSessionStopped,
			SessionID: id,
			RepoPath:  repoPath,
		})
	}
}

// onUpdate runs on each tailer's goroutine.
func (m *Manager) onUpdate(u tailer.Update) {
	ctx := context.Background()

	m.mu.Lock()
	prev, had := m.statuses[u.SessionID]
	m.statuses[u.SessionID] = u.Status.Kind
	repoPath := m.repoFor[u.SessionID]
	sess := m.known[u.SessionID]

	var notify *Notification
	if u.Status.Kind == transcript.StatusAwaitingApproval {
		if !m.notified[u.SessionID] {
			m.notified[u.SessionID] = true
			notify = &Notification{
				SessionID:       u.SessionID,
				ToolName:        u.Status.Tool,
				ProjectPath:     sess.ProjectPath,
				Model:           u.Result.Model,
				LastUserMessage: lastUserMessage(u.Result),
			}
		}
	} else {
		// Leaving the blocked state re-arms the notification.
		m.notified[u.SessionID] = false
	}
	m.mu.Unlock()

	if !had || prev != u.Status.Kind {
		m.bus.Publish(ctx, events.Event{
			Type:      events.EventSessionStatus,
			SessionID: u.SessionID,
			RepoPath:  repoPath,
			Payload: map[string]interface{}{
				"status": u.Status.Kind.String(),
				"tool":   u.Status.Tool,
			},
		})
	}
	if u.NewContent {
		payload := map[string]interface{}{
			"messageCount": u.Result.MessageCount,
			"model":        u.Result.Model,
		}
		if act, ok := u.Result.LastActivity(); ok {
			payload["description"] = act.Description
		}
		m.bus.Publish(ctx, events.Event{
			Type:      events.EventSessionActivity,
			SessionID: u.SessionID,
			RepoPath:  repoPath,
			Payload:   payload,
		})
	}

	if notify != nil {
		m.bus.Publish(ctx, events.Event{
			Type:      events.EventSessionApproval,
			SessionID: u.SessionID,
			RepoPath:  repoPath,
			Payload: map[string]interface{}{
				"tool":            notify.ToolName,
				"model":           notify.Model,
				"projectPath":     notify.ProjectPath,
				"lastUserMessage": notify.LastUserMessage,
			},
		})
		if m.notifier != nil {
			if err := m.notifier.Notify(ctx, *notify); err != nil {
				log.Printf("monitor: notify for %s: %v", u.SessionID, err)
			}
		}
	}
}

// lastUserMessage returns the text of the most recent user message in
// the activity ring.
func lastUserMessage(p *transcript.ParseResult) string {
	acts := p.Activities.Snapshot()
	for i := len(acts) - 1; i >= 0; i-- {
		if acts[i].Kind == transcript.ActivityUserMessage {
			return acts[i].Description
		}
	}
	return ""
}

// Views returns the latest matched repository views.
func (m *Manager) Views() []matcher.RepositoryView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.views
}

// SessionStatus returns the last published status kind for a session.
func (m *Manager) SessionStatus(sessionID string) (transcript.StatusKind, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kind, ok := m.statuses[sessionID]
	return kind, ok
}

// Close stops all tailers. Run does this itself on context
// cancellation; Close is for callers driving Refresh directly.
func (m *Manager) Close() {
	m.stopAll()
}

func (m *Manager) stopAll() {
	m.mu.Lock()
	tailers := make([]*tailer.FileTailer, 0, len(m.tailers))
	for id, ft := range m.tailers {
		tailers = append(tailers, ft)
		delete(m.tailers, id)
	}
	m.mu.Unlock()

	for _, ft := range tailers {
		ft.Stop()
	}
}
