// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package events provides the in-process pub/sub bus for session
// monitoring.
package events

import (
	"context"
	"time"
)

// Event is an immutable record of something a session did.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	SessionID string                 `json:"sessionId,omitempty"`
	RepoPath  string                 `json:"repoPath,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// Handler processes received events.
type Handler func(ctx context.Context, event Event) error

// SubscriptionID uniquely identifies a subscription.
type SubscriptionID string

// Filter selects events from history.
type Filter struct {
	Types     []string  // event type patterns, wildcards allowed
	SessionID string    // only events for this session
	Since     time.Time // events after this time
	Until     time.Time // events before this time
	Limit     int       // maximum events to return, newest kept
}

// Bus is the session event pub/sub system.
type Bus interface {
	// Publish emits an event to all matching subscribers.
	Publish(ctx context.Context, event Event) error

	// Subscribe registers a synchronous handler for events matching pattern.
	Subscribe(pattern string, handler Handler) (SubscriptionID, error)

	// SubscribeAsync registers a handler fed from a buffered channel.
	SubscribeAsync(pattern string, handler Handler, bufferSize int) (SubscriptionID, error)

	// Unsubscribe removes a subscription.
	Unsubscribe(id SubscriptionID) error

	// History retrieves past events matching filter.
	History(filter Filter) ([]Event, error)

	// Close shuts down the bus gracefully.
	Close() error
}

// Event types published by the monitor.
const (
	// Session lifecycle
	EventSessionDiscovered = "session.discovered"
	EventSessionStopped    = "session.stopped"

	// Session state
	EventSessionStatus   = "session.status"
	EventSessionActivity = "session.activity"

	// An agent is blocked on tool approval.
	EventSessionApproval = "session.approval"

	// Repository scanning
	EventRepoRefreshed = "repo.refreshed"
)
