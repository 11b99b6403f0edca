// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"context"
	"log"
)

// Notification describes a session blocked on tool approval.
type Notification struct {
	SessionID       string
	ToolName        string
	ProjectPath     string
	Model           string
	LastUserMessage string
}

// Notifier receives at most one notification per blocking episode: the
// manager re-arms only after the session leaves the blocked state.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the process log.
type LogNotifier struct{}

// Notify logs the notification.
func (LogNotifier) Notify(ctx context.Context, n Notification) error {
	log.Printf("monitor: session %s waiting for approval of %s in %s", n.SessionID, n.ToolName, n.ProjectPath)
	return nil
}
