// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package transcript

import "time"

// StatusKind is the coarse activity state inferred for a session.
type StatusKind int

const (
	StatusIdle StatusKind = iota
	StatusThinking
	StatusExecutingTool
	StatusAwaitingApproval
	StatusWaitingForUser
)

func (k StatusKind) String() string {
	switch k {
	case StatusIdle:
		return "idle"
	case StatusThinking:
		return "thinking"
	case StatusExecutingTool:
		return "executing_tool"
	case StatusAwaitingApproval:
		return "awaiting_approval"
	case StatusWaitingForUser:
		return "waiting_for_user"
	default:
		return "unknown"
	}
}

// Status is a session's inferred state. Tool is set for the
// executing_tool and awaiting_approval kinds.
type Status struct {
	Kind StatusKind `json:"kind"`
	Tool string     `json:"tool,omitempty"`
}

func (s Status) String() string {
	if s.Tool != "" {
		return s.Kind.String() + "(" + s.Tool + ")"
	}
	return s.Kind.String()
}

// Default timeouts. The transcript carries no explicit status signal,
// so state is inferred from the kind of the last activity and how long
// ago it happened.
const (
	DefaultApprovalTimeout = 5 * time.Second
	MinApprovalTimeout     = 1 * time.Second
	idleTimeout            = 300 * time.Second
	thinkingTimeout        = 60 * time.Second
	thinkingBlockTimeout   = 30 * time.Second
)

// Thresholds configures status inference.
type Thresholds struct {
	// ApprovalTimeout is how long a tool_use may sit unresolved before
	// the session is presumed blocked on a permission prompt. Clamped
	// to MinApprovalTimeout.
	ApprovalTimeout time.Duration

	// BackgroundTools run as untracked background agents and never
	// flip to awaiting_approval. Defaults to {"Task"}.
	BackgroundTools map[string]bool
}

// DefaultThresholds returns the stock inference configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ApprovalTimeout: DefaultApprovalTimeout,
		BackgroundTools: map[string]bool{"Task": true},
	}
}

// approvalTimeout returns the configured timeout clamped to the minimum.
func (t Thresholds) approvalTimeout() time.Duration {
	if t.ApprovalTimeout < MinApprovalTimeout {
		return DefaultApprovalTimeout
	}
	return t.ApprovalTimeout
}

// RecomputeStatus infers a session status from its aggregate at the
// given instant. It is a pure function of (last activity, elapsed,
// thresholds): identical inputs always produce the identical status,
// so it is safe to re-run on a timer with no new data.
func RecomputeStatus(p *ParseResult, now time.Time, t Thresholds) Status {
	last, ok := p.LastActivity()
	if !ok {
		return Status{Kind: StatusIdle}
	}
	return recompute(last, now, t)
}

func recompute(last ActivityEntry, now time.Time, t Thresholds) Status {
	if last.Timestamp.IsZero() {
		return Status{Kind: StatusIdle}
	}
	elapsed := now.Sub(last.Timestamp)
	if elapsed > idleTimeout {
		return Status{Kind: StatusIdle}
	}

	switch last.Kind {
	case ActivityToolUse:
		if t.BackgroundTools[last.ToolName] {
			return Status{Kind: StatusExecutingTool, Tool: last.ToolName}
		}
		if elapsed > t.approvalTimeout() {
			return Status{Kind: StatusAwaitingApproval, Tool: last.ToolName}
		}
		return Status{Kind: StatusExecutingTool, Tool: last.ToolName}
	case ActivityToolResult:
		if elapsed < thinkingTimeout {
			return Status{Kind: StatusThinking}
		}
		return Status{Kind: StatusIdle}
	case ActivityAssistantMessage:
		return Status{Kind: StatusWaitingForUser}
	case ActivityUserMessage:
		if elapsed < thinkingTimeout {
			return Status{Kind: StatusThinking}
		}
		return Status{Kind: StatusIdle}
	case ActivityThinking:
		if elapsed < thinkingBlockTimeout {
			return Status{Kind: StatusThinking}
		}
		return Status{Kind: StatusIdle}
	default:
		return Status{Kind: StatusIdle}
	}
}
