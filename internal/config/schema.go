// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config handles HJSON configuration loading.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config is the root configuration structure for agentmon.
type Config struct {
	Version      string        `json:"version"`
	Claude       ClaudeConfig  `json:"claude"`
	Repositories []string      `json:"repositories"`
	Monitor      MonitorConfig `json:"monitor"`
	Server       ServerConfig  `json:"server"`
	Events       EventsConfig  `json:"events"`
}

// ClaudeConfig locates the Claude CLI's data directory.
type ClaudeConfig struct {
	Dir string `json:"dir"` // defaults to ~/.claude
}

// MonitorConfig tunes session monitoring.
type MonitorConfig struct {
	// ApprovalTimeout is how long a tool use may stay unresolved before
	// the session is considered blocked on approval.
	ApprovalTimeout string `json:"approval_timeout"`

	// BackgroundTools never trigger the approval timeout; they are
	// expected to run long.
	BackgroundTools []string `json:"background_tools"`

	// RefreshInterval is how often repositories and sessions are
	// rescanned.
	RefreshInterval string `json:"refresh_interval"`

	// MappingPath is where session-to-repository assignments persist.
	// Defaults to <claude dir>/agentmon-mappings.json.
	MappingPath string `json:"mapping_path"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int    `json:"port"`
	Host string `json:"host"`
}

// EventsConfig configures the event bus.
type EventsConfig struct {
	History EventHistoryConfig `json:"history"`
}

// EventHistoryConfig configures event retention.
type EventHistoryConfig struct {
	MaxEvents int    `json:"max_events"`
	MaxAge    string `json:"max_age"`
}

// ParseDuration parses a duration string, returning defaultVal for
// empty or invalid input.
func ParseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// ClaudeDir returns the resolved Claude data directory, expanding a
// leading "~".
func (c *Config) ClaudeDir() string {
	return expandHome(c.Claude.Dir)
}

// MappingPath returns the resolved mapping store path.
func (c *Config) MappingPath() string {
	if c.Monitor.MappingPath != "" {
		return expandHome(c.Monitor.MappingPath)
	}
	return filepath.Join(c.ClaudeDir(), "agentmon-mappings.json")
}

// BackgroundToolSet returns the configured background tools as a set.
func (c *Config) BackgroundToolSet() map[string]bool {
	set := make(map[string]bool, len(c.Monitor.BackgroundTools))
	for _, name := range c.Monitor.BackgroundTools {
		set[name] = true
	}
	return set
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
