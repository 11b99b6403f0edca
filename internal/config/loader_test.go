// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agentmon.hjson")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadHJSON(t *testing.T) {
	// HJSON: comments and unquoted keys must work.
	path := writeTestConfig(t, `{
		// monitored repositories
		repositories: [
			/home/user/alpha
			/home/user/beta
		]
		claude: {
			dir: /srv/claude
		}
		monitor: {
			approval_timeout: 3s
			background_tools: [
				Task
				WebFetch
			]
		}
		server: {
			port: 9000
		}
	}`)

	cfg, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"/home/user/alpha", "/home/user/beta"}, cfg.Repositories)
	assert.Equal(t, "/srv/claude", cfg.Claude.Dir)
	assert.Equal(t, "3s", cfg.Monitor.ApprovalTimeout)
	assert.Equal(t, map[string]bool{"Task": true, "WebFetch": true}, cfg.BackgroundToolSet())
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestLoadWithDefaults(t *testing.T) {
	path := writeTestConfig(t, `{
		repositories: [
			/home/user/alpha
		]
	}`)

	cfg, err := NewLoader().LoadWithDefaults(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "~/.claude", cfg.Claude.Dir)
	assert.Equal(t, "5s", cfg.Monitor.ApprovalTimeout)
	assert.Equal(t, []string{"Task"}, cfg.Monitor.BackgroundTools)
	assert.Equal(t, "10s", cfg.Monitor.RefreshInterval)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 4330, cfg.Server.Port)
	assert.Equal(t, 10000, cfg.Events.History.MaxEvents)
	assert.Equal(t, "1h", cfg.Events.History.MaxAge)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "nope.hjson"))
	require.Error(t, err)
}

func TestLoadInvalidHJSON(t *testing.T) {
	path := writeTestConfig(t, `{ repositories: [unclosed`)
	_, err := NewLoader().Load(context.Background(), path)
	require.Error(t, err)
}

func TestMappingPath(t *testing.T) {
	cfg := Default()
	cfg.Claude.Dir = "/srv/claude"
	assert.Equal(t, "/srv/claude/agentmon-mappings.json", cfg.MappingPath())

	cfg.Monitor.MappingPath = "/var/lib/agentmon/map.json"
	assert.Equal(t, "/var/lib/agentmon/map.json", cfg.MappingPath())
}

func TestClaudeDirExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := Default()
	assert.Equal(t, filepath.Join(home, ".claude"), cfg.ClaudeDir())
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		def      time.Duration
		expected time.Duration
	}{
		{"500ms", 100 * time.Millisecond, 500 * time.Millisecond},
		{"1m", 100 * time.Millisecond, time.Minute},
		{"", 100 * time.Millisecond, 100 * time.Millisecond},
		{"invalid", 100 * time.Millisecond, 100 * time.Millisecond},
		{"1h30m", 100 * time.Millisecond, 90 * time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseDuration(tt.input, tt.def), tt.input)
	}
}
