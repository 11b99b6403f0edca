// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"strings"

	ps "github.com/mitchellh/go-ps"
)

// agentProcessName is the executable name of the CLI agent.
const agentProcessName = "claude"

// CountAgentProcesses returns how many agent processes are running.
// Transcript mtime is the primary liveness signal; the process table
// supplements it, since an idle agent writes nothing for long periods.
func CountAgentProcesses() int {
	procs, err := ps.Processes()
	if err != nil {
		return 0
	}
	count := 0
	for _, p := range procs {
		name := p.Executable()
		if name == agentProcessName || strings.HasPrefix(name, agentProcessName+" ") {
			count++
		}
	}
	return count
}
