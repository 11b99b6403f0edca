// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// HistoryRecord is one session touch from the global history index.
type HistoryRecord struct {
	SessionID   string `json:"sessionId"`
	ProjectPath string `json:"project"`
	Timestamp   int64  `json:"timestamp"` // unix seconds
	DisplayText string `json:"display"`
}

// Time returns the record timestamp.
func (r HistoryRecord) Time() time.Time {
	return time.Unix(r.Timestamp, 0)
}

// ReadHistory parses the append-only history index. Malformed lines
// are skipped; a missing file yields an empty result. The last record
// per session id wins.
func ReadHistory(path string) (map[string]HistoryRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]HistoryRecord{}, nil
		}
		return nil, fmt.Errorf("open history index: %w", err)
	}
	defer f.Close()

	records := make(map[string]HistoryRecord)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec HistoryRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if rec.SessionID == "" {
			continue
		}
		if prev, ok := records[rec.SessionID]; !ok || rec.Timestamp >= prev.Timestamp {
			records[rec.SessionID] = rec
		}
	}
	if err := scanner.Err(); err != nil {
		// Tolerate a partial last line from a concurrent append.
		return records, nil
	}
	return records, nil
}
