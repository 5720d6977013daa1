package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WatcherEntry is one (project path, process id) pair in the global watcher
// registry. The third persisted slot carries the start timestamp.
type WatcherEntry struct {
	Path    string
	PID     int
	Started time.Time
}

// Value renders the entry in its persisted path|pid|started form.
func (w WatcherEntry) Value() string {
	return fmt.Sprintf("%s|%d|%s", w.Path, w.PID, FormatTime(w.Started))
}

// ParseWatcherEntry parses a path|pid|started triple. The started slot is
// tolerated empty or unparseable; a stale registry must still list.
func ParseWatcherEntry(value string) (WatcherEntry, bool) {
	parts := strings.SplitN(value, "|", 3)
	if len(parts) < 2 || parts[0] == "" {
		return WatcherEntry{}, false
	}
	pid, err := strconv.Atoi(parts[1])
	if err != nil || pid <= 0 {
		return WatcherEntry{}, false
	}
	entry := WatcherEntry{Path: parts[0], PID: pid}
	if len(parts) == 3 {
		if t, err := time.Parse(TimeLayout, parts[2]); err == nil {
			entry.Started = t
		}
	}
	return entry, true
}
