package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Timestamp layouts used across all persisted artifacts. Times are always
// recorded in UTC.
const (
	// TimeLayout is the ISO-8601 form written into headers, log entries and
	// the registry.
	TimeLayout = "2006-01-02T15:04:05Z"

	// StampLayout is the compact form embedded in archive and backup file
	// names.
	StampLayout = "20060102-150405"
)

// FormatTime renders t in the canonical ISO-8601 UTC form.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// FormatStamp renders t in the compact filename-safe form.
func FormatStamp(t time.Time) string {
	return t.UTC().Format(StampLayout)
}

// HistoryEntry is one record in a file's append-only history log. Entries
// are never mutated or reordered once written.
type HistoryEntry struct {
	Time    time.Time // event time, strictly ordered within a log
	Label   string    // "initialized", "save:<n>", "bumped <ver>", ...
	Added   []string  // lines added since the previous snapshot
	Removed []string  // lines removed since the previous snapshot
}

// Label constructors for the entry kinds the engine writes.

// SaveLabel returns the label for the n'th save since the last bump.
func SaveLabel(n int) string { return fmt.Sprintf("save:%d", n) }

// BumpLabel returns the label recording a revision bump to v.
func BumpLabel(v Version) string { return fmt.Sprintf("bumped %s", v) }

// MergeLabel returns the label recording a merge from source at the new
// version v.
func MergeLabel(source string, v Version) string {
	return fmt.Sprintf("merged %s %s", source, v)
}

// RebaseLabel returns the label recording a lineage change.
func RebaseLabel(old, next Version) string {
	return fmt.Sprintf("rebased %s -> %s", old, next)
}

// RenameLabel returns the label recording a tracked-file rename.
func RenameLabel(from, to string) string {
	return fmt.Sprintf("renamed %s -> %s", from, to)
}

// ArchiveLabel returns the marker left in an active log after its history
// was moved to cold storage.
func ArchiveLabel(n int, ref string) string {
	return fmt.Sprintf("archived %d entries to %s", n, ref)
}

const labelInitialized = "initialized"

// InitLabel returns the label of the first entry in every log.
func InitLabel() string { return labelInitialized }

// IsSave reports whether the entry records a content save, and if so the
// save counter it carries.
func (e HistoryEntry) IsSave() (int, bool) {
	rest, ok := strings.CutPrefix(e.Label, "save:")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsBump reports whether the entry records a revision bump.
func (e HistoryEntry) IsBump() bool {
	return strings.HasPrefix(e.Label, "bumped ")
}

// IsInit reports whether the entry is the initialization marker.
func (e HistoryEntry) IsInit() bool {
	return e.Label == labelInitialized
}

// LogMeta mirrors the tracked file's header plus the monotonically
// increasing saves counter. It is the first block of every history log.
type LogMeta struct {
	File    string    // project-relative path of the tracked file
	Version Version   // current version identifier
	Saves   int       // saves since the last bump (reset to 0 by bump)
	Updated time.Time // time of the last recorded event

	// RefVersions records, per referenced file, the version it had when
	// this file was last synced. Used to flag stale refs.
	RefVersions map[string]string

	// Archives lists cold-storage logs holding this file's older history,
	// oldest first. Track replays them before the active entries.
	Archives []string
}

// Log is the in-memory form of one per-file history log: a meta block and
// an ordered, append-only history block.
type Log struct {
	Meta    LogMeta
	History []HistoryEntry
}

// Append adds an entry to the history. Entries must be appended in
// chronological order; Append does not sort.
func (l *Log) Append(e HistoryEntry) {
	l.History = append(l.History, e)
}

// LastEntry returns the most recent entry, or a zero entry and false when
// the history is empty.
func (l *Log) LastEntry() (HistoryEntry, bool) {
	if len(l.History) == 0 {
		return HistoryEntry{}, false
	}
	return l.History[len(l.History)-1], true
}
