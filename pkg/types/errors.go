package types

import "errors"

// State-precondition errors. These are reported to the user and are never
// fatal to a running watcher (the fix command is the recovery path for the
// missing-header and missing-log states).
var (
	ErrAlreadyTracked = errors.New("file is already tracked")
	ErrHeaderMissing  = errors.New("file has no tracking header")
	ErrLogMissing     = errors.New("history log is missing")
	ErrNothingToBump  = errors.New("no saves since last bump")
)

// Version identifier errors.
var (
	ErrVersionMalformed = errors.New("malformed version identifier")
)

// Watcher and registry errors.
var (
	// ErrStopTimedOut is returned when a stop signal was delivered but the
	// watcher process did not exit within the wait window. The registry
	// entry is left in place in that case.
	ErrStopTimedOut = errors.New("watcher did not exit in time")

	// ErrWatcherRunning is returned when starting a watcher in a project
	// that already has a live one.
	ErrWatcherRunning = errors.New("watcher already running")

	// ErrNoWatcher is returned by stop when no watcher is recorded for the
	// project.
	ErrNoWatcher = errors.New("no watcher running")
)

// Project layout errors.
var (
	// ErrNotSetUp is returned when a command requires a .dw/ directory and
	// none exists in the project root.
	ErrNotSetUp = errors.New("no .dw directory; run 'dw setup' first")
)
