// Package registry maintains the process-wide ledger of running watchers
// and the list of registered project roots, shared by every dw invocation
// on the machine. All mutations happen under an exclusive file lock so a
// live watcher's deregistration cannot race an install or stop sweep.
package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"github.com/dukaforge/docwire/internal/dwml"
	"github.com/dukaforge/docwire/pkg/types"
)

const (
	metaBlockName = "meta"
	keyWatchers   = "watchers"

	lockRetryDelay = 50 * time.Millisecond
)

// Registry reads and mutates the watcher ledger stored at Path.
type Registry struct {
	Path string

	// alive probes whether a recorded pid still runs. Overridable in
	// tests; defaults to a signal-0 check.
	alive func(pid int) bool

	// signal delivers a termination request to a watcher process.
	signal func(pid int) error
}

// Open returns a registry over the ledger file at path.
func Open(path string) *Registry {
	return &Registry{
		Path:   path,
		alive:  processAlive,
		signal: func(pid int) error { return syscall.Kill(pid, syscall.SIGTERM) },
	}
}

// Register appends a watcher entry. Entries are not deduplicated by path:
// a stale entry for a dead process and a fresh one for the same path may
// coexist until pruned.
func (r *Registry) Register(ctx context.Context, path string, pid int) error {
	return r.mutate(ctx, func(entries []types.WatcherEntry) ([]types.WatcherEntry, error) {
		return append(entries, types.WatcherEntry{
			Path:    path,
			PID:     pid,
			Started: time.Now().UTC(),
		}), nil
	})
}

// Deregister removes the entry recorded for pid. A missing entry is a
// no-op, so a watcher exiting after an external stop already cleared it
// does not fail.
func (r *Registry) Deregister(ctx context.Context, pid int) error {
	return r.mutate(ctx, func(entries []types.WatcherEntry) ([]types.WatcherEntry, error) {
		return removeIf(entries, func(e types.WatcherEntry) bool { return e.PID == pid }), nil
	})
}

// DeregisterPath removes every entry recorded for a project path.
func (r *Registry) DeregisterPath(ctx context.Context, path string) error {
	return r.mutate(ctx, func(entries []types.WatcherEntry) ([]types.WatcherEntry, error) {
		return removeIf(entries, func(e types.WatcherEntry) bool { return e.Path == path }), nil
	})
}

// List returns every recorded entry. The registry does not self-heal:
// callers needing liveness must use Prune or probe themselves.
func (r *Registry) List(ctx context.Context) ([]types.WatcherEntry, error) {
	var entries []types.WatcherEntry
	err := r.withLock(ctx, func() error {
		var err error
		entries, err = r.load()
		return err
	})
	return entries, err
}

// Prune drops entries whose process no longer runs and returns the
// removed entries.
func (r *Registry) Prune(ctx context.Context) ([]types.WatcherEntry, error) {
	var pruned []types.WatcherEntry
	err := r.mutate(ctx, func(entries []types.WatcherEntry) ([]types.WatcherEntry, error) {
		kept := entries[:0:0]
		for _, e := range entries {
			if r.alive(e.PID) {
				kept = append(kept, e)
			} else {
				pruned = append(pruned, e)
			}
		}
		return kept, nil
	})
	return pruned, err
}

// Stop signals the watcher recorded for path and removes its entry. A pid
// that is already gone counts as cleared, not as an error: the registry,
// not the OS, is the source of truth for "a watcher is registered". The
// returned count is the number of processes actually signaled.
// types.ErrNoWatcher is returned when nothing is recorded for path.
func (r *Registry) Stop(ctx context.Context, path string) (int, error) {
	signaled := 0
	found := false
	err := r.mutate(ctx, func(entries []types.WatcherEntry) ([]types.WatcherEntry, error) {
		kept := entries[:0:0]
		for _, e := range entries {
			if e.Path != path {
				kept = append(kept, e)
				continue
			}
			found = true
			if r.alive(e.PID) && r.signal(e.PID) == nil {
				signaled++
			}
		}
		return kept, nil
	})
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%s: %w", path, types.ErrNoWatcher)
	}
	return signaled, nil
}

// StopAll signals every recorded watcher and clears the registry. Dead
// processes are cleared silently; the count reports how many were
// actually signaled.
func (r *Registry) StopAll(ctx context.Context) (int, error) {
	signaled := 0
	err := r.mutate(ctx, func(entries []types.WatcherEntry) ([]types.WatcherEntry, error) {
		for _, e := range entries {
			if r.alive(e.PID) && r.signal(e.PID) == nil {
				signaled++
			}
		}
		return nil, nil
	})
	return signaled, err
}

// WaitExit polls until the process exits or the timeout expires, in which
// case it returns types.ErrStopTimedOut. Stop is fire-and-forget; callers
// that need certainty chain it with WaitExit.
func (r *Registry) WaitExit(pid int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !r.alive(pid) {
			return nil
		}
		time.Sleep(lockRetryDelay)
	}
	return fmt.Errorf("pid %d: %w", pid, types.ErrStopTimedOut)
}

// mutate runs a read-modify-write cycle on the ledger under the exclusive
// lock.
func (r *Registry) mutate(ctx context.Context, fn func([]types.WatcherEntry) ([]types.WatcherEntry, error)) error {
	return r.withLock(ctx, func() error {
		entries, err := r.load()
		if err != nil {
			return err
		}
		entries, err = fn(entries)
		if err != nil {
			return err
		}
		return r.store(entries)
	})
}

func (r *Registry) withLock(ctx context.Context, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(r.Path), 0o755); err != nil {
		return fmt.Errorf("create registry dir: %w", err)
	}
	lock := flock.New(r.Path + ".lock")
	ok, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock registry: %w", err)
	}
	if !ok {
		return fmt.Errorf("lock registry: not acquired")
	}
	defer lock.Unlock()
	return fn()
}

// load parses the ledger. A missing file is an empty registry.
func (r *Registry) load() ([]types.WatcherEntry, error) {
	data, err := os.ReadFile(r.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	doc, err := dwml.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	meta := doc.Block(metaBlockName)
	if meta == nil {
		return nil, nil
	}
	var entries []types.WatcherEntry
	for _, raw := range meta.GetList(keyWatchers) {
		entry, ok := types.ParseWatcherEntry(raw)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// store writes the ledger atomically via a sibling temp file.
func (r *Registry) store(entries []types.WatcherEntry) error {
	doc := dwml.NewDocument()
	meta := doc.AddBlock(metaBlockName)
	values := make([]string, 0, len(entries))
	for _, e := range entries {
		values = append(values, e.Value())
	}
	if len(values) == 0 {
		values = append(values, "")
	}
	meta.Set(keyWatchers, values...)

	tmp, err := os.CreateTemp(filepath.Dir(r.Path), ".registry-*")
	if err != nil {
		return fmt.Errorf("create temp registry: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(doc.Render()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close registry: %w", err)
	}
	if err := os.Rename(tmpName, r.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace registry: %w", err)
	}
	return nil
}

func removeIf(entries []types.WatcherEntry, match func(types.WatcherEntry) bool) []types.WatcherEntry {
	kept := entries[:0:0]
	for _, e := range entries {
		if !match(e) {
			kept = append(kept, e)
		}
	}
	return kept
}

// processAlive is the signal-0 liveness probe.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
