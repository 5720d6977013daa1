// Package history implements the version tracking core: per-file history
// logs, snapshots, the save/bump/merge/rebase lifecycle and chronological
// replay across cold-storage archives.
package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/dukaforge/docwire/internal/head"
	"github.com/dukaforge/docwire/internal/paths"
	"github.com/dukaforge/docwire/pkg/types"
)

// Engine drives all history mutations for one project. Methods take the
// tracked file's project-relative path in "./sub/file.txt" form.
type Engine struct {
	project paths.Project
	log     *zap.Logger

	// now is the clock for recorded timestamps, overridable in tests.
	now func() time.Time
}

// New returns an engine for the project.
func New(project paths.Project, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{project: project, log: logger, now: time.Now}
}

// logRef returns the header's project-relative log path for a tracked file.
func logRef(rel string) string {
	return "./" + paths.DotDirName + "/" + paths.LogDirName + "/" + paths.StorageName(rel) + ".txt"
}

// Initialize starts tracking the file: a header at version av1r1 is
// prepended, a snapshot taken, and a log created with one initialized
// entry. Returns types.ErrAlreadyTracked when the file already carries a
// well-formed header.
func (e *Engine) Initialize(ctx context.Context, rel string) error {
	abs := e.project.AbsPath(rel)
	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("read %s: %w", rel, err)
	}
	content := string(data)
	if head.Has(content) {
		if _, perr := head.Parse(content); perr != nil {
			return fmt.Errorf("initialize %s: %w", rel, perr)
		}
		return fmt.Errorf("%s: %w", rel, types.ErrAlreadyTracked)
	}

	ts := e.now().UTC()
	h := types.Header{
		File:    rel,
		Version: types.InitialVersion,
		Log:     logRef(rel),
		Update:  ts,
	}
	tracked := head.Prepend(content, h)
	if err := os.WriteFile(abs, []byte(tracked), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	if err := e.writeSnapshot(rel, tracked); err != nil {
		return err
	}

	l := &types.Log{
		Meta: types.LogMeta{File: rel, Version: h.Version, Updated: ts},
	}
	l.Append(types.HistoryEntry{Time: ts, Label: types.InitLabel()})

	logPath := e.project.LogFile(paths.StorageName(rel))
	err = withLock(ctx, logPath, func() error {
		return WriteLog(logPath, l)
	})
	if err != nil {
		return err
	}
	e.log.Info("initialized", zap.String("file", rel), zap.String("version", h.Version.String()))
	return nil
}

// RecordSave diffs the file against its last snapshot and appends a
// save:<n> entry. Byte-identical content is a no-op: nothing is appended
// and the updated timestamp stays unchanged. Returns whether an entry was
// recorded.
//
// When the header's base letter differs from the log's, the file was
// rebased out-of-band: the active log rolls to cold storage and a fresh
// one starts at the header's version before the save is recorded.
func (e *Engine) RecordSave(ctx context.Context, rel string) (bool, error) {
	abs := e.project.AbsPath(rel)
	data, err := os.ReadFile(abs)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", rel, err)
	}
	content := string(data)
	h, err := head.Parse(content)
	if err != nil {
		return false, err
	}

	snapshot, err := e.readSnapshot(rel)
	if err != nil {
		return false, err
	}
	if snapshot == content {
		return false, nil
	}

	storage := paths.StorageName(rel)
	logPath := e.project.LogFile(storage)
	recorded := false
	err = withLock(ctx, logPath, func() error {
		l, err := ReadLog(logPath)
		if err != nil {
			return err
		}
		ts := e.now().UTC()

		if !l.Meta.Version.IsZero() && !l.Meta.Version.SameLineage(h.Version) {
			old := l.Meta.Version
			if err := e.rollToArchive(rel, l, ts); err != nil {
				return err
			}
			l = &types.Log{Meta: types.LogMeta{File: rel, Version: h.Version, Updated: ts}}
			l.Append(types.HistoryEntry{
				Time:  ts,
				Label: types.RebaseLabel(old, h.Version),
			})
		}

		added, removed := Changes(snapshot, content)
		l.Meta.Saves++
		l.Meta.Updated = ts
		l.Meta.File = rel
		l.Meta.Version = h.Version
		l.Append(types.HistoryEntry{
			Time:    ts,
			Label:   types.SaveLabel(l.Meta.Saves),
			Added:   capChanges(added),
			Removed: capChanges(removed),
		})
		recorded = true
		e.log.Debug("recorded save",
			zap.String("file", rel),
			zap.Int("save", l.Meta.Saves),
			zap.Int("added", len(added)),
			zap.Int("removed", len(removed)))
		return WriteLog(logPath, l)
	})
	if err != nil {
		return false, err
	}
	if err := e.writeSnapshot(rel, content); err != nil {
		return false, err
	}
	return recorded, nil
}

// Bump closes the accumulated saves under the next revision: version r+1,
// saves reset to 0, a bumped entry appended, and the header rewritten.
// Returns types.ErrNothingToBump when no saves happened since the last
// bump or initialization.
func (e *Engine) Bump(ctx context.Context, rel string) (types.Version, error) {
	storage := paths.StorageName(rel)
	logPath := e.project.LogFile(storage)

	var next types.Version
	err := withLock(ctx, logPath, func() error {
		l, err := ReadLog(logPath)
		if err != nil {
			return err
		}
		if l.Meta.Saves == 0 {
			return fmt.Errorf("%s: %w", rel, types.ErrNothingToBump)
		}
		next = l.Meta.Version.BumpRevision()
		ts := e.now().UTC()
		l.Meta.Version = next
		l.Meta.Saves = 0
		l.Meta.Updated = ts
		l.Append(types.HistoryEntry{Time: ts, Label: types.BumpLabel(next)})
		return WriteLog(logPath, l)
	})
	if err != nil {
		return types.Version{}, err
	}
	if err := e.rewriteHeaderVersion(rel, next); err != nil {
		return types.Version{}, err
	}
	e.log.Info("bumped", zap.String("file", rel), zap.String("version", next.String()))
	return next, nil
}

// MergeFrom folds a branch file's lineage back into rel: the major number
// increments, the revision resets, source joins the header refs, and the
// log records the source's version at merge time.
func (e *Engine) MergeFrom(ctx context.Context, rel, source string) (types.Version, error) {
	abs := e.project.AbsPath(rel)
	data, err := os.ReadFile(abs)
	if err != nil {
		return types.Version{}, fmt.Errorf("read %s: %w", rel, err)
	}
	content := string(data)
	h, err := head.Parse(content)
	if err != nil {
		return types.Version{}, err
	}

	sourceVersion := ""
	if sh, err := head.Read(e.project.AbsPath(source)); err == nil {
		sourceVersion = sh.Version.String()
	}

	next := h.Version.BumpMajor()
	storage := paths.StorageName(rel)
	logPath := e.project.LogFile(storage)
	err = withLock(ctx, logPath, func() error {
		l, err := ReadLog(logPath)
		if err != nil {
			return err
		}
		ts := e.now().UTC()
		l.Meta.Version = next
		l.Meta.Saves = 0
		l.Meta.Updated = ts
		if sourceVersion != "" {
			if l.Meta.RefVersions == nil {
				l.Meta.RefVersions = make(map[string]string)
			}
			l.Meta.RefVersions[source] = sourceVersion
		}
		l.Append(types.HistoryEntry{Time: ts, Label: types.MergeLabel(source, next)})
		return WriteLog(logPath, l)
	})
	if err != nil {
		return types.Version{}, err
	}

	h.AddRef(source)
	updated, _ := head.SetField(content, head.KeyVersion, next.String())
	updated, _ = head.SetField(updated, head.KeyRefs, h.RefsValue())
	updated, _ = head.SetField(updated, head.KeyUpdate, types.FormatTime(e.now()))
	if err := os.WriteFile(abs, []byte(updated), 0o644); err != nil {
		return types.Version{}, fmt.Errorf("write %s: %w", rel, err)
	}
	if err := e.writeSnapshot(rel, updated); err != nil {
		return types.Version{}, err
	}
	e.log.Info("merged",
		zap.String("file", rel),
		zap.String("source", source),
		zap.String("version", next.String()))
	return next, nil
}

// Rebase starts an unrelated new lineage: the base letter advances, major
// and revision reset, and the refs set clears.
func (e *Engine) Rebase(ctx context.Context, rel string) (types.Version, error) {
	abs := e.project.AbsPath(rel)
	data, err := os.ReadFile(abs)
	if err != nil {
		return types.Version{}, fmt.Errorf("read %s: %w", rel, err)
	}
	content := string(data)
	h, err := head.Parse(content)
	if err != nil {
		return types.Version{}, err
	}

	old := h.Version
	next := old.NextBase()
	storage := paths.StorageName(rel)
	logPath := e.project.LogFile(storage)
	err = withLock(ctx, logPath, func() error {
		l, err := ReadLog(logPath)
		if err != nil {
			return err
		}
		ts := e.now().UTC()
		l.Meta.Version = next
		l.Meta.Saves = 0
		l.Meta.Updated = ts
		l.Meta.RefVersions = nil
		l.Append(types.HistoryEntry{Time: ts, Label: types.RebaseLabel(old, next)})
		return WriteLog(logPath, l)
	})
	if err != nil {
		return types.Version{}, err
	}

	updated, _ := head.SetField(content, head.KeyVersion, next.String())
	updated, _ = head.SetField(updated, head.KeyRefs, "")
	updated, _ = head.SetField(updated, head.KeyUpdate, types.FormatTime(e.now()))
	if err := os.WriteFile(abs, []byte(updated), 0o644); err != nil {
		return types.Version{}, fmt.Errorf("write %s: %w", rel, err)
	}
	if err := e.writeSnapshot(rel, updated); err != nil {
		return types.Version{}, err
	}
	e.log.Info("rebased",
		zap.String("file", rel),
		zap.String("from", old.String()),
		zap.String("to", next.String()))
	return next, nil
}

// Rename moves a tracked file's snapshot and log to the new storage name
// and appends a renamed entry. The tracked file itself has already been
// moved by the caller (or the editor).
func (e *Engine) Rename(ctx context.Context, oldRel, newRel string) error {
	oldStorage := paths.StorageName(oldRel)
	newStorage := paths.StorageName(newRel)

	if snap := e.project.SnapshotFile(oldStorage); fileExists(snap) {
		if err := os.Rename(snap, e.project.SnapshotFile(newStorage)); err != nil {
			return fmt.Errorf("move snapshot: %w", err)
		}
	}

	oldLog := e.project.LogFile(oldStorage)
	if !fileExists(oldLog) {
		return nil
	}
	newLog := e.project.LogFile(newStorage)
	if err := os.Rename(oldLog, newLog); err != nil {
		return fmt.Errorf("move log: %w", err)
	}

	err := withLock(ctx, newLog, func() error {
		l, err := ReadLog(newLog)
		if err != nil {
			return err
		}
		ts := e.now().UTC()
		l.Meta.File = newRel
		l.Meta.Updated = ts
		l.Append(types.HistoryEntry{Time: ts, Label: types.RenameLabel(oldRel, newRel)})
		return WriteLog(newLog, l)
	})
	if err != nil {
		return err
	}

	abs := e.project.AbsPath(newRel)
	if _, err := head.UpdateFile(abs, head.KeyFile, newRel); err != nil {
		return err
	}
	if _, err := head.UpdateFile(abs, head.KeyLog, logRef(newRel)); err != nil {
		return err
	}
	e.log.Info("renamed", zap.String("from", oldRel), zap.String("to", newRel))
	return nil
}

// Track replays the file's full history in chronological order,
// transparently concatenating archived logs before the active entries.
func (e *Engine) Track(ctx context.Context, rel string) ([]types.HistoryEntry, error) {
	logPath := e.project.LogFile(paths.StorageName(rel))

	var entries []types.HistoryEntry
	err := withLock(ctx, logPath, func() error {
		l, err := ReadLog(logPath)
		if err != nil {
			return err
		}
		for _, ref := range l.Meta.Archives {
			archived, err := ReadLog(e.project.AbsPath(ref))
			if err != nil {
				return fmt.Errorf("archived log %s: %w", ref, err)
			}
			entries = append(entries, archived.History...)
		}
		entries = append(entries, l.History...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Meta returns the log meta of a tracked file.
func (e *Engine) Meta(rel string) (types.LogMeta, error) {
	l, err := ReadLog(e.project.LogFile(paths.StorageName(rel)))
	if err != nil {
		return types.LogMeta{}, err
	}
	return l.Meta, nil
}

// rollToArchive moves the active log to cold storage. The fresh lineage
// starts clean: pre-rebase history is reachable only through its acv file.
func (e *Engine) rollToArchive(rel string, l *types.Log, ts time.Time) error {
	storage := paths.StorageName(rel)
	name := storage + "-" + types.FormatStamp(ts) + ".txt"
	dest := filepath.Join(e.project.ArchiveDir(), name)
	if err := os.MkdirAll(e.project.ArchiveDir(), 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	if err := WriteLog(dest, l); err != nil {
		return err
	}
	e.log.Info("rolled log to archive", zap.String("file", rel), zap.String("archive", name))
	return nil
}

func (e *Engine) rewriteHeaderVersion(rel string, v types.Version) error {
	abs := e.project.AbsPath(rel)
	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("read %s: %w", rel, err)
	}
	updated, _ := head.SetField(string(data), head.KeyVersion, v.String())
	updated, _ = head.SetField(updated, head.KeyUpdate, types.FormatTime(e.now()))
	if err := os.WriteFile(abs, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return e.writeSnapshot(rel, updated)
}

func (e *Engine) readSnapshot(rel string) (string, error) {
	data, err := os.ReadFile(e.project.SnapshotFile(paths.StorageName(rel)))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read snapshot: %w", err)
	}
	return string(data), nil
}

func (e *Engine) writeSnapshot(rel, content string) error {
	dir := e.project.SnapshotDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	path := e.project.SnapshotFile(paths.StorageName(rel))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
