package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dukaforge/docwire/internal/config"
	"github.com/dukaforge/docwire/internal/head"
	"github.com/dukaforge/docwire/internal/history"
	"github.com/dukaforge/docwire/internal/paths"
	"github.com/dukaforge/docwire/internal/registry"
	"github.com/dukaforge/docwire/pkg/types"
)

// sweepInterval is the cadence of the staleness poll that catches editors
// whose atomic rewrite sequences drop change notifications.
const sweepInterval = 500 * time.Millisecond

// Options configures a watcher run.
type Options struct {
	// RegisterSelf makes the watcher add its own registry entry before
	// entering the loop. Daemon children skip it: the parent registers
	// the child pid before returning.
	RegisterSelf bool
}

// Watcher is the per-project event loop. It runs single-goroutine: timer
// callbacks only post to the fired channel, so no two diffs for one file
// ever compute concurrently.
type Watcher struct {
	project paths.Project
	cfg     config.Config
	engine  *history.Engine
	reg     *registry.Registry
	source  Source
	session *Session
	log     *zap.Logger
	opts    Options

	debounce time.Duration
	fired    chan string
	timers   map[string]*time.Timer
}

// New assembles a watcher over the project.
func New(project paths.Project, cfg config.Config, engine *history.Engine, reg *registry.Registry, source Source, logger *zap.Logger, opts Options) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		project:  project,
		cfg:      cfg,
		engine:   engine,
		reg:      reg,
		source:   source,
		session:  NewSession(project),
		log:      logger,
		opts:     opts,
		debounce: time.Duration(cfg.DebounceMillis) * time.Millisecond,
		fired:    make(chan string, 64),
		timers:   make(map[string]*time.Timer),
	}
}

// Run watches until ctx is canceled. On the way out it flushes pending
// debounces as immediate saves, rolls the session log and removes its
// registry entry.
func (w *Watcher) Run(ctx context.Context) error {
	events, err := w.source.Subscribe(w.project.Root)
	if err != nil {
		return err
	}
	defer w.source.Close()

	if w.opts.RegisterSelf {
		if err := w.reg.Register(ctx, w.project.Root, os.Getpid()); err != nil {
			return err
		}
		if err := writePidFile(w.project, os.Getpid()); err != nil {
			w.log.Warn("pid file write failed", zap.Error(err))
		}
	}
	defer w.shutdown()

	w.log.Info("watching",
		zap.String("root", w.project.Root),
		zap.Duration("debounce", w.debounce))

	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			w.flush()
			return nil
		case ev, ok := <-events:
			if !ok {
				w.flush()
				return nil
			}
			w.handle(ev)
		case rel := <-w.fired:
			delete(w.timers, rel)
			w.save(rel)
		case <-sweep.C:
			w.sweepStale()
		}
	}
}

// shutdown runs after the loop exits, whatever the reason. A registry IO
// failure here is logged, not returned: the process is exiting either way.
func (w *Watcher) shutdown() {
	if err := w.session.Close(); err != nil {
		w.log.Warn("session log close failed", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.reg.Deregister(ctx, os.Getpid()); err != nil {
		w.log.Warn("deregister failed", zap.Error(err))
	}
	if err := os.Remove(w.project.PidFile()); err != nil && !os.IsNotExist(err) {
		w.log.Warn("pid file remove failed", zap.Error(err))
	}
}

func (w *Watcher) handle(ev Event) {
	rel := w.project.RelPath(ev.Path)
	if !w.tracks(rel) {
		return
	}
	switch ev.Op {
	case OpCreate:
		w.create(rel)
	case OpWrite:
		w.schedule(rel)
	case OpRemove:
		// Structural only: no history entry. The fix scan surfaces the
		// orphaned log.
		if t, ok := w.timers[rel]; ok {
			t.Stop()
			delete(w.timers, rel)
		}
	}
}

// tracks reports whether rel is a watchable text file: .txt, outside .dw/
// and not ignored by the project config.
func (w *Watcher) tracks(rel string) bool {
	if !strings.HasSuffix(rel, ".txt") {
		return false
	}
	trimmed := strings.TrimPrefix(rel, "./")
	if trimmed == rel || strings.HasPrefix(trimmed, paths.DotDirName+"/") {
		return false
	}
	return !w.cfg.Ignored(rel)
}

// schedule starts or resets the debounce timer for rel.
func (w *Watcher) schedule(rel string) {
	if t, ok := w.timers[rel]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[rel] = time.AfterFunc(w.debounce, func() {
		w.fired <- rel
	})
}

// create handles a new file appearing. A file carrying a header whose file
// field points elsewhere was moved by the editor: its snapshot and log
// follow it. Anything else just debounces into a save.
func (w *Watcher) create(rel string) {
	h, err := head.Read(w.project.AbsPath(rel))
	if err == nil && h.File != "" && h.File != rel {
		oldLog := w.project.LogFile(paths.StorageName(h.File))
		if _, statErr := os.Stat(oldLog); statErr == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := w.engine.Rename(ctx, h.File, rel); err != nil {
				w.log.Warn("rename failed", zap.String("file", rel), zap.Error(err))
				return
			}
			if err := w.session.Record("renamed", rel); err != nil {
				w.log.Warn("session log write failed", zap.Error(err))
			}
			return
		}
	}
	w.schedule(rel)
}

// save records one debounced save.
func (w *Watcher) save(rel string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	recorded, err := w.engine.RecordSave(ctx, rel)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrHeaderMissing):
			// Untracked file changed; nothing to record.
		case errors.Is(err, types.ErrLogMissing):
			w.log.Warn("log missing, run dw fix", zap.String("file", rel))
		default:
			w.log.Error("save failed", zap.String("file", rel), zap.Error(err))
		}
		return
	}
	if !recorded {
		return
	}
	if err := w.session.Record("saved", rel); err != nil {
		w.log.Warn("session log write failed", zap.Error(err))
	}
}

// flush fires every pending debounce immediately. Called on shutdown so a
// save made just before a stop signal is not lost.
func (w *Watcher) flush() {
	for rel, t := range w.timers {
		t.Stop()
		delete(w.timers, rel)
		w.save(rel)
	}
}

// sweepStale stats the most recently modified tracked file and schedules a
// save when its snapshot is behind. Editors that replace files via
// temp-and-rename can slip past directory notifications; the poll closes
// that gap.
func (w *Watcher) sweepStale() {
	var newest string
	var newestMod time.Time
	_ = filepath.WalkDir(w.project.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == paths.DotDirName {
				return filepath.SkipDir
			}
			return nil
		}
		rel := w.project.RelPath(path)
		if !w.tracks(rel) {
			return nil
		}
		if info, err := d.Info(); err == nil && info.ModTime().After(newestMod) {
			newest, newestMod = rel, info.ModTime()
		}
		return nil
	})
	if newest == "" {
		return
	}
	snap, err := os.Stat(w.project.SnapshotFile(paths.StorageName(newest)))
	if err != nil || !newestMod.After(snap.ModTime()) {
		return
	}
	if _, pending := w.timers[newest]; pending {
		return
	}
	w.schedule(newest)
}

// Stale is a helper for status output: it reports the tracked files whose
// content changed since their last snapshot.
func Stale(project paths.Project, cfg config.Config) ([]string, error) {
	var stale []string
	err := filepath.WalkDir(project.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == paths.DotDirName {
				return filepath.SkipDir
			}
			return nil
		}
		rel := project.RelPath(path)
		if !strings.HasSuffix(rel, ".txt") || cfg.Ignored(rel) {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", rel, err)
		}
		if !head.Has(string(data)) {
			return nil
		}
		snap, err := os.ReadFile(project.SnapshotFile(paths.StorageName(rel)))
		if err != nil || string(snap) != string(data) {
			stale = append(stale, rel)
		}
		return nil
	})
	return stale, err
}
