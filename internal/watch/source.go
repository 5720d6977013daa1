// Package watch runs the per-project watcher: it observes file saves under
// the project root, coalesces editor bursts through a per-path debounce,
// and drives the history engine. Change notification sits behind the
// Source interface so the loop is identical on every platform.
package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/dukaforge/docwire/internal/paths"
)

// Op classifies a filesystem event.
type Op int

const (
	OpWrite Op = iota
	OpCreate
	OpRemove
)

// Event is one change notification, delivered with the absolute path of
// the file it concerns.
type Event struct {
	Op   Op
	Path string
}

// Source delivers change events for everything under a root directory.
type Source interface {
	// Subscribe starts watching root and returns the event stream. The
	// channel closes when the source shuts down.
	Subscribe(root string) (<-chan Event, error)

	// Close stops the source and releases its watches.
	Close() error
}

// NotifySource is the fsnotify-backed Source. It watches every directory
// under the root (fsnotify watches are not recursive) and adds new
// directories as they appear.
type NotifySource struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewNotifySource returns an OS-notification source.
func NewNotifySource() (*NotifySource, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}
	return &NotifySource{watcher: w, done: make(chan struct{})}, nil
}

// Subscribe walks root, adds a watch per directory, and starts the
// translation goroutine.
func (s *NotifySource) Subscribe(root string) (<-chan Event, error) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == paths.DotDirName {
			return filepath.SkipDir
		}
		return s.watcher.Add(path)
	})
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}

	out := make(chan Event)
	go s.run(out)
	return out, nil
}

func (s *NotifySource) run(out chan<- Event) {
	defer close(out)
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.translate(ev, out)
		case _, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (s *NotifySource) translate(ev fsnotify.Event, out chan<- Event) {
	if strings.Contains(ev.Name, string(os.PathSeparator)+paths.DotDirName+string(os.PathSeparator)) {
		return
	}
	switch {
	case ev.Op.Has(fsnotify.Create):
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			// New subdirectory: extend the watch, no event.
			_ = s.watcher.Add(ev.Name)
			return
		}
		out <- Event{Op: OpCreate, Path: ev.Name}
	case ev.Op.Has(fsnotify.Write):
		out <- Event{Op: OpWrite, Path: ev.Name}
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		out <- Event{Op: OpRemove, Path: ev.Name}
	}
}

// Close shuts the source down; the subscribed channel closes shortly
// after.
func (s *NotifySource) Close() error {
	close(s.done)
	return s.watcher.Close()
}
