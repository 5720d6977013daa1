package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// Ledger tracks the project roots that ran setup, one absolute path per
// line. The all commands walk it to reach every project on the machine.
type Ledger struct {
	Path string
}

// OpenLedger returns the project ledger stored at path.
func OpenLedger(path string) *Ledger {
	return &Ledger{Path: path}
}

// RegisterProject adds a project root. Already-registered roots are left
// in place, so setup can run repeatedly.
func (l *Ledger) RegisterProject(ctx context.Context, root string) error {
	return l.mutate(ctx, func(roots []string) []string {
		for _, r := range roots {
			if r == root {
				return roots
			}
		}
		return append(roots, root)
	})
}

// DeregisterProject removes a project root; a missing root is a no-op.
func (l *Ledger) DeregisterProject(ctx context.Context, root string) error {
	return l.mutate(ctx, func(roots []string) []string {
		kept := roots[:0:0]
		for _, r := range roots {
			if r != root {
				kept = append(kept, r)
			}
		}
		return kept
	})
}

// Projects returns every registered project root in registration order.
func (l *Ledger) Projects(ctx context.Context) ([]string, error) {
	var roots []string
	err := l.withLock(ctx, func() error {
		var err error
		roots, err = l.load()
		return err
	})
	return roots, err
}

func (l *Ledger) mutate(ctx context.Context, fn func([]string) []string) error {
	return l.withLock(ctx, func() error {
		roots, err := l.load()
		if err != nil {
			return err
		}
		return l.store(fn(roots))
	})
}

func (l *Ledger) withLock(ctx context.Context, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(l.Path), 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}
	lock := flock.New(l.Path + ".lock")
	ok, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock ledger: %w", err)
	}
	if !ok {
		return fmt.Errorf("lock ledger: not acquired")
	}
	defer lock.Unlock()
	return fn()
}

func (l *Ledger) load() ([]string, error) {
	data, err := os.ReadFile(l.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	var roots []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		roots = append(roots, line)
	}
	return roots, nil
}

func (l *Ledger) store(roots []string) error {
	var content string
	if len(roots) > 0 {
		content = strings.Join(roots, "\n") + "\n"
	}
	tmp, err := os.CreateTemp(filepath.Dir(l.Path), ".projects-*")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close ledger: %w", err)
	}
	if err := os.Rename(tmpName, l.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}
