// Start command for the dw CLI: bring the project up to date, then watch.
//
// Start is the daily entry point. It tracks any new text files, re-syncs
// metadata, bumps files with unbumped saves, and then starts the watcher,
// detached by default.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dukaforge/docwire/internal/config"
	"github.com/dukaforge/docwire/internal/head"
	"github.com/dukaforge/docwire/internal/history"
	"github.com/dukaforge/docwire/internal/paths"
	"github.com/dukaforge/docwire/internal/watch"
	"github.com/dukaforge/docwire/pkg/types"
)

var (
	flagStartForeground bool
	flagStartDaemon     bool
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Track new files, sync, bump, and start the watcher",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, err := requireProject()
		if err != nil {
			return err
		}
		cfg, err := projectConfig(p)
		if err != nil {
			return err
		}
		engine := newEngine(p)

		reg, err := openRegistry()
		if err != nil {
			return err
		}
		if _, err := reg.Prune(ctx); err != nil {
			return err
		}
		if !flagStartDaemon {
			entries, err := reg.List(ctx)
			if err != nil {
				return err
			}
			for _, e := range entries {
				if e.Path == p.Root {
					return fmt.Errorf("%w in %s (pid %d)", types.ErrWatcherRunning, p.Root, e.PID)
				}
			}

			if err := prepare(ctx, p, cfg, engine); err != nil {
				return err
			}
		}

		if !flagStartForeground {
			pid, err := watch.StartBackground(ctx, p, reg)
			if err != nil {
				return err
			}
			fmt.Printf("Watcher started (PID: %d)\n", pid)
			return nil
		}

		source, err := watch.NewNotifySource()
		if err != nil {
			return err
		}
		runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		w := watch.New(p, cfg, engine, reg, source, dwLog, watch.Options{
			RegisterSelf: !flagStartDaemon,
		})
		return w.Run(runCtx)
	},
}

func init() {
	startCmd.Flags().BoolVarP(&flagStartForeground, "foreground", "f", false, "run the watcher in the foreground")
	startCmd.Flags().BoolVar(&flagStartDaemon, "daemon", false, "")
	_ = startCmd.Flags().MarkHidden("daemon")
}

// prepare runs the pre-watch passes: track untracked text files, re-sync
// derived state, and bump everything with saves outstanding.
func prepare(ctx context.Context, p paths.Project, cfg config.Config, engine *history.Engine) error {
	tracked, err := initUntracked(ctx, p, cfg, engine)
	if err != nil {
		return err
	}
	if tracked > 0 {
		fmt.Printf("Tracking %d new files\n", tracked)
	}

	ops, err := newOps(p)
	if err != nil {
		return err
	}
	if _, err := ops.Resync(ctx); err != nil {
		return err
	}

	bumped, err := bumpAll(ctx, p, engine)
	if err != nil {
		return err
	}
	if bumped > 0 {
		fmt.Printf("Auto-bumped %d files\n", bumped)
	}
	return nil
}

// initUntracked walks the project for text files without a tracking header
// and initializes each one. Files that fail to initialize are logged and
// skipped so one bad file cannot block start.
func initUntracked(ctx context.Context, p paths.Project, cfg config.Config, engine *history.Engine) (int, error) {
	count := 0
	err := filepath.WalkDir(p.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == paths.DotDirName {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".txt") {
			return nil
		}
		rel := p.RelPath(path)
		if cfg.Ignored(rel) {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if head.Has(string(content)) {
			return nil
		}
		if err := engine.Initialize(ctx, rel); err != nil {
			dwLog.Warn("could not track file", zap.String("file", rel), zap.Error(err))
			return nil
		}
		count++
		return nil
	})
	return count, err
}
