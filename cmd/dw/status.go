// Status command for the dw CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukaforge/docwire/internal/watch"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show watcher state and tracked files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := requireProject()
		if err != nil {
			return err
		}
		reg, err := openRegistry()
		if err != nil {
			return err
		}

		entries, err := reg.List(cmd.Context())
		if err != nil {
			return err
		}
		running := false
		for _, e := range entries {
			if e.Path != p.Root {
				continue
			}
			running = true
			fmt.Printf("Watcher: RUNNING (PID: %d)\n", e.PID)
			if info, err := watch.ReadSession(p.SessionLog()); err == nil {
				fmt.Println("Started:", info.Started)
				fmt.Println("Events:", info.Events)
			}
		}
		if !running {
			fmt.Println("Watcher: STOPPED")
		}
		fmt.Println()

		ops, err := newOps(p)
		if err != nil {
			return err
		}
		metas, err := ops.Tracked(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println("Tracked files:", len(metas))

		unbumped := 0
		for _, m := range metas {
			if m.Saves > 0 {
				if unbumped == 0 {
					fmt.Println()
					fmt.Println("Unbumped saves:")
				}
				unbumped++
				fmt.Printf("  %s (%s, %d saves)\n", m.File, m.Version, m.Saves)
			}
		}

		cfg, err := projectConfig(p)
		if err != nil {
			return err
		}
		stale, err := watch.Stale(p, cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, "stale check:", err)
		} else if len(stale) > 0 {
			fmt.Println()
			fmt.Println("Unrecorded changes (watcher not running or behind):")
			for _, rel := range stale {
				fmt.Printf("  %s\n", rel)
			}
		}
		return nil
	},
}
