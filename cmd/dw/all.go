// All command for the dw CLI: operate across every registered project.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukaforge/docwire/internal/config"
	"github.com/dukaforge/docwire/internal/paths"
	"github.com/dukaforge/docwire/internal/watch"
)

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Operate on every registered project",
}

var allListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered projects and their watcher state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		roots, running, err := projectStates(cmd)
		if err != nil {
			return err
		}
		if len(roots) == 0 {
			fmt.Println("No registered projects")
			return nil
		}
		for _, root := range roots {
			if pid, ok := running[root]; ok {
				fmt.Printf("%s  RUNNING (PID: %d)\n", root, pid)
			} else {
				fmt.Printf("%s  STOPPED\n", root)
			}
		}
		return nil
	},
}

var allWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Start watchers for every project without one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		roots, running, err := projectStates(cmd)
		if err != nil {
			return err
		}
		reg, err := openRegistry()
		if err != nil {
			return err
		}

		started := 0
		for _, root := range roots {
			if _, ok := running[root]; ok {
				continue
			}
			if _, err := os.Stat(root); err != nil {
				fmt.Fprintf(os.Stderr, "skipping %s: %v\n", root, err)
				continue
			}
			pid, err := watch.StartBackground(cmd.Context(), paths.Open(root), reg)
			if err != nil {
				return fmt.Errorf("start watcher for %s: %w", root, err)
			}
			fmt.Printf("%s  started (PID: %d)\n", root, pid)
			started++
		}
		fmt.Printf("Started %d watchers\n", started)
		return nil
	},
}

var allStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop every registered watcher",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		stopped, err := reg.StopAll(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Stopped %d watchers\n", stopped)
		return nil
	},
}

var allUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Refresh scaffolding in every registered project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger, err := openLedger()
		if err != nil {
			return err
		}
		roots, err := ledger.Projects(cmd.Context())
		if err != nil {
			return err
		}

		updated := 0
		for _, root := range roots {
			if _, err := os.Stat(root); err != nil {
				fmt.Fprintf(os.Stderr, "skipping %s: %v\n", root, err)
				continue
			}
			p := paths.Open(root)
			if err := p.EnsureLayout(); err != nil {
				return err
			}
			if _, err := os.Stat(p.ConfigFile()); os.IsNotExist(err) {
				if err := config.Save(p.ConfigFile(), config.Default()); err != nil {
					return err
				}
			}
			updated++
		}
		fmt.Printf("Updated %d projects\n", updated)
		return nil
	},
}

// projectStates returns the registered project roots plus a map of root to
// watcher pid for those with a live watcher.
func projectStates(cmd *cobra.Command) ([]string, map[string]int, error) {
	ledger, err := openLedger()
	if err != nil {
		return nil, nil, err
	}
	roots, err := ledger.Projects(cmd.Context())
	if err != nil {
		return nil, nil, err
	}

	reg, err := openRegistry()
	if err != nil {
		return nil, nil, err
	}
	if _, err := reg.Prune(cmd.Context()); err != nil {
		return nil, nil, err
	}
	entries, err := reg.List(cmd.Context())
	if err != nil {
		return nil, nil, err
	}

	running := make(map[string]int, len(entries))
	for _, e := range entries {
		running[e.Path] = e.PID
	}
	return roots, running, nil
}

func init() {
	allCmd.AddCommand(allListCmd)
	allCmd.AddCommand(allWatchCmd)
	allCmd.AddCommand(allStopCmd)
	allCmd.AddCommand(allUpdateCmd)
}
