// Stop command for the dw CLI.
package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// stopWait bounds how long stop waits for the watcher to exit after
// signaling it.
const stopWait = 5 * time.Second

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the watcher for this project",
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
		var pids []int
		for _, e := range entries {
			if e.Path == p.Root {
				pids = append(pids, e.PID)
			}
		}

		signaled, err := reg.Stop(cmd.Context(), p.Root)
		if err != nil {
			return err
		}
		if signaled == 0 {
			// Registered pid was already gone; the entry is cleared.
			fmt.Println("Watcher was not running; cleared stale registration")
			return nil
		}
		for _, pid := range pids {
			if err := reg.WaitExit(pid, stopWait); err != nil {
				return err
			}
			fmt.Printf("Watcher stopped (PID: %d)\n", pid)
		}
		return nil
	},
}
