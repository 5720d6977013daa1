// Track command for the dw CLI: inspect a file's recorded history.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukaforge/docwire/internal/paths"
	"github.com/dukaforge/docwire/pkg/types"
)

// trackShown caps the history entries the default view prints.
const trackShown = 10

var (
	flagTrackLog   bool
	flagTrackText  bool
	flagTrackPaths bool
)

var trackCmd = &cobra.Command{
	Use:   "track <file>",
	Short: "Show a file's version history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := requireProject()
		if err != nil {
			return err
		}
		rel := relArg(p, args[0])
		storage := paths.StorageName(rel)

		if flagTrackPaths {
			fmt.Println("txt:", p.AbsPath(rel))
			fmt.Println("loc:", p.LogFile(storage))
			fmt.Println("snp:", p.SnapshotFile(storage))
			return nil
		}
		if flagTrackLog {
			data, err := os.ReadFile(p.LogFile(storage))
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("%s: %w", rel, types.ErrLogMissing)
				}
				return err
			}
			fmt.Print(string(data))
			return nil
		}
		if flagTrackText {
			data, err := os.ReadFile(p.AbsPath(rel))
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		}

		engine := newEngine(p)
		meta, err := engine.Meta(rel)
		if err != nil {
			if errors.Is(err, types.ErrLogMissing) {
				return fmt.Errorf("no history found for %s: %w", rel, err)
			}
			return err
		}
		entries, err := engine.Track(cmd.Context(), rel)
		if err != nil {
			return err
		}

		fmt.Println("File:", meta.File)
		fmt.Println("Version:", meta.Version)
		fmt.Println("Saves:", meta.Saves)
		fmt.Println("Updated:", types.FormatTime(meta.Updated))
		fmt.Println()
		fmt.Printf("History (%d entries):\n", len(entries))

		shown := entries
		if len(shown) > trackShown {
			shown = shown[len(shown)-trackShown:]
		}
		for _, e := range shown {
			line := fmt.Sprintf("  %s  %s", types.FormatTime(e.Time), e.Label)
			if len(e.Added) > 0 || len(e.Removed) > 0 {
				line += fmt.Sprintf("  (+%d -%d)", len(e.Added), len(e.Removed))
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	trackCmd.Flags().BoolVarP(&flagTrackLog, "log", "l", false, "print the raw history log")
	trackCmd.Flags().BoolVarP(&flagTrackText, "text", "t", false, "print the tracked file content")
	trackCmd.Flags().BoolVarP(&flagTrackPaths, "paths", "a", false, "print the file, log, and snapshot paths")
}
