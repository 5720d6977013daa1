// Bump command for the dw CLI: close out accumulated saves as a revision.
package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukaforge/docwire/internal/history"
	"github.com/dukaforge/docwire/internal/paths"
)

var flagBumpFile string

var bumpCmd = &cobra.Command{
	Use:   "bump",
	Short: "Bump version for files with unbumped saves",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := requireProject()
		if err != nil {
			return err
		}
		engine := newEngine(p)

		if flagBumpFile != "" {
			rel := relArg(p, flagBumpFile)
			v, err := engine.Bump(cmd.Context(), rel)
			if err != nil {
				return fmt.Errorf("bump %s: %w", rel, err)
			}
			fmt.Printf("Bumped %s to %s\n", rel, v)
			return nil
		}

		bumped, err := bumpAll(cmd.Context(), p, engine)
		if err != nil {
			return err
		}
		if bumped == 0 {
			fmt.Println("No files to bump (no unbumped saves)")
			return nil
		}
		fmt.Printf("Auto-bumped %d files\n", bumped)
		return nil
	},
}

func init() {
	bumpCmd.Flags().StringVarP(&flagBumpFile, "file", "f", "", "bump a single file")
}

// bumpAll bumps every tracked file with saves outstanding. Files with no
// saves since their last bump are skipped silently.
func bumpAll(ctx context.Context, p paths.Project, engine *history.Engine) (int, error) {
	ops, err := newOps(p)
	if err != nil {
		return 0, err
	}
	metas, err := ops.Tracked(ctx)
	if err != nil {
		return 0, err
	}

	bumped := 0
	for _, m := range metas {
		if m.Saves == 0 {
			continue
		}
		if _, err := engine.Bump(ctx, m.File); err != nil {
			return bumped, fmt.Errorf("bump %s: %w", m.File, err)
		}
		bumped++
	}
	return bumped, nil
}
