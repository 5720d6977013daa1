// Fix command for the dw CLI: diagnose and repair tracking state.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	flagFixYes     bool
	flagFixDryRun  bool
	flagFixResync  bool
	flagFixRemove  bool
	flagFixOneFile string
)

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Diagnose and repair tracking state",
	Long: `Fix scans for inconsistencies between tracked files and their logs:
orphaned logs and headers, mismatched metadata, malformed versions,
oversized histories, and stale or broken refs.

Without flags it only reports. -y repairs what can be repaired
automatically, -s forces a full re-sync from file headers, -r retires
orphaned logs (or untracks one file with -f).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, err := requireProject()
		if err != nil {
			return err
		}
		ops, err := newOps(p)
		if err != nil {
			return err
		}

		if flagFixResync {
			repaired, err := ops.Resync(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Re-synced: %d files repaired\n", repaired)
			return nil
		}

		if flagFixRemove {
			if flagFixOneFile != "" {
				rel := relArg(p, flagFixOneFile)
				if err := ops.Untrack(ctx, rel); err != nil {
					return err
				}
				fmt.Println("Untracked:", rel)
				return nil
			}
			removed, err := ops.RemoveOrphans(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Retired %d orphaned logs\n", removed)
			return nil
		}

		issues, err := ops.Scan(ctx)
		if err != nil {
			return err
		}
		if len(issues) == 0 {
			fmt.Println("No issues found")
			return nil
		}

		for _, issue := range issues {
			fmt.Println(issue)
		}
		fmt.Printf("\n%d issues\n", len(issues))

		if flagFixDryRun || !flagFixYes {
			fmt.Println("Run 'dw fix -y' to auto-repair, 'dw fix -r' to retire orphaned logs")
			return nil
		}

		fixed, skipped, err := ops.AutoFix(ctx, issues)
		if err != nil {
			return err
		}
		fmt.Printf("Fixed %d, skipped %d\n", fixed, skipped)
		return nil
	},
}

func init() {
	fixCmd.Flags().BoolVarP(&flagFixYes, "yes", "y", false, "repair auto-fixable issues")
	fixCmd.Flags().BoolVarP(&flagFixDryRun, "dry-run", "n", false, "report only, never repair")
	fixCmd.Flags().BoolVarP(&flagFixResync, "sync", "s", false, "force a full re-sync from file headers")
	fixCmd.Flags().BoolVarP(&flagFixRemove, "remove", "r", false, "retire orphaned logs (with -f: untrack one file)")
	fixCmd.Flags().StringVarP(&flagFixOneFile, "file", "f", "", "limit -r to one file")
}
