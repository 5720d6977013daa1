// Compact command for the dw CLI: summarize histories without mutating them.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukaforge/docwire/internal/paths"
)

var flagCompactFile string

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Write per-file history summaries to .dw/cmp/",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := requireProject()
		if err != nil {
			return err
		}
		ops, err := newOps(p)
		if err != nil {
			return err
		}

		if flagCompactFile != "" {
			rel := relArg(p, flagCompactFile)
			storage := paths.StorageName(rel)
			written, err := ops.CompactFile(storage)
			if err != nil {
				return err
			}
			if !written {
				fmt.Println("No history to compact for", rel)
				return nil
			}
			data, err := os.ReadFile(p.CompactFile(storage))
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		}

		n, err := ops.CompactAll()
		if err != nil {
			return err
		}
		fmt.Printf("Compacted %d files\n", n)
		return nil
	},
}

func init() {
	compactCmd.Flags().StringVarP(&flagCompactFile, "file", "f", "", "compact a single file's history")
}
