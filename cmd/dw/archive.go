// Archive command for the dw CLI: move old history to cold storage.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukaforge/docwire/internal/paths"
)

var flagArchiveFile string

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Move long histories to cold storage",
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

		if flagArchiveFile != "" {
			rel := relArg(p, flagArchiveFile)
			archived, err := ops.ArchiveFile(cmd.Context(), paths.StorageName(rel))
			if err != nil {
				return err
			}
			if !archived {
				fmt.Println("Nothing to archive for", rel)
				return nil
			}
			fmt.Println("Archived history of", rel)
			return nil
		}

		n, err := ops.ArchiveAll(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Archived %d files\n", n)
		return nil
	},
}

func init() {
	archiveCmd.Flags().StringVarP(&flagArchiveFile, "file", "f", "", "archive a single file's history")
}
