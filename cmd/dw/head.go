// Head command for the dw CLI: start tracking one file by hand.
package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukaforge/docwire/pkg/types"
)

var flagHeadFile string

var headCmd = &cobra.Command{
	Use:   "head",
	Short: "Add a tracking header to a file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagHeadFile == "" {
			return usageError{"head requires -f <file>"}
		}

		p, err := requireProject()
		if err != nil {
			return err
		}
		rel := relArg(p, flagHeadFile)

		engine := newEngine(p)
		if err := engine.Initialize(cmd.Context(), rel); err != nil {
			if errors.Is(err, types.ErrAlreadyTracked) {
				fmt.Println("Header already exists:", rel)
				return nil
			}
			return err
		}
		fmt.Println("Added header to:", rel)
		return nil
	},
}

func init() {
	headCmd.Flags().StringVarP(&flagHeadFile, "file", "f", "", "file to add a header to")
}
