// Version command for the dw CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// dwVersion is the released tool version.
const dwVersion = "v0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the dw version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("dw", dwVersion)
	},
}
