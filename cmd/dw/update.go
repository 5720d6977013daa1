// Update command for the dw CLI: refresh scaffolding for an existing
// project. Safe to run after upgrading dw; missing directories and the
// project registration are recreated, existing state is untouched.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukaforge/docwire/internal/config"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Refresh .dw/ scaffolding and re-register the project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := requireProject()
		if err != nil {
			return err
		}

		if err := p.EnsureLayout(); err != nil {
			return err
		}
		if _, err := os.Stat(p.ConfigFile()); os.IsNotExist(err) {
			if err := config.Save(p.ConfigFile(), config.Default()); err != nil {
				return err
			}
		}

		ledger, err := openLedger()
		if err != nil {
			return err
		}
		if err := ledger.RegisterProject(cmd.Context(), p.Root); err != nil {
			return err
		}

		fmt.Println("Updated docwire project at", p.Root)
		return nil
	},
}
