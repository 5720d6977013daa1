// Setup command for the dw CLI: scaffold or remove a project's .dw/ tree.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukaforge/docwire/internal/config"
	"github.com/dukaforge/docwire/internal/paths"
	"github.com/dukaforge/docwire/pkg/types"
)

var flagSetupRemoveYes bool

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Scaffold .dw/ in the current directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
		p := paths.Open(cwd)

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

		fmt.Println("Set up docwire project at", p.Root)
		return nil
	},
}

var setupRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Delete .dw/ and deregister the project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !flagSetupRemoveYes {
			return usageError{"setup remove deletes all tracking state; re-run with --yes to confirm"}
		}

		p, err := requireProject()
		if err != nil {
			return err
		}

		reg, err := openRegistry()
		if err != nil {
			return err
		}
		if _, err := reg.Stop(cmd.Context(), p.Root); err != nil && !errors.Is(err, types.ErrNoWatcher) {
			return err
		}

		if err := os.RemoveAll(p.DotDir()); err != nil {
			return fmt.Errorf("remove %s: %w", p.DotDir(), err)
		}

		ledger, err := openLedger()
		if err != nil {
			return err
		}
		if err := ledger.DeregisterProject(cmd.Context(), p.Root); err != nil {
			return err
		}

		fmt.Println("Removed docwire project at", p.Root)
		return nil
	},
}

func init() {
	setupRemoveCmd.Flags().BoolVar(&flagSetupRemoveYes, "yes", false, "skip the confirmation prompt")
	setupCmd.AddCommand(setupRemoveCmd)
}
