// Package main provides the dw CLI: per-file version tracking for plain
// text, driven by save events.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dukaforge/docwire/internal/dlog"
)

// Exit codes. User and state errors (untracked file, no watcher, nothing
// to bump) exit 1; IO and system failures exit 2.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// dwLog is the process-wide logger, configured by PersistentPreRunE from
// the tool config's log_level.
var dwLog *zap.Logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "dw",
	Short: "dw tracks versions of plain text files as you save them",
	Long: `dw watches tracked text files and records every save as a history
entry: a timestamped diff against the previous snapshot. Versions bump
explicitly, merges and rebases move the version forward, and every artifact
is a plain text file you can read without dw.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		cfg, err := loadToolConfig()
		if err != nil {
			return err
		}
		toolCfg = cfg

		logger, err := dlog.GetLogger(cfg.GetString(cfgKeyLogLevel))
		if err != nil {
			return fmt.Errorf("configure logging: %w", err)
		}
		dwLog = logger
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(bumpCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(headCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(compactCmd)
	rootCmd.AddCommand(allCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
