// Shared helpers for dw CLI commands.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukaforge/docwire/internal/config"
	"github.com/dukaforge/docwire/internal/history"
	"github.com/dukaforge/docwire/internal/maintain"
	"github.com/dukaforge/docwire/internal/paths"
	"github.com/dukaforge/docwire/internal/registry"
	"github.com/dukaforge/docwire/pkg/types"
)

// userErrors are the precondition failures that exit 1. Anything else that
// reaches main is treated as an IO or system failure and exits 2.
var userErrors = []error{
	types.ErrNotSetUp,
	types.ErrAlreadyTracked,
	types.ErrHeaderMissing,
	types.ErrLogMissing,
	types.ErrNothingToBump,
	types.ErrNoWatcher,
	types.ErrWatcherRunning,
	types.ErrStopTimedOut,
	types.ErrVersionMalformed,
}

// usageError marks a bad invocation so it exits 1 rather than 2.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ue usageError
	if errors.As(err, &ue) {
		return exitUserError
	}
	for _, sentinel := range userErrors {
		if errors.Is(err, sentinel) {
			return exitUserError
		}
	}
	return exitSysError
}

// requireProject locates the enclosing .dw/ project from the working
// directory. Commands that need an initialized project call this first.
func requireProject() (paths.Project, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return paths.Project{}, fmt.Errorf("resolve working directory: %w", err)
	}
	p, ok := paths.Find(cwd)
	if !ok {
		return paths.Project{}, types.ErrNotSetUp
	}
	return p, nil
}

// relArg normalizes a user-supplied file argument to the project-relative
// "./sub/file.txt" form used everywhere internally.
func relArg(p paths.Project, arg string) string {
	if filepath.IsAbs(arg) {
		return p.RelPath(arg)
	}
	rel := strings.TrimPrefix(filepath.ToSlash(filepath.Clean(arg)), "./")
	return "./" + rel
}

// projectConfig loads the project's config.txt, falling back to defaults
// when it is missing.
func projectConfig(p paths.Project) (config.Config, error) {
	return config.Load(p.ConfigFile())
}

func openRegistry() (*registry.Registry, error) {
	path := toolCfg.GetString(cfgKeyRegistryFile)
	if path == "" {
		var err error
		path, err = paths.RegistryFile()
		if err != nil {
			return nil, fmt.Errorf("resolve registry file: %w", err)
		}
	}
	return registry.Open(path), nil
}

func openLedger() (*registry.Ledger, error) {
	path, err := paths.ProjectsFile()
	if err != nil {
		return nil, fmt.Errorf("resolve projects file: %w", err)
	}
	return registry.OpenLedger(path), nil
}

func newEngine(p paths.Project) *history.Engine {
	return history.New(p, dwLog)
}

func newOps(p paths.Project) (*maintain.Ops, error) {
	cfg, err := projectConfig(p)
	if err != nil {
		return nil, err
	}
	return maintain.New(p, cfg, dwLog), nil
}
