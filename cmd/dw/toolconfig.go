// Tool-level config loading for the dw CLI. Per-project settings live in
// .dw/config.txt; config.yaml in the global docwire directory carries the
// settings that apply to every project on the machine.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/dukaforge/docwire/internal/paths"
)

const (
	toolConfigName = "config"
	toolConfigType = "yaml"
	toolConfigFile = "config.yaml"

	cfgKeyLogLevel     = "log_level"
	cfgKeyRegistryFile = "registry_file"

	defaultLogLevel = "info"
)

// defaultToolConfigYAML is written to config.yaml on first run.
const defaultToolConfigYAML = `# dw tool configuration.
# Per-project settings (debounce, ignore patterns, archive threshold)
# live in each project's .dw/config.txt.

# Log verbosity: none, info, or debug.
log_level: info

# Override the watcher registry location (optional).
# registry_file:
`

// toolCfg holds the loaded tool config. Set by PersistentPreRunE before any
// subcommand runs.
var toolCfg = viper.New()

// loadToolConfig reads config.yaml from the global docwire directory,
// creating the directory and a default file on first run. A missing file is
// not an error.
func loadToolConfig() (*viper.Viper, error) {
	home, err := paths.HomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve docwire home: %w", err)
	}
	if err := os.MkdirAll(home, 0o755); err != nil {
		return nil, fmt.Errorf("create docwire home: %w", err)
	}
	if err := ensureDefaultToolConfig(home); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetConfigName(toolConfigName)
	v.SetConfigType(toolConfigType)
	v.AddConfigPath(home)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read tool config: %w", err)
	}
	return v, nil
}

// ensureDefaultToolConfig writes a default config.yaml if none exists.
func ensureDefaultToolConfig(home string) error {
	path := filepath.Join(home, toolConfigFile)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat tool config: %w", err)
	}

	return os.WriteFile(path, []byte(defaultToolConfigYAML), 0o644)
}
