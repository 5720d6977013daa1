// Package config reads and writes the per-project configuration stored at
// .dw/config.txt. The file is a DWML document with a single config block so
// that it round-trips through the same codec as every other tracking
// artifact.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dukaforge/docwire/internal/dwml"
)

// Defaults applied when config.txt is absent or a key is missing.
const (
	DefaultArchiveThreshold = 100
	DefaultDebounceMillis   = 1000
)

// Config block field keys.
const (
	blockName           = "config"
	keyIgnore           = "ignore"
	keyArchiveThreshold = "archive_threshold"
	keyDebounceMillis   = "debounce_ms"
)

// Config holds per-project tracking settings.
type Config struct {
	// Ignore lists glob patterns, matched against project-relative paths,
	// that the watcher and maintenance scans skip.
	Ignore []string

	// ArchiveThreshold is the history length past which archive sweeps
	// roll a log to cold storage.
	ArchiveThreshold int

	// DebounceMillis is the quiet window the watcher waits after a write
	// before recording a save.
	DebounceMillis int
}

// Default returns the configuration used when no config.txt exists.
func Default() Config {
	return Config{
		Ignore:           nil,
		ArchiveThreshold: DefaultArchiveThreshold,
		DebounceMillis:   DefaultDebounceMillis,
	}
}

// Load reads the config file at path. A missing file yields Default() with
// no error; a present but malformed file is an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return parse(string(data))
}

// Save writes the configuration to path, creating parent directories as
// needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(Render(cfg)), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Render produces the DWML text for cfg.
func Render(cfg Config) string {
	doc := dwml.NewDocument()
	block := doc.AddBlock(blockName)
	block.Comments = append(block.Comments, "docwire project configuration")
	if len(cfg.Ignore) > 0 {
		block.Set(keyIgnore, cfg.Ignore...)
	} else {
		block.Set(keyIgnore, "")
	}
	block.Set(keyArchiveThreshold, strconv.Itoa(cfg.ArchiveThreshold))
	block.Set(keyDebounceMillis, strconv.Itoa(cfg.DebounceMillis))
	return doc.Render()
}

func parse(text string) (Config, error) {
	doc, err := dwml.Parse(text)
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	block := doc.Block(blockName)
	if block == nil {
		return Config{}, fmt.Errorf("parse config: no %s block", blockName)
	}

	cfg := Default()
	for _, pattern := range block.GetList(keyIgnore) {
		if p := strings.TrimSpace(pattern); p != "" {
			cfg.Ignore = append(cfg.Ignore, p)
		}
	}
	if v := strings.TrimSpace(block.Get(keyArchiveThreshold)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("parse config: bad %s %q", keyArchiveThreshold, v)
		}
		cfg.ArchiveThreshold = n
	}
	if v := strings.TrimSpace(block.Get(keyDebounceMillis)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("parse config: bad %s %q", keyDebounceMillis, v)
		}
		cfg.DebounceMillis = n
	}
	return cfg, nil
}

// Ignored reports whether the project-relative path (in "./sub/file.txt"
// form) matches any ignore pattern. Patterns match either the full relative
// path or the base name.
func (c Config) Ignored(rel string) bool {
	trimmed := strings.TrimPrefix(rel, "./")
	base := filepath.Base(trimmed)
	for _, pattern := range c.Ignore {
		if ok, _ := filepath.Match(pattern, trimmed); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
