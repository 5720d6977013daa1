// Package paths resolves the per-project .dw/ layout, the global docwire
// data directory, and the storage-name mapping for tracked files.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DotDirName is the per-project tracking directory created by setup.
const DotDirName = ".dw"

// Subdirectories of .dw/.
const (
	LogDirName      = "loc" // per-file history logs
	SnapshotDirName = "snp" // last-known content snapshots
	SessionDirName  = "glb" // watcher session logs and pid file
	CompactDirName  = "cmp" // compact summaries
	ArchiveDirName  = "acv" // cold-storage history archives
)

// EnvHome overrides the global docwire directory location.
const EnvHome = "DOCWIRE_HOME"

// Global file names under the docwire home directory.
const (
	RegistryFileName = "dw-registry.txt"
	ProjectsFileName = "dw-projects.txt"
	ToolConfigName   = "config.yaml"
)

// platformDir holds platform-detection functions that can be overridden in
// tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// HomeDir returns the global docwire directory holding the watcher
// registry, the project ledger, and tool-level config.
//
// Linux:   $XDG_CONFIG_HOME/docwire (fallback ~/.config/docwire)
// macOS:   ~/Library/Application Support/docwire
// Windows: %APPDATA%/docwire
//
// DOCWIRE_HOME overrides all of the above.
func HomeDir() (string, error) {
	if env := os.Getenv(EnvHome); env != "" {
		return filepath.Abs(env)
	}
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "docwire"), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "docwire"), nil
	default:
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "docwire"), nil
	}
}

// RegistryFile returns the path of the global watcher registry.
func RegistryFile() (string, error) {
	home, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, RegistryFileName), nil
}

// ProjectsFile returns the path of the global project ledger.
func ProjectsFile() (string, error) {
	home, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ProjectsFileName), nil
}

// Project describes one tracked project root and the .dw/ layout inside it.
type Project struct {
	Root string
}

// Open returns the project rooted at dir without checking for a .dw/
// directory. Use Find when the caller requires an existing setup.
func Open(dir string) Project {
	return Project{Root: dir}
}

// Find returns the project rooted at dir, or types.ErrNotSetUp-equivalent
// behavior via ok=false when dir has no .dw/ directory.
func Find(dir string) (Project, bool) {
	p := Project{Root: dir}
	info, err := os.Stat(p.DotDir())
	if err != nil || !info.IsDir() {
		return Project{}, false
	}
	return p, true
}

// DotDir returns the project's .dw/ directory.
func (p Project) DotDir() string { return filepath.Join(p.Root, DotDirName) }

// LogDir returns .dw/loc/.
func (p Project) LogDir() string { return filepath.Join(p.DotDir(), LogDirName) }

// SnapshotDir returns .dw/snp/.
func (p Project) SnapshotDir() string { return filepath.Join(p.DotDir(), SnapshotDirName) }

// SessionDir returns .dw/glb/.
func (p Project) SessionDir() string { return filepath.Join(p.DotDir(), SessionDirName) }

// CompactDir returns .dw/cmp/.
func (p Project) CompactDir() string { return filepath.Join(p.DotDir(), CompactDirName) }

// ArchiveDir returns .dw/acv/.
func (p Project) ArchiveDir() string { return filepath.Join(p.DotDir(), ArchiveDirName) }

// ConfigFile returns .dw/config.txt, the per-project DWML config.
func (p Project) ConfigFile() string { return filepath.Join(p.DotDir(), "config.txt") }

// IndexFile returns .dw/index.txt, the tracked-file index.
func (p Project) IndexFile() string { return filepath.Join(p.DotDir(), "index.txt") }

// PidFile returns .dw/glb/dw.pid, written by a running watcher.
func (p Project) PidFile() string { return filepath.Join(p.SessionDir(), "dw.pid") }

// SessionLog returns .dw/glb/dw-current.txt, the live watcher session log.
func (p Project) SessionLog() string { return filepath.Join(p.SessionDir(), "dw-current.txt") }

// LogFile returns the history log path for a tracked file's storage name.
func (p Project) LogFile(storage string) string {
	return filepath.Join(p.LogDir(), storage+".txt")
}

// SnapshotFile returns the snapshot path for a tracked file's storage name.
func (p Project) SnapshotFile(storage string) string {
	return filepath.Join(p.SnapshotDir(), storage+".txt")
}

// CompactFile returns the compact-summary path for a storage name.
func (p Project) CompactFile(storage string) string {
	return filepath.Join(p.CompactDir(), storage+".txt")
}

// EnsureLayout creates .dw/ and all its subdirectories.
func (p Project) EnsureLayout() error {
	for _, dir := range []string{
		p.DotDir(), p.LogDir(), p.SnapshotDir(),
		p.SessionDir(), p.CompactDir(), p.ArchiveDir(),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// RelPath converts an absolute path under the project root into the
// "./sub/file.txt" form recorded in headers and logs. Paths outside the
// root are returned unchanged.
func (p Project) RelPath(abs string) string {
	rel, err := filepath.Rel(p.Root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return abs
	}
	return "./" + filepath.ToSlash(rel)
}

// AbsPath converts a recorded "./sub/file.txt" path back to an absolute
// path under the project root.
func (p Project) AbsPath(rel string) string {
	return filepath.Join(p.Root, filepath.FromSlash(strings.TrimPrefix(rel, "./")))
}

// StorageName flattens a project-relative tracked-file path into the name
// used for its log, snapshot and summary files: directory separators become
// "__" and the .txt extension is dropped. "./notes/plan.txt" maps to
// "notes__plan".
func StorageName(rel string) string {
	rel = strings.TrimPrefix(filepath.ToSlash(rel), "./")
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return strings.ReplaceAll(rel, "/", "__")
}

// StoragePath reverses StorageName back into the "./sub/file.txt" form.
// Names containing a literal "__" in a path component do not survive the
// round trip; the trade-off mirrors the flat storage layout.
func StoragePath(storage string) string {
	return "./" + strings.ReplaceAll(storage, "__", "/") + ".txt"
}
