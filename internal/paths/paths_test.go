package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHomeDir_Linux(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-only test")
	}

	t.Run("DOCWIRE_HOME wins", func(t *testing.T) {
		t.Setenv(EnvHome, "/tmp/dw-home")
		got, err := HomeDir()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/dw-home", got)
	})

	t.Run("uses XDG_CONFIG_HOME when set", func(t *testing.T) {
		t.Setenv(EnvHome, "")
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
		got, err := HomeDir()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/xdg-config/docwire", got)
	})

	t.Run("falls back to ~/.config when XDG unset", func(t *testing.T) {
		t.Setenv(EnvHome, "")
		t.Setenv("XDG_CONFIG_HOME", "")
		home, err := os.UserHomeDir()
		require.NoError(t, err)

		got, err := HomeDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".config", "docwire"), got)
	})
}

func TestProjectLayout(t *testing.T) {
	p := Open("/work/notes")

	assert.Equal(t, filepath.Join("/work/notes", ".dw"), p.DotDir())
	assert.Equal(t, filepath.Join("/work/notes", ".dw", "loc", "plan.txt"), p.LogFile("plan"))
	assert.Equal(t, filepath.Join("/work/notes", ".dw", "snp", "plan.txt"), p.SnapshotFile("plan"))
	assert.Equal(t, filepath.Join("/work/notes", ".dw", "glb", "dw.pid"), p.PidFile())
	assert.Equal(t, filepath.Join("/work/notes", ".dw", "config.txt"), p.ConfigFile())
}

func TestFindRequiresDotDir(t *testing.T) {
	root := t.TempDir()

	_, ok := Find(root)
	assert.False(t, ok)

	require.NoError(t, os.MkdirAll(filepath.Join(root, DotDirName), 0o755))
	p, ok := Find(root)
	assert.True(t, ok)
	assert.Equal(t, root, p.Root)
}

func TestEnsureLayout(t *testing.T) {
	root := t.TempDir()
	p := Open(root)
	require.NoError(t, p.EnsureLayout())

	for _, dir := range []string{p.LogDir(), p.SnapshotDir(), p.SessionDir(), p.CompactDir(), p.ArchiveDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestRelAndAbsPath(t *testing.T) {
	p := Open("/work/notes")

	assert.Equal(t, "./plan.txt", p.RelPath("/work/notes/plan.txt"))
	assert.Equal(t, "./sub/plan.txt", p.RelPath("/work/notes/sub/plan.txt"))
	assert.Equal(t, "/elsewhere/plan.txt", p.RelPath("/elsewhere/plan.txt"))

	assert.Equal(t, filepath.Join("/work/notes", "sub", "plan.txt"), p.AbsPath("./sub/plan.txt"))
}

func TestStorageName(t *testing.T) {
	tests := []struct {
		name    string
		rel     string
		storage string
	}{
		{name: "top level file", rel: "./plan.txt", storage: "plan"},
		{name: "nested file", rel: "./notes/plan.txt", storage: "notes__plan"},
		{name: "deeply nested", rel: "./a/b/c.txt", storage: "a__b__c"},
		{name: "without dot slash prefix", rel: "plan.txt", storage: "plan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StorageName(tt.rel)
			assert.Equal(t, tt.storage, got)
			assert.Equal(t, "./"+trimDot(tt.rel), StoragePath(got))
		})
	}
}

func trimDot(rel string) string {
	if len(rel) > 2 && rel[:2] == "./" {
		return rel[2:]
	}
	return rel
}
