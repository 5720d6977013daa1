// End-to-end tests for the dw CLI: setup, tracking, status, maintenance,
// and teardown, run against the real binary.
package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestMain builds the dw binary once before running tests.
func TestMain(m *testing.M) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		buildErr = err
		os.Exit(m.Run())
	}

	tmpDir, err := os.MkdirTemp("", "dw-test-*")
	if err != nil {
		buildErr = err
		os.Exit(m.Run())
	}
	dwBin = filepath.Join(tmpDir, "dw")

	cmd := exec.Command("go", "build", "-o", dwBin, "./cmd/dw")
	cmd.Dir = projectRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		buildErr = err
		os.Stderr.Write(output)
	}

	code := m.Run()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

func TestSetupScaffoldsProject(t *testing.T) {
	env := NewTestEnv(t)

	res := env.MustRunDw("setup")
	require.Contains(t, res.Stdout, "Set up docwire project")

	for _, dir := range []string{"loc", "snp", "glb", "cmp", "acv"} {
		info, err := os.Stat(filepath.Join(env.Root, ".dw", dir))
		require.NoError(t, err, dir)
		require.True(t, info.IsDir())
	}
	require.FileExists(t, filepath.Join(env.Root, ".dw", "config.txt"))

	list := env.MustRunDw("all", "list")
	require.NotContains(t, list.Stdout, "No registered projects")
	require.Contains(t, list.Stdout, "STOPPED")
}

func TestHeadTracksFile(t *testing.T) {
	env := NewTestEnv(t)
	env.MustRunDw("setup")
	env.WriteFile("plan.txt", "first line\n")

	res := env.MustRunDw("head", "-f", "plan.txt")
	require.Contains(t, res.Stdout, "Added header to: ./plan.txt")

	content := env.ReadFile("plan.txt")
	require.True(t, strings.HasPrefix(content, "=d=meta=w="))
	require.Contains(t, content, "first line")
	require.FileExists(t, filepath.Join(env.Root, ".dw", "loc", "plan.txt"))
	require.FileExists(t, filepath.Join(env.Root, ".dw", "snp", "plan.txt"))

	again := env.MustRunDw("head", "-f", "plan.txt")
	require.Contains(t, again.Stdout, "Header already exists")
}

func TestStatusAndTrack(t *testing.T) {
	env := NewTestEnv(t)
	env.MustRunDw("setup")
	env.WriteFile("plan.txt", "alpha\n")
	env.MustRunDw("head", "-f", "plan.txt")

	status := env.MustRunDw("status")
	require.Contains(t, status.Stdout, "Watcher: STOPPED")
	require.Contains(t, status.Stdout, "Tracked files: 1")

	track := env.MustRunDw("track", "plan.txt")
	require.Contains(t, track.Stdout, "File: ./plan.txt")
	require.Contains(t, track.Stdout, "Version: av1r1")
	require.Contains(t, track.Stdout, "initialized")

	paths := env.MustRunDw("track", "plan.txt", "-a")
	require.Contains(t, paths.Stdout, "loc")
	require.Contains(t, paths.Stdout, "snp")
}

func TestBumpWithoutSavesFails(t *testing.T) {
	env := NewTestEnv(t)
	env.MustRunDw("setup")
	env.WriteFile("plan.txt", "alpha\n")
	env.MustRunDw("head", "-f", "plan.txt")

	res := env.RunDw("bump", "-f", "plan.txt")
	require.Equal(t, 1, res.ExitCode)
	require.Contains(t, res.Stderr, "no saves")

	all := env.MustRunDw("bump")
	require.Contains(t, all.Stdout, "No files to bump")
}

func TestFixRepairsMissingLog(t *testing.T) {
	env := NewTestEnv(t)
	env.MustRunDw("setup")
	env.WriteFile("plan.txt", "alpha\n")
	env.MustRunDw("head", "-f", "plan.txt")

	clean := env.MustRunDw("fix")
	require.Contains(t, clean.Stdout, "No issues found")

	require.NoError(t, os.Remove(filepath.Join(env.Root, ".dw", "loc", "plan.txt")))

	report := env.MustRunDw("fix")
	require.Contains(t, report.Stdout, "ORPHAN-HEADER")

	repaired := env.MustRunDw("fix", "-y")
	require.Contains(t, repaired.Stdout, "Fixed 1")

	rescan := env.MustRunDw("fix")
	require.Contains(t, rescan.Stdout, "No issues found")
}

func TestSetupRemove(t *testing.T) {
	env := NewTestEnv(t)
	env.MustRunDw("setup")

	refused := env.RunDw("setup", "remove")
	require.Equal(t, 1, refused.ExitCode)
	require.DirExists(t, filepath.Join(env.Root, ".dw"))

	env.MustRunDw("setup", "remove", "--yes")
	require.NoDirExists(t, filepath.Join(env.Root, ".dw"))

	list := env.MustRunDw("all", "list")
	require.Contains(t, list.Stdout, "No registered projects")
}

func TestCommandsRequireSetup(t *testing.T) {
	env := NewTestEnv(t)

	res := env.RunDw("status")
	require.Equal(t, 1, res.ExitCode)
	require.Contains(t, res.Stderr, "dw setup")
}
