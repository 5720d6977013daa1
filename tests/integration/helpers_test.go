// Shared helpers for dw CLI integration tests.
package integration

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	// dwBin is the path of the binary built by TestMain.
	dwBin string

	// buildErr records a TestMain build failure so every test can report it.
	buildErr error
)

// findProjectRoot walks up from the working directory to the go.mod root.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// Result holds one dw invocation's output.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// TestEnv is an isolated project directory plus a private docwire home, so
// tests never touch the real registry.
type TestEnv struct {
	t    *testing.T
	Root string
	Home string
}

// NewTestEnv creates an isolated environment under t.TempDir.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if buildErr != nil {
		t.Fatalf("dw binary build failed: %v", buildErr)
	}
	base := t.TempDir()
	root := filepath.Join(base, "project")
	home := filepath.Join(base, "home")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.MkdirAll(home, 0o755))
	return &TestEnv{t: t, Root: root, Home: home}
}

// RunDw runs dw with the given arguments inside the project directory.
func (e *TestEnv) RunDw(args ...string) Result {
	e.t.Helper()
	cmd := exec.Command(dwBin, args...)
	cmd.Dir = e.Root
	cmd.Env = append(os.Environ(), "DOCWIRE_HOME="+e.Home)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	code := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
	} else if err != nil {
		e.t.Fatalf("run dw %v: %v", args, err)
	}
	return Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: code}
}

// MustRunDw runs dw and fails the test on a non-zero exit.
func (e *TestEnv) MustRunDw(args ...string) Result {
	e.t.Helper()
	res := e.RunDw(args...)
	require.Zero(e.t, res.ExitCode, "dw %v failed: %s%s", args, res.Stdout, res.Stderr)
	return res
}

// WriteFile writes a file under the project root.
func (e *TestEnv) WriteFile(rel, content string) {
	e.t.Helper()
	path := filepath.Join(e.Root, rel)
	require.NoError(e.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(e.t, os.WriteFile(path, []byte(content), 0o644))
}

// ReadFile reads a file under the project root.
func (e *TestEnv) ReadFile(rel string) string {
	e.t.Helper()
	data, err := os.ReadFile(filepath.Join(e.Root, rel))
	require.NoError(e.t, err)
	return string(data)
}
