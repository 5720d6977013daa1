package watch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/dukaforge/docwire/internal/paths"
	"github.com/dukaforge/docwire/internal/registry"
)

// StartBackground re-execs dw as a detached foreground watcher in its own
// session, registers the child pid, and returns it. The child runs with
// --daemon so it skips self-registration.
func StartBackground(ctx context.Context, project paths.Project, reg *registry.Registry) (int, error) {
	self, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("locate executable: %w", err)
	}

	if err := os.MkdirAll(project.SessionDir(), 0o755); err != nil {
		return 0, fmt.Errorf("create session dir: %w", err)
	}
	logPath := filepath.Join(project.SessionDir(), "dw-daemon.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open daemon log: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(self, "start", "-f", "--daemon")
	cmd.Dir = project.Root
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start watcher: %w", err)
	}
	pid := cmd.Process.Pid

	if err := reg.Register(ctx, project.Root, pid); err != nil {
		return 0, err
	}
	// Reap the child when it eventually exits so it never lingers as a
	// zombie of a still-running parent.
	go func() { _ = cmd.Wait() }()

	if err := writePidFile(project, pid); err != nil {
		return 0, err
	}
	return pid, nil
}

// writePidFile records the watcher pid at glb/dw.pid for status output.
func writePidFile(project paths.Project, pid int) error {
	if err := os.WriteFile(project.PidFile(), []byte(fmt.Sprintf("%d\n", pid)), 0o644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}

// ReadPidFile returns the recorded watcher pid, or 0 when none exists.
func ReadPidFile(project paths.Project) int {
	data, err := os.ReadFile(project.PidFile())
	if err != nil {
		return 0
	}
	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return 0
	}
	return pid
}
