package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dukaforge/docwire/internal/dwml"
	"github.com/dukaforge/docwire/internal/paths"
	"github.com/dukaforge/docwire/pkg/types"
)

// Session is the live watcher activity log at glb/dw-current.txt. Each
// watcher run gets a fresh session id; on shutdown the log rolls to a
// timestamped file so past sessions stay inspectable.
type Session struct {
	project paths.Project
	id      string
	pid     int
	started time.Time
	events  []sessionEvent
}

type sessionEvent struct {
	time  time.Time
	label string
}

// NewSession starts a session log for the current process.
func NewSession(project paths.Project) *Session {
	return &Session{
		project: project,
		id:      uuid.NewString(),
		pid:     os.Getpid(),
		started: time.Now().UTC(),
	}
}

// Record appends one activity line ("saved ./plan.txt" and the like) and
// rewrites the current-session file.
func (s *Session) Record(action, rel string) error {
	s.events = append(s.events, sessionEvent{
		time:  time.Now().UTC(),
		label: action + " " + rel,
	})
	return s.write(s.project.SessionLog(), time.Time{})
}

// Close stamps the stop time and rolls the log to its archived name.
func (s *Session) Close() error {
	stopped := time.Now().UTC()
	rolled := filepath.Join(s.project.SessionDir(), "dw-"+types.FormatStamp(stopped)+".txt")
	if err := s.write(rolled, stopped); err != nil {
		return err
	}
	if err := os.Remove(s.project.SessionLog()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session log: %w", err)
	}
	return nil
}

// SessionInfo is the summary a status query reads back from a session log.
type SessionInfo struct {
	ID      string
	PID     int
	Started string
	Events  int
}

// ReadSession parses a session log written by a running or past watcher.
func ReadSession(path string) (SessionInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SessionInfo{}, err
	}
	doc, err := dwml.Parse(string(data))
	if err != nil {
		return SessionInfo{}, fmt.Errorf("parse session log: %w", err)
	}
	meta := doc.Block("meta")
	if meta == nil {
		return SessionInfo{}, fmt.Errorf("session log %s has no meta block", path)
	}
	info := SessionInfo{ID: meta.Get("session"), Started: meta.Get("started")}
	if pid, err := strconv.Atoi(meta.Get("pid")); err == nil {
		info.PID = pid
	}
	if hist := doc.Block("history"); hist != nil {
		info.Events = len(hist.Groups)
	}
	return info, nil
}

func (s *Session) write(path string, stopped time.Time) error {
	doc := dwml.NewDocument()
	meta := doc.AddBlock("meta")
	meta.Set("session", s.id)
	meta.Set("started", types.FormatTime(s.started))
	meta.Set("pid", fmt.Sprintf("%d", s.pid))
	if !stopped.IsZero() {
		meta.Set("stopped", types.FormatTime(stopped))
	} else {
		meta.Set("stopped", "")
	}

	hist := doc.AddBlock("history")
	for _, e := range s.events {
		g := hist.AddGroup()
		g.Set(types.FormatTime(e.time), e.label)
	}

	if err := os.MkdirAll(s.project.SessionDir(), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(doc.Render()), 0o644); err != nil {
		return fmt.Errorf("write session log: %w", err)
	}
	return nil
}
