package maintain

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/dukaforge/docwire/internal/dwml"
	"github.com/dukaforge/docwire/internal/history"
	"github.com/dukaforge/docwire/pkg/types"
)

// Stats is the aggregate a compact run extracts from one log.
type Stats struct {
	File         string
	Version      types.Version
	Saves        int
	Bumps        int
	LinesAdded   int
	LinesRemoved int
	FirstEntry   string // YYYY-MM-DD of the oldest entry
	LastEntry    string // YYYY-MM-DD of the newest entry
	Entries      int
}

// CompactStats aggregates a log's active history. Logs are never mutated.
func CompactStats(l *types.Log) Stats {
	s := Stats{
		File:    l.Meta.File,
		Version: l.Meta.Version,
		Entries: len(l.History),
	}
	for _, e := range l.History {
		if s.FirstEntry == "" {
			s.FirstEntry = e.Time.Format("2006-01-02")
		}
		s.LastEntry = e.Time.Format("2006-01-02")
		switch {
		case e.IsBump():
			s.Bumps++
		default:
			if _, ok := e.IsSave(); ok || e.IsInit() {
				s.Saves++
				s.LinesAdded += len(e.Added)
				s.LinesRemoved += len(e.Removed)
			}
		}
	}
	return s
}

// CompactFile writes the aggregate summary for one log to cmp/. Returns
// false when the log does not exist.
func (o *Ops) CompactFile(storage string) (bool, error) {
	l, err := history.ReadLog(o.project.LogFile(storage))
	if err != nil {
		if errors.Is(err, types.ErrLogMissing) {
			return false, nil
		}
		return false, err
	}
	s := CompactStats(l)

	doc := dwml.NewDocument()
	meta := doc.AddBlock("meta")
	meta.Set("file", s.File)
	meta.Set("version", s.Version.String())
	meta.Set("total_saves", strconv.Itoa(s.Saves))
	meta.Set("total_bumps", strconv.Itoa(s.Bumps))
	meta.Set("lines_added", strconv.Itoa(s.LinesAdded))
	meta.Set("lines_removed", strconv.Itoa(s.LinesRemoved))
	meta.Set("first_entry", s.FirstEntry)
	meta.Set("last_entry", s.LastEntry)
	meta.Set("history_entries", strconv.Itoa(s.Entries))
	meta.Set("generated", types.FormatTime(o.now()))

	if err := os.MkdirAll(o.project.CompactDir(), 0o755); err != nil {
		return false, fmt.Errorf("create compact dir: %w", err)
	}
	if err := os.WriteFile(o.project.CompactFile(storage), []byte(doc.Render()), 0o644); err != nil {
		return false, fmt.Errorf("write summary: %w", err)
	}
	o.log.Debug("compacted", zap.String("storage", storage))
	return true, nil
}

// CompactAll writes summaries for every active log and returns how many
// were generated.
func (o *Ops) CompactAll() (int, error) {
	logs, err := o.activeLogs()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, storage := range logs {
		ok, err := o.CompactFile(storage)
		if err != nil {
			return count, err
		}
		if ok {
			count++
		}
	}
	return count, nil
}
