package maintain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dukaforge/docwire/internal/history"
	"github.com/dukaforge/docwire/internal/paths"
	"github.com/dukaforge/docwire/pkg/types"
)

// ArchiveFile moves a log's active history to cold storage. The acv file
// keeps the full entry list under a snapshot of the meta; the active log
// resets to a single archived marker and gains a ref to the acv file, so
// track keeps replaying the whole chronology. Returns false when there was
// nothing to archive.
func (o *Ops) ArchiveFile(ctx context.Context, storage string) (bool, error) {
	logPath := o.project.LogFile(storage)
	l, err := history.ReadLog(logPath)
	if err != nil {
		return false, err
	}
	if len(l.History) == 0 {
		return false, nil
	}

	ts := o.now().UTC()
	name := storage + "-" + types.FormatStamp(ts) + ".txt"
	ref := "./" + paths.DotDirName + "/" + paths.ArchiveDirName + "/" + name

	if err := os.MkdirAll(o.project.ArchiveDir(), 0o755); err != nil {
		return false, fmt.Errorf("create archive dir: %w", err)
	}
	archived := &types.Log{Meta: l.Meta, History: l.History}
	archived.Meta.Archives = nil
	if err := history.WriteLog(filepath.Join(o.project.ArchiveDir(), name), archived); err != nil {
		return false, err
	}

	count := len(l.History)
	l.Meta.Archives = append(l.Meta.Archives, ref)
	l.Meta.Updated = ts
	l.History = []types.HistoryEntry{{
		Time:  ts,
		Label: types.ArchiveLabel(count, ref),
	}}
	if err := history.WriteLog(logPath, l); err != nil {
		return false, err
	}
	o.log.Info("archived",
		zap.String("storage", storage),
		zap.Int("entries", count),
		zap.String("archive", name))
	return true, nil
}

// ArchiveAll sweeps every active log over the archive threshold. Returns
// the number of logs archived.
func (o *Ops) ArchiveAll(ctx context.Context) (int, error) {
	logs, err := o.activeLogs()
	if err != nil {
		return 0, err
	}
	archived := 0
	for _, storage := range logs {
		l, err := history.ReadLog(o.project.LogFile(storage))
		if err != nil {
			continue
		}
		if len(l.History) <= o.cfg.ArchiveThreshold {
			continue
		}
		ok, err := o.ArchiveFile(ctx, storage)
		if err != nil {
			return archived, err
		}
		if ok {
			archived++
		}
	}
	return archived, nil
}
