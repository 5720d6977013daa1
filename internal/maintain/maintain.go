// Package maintain implements the repair and housekeeping commands: the
// fix scan with its auto-repair modes, history archiving, and the
// read-only compact summaries.
package maintain

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dukaforge/docwire/internal/config"
	"github.com/dukaforge/docwire/internal/head"
	"github.com/dukaforge/docwire/internal/history"
	"github.com/dukaforge/docwire/internal/paths"
	"github.com/dukaforge/docwire/pkg/types"
)

// Kind classifies a scan finding.
type Kind string

const (
	// OrphanLog: a history log whose tracked file is gone.
	OrphanLog Kind = "ORPHAN-LOG"

	// OrphanHeader: a tracked header whose history log is missing.
	OrphanHeader Kind = "ORPHAN-HEADER"

	// Mismatch: the log meta's file field disagrees with the file it
	// belongs to.
	Mismatch Kind = "MISMATCH"

	// BadVersion: a header carries a malformed version identifier.
	BadVersion Kind = "BADVERSION"

	// Large: the active history exceeds the archive threshold.
	Large Kind = "LARGE"

	// StaleRef: a ref's recorded version no longer matches the referent.
	StaleRef Kind = "STALE"

	// BrokenRef: a ref points at a file that does not exist.
	BrokenRef Kind = "BROKEN"
)

// Issue is one scan finding.
type Issue struct {
	Kind    Kind
	File    string // project-relative path of the affected file
	Detail  string
	Fixable bool // repairable by fix -y
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s - %s", i.Kind, i.File, i.Detail)
}

// backupStamp matches the timestamped names left behind by orphan removal
// and archiving, so scans skip them.
var backupStamp = regexp.MustCompile(`-[0-9]{8}-[0-9]{6}$`)

// Ops runs maintenance over one project.
type Ops struct {
	project paths.Project
	cfg     config.Config
	log     *zap.Logger
	now     func() time.Time
}

// New assembles maintenance ops for the project.
func New(project paths.Project, cfg config.Config, logger *zap.Logger) *Ops {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ops{project: project, cfg: cfg, log: logger, now: time.Now}
}

// Scan enumerates every tracked artifact and reports inconsistencies. The
// scan itself never mutates anything.
func (o *Ops) Scan(ctx context.Context) ([]Issue, error) {
	var issues []Issue

	refVersions, err := o.currentRefVersions(ctx)
	if err != nil {
		return nil, err
	}

	// Log-side: orphaned logs, mismatches, oversized histories, refs.
	logs, err := o.activeLogs()
	if err != nil {
		return nil, err
	}
	for _, storage := range logs {
		rel := paths.StoragePath(storage)
		l, err := history.ReadLog(o.project.LogFile(storage))
		if err != nil {
			issues = append(issues, Issue{
				Kind: Mismatch, File: rel,
				Detail: fmt.Sprintf("unreadable log: %v", err),
			})
			continue
		}
		display := l.Meta.File
		if display == "" {
			display = rel
		}

		abs := o.project.AbsPath(rel)
		if _, err := os.Stat(abs); err != nil {
			issues = append(issues, Issue{
				Kind: OrphanLog, File: display,
				Detail: "no tracked file found; fix -r removes the log",
			})
			continue
		}

		if l.Meta.File != "" && l.Meta.File != rel {
			issues = append(issues, Issue{
				Kind: Mismatch, File: rel,
				Detail:  fmt.Sprintf("log records %s", l.Meta.File),
				Fixable: true,
			})
		}

		if len(l.History) > o.cfg.ArchiveThreshold {
			issues = append(issues, Issue{
				Kind: Large, File: display,
				Detail:  fmt.Sprintf("%d entries", len(l.History)),
				Fixable: true,
			})
		}

		issues = append(issues, o.scanRefs(abs, display, l, refVersions)...)
	}

	// File-side: tracked headers without logs, malformed versions.
	trackedIssues, err := o.scanTracked(ctx)
	if err != nil {
		return nil, err
	}
	issues = append(issues, trackedIssues...)
	return issues, nil
}

// scanTracked walks the tracked text files and checks header health.
func (o *Ops) scanTracked(_ context.Context) ([]Issue, error) {
	var issues []Issue
	err := o.walkTracked(func(rel, content string) error {
		if _, err := head.Parse(content); err != nil {
			if errors.Is(err, types.ErrVersionMalformed) {
				issues = append(issues, Issue{
					Kind: BadVersion, File: rel,
					Detail: "header version does not parse",
				})
			}
			return nil
		}
		if _, err := os.Stat(o.project.LogFile(paths.StorageName(rel))); err != nil {
			issues = append(issues, Issue{
				Kind: OrphanHeader, File: rel,
				Detail:  "no history log found",
				Fixable: true,
			})
		}
		return nil
	})
	return issues, err
}

// scanRefs checks the refs of one tracked file against the live state.
func (o *Ops) scanRefs(abs, display string, l *types.Log, current map[string]string) []Issue {
	h, err := head.Read(abs)
	if err != nil {
		return nil
	}
	var stale, broken []string
	for _, ref := range h.Refs {
		if _, err := os.Stat(o.project.AbsPath(ref)); err != nil {
			broken = append(broken, filepath.Base(ref))
			continue
		}
		recorded, ok := l.Meta.RefVersions[ref]
		if ok && current[ref] != "" && recorded != current[ref] {
			stale = append(stale, filepath.Base(ref))
		}
	}
	var issues []Issue
	if len(stale) > 0 {
		issues = append(issues, Issue{
			Kind: StaleRef, File: display,
			Detail: "refs changed: " + strings.Join(stale, ", "),
		})
	}
	if len(broken) > 0 {
		issues = append(issues, Issue{
			Kind: BrokenRef, File: display,
			Detail: "refs not found: " + strings.Join(broken, ", "),
		})
	}
	return issues
}

// AutoFix repairs what fix -y can do mechanically: recreate a missing log
// from the header, realign a mismatched log meta, archive an oversized
// history. Everything else is skipped.
func (o *Ops) AutoFix(ctx context.Context, issues []Issue) (fixed, skipped int, err error) {
	for _, issue := range issues {
		if !issue.Fixable {
			skipped++
			continue
		}
		var ferr error
		switch issue.Kind {
		case OrphanHeader:
			ferr = o.recreateLog(ctx, issue.File)
		case Mismatch:
			ferr = o.realignLog(ctx, issue.File)
		case Large:
			_, ferr = o.ArchiveFile(ctx, paths.StorageName(issue.File))
		default:
			skipped++
			continue
		}
		if ferr != nil {
			return fixed, skipped, fmt.Errorf("fix %s: %w", issue.File, ferr)
		}
		o.log.Info("fixed", zap.String("kind", string(issue.Kind)), zap.String("file", issue.File))
		fixed++
	}
	return fixed, skipped, nil
}

// recreateLog builds a fresh log for a tracked header, with one
// initialized entry at the header's version.
func (o *Ops) recreateLog(ctx context.Context, rel string) error {
	h, err := head.Read(o.project.AbsPath(rel))
	if err != nil {
		return err
	}
	ts := o.now().UTC()
	l := &types.Log{Meta: types.LogMeta{File: rel, Version: h.Version, Updated: ts}}
	l.Append(types.HistoryEntry{Time: ts, Label: types.InitLabel()})
	return history.WriteLog(o.project.LogFile(paths.StorageName(rel)), l)
}

// realignLog rewrites the log meta's file field to the path the log
// actually serves.
func (o *Ops) realignLog(ctx context.Context, rel string) error {
	logPath := o.project.LogFile(paths.StorageName(rel))
	l, err := history.ReadLog(logPath)
	if err != nil {
		return err
	}
	l.Meta.File = rel
	return history.WriteLog(logPath, l)
}

// RemoveOrphans clears logs whose tracked file is gone: each is renamed in
// place with a timestamp so nothing is destroyed, and its snapshot stays
// for recovery. Returns the number of logs cleared.
func (o *Ops) RemoveOrphans(ctx context.Context) (int, error) {
	logs, err := o.activeLogs()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, storage := range logs {
		rel := paths.StoragePath(storage)
		if _, err := os.Stat(o.project.AbsPath(rel)); err == nil {
			continue
		}
		if err := o.retireLog(storage); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Untrack stops tracking one file: its log is retired and the header
// stripped from the file if it still exists. The snapshot stays.
func (o *Ops) Untrack(ctx context.Context, rel string) error {
	storage := paths.StorageName(rel)
	if _, err := os.Stat(o.project.LogFile(storage)); err == nil {
		if err := o.retireLog(storage); err != nil {
			return err
		}
	}
	abs := o.project.AbsPath(rel)
	data, err := os.ReadFile(abs)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", rel, err)
	}
	stripped := head.Strip(string(data))
	if stripped == string(data) {
		return nil
	}
	if err := os.WriteFile(abs, []byte(stripped), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	o.log.Info("untracked", zap.String("file", rel))
	return nil
}

func (o *Ops) retireLog(storage string) error {
	src := o.project.LogFile(storage)
	dst := o.project.LogFile(storage + "-" + types.FormatStamp(o.now()))
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("retire log %s: %w", storage, err)
	}
	o.log.Info("retired log", zap.String("storage", storage))
	return nil
}

// Resync is fix -s: the forced re-derivation pass. Missing snapshots and
// logs are recreated from headers, the tracked-file index is rebuilt, and
// every log's recorded ref versions refresh to the referents' current
// headers. Returns the number of artifacts repaired.
func (o *Ops) Resync(ctx context.Context) (int, error) {
	refVersions, err := o.currentRefVersions(ctx)
	if err != nil {
		return 0, err
	}

	repaired := 0
	var tracked []string
	err = o.walkTracked(func(rel, content string) error {
		if _, err := head.Parse(content); err != nil {
			return nil
		}
		tracked = append(tracked, rel)
		storage := paths.StorageName(rel)

		if _, err := os.Stat(o.project.SnapshotFile(storage)); err != nil {
			if err := os.MkdirAll(o.project.SnapshotDir(), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(o.project.SnapshotFile(storage), []byte(content), 0o644); err != nil {
				return err
			}
			repaired++
		}
		if _, err := os.Stat(o.project.LogFile(storage)); err != nil {
			if err := o.recreateLog(ctx, rel); err != nil {
				return err
			}
			repaired++
		}
		return nil
	})
	if err != nil {
		return repaired, err
	}

	// Refresh recorded ref versions.
	for _, rel := range tracked {
		logPath := o.project.LogFile(paths.StorageName(rel))
		l, err := history.ReadLog(logPath)
		if err != nil {
			continue
		}
		changed := false
		for ref := range l.Meta.RefVersions {
			if cur, ok := refVersions[ref]; ok && l.Meta.RefVersions[ref] != cur {
				l.Meta.RefVersions[ref] = cur
				changed = true
			}
		}
		if changed {
			if err := history.WriteLog(logPath, l); err != nil {
				return repaired, err
			}
		}
	}

	if err := o.writeIndex(tracked); err != nil {
		return repaired, err
	}
	return repaired, nil
}

// writeIndex rebuilds .dw/index.txt as a sorted list of tracked paths.
func (o *Ops) writeIndex(tracked []string) error {
	sort.Strings(tracked)
	var sb strings.Builder
	for _, rel := range tracked {
		sb.WriteString(rel)
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(o.project.IndexFile(), []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

// currentRefVersions maps every tracked file to its current header
// version.
func (o *Ops) currentRefVersions(_ context.Context) (map[string]string, error) {
	versions := make(map[string]string)
	err := o.walkTracked(func(rel, content string) error {
		if h, err := head.Parse(content); err == nil {
			versions[rel] = h.Version.String()
		}
		return nil
	})
	return versions, err
}

// activeLogs lists the storage names with an active (non-retired) log.
func (o *Ops) activeLogs() ([]string, error) {
	entries, err := os.ReadDir(o.project.LogDir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read log dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".txt") {
			continue
		}
		storage := strings.TrimSuffix(name, ".txt")
		if backupStamp.MatchString(storage) {
			continue
		}
		names = append(names, storage)
	}
	sort.Strings(names)
	return names, nil
}

// Tracked returns the log meta of every actively tracked file, sorted by
// storage name. Unreadable logs are skipped; Scan reports those separately.
func (o *Ops) Tracked(_ context.Context) ([]types.LogMeta, error) {
	logs, err := o.activeLogs()
	if err != nil {
		return nil, err
	}
	metas := make([]types.LogMeta, 0, len(logs))
	for _, storage := range logs {
		l, err := history.ReadLog(o.project.LogFile(storage))
		if err != nil {
			continue
		}
		metas = append(metas, l.Meta)
	}
	return metas, nil
}

// walkTracked visits every candidate text file under the project root
// with its content.
func (o *Ops) walkTracked(visit func(rel, content string) error) error {
	return filepath.WalkDir(o.project.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == paths.DotDirName {
				return filepath.SkipDir
			}
			return nil
		}
		rel := o.project.RelPath(path)
		if !strings.HasSuffix(rel, ".txt") || o.cfg.Ignored(rel) {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", rel, err)
		}
		content := string(data)
		if !head.Has(content) {
			return nil
		}
		return visit(rel, content)
	})
}
