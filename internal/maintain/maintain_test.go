package maintain

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukaforge/docwire/internal/config"
	"github.com/dukaforge/docwire/internal/head"
	"github.com/dukaforge/docwire/internal/history"
	"github.com/dukaforge/docwire/internal/paths"
)

type fixture struct {
	project paths.Project
	engine  *history.Engine
	ops     *Ops
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	project := paths.Open(t.TempDir())
	require.NoError(t, project.EnsureLayout())

	cfg := config.Default()
	cfg.ArchiveThreshold = 5

	ops := New(project, cfg, nil)
	ops.now = func() time.Time { return time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC) }
	return &fixture{project: project, engine: history.New(project, nil), ops: ops}
}

func (f *fixture) track(t *testing.T, rel, content string) {
	t.Helper()
	abs := f.project.AbsPath(rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	require.NoError(t, f.engine.Initialize(context.Background(), rel))
}

func (f *fixture) saveN(t *testing.T, rel string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		abs := f.project.AbsPath(rel)
		data, err := os.ReadFile(abs)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(abs, append(data, []byte("line\n")...), 0o644))
		_, err = f.engine.RecordSave(context.Background(), rel)
		require.NoError(t, err)
	}
}

func issueKinds(issues []Issue) []Kind {
	kinds := make([]Kind, 0, len(issues))
	for _, i := range issues {
		kinds = append(kinds, i.Kind)
	}
	return kinds
}

func TestScanCleanProject(t *testing.T) {
	f := newFixture(t)
	f.track(t, "./plan.txt", "A\n")

	issues, err := f.ops.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestScanOrphanHeaderAndAutoFix(t *testing.T) {
	f := newFixture(t)
	f.track(t, "./plan.txt", "A\n")

	// Delete the log out-of-band; the header stays intact.
	require.NoError(t, os.Remove(f.project.LogFile("plan")))

	issues, err := f.ops.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, OrphanHeader, issues[0].Kind)
	assert.True(t, issues[0].Fixable)

	fixed, skipped, err := f.ops.AutoFix(context.Background(), issues)
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)
	assert.Zero(t, skipped)

	l, err := history.ReadLog(f.project.LogFile("plan"))
	require.NoError(t, err)
	require.Len(t, l.History, 1)
	assert.True(t, l.History[0].IsInit())
	assert.Equal(t, "av1r1", l.Meta.Version.String())
}

func TestScanOrphanLog(t *testing.T) {
	f := newFixture(t)
	f.track(t, "./plan.txt", "A\n")
	require.NoError(t, os.Remove(f.project.AbsPath("./plan.txt")))

	issues, err := f.ops.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, OrphanLog, issues[0].Kind)
	assert.False(t, issues[0].Fixable)
}

func TestRemoveOrphansKeepsSnapshot(t *testing.T) {
	f := newFixture(t)
	f.track(t, "./plan.txt", "A\n")
	require.NoError(t, os.Remove(f.project.AbsPath("./plan.txt")))

	removed, err := f.ops.RemoveOrphans(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	// The log is retired under a timestamped name, not deleted.
	assert.NoFileExists(t, f.project.LogFile("plan"))
	retired, err := filepath.Glob(filepath.Join(f.project.LogDir(), "plan-*.txt"))
	require.NoError(t, err)
	assert.Len(t, retired, 1)
	assert.FileExists(t, f.project.SnapshotFile("plan"))

	// The retired log no longer shows up in scans.
	issues, err := f.ops.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestScanMismatchAndAutoFix(t *testing.T) {
	f := newFixture(t)
	f.track(t, "./plan.txt", "A\n")

	logPath := f.project.LogFile("plan")
	l, err := history.ReadLog(logPath)
	require.NoError(t, err)
	l.Meta.File = "./other.txt"
	require.NoError(t, history.WriteLog(logPath, l))

	issues, err := f.ops.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, Mismatch, issues[0].Kind)

	_, _, err = f.ops.AutoFix(context.Background(), issues)
	require.NoError(t, err)

	l, err = history.ReadLog(logPath)
	require.NoError(t, err)
	assert.Equal(t, "./plan.txt", l.Meta.File)
}

func TestScanBadVersion(t *testing.T) {
	f := newFixture(t)
	f.track(t, "./plan.txt", "A\n")

	abs := f.project.AbsPath("./plan.txt")
	changed, err := head.UpdateFile(abs, head.KeyVersion, "banana")
	require.NoError(t, err)
	require.True(t, changed)

	issues, err := f.ops.Scan(context.Background())
	require.NoError(t, err)
	assert.Contains(t, issueKinds(issues), BadVersion)
}

func TestScanLargeAndArchive(t *testing.T) {
	f := newFixture(t)
	f.track(t, "./plan.txt", "A\n")
	f.saveN(t, "./plan.txt", 6) // threshold is 5, init entry pushes past it

	issues, err := f.ops.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, Large, issues[0].Kind)
	assert.True(t, issues[0].Fixable)

	fixed, _, err := f.ops.AutoFix(context.Background(), issues)
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)

	// Active log reset to a single archived marker with an archive ref.
	l, err := history.ReadLog(f.project.LogFile("plan"))
	require.NoError(t, err)
	require.Len(t, l.History, 1)
	require.Len(t, l.Meta.Archives, 1)

	// Track still replays the full chronology through the archive.
	entries, err := f.engine.Track(context.Background(), "./plan.txt")
	require.NoError(t, err)
	assert.Len(t, entries, 8) // init + 6 saves + archived marker
	assert.True(t, entries[0].IsInit())
}

func TestScanBrokenAndStaleRefs(t *testing.T) {
	f := newFixture(t)
	f.track(t, "./plan.txt", "A\n")
	f.track(t, "./branch.txt", "A\nB\n")

	_, err := f.engine.MergeFrom(context.Background(), "./plan.txt", "./branch.txt")
	require.NoError(t, err)

	t.Run("stale after referent bumps", func(t *testing.T) {
		f.saveN(t, "./branch.txt", 1)
		_, err := f.engine.Bump(context.Background(), "./branch.txt")
		require.NoError(t, err)

		issues, err := f.ops.Scan(context.Background())
		require.NoError(t, err)
		assert.Contains(t, issueKinds(issues), StaleRef)
	})

	t.Run("broken after referent disappears", func(t *testing.T) {
		require.NoError(t, os.Remove(f.project.AbsPath("./branch.txt")))

		issues, err := f.ops.Scan(context.Background())
		require.NoError(t, err)
		assert.Contains(t, issueKinds(issues), BrokenRef)
	})
}

func TestResync(t *testing.T) {
	f := newFixture(t)
	f.track(t, "./plan.txt", "A\n")
	f.track(t, "./notes/sub.txt", "B\n")

	// Blow away derived state.
	require.NoError(t, os.Remove(f.project.SnapshotFile("plan")))
	require.NoError(t, os.Remove(f.project.LogFile("notes__sub")))

	repaired, err := f.ops.Resync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repaired)

	assert.FileExists(t, f.project.SnapshotFile("plan"))
	assert.FileExists(t, f.project.LogFile("notes__sub"))

	index, err := os.ReadFile(f.project.IndexFile())
	require.NoError(t, err)
	assert.Equal(t, "./notes/sub.txt\n./plan.txt\n", string(index))
}

func TestCompact(t *testing.T) {
	f := newFixture(t)
	f.track(t, "./plan.txt", "A\n")
	f.saveN(t, "./plan.txt", 2)

	logBefore, err := os.ReadFile(f.project.LogFile("plan"))
	require.NoError(t, err)

	count, err := f.ops.CompactAll()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	data, err := os.ReadFile(f.project.CompactFile("plan"))
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "total_saves;|3|;") // init counts as a save
	assert.Contains(t, text, "lines_added;|2|;")
	assert.Contains(t, text, "history_entries;|3|;")

	// Compact never mutates the log.
	logAfter, err := os.ReadFile(f.project.LogFile("plan"))
	require.NoError(t, err)
	assert.Equal(t, string(logBefore), string(logAfter))
}

func TestUntrack(t *testing.T) {
	f := newFixture(t)
	f.track(t, "./plan.txt", "body line\n")

	require.NoError(t, f.ops.Untrack(context.Background(), "./plan.txt"))

	data, err := os.ReadFile(f.project.AbsPath("./plan.txt"))
	require.NoError(t, err)
	assert.Equal(t, "body line\n", string(data))
	assert.NoFileExists(t, f.project.LogFile("plan"))
	assert.FileExists(t, f.project.SnapshotFile("plan"))
}
