package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/dukaforge/docwire/internal/dwml"
	"github.com/dukaforge/docwire/pkg/types"
)

// Log file block and field names.
const (
	metaBlockName    = "meta"
	historyBlockName = "history"

	keyFile        = "file"
	keyVersion     = "version"
	keySaves       = "saves"
	keyUpdated     = "updated"
	keyRefVersions = "ref_versions"
	keyArchive     = "archive"
)

// lockRetryDelay is the poll interval while waiting on a log file lock.
const lockRetryDelay = 50 * time.Millisecond

// ReadLog parses the history log at path. A missing file yields
// types.ErrLogMissing.
func ReadLog(path string) (*types.Log, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", types.ErrLogMissing, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read log %s: %w", path, err)
	}
	return ParseLog(string(data))
}

// ParseLog decodes the DWML text of a history log.
func ParseLog(text string) (*types.Log, error) {
	doc, err := dwml.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse log: %w", err)
	}

	l := &types.Log{}
	if meta := doc.Block(metaBlockName); meta != nil {
		l.Meta.File = meta.Get(keyFile)
		if raw := meta.Get(keyVersion); raw != "" {
			l.Meta.Version, err = types.ParseVersion(raw)
			if err != nil {
				return nil, fmt.Errorf("log version: %w", err)
			}
		}
		if raw := meta.Get(keySaves); raw != "" {
			l.Meta.Saves, err = strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("log saves counter %q: %w", raw, err)
			}
		}
		if raw := meta.Get(keyUpdated); raw != "" {
			l.Meta.Updated, err = time.Parse(types.TimeLayout, raw)
			if err != nil {
				return nil, fmt.Errorf("log updated time: %w", err)
			}
		}
		for _, pair := range meta.GetList(keyRefVersions) {
			ref, ver, ok := strings.Cut(pair, "=")
			if !ok {
				continue
			}
			if l.Meta.RefVersions == nil {
				l.Meta.RefVersions = make(map[string]string)
			}
			l.Meta.RefVersions[strings.TrimSpace(ref)] = strings.TrimSpace(ver)
		}
		for _, ref := range meta.GetList(keyArchive) {
			if ref = strings.TrimSpace(ref); ref != "" {
				l.Meta.Archives = append(l.Meta.Archives, ref)
			}
		}
	}

	if hist := doc.Block(historyBlockName); hist != nil {
		for _, g := range hist.Groups {
			entry, err := parseEntry(g)
			if err != nil {
				return nil, err
			}
			l.Append(entry)
		}
	}
	return l, nil
}

// parseEntry decodes one history group. The group's single field carries
// the event time as its key and the label as its value.
func parseEntry(g *dwml.Group) (types.HistoryEntry, error) {
	entry := types.HistoryEntry{Added: g.Added, Removed: g.Removed}
	if len(g.Fields) == 0 {
		return entry, fmt.Errorf("history entry without an action field")
	}
	f := g.Fields[0]
	ts, err := time.Parse(types.TimeLayout, f.Key)
	if err != nil {
		return entry, fmt.Errorf("history entry time %q: %w", f.Key, err)
	}
	entry.Time = ts
	if len(f.Values) > 0 {
		entry.Label = f.Values[0]
	}
	return entry, nil
}

// RenderLog produces the DWML text of l: a meta block followed by the
// history block.
func RenderLog(l *types.Log) string {
	doc := dwml.NewDocument()

	meta := doc.AddBlock(metaBlockName)
	meta.Set(keyFile, l.Meta.File)
	meta.Set(keyVersion, l.Meta.Version.String())
	meta.Set(keySaves, strconv.Itoa(l.Meta.Saves))
	meta.Set(keyUpdated, types.FormatTime(l.Meta.Updated))
	if len(l.Meta.RefVersions) > 0 {
		pairs := make([]string, 0, len(l.Meta.RefVersions))
		for _, ref := range sortedKeys(l.Meta.RefVersions) {
			pairs = append(pairs, ref+"="+l.Meta.RefVersions[ref])
		}
		meta.Set(keyRefVersions, pairs...)
	}
	if len(l.Meta.Archives) > 0 {
		meta.Set(keyArchive, l.Meta.Archives...)
	}

	hist := doc.AddBlock(historyBlockName)
	for _, e := range l.History {
		g := hist.AddGroup()
		g.Set(types.FormatTime(e.Time), e.Label)
		g.Added = e.Added
		g.Removed = e.Removed
	}
	return doc.Render()
}

// WriteLog stores l at path atomically: the rendered text goes to a
// temporary file in the same directory which then replaces the target, so
// a concurrent reader never observes a torn block.
func WriteLog(path string, l *types.Log) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".log-*")
	if err != nil {
		return fmt.Errorf("create temp log: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(RenderLog(l)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp log: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace log %s: %w", path, err)
	}
	return nil
}

// withLock runs fn while holding an exclusive advisory lock next to the
// log file, so append cycles from the watcher and a concurrent track or
// fix invocation serialize instead of racing.
func withLock(ctx context.Context, path string, fn func() error) error {
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return fmt.Errorf("lock %s: not acquired", path)
	}
	defer lock.Unlock()
	return fn()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
