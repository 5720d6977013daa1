package history

import (
	"strings"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// Caps applied to the diff recorded with each save entry. Long edits are
// truncated rather than dropped so the log stays bounded.
const (
	maxDiffLines = 50
	maxLineLen   = 200
)

// Changes computes the line-level difference between two snapshots and
// returns the added and removed lines in document order. Line mode keeps
// the edit script minimal and deterministic: contiguous runs of changed
// lines come back as single insert/delete spans rather than many small
// fragments.
func Changes(before, after string) (added, removed []string) {
	if before == after {
		return nil, nil
	}
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		switch d.Type {
		case diffpatch.DiffInsert:
			added = append(added, splitLines(d.Text)...)
		case diffpatch.DiffDelete:
			removed = append(removed, splitLines(d.Text)...)
		}
	}
	return added, removed
}

func splitLines(text string) []string {
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// capChanges bounds one side of a recorded diff.
func capChanges(lines []string) []string {
	if len(lines) > maxDiffLines {
		lines = lines[:maxDiffLines]
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		if len(line) > maxLineLen {
			line = line[:maxLineLen]
		}
		out[i] = line
	}
	return out
}
