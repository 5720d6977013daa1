package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHistoryEntryLabels(t *testing.T) {
	assert.Equal(t, "save:3", SaveLabel(3))
	assert.Equal(t, "bumped av1r2", BumpLabel(Version{Base: 'a', Major: 1, Revision: 2}))
	assert.Equal(t, "merged ./plan.txt av2r1", MergeLabel("./plan.txt", Version{Base: 'a', Major: 2, Revision: 1}))
	assert.Equal(t, "rebased av2r3 -> bv1r1",
		RebaseLabel(Version{Base: 'a', Major: 2, Revision: 3}, Version{Base: 'b', Major: 1, Revision: 1}))
}

func TestHistoryEntryKinds(t *testing.T) {
	save := HistoryEntry{Label: SaveLabel(7)}
	n, ok := save.IsSave()
	assert.True(t, ok)
	assert.Equal(t, 7, n)

	bump := HistoryEntry{Label: BumpLabel(InitialVersion)}
	_, ok = bump.IsSave()
	assert.False(t, ok)
	assert.True(t, bump.IsBump())

	init := HistoryEntry{Label: InitLabel()}
	assert.True(t, init.IsInit())
	assert.False(t, init.IsBump())

	mangled := HistoryEntry{Label: "save:x"}
	_, ok = mangled.IsSave()
	assert.False(t, ok)
}

func TestLogAppendAndLast(t *testing.T) {
	var l Log
	_, ok := l.LastEntry()
	assert.False(t, ok)

	first := HistoryEntry{Time: time.Now(), Label: InitLabel()}
	second := HistoryEntry{Time: time.Now(), Label: SaveLabel(1), Added: []string{"B"}}
	l.Append(first)
	l.Append(second)

	last, ok := l.LastEntry()
	assert.True(t, ok)
	assert.Equal(t, second.Label, last.Label)
	assert.Len(t, l.History, 2)
}

func TestFormatTime(t *testing.T) {
	at := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-01-15T10:00:00Z", FormatTime(at))
	assert.Equal(t, "20260115-100000", FormatStamp(at))
}
