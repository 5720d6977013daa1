package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderRefsRoundTrip(t *testing.T) {
	h := Header{Refs: []string{"./a.txt", "./b.txt"}}
	assert.Equal(t, "./a.txt|./b.txt|", h.RefsValue())
	assert.Equal(t, h.Refs, ParseRefs(h.RefsValue()))

	empty := Header{}
	assert.Equal(t, "", empty.RefsValue())
	assert.Nil(t, ParseRefs(""))
}

func TestHeaderAddRef(t *testing.T) {
	var h Header
	h.AddRef("./a.txt")
	h.AddRef("./b.txt")
	h.AddRef("./a.txt") // duplicate ignored
	assert.Equal(t, []string{"./a.txt", "./b.txt"}, h.Refs)
}

func TestParseWatcherEntry(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  WatcherEntry
		ok    bool
	}{
		{
			name:  "full triple",
			value: "/home/u/notes|4242|2026-01-15T10:00:00Z",
			want:  WatcherEntry{Path: "/home/u/notes", PID: 4242},
			ok:    true,
		},
		{
			name:  "missing started slot tolerated",
			value: "/home/u/notes|4242",
			want:  WatcherEntry{Path: "/home/u/notes", PID: 4242},
			ok:    true,
		},
		{
			name:  "non numeric pid rejected",
			value: "/home/u/notes|abc|",
			ok:    false,
		},
		{
			name:  "empty path rejected",
			value: "|99|",
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseWatcherEntry(tt.value)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want.Path, got.Path)
				assert.Equal(t, tt.want.PID, got.PID)
			}
		})
	}
}

func TestWatcherEntryValue(t *testing.T) {
	e := WatcherEntry{Path: "/p", PID: 7}
	got, ok := ParseWatcherEntry(e.Value())
	assert.True(t, ok)
	assert.Equal(t, e.Path, got.Path)
	assert.Equal(t, e.PID, got.PID)
}
