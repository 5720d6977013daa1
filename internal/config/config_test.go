package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.txt"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, DefaultArchiveThreshold, cfg.ArchiveThreshold)
	assert.Equal(t, DefaultDebounceMillis, cfg.DebounceMillis)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.txt")
	want := Config{
		Ignore:           []string{"drafts/*", "scratch.txt"},
		ArchiveThreshold: 50,
		DebounceMillis:   250,
	}
	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadPartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.txt")
	text := "=d=config=w=\n=x= archive_threshold;|25|; =z=\n=q=config=e=\n"
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.ArchiveThreshold)
	assert.Equal(t, DefaultDebounceMillis, cfg.DebounceMillis)
	assert.Empty(t, cfg.Ignore)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{
			name: "non-numeric threshold",
			text: "=d=config=w=\n=x= archive_threshold;|lots|; =z=\n=q=config=e=\n",
		},
		{
			name: "zero debounce",
			text: "=d=config=w=\n=x= debounce_ms;|0|; =z=\n=q=config=e=\n",
		},
		{
			name: "missing config block",
			text: "=d=meta=w=\n=q=meta=e=\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.txt")
			require.NoError(t, os.WriteFile(path, []byte(tt.text), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestIgnored(t *testing.T) {
	cfg := Config{Ignore: []string{"drafts/*", "*.bak.txt", "scratch.txt"}}

	tests := []struct {
		name string
		rel  string
		want bool
	}{
		{name: "directory glob", rel: "./drafts/idea.txt", want: true},
		{name: "extension glob on base name", rel: "./notes/old.bak.txt", want: true},
		{name: "exact base name", rel: "./scratch.txt", want: true},
		{name: "tracked file", rel: "./plan.txt", want: false},
		{name: "nested tracked file", rel: "./notes/plan.txt", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.Ignored(tt.rel))
		})
	}
}
