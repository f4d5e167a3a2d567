package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("test"), 0644))
	}
}

func TestExpandGlobs_SingleFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "app.log")
	file := filepath.Join(dir, "app.log")

	result, err := ExpandGlobs([]string{file})
	require.NoError(t, err)
	assert.Equal(t, []string{file}, result)
}

func TestExpandGlobs_Patterns(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "c.log", "a.log", "b.log.gz", "notes.txt", "nested/deep/d.log")

	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{
			name:     "single star",
			patterns: []string{filepath.Join(dir, "*.log")},
			want:     []string{"a.log", "c.log"},
		},
		{
			name:     "double star",
			patterns: []string{filepath.Join(dir, "**", "*.log")},
			want:     []string{"a.log", "c.log", "nested/deep/d.log"},
		},
		{
			name:     "alternatives",
			patterns: []string{filepath.Join(dir, "*.{log,log.gz}")},
			want:     []string{"a.log", "b.log.gz", "c.log"},
		},
		{
			name:     "overlapping patterns deduplicated",
			patterns: []string{filepath.Join(dir, "*.log"), filepath.Join(dir, "a.*")},
			want:     []string{"a.log", "c.log"},
		},
		{
			name:     "directories are not matched",
			patterns: []string{filepath.Join(dir, "nested", "*")},
			want:     []string{filepath.Join("nested", "*")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ExpandGlobs(tt.patterns)
			require.NoError(t, err)

			want := make([]string, len(tt.want))
			for i, name := range tt.want {
				want[i] = filepath.Join(dir, filepath.FromSlash(name))
			}
			assert.Equal(t, want, result)
		})
	}
}

func TestExpandGlobs_NoMatchKeepsLiteral(t *testing.T) {
	pattern := filepath.Join(t.TempDir(), "*.nonexistent")

	result, err := ExpandGlobs([]string{pattern})
	require.NoError(t, err)
	assert.Equal(t, []string{pattern}, result)
}

func TestExpandGlobs_InvalidPattern(t *testing.T) {
	_, err := ExpandGlobs([]string{"[invalid"})
	assert.Error(t, err)
}

func TestExpandGlobs_EmptyInput(t *testing.T) {
	result, err := ExpandGlobs(nil)
	require.NoError(t, err)
	assert.Empty(t, result)
}
