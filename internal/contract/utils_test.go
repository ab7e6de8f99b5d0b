package contract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/huangsam/gitnote/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPlainLabel(t *testing.T) {
	tests := []struct {
		kind     schema.EntryKind
		expected string
	}{
		{schema.ArticleChangedKind, ArticleValue},
		{schema.GroupConfigChangedKind, ConfigValue},
		{schema.RemovedKind, RemovedValue},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.expected, GetPlainLabel(tt.kind))
			// Should contain the plain label
			assert.Contains(t, GetColorLabel(tt.kind), tt.expected)
		})
	}
}

func TestSelectOutputFile(t *testing.T) {
	f, err := SelectOutputFile("")
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, f)

	path := filepath.Join(t.TempDir(), "out.json")
	f, err = SelectOutputFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.FileExists(t, path)

	_, err = SelectOutputFile(filepath.Join(t.TempDir(), "missing", "out.json"))
	assert.Error(t, err)
}

func TestGetDBFilePaths(t *testing.T) {
	entries := GetEntryDBFilePath()
	archive := GetArchiveDBFilePath()
	assert.True(t, strings.HasSuffix(entries, ".gitnote_entries.db"))
	assert.True(t, strings.HasSuffix(archive, ".gitnote_archive.db"))
	assert.NotEqual(t, entries, archive)
}

func TestTruncatePath(t *testing.T) {
	assert.Equal(t, "short.md", TruncatePath("short.md", 20))
	assert.Equal(t, "...deep/c.md", TruncatePath("notes/deep/c.md", 12))
	assert.Equal(t, "notes/deep/c.md", TruncatePath("notes/deep/c.md", 3))
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"yes", "TRUE", "1"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.True(t, v, s)
	}
	for _, s := range []string{"no", "False", "0"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.False(t, v, s)
	}
	_, err := ParseBoolString("maybe")
	assert.Error(t, err)
}
