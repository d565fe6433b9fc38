package utils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRelPath(t *testing.T) {
	assert.Equal(t, "notes/a.md", NormalizeRelPath("/notes/a.md"))
	assert.Equal(t, "notes/a.md", NormalizeRelPath("notes/a.md/"))
	assert.Equal(t, "notes", NormalizeRelPath("notes"))
	assert.Equal(t, "", NormalizeRelPath("/"))
}

func TestParentPath(t *testing.T) {
	assert.Equal(t, "notes/sub", ParentPath("notes/sub/a.md"))
	assert.Equal(t, "notes", ParentPath("notes/a.md"))
	assert.Equal(t, "", ParentPath("a.md"))
	assert.Equal(t, "", ParentPath(""))
}

func TestPathDepth(t *testing.T) {
	assert.Equal(t, 0, PathDepth("a.md"))
	assert.Equal(t, 1, PathDepth("notes/a.md"))
	assert.Equal(t, 2, PathDepth("notes/sub/a.md"))
	assert.Equal(t, 0, PathDepth(""))
}

func TestEnsureDirAndExists(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b")

	require.NoError(t, EnsureDir(nested))
	assert.True(t, DirExists(nested))
	assert.False(t, FileExists(nested))

	// idempotent
	require.NoError(t, EnsureDir(nested))
}

func TestResolvePath_Empty(t *testing.T) {
	_, err := ResolvePath("")
	assert.Error(t, err)
}
