package upload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePathWithinRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "movie.ts"), []byte("data"), 0o644))

	got, err := ResolvePath(dir, "movie.ts")
	require.NoError(t, err)
	assert.Equal(t, "movie.ts", filepath.Base(got))
}

func TestResolvePathRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	_, err := ResolvePath(dir, "../../etc/passwd")
	assert.ErrorIs(t, err, ErrPathEscape)
}

func TestResolvePathRejectsNulByte(t *testing.T) {
	dir := t.TempDir()
	_, err := ResolvePath(dir, "foo\x00bar")
	assert.ErrorIs(t, err, ErrPathEscape)
}

func TestResolvePathMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := ResolvePath(dir, "nope.ts")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
