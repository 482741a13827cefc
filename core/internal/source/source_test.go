package source

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/stow/core/internal/stowtype"
)

func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func paths(files []File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestCollectDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"b.php":         "b",
		"a.php":         "a",
		"lib/c.php":     "c",
		"lib/deep/d.md": "d",
	})
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty", "nested"), 0o755))

	files, err := Collect(context.Background(), dir, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.php", "b.php", "lib/c.php", "lib/deep/d.md", "empty/nested"}, paths(files))
	assert.Equal(t, "c", string(files[2].Content))
	assert.Equal(t, stowtype.KindDirectory, files[4].Kind)
	assert.Nil(t, files[4].Content)
}

func TestCollectExclude(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"keep.php":        "k",
		"debug.log":       "x",
		"cache/a.tmp":     "x",
		"sub/also.log":    "x",
		"sub/keep.txt":    "k",
		"docs/readme.md":  "k",
		"docs/secret.key": "x",
	})

	opts := Options{Exclude: []string{"*.log", "cache/", "# comment", "docs/*.key"}}
	files, err := Collect(context.Background(), dir, opts)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"keep.php", "sub/keep.txt", "docs/readme.md"}, paths(files))
}

func TestCollectSkipsSymlinks(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}

	dir := t.TempDir()
	outside := t.TempDir()
	writeTree(t, dir, map[string]string{"real.txt": "r"})
	writeTree(t, outside, map[string]string{"secret.txt": "s"})
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(dir, "link.txt")))
	require.NoError(t, os.Symlink(outside, filepath.Join(dir, "linkdir")))

	files, err := Collect(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"real.txt"}, paths(files))
}

func TestCollectSingleFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"main.php": "<?php"})
	require.NoError(t, os.Chmod(filepath.Join(dir, "main.php"), 0o755))

	files, err := Collect(context.Background(), filepath.Join(dir, "main.php"), Options{})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Empty(t, files[0].Path)
	assert.Equal(t, "<?php", string(files[0].Content))
	if runtime.GOOS != "windows" {
		assert.Equal(t, fs.FileMode(0o755), files[0].Mode)
	}
}

func TestCollectMissing(t *testing.T) {
	t.Parallel()

	_, err := Collect(context.Background(), filepath.Join(t.TempDir(), "nope"), Options{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCollectFileTooLarge(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"big.bin": "0123456789"})

	_, err := Collect(context.Background(), dir, Options{MaxFileSize: 4})
	require.ErrorIs(t, err, stowtype.ErrSizeOverflow)
}

func TestCollectCanceled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a": "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Collect(ctx, dir, Options{})
	require.ErrorIs(t, err, context.Canceled)
}
