package stow

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/stow/config"
	"github.com/meigma/stow/core/event"
	"github.com/meigma/stow/core/testutil"
)

func commit(t *testing.T, b *Builder) {
	t.Helper()
	_, err := b.Commit(context.Background())
	require.NoError(t, err)
}

func openArchive(t *testing.T, path string) *ContainerFile {
	t.Helper()
	cf, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { cf.Close() })
	return cf
}

func TestBuilderAliases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		alias string
		want  string
	}{
		{"default alias", "", "d/x.php"},
		{"explicit alias", "lib", "lib/x.php"},
		{"nested alias", "vendor/lib", "vendor/lib/x.php"},
		{"root alias", ".", "x.php"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			src := filepath.Join(dir, "d")
			testutil.WriteTree(t, src, map[string]string{"x.php": "<?php echo 1;"})

			dest := filepath.Join(dir, "out.stow")
			b, err := Create(nil, WithDestination(dest))
			require.NoError(t, err)
			defer b.Close()
			b.AddPaths(config.Path{Source: src, Alias: tt.alias})
			commit(t, b)

			cf := openArchive(t, dest)
			got, err := cf.Content(tt.want)
			require.NoError(t, err)
			assert.Equal(t, "<?php echo 1;", string(got))
			assert.Equal(t, []string{tt.want}, cf.Paths())
			if tt.want != "d/x.php" {
				assert.False(t, cf.HasPath("d/x.php"))
				assert.False(t, cf.HasPath("d"))
			}
		})
	}
}

func TestBuilderSingleFileSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"main.php": "main"})
	dest := filepath.Join(dir, "out.stow")

	b, err := Create(nil, WithDestination(dest))
	require.NoError(t, err)
	defer b.Close()
	b.AddPaths(
		config.Path{Source: filepath.Join(dir, "main.php")},
		config.Path{Source: filepath.Join(dir, "main.php"), Alias: "bin/run.php"},
	)
	commit(t, b)

	cf := openArchive(t, dest)
	assert.Equal(t, []string{"main.php", "bin/run.php"}, cf.Paths())
}

func TestBuilderMissingSource(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "out.stow")
	b, err := Create(nil, WithDestination(dest))
	require.NoError(t, err)
	defer b.Close()
	b.AddPaths(config.Path{Source: filepath.Join(t.TempDir(), "nope")})

	_, err = b.Commit(context.Background())
	require.ErrorIs(t, err, ErrConfiguration)
	assert.NoFileExists(t, dest)
}

func TestBuilderEmptyDirectories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "app")
	testutil.WriteTree(t, src, map[string]string{
		"a.txt":       "a",
		"cache/":      "",
		"logs/old/":   "",
		"src/main.go": "package main",
	})
	dest := filepath.Join(dir, "out.stow")

	b, err := Create(nil, WithDestination(dest))
	require.NoError(t, err)
	defer b.Close()
	b.AddPaths(config.Path{Source: src, Alias: "."})
	commit(t, b)

	cf := openArchive(t, dest)
	assert.Equal(t, []string{"a.txt", "src/main.go", "cache", "logs/old"}, cf.Paths())
	e, ok := cf.Entry("cache")
	require.True(t, ok)
	assert.True(t, e.IsDir())
}

func TestBuilderExclude(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	testutil.WriteTree(t, src, map[string]string{
		"keep.php":        "k",
		"skip.log":        "s",
		"tests/a.php":     "t",
		"vendor/x/y.php":  "v",
		"vendor/x/y.md":   "m",
		"nested/keep.log": "n",
	})
	dest := filepath.Join(dir, "out.stow")

	b, err := Create(nil, WithDestination(dest))
	require.NoError(t, err)
	defer b.Close()
	b.SetExclude("*.log", "tests/", "vendor/**/*.md")
	b.AddPaths(config.Path{Source: src, Alias: "."})
	commit(t, b)

	// nested/ held only excluded files, so it is kept as an empty directory.
	cf := openArchive(t, dest)
	assert.Equal(t, []string{"keep.php", "vendor/x/y.php", "nested"}, cf.Paths())
}

func TestBuilderEntryPoint(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.stow")

	b, err := Create(nil, WithDestination(dest))
	require.NoError(t, err)
	b.AddBytes("test/test.php", []byte("<?php"), 0o644).SetEntryPoint("test/test.php")
	commit(t, b)
	primary, ok := b.Container().Primary()
	require.True(t, ok)
	assert.Equal(t, "test/test.php", primary)
	require.NoError(t, b.Close())

	edit, err := OpenBuilder(dest, nil)
	require.NoError(t, err)
	defer edit.Close()
	edit.SetEntryPoint("")
	commit(t, edit)

	cf := openArchive(t, dest)
	assert.False(t, cf.HasPath(PrimaryPath))
	_, ok = cf.Primary()
	assert.False(t, ok)
	assert.True(t, cf.HasPath("test/test.php"))
}

func TestBuilderEntryPointMissing(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "out.stow")
	b, err := Create(nil, WithDestination(dest))
	require.NoError(t, err)
	defer b.Close()
	b.AddBytes("a.php", []byte("a"), 0o644).SetEntryPoint("b.php")

	_, err = b.Commit(context.Background())
	require.ErrorIs(t, err, ErrConfiguration)
	assert.NoFileExists(t, dest)
}

func TestBuilderRejectsReservedAndInvalidPaths(t *testing.T) {
	t.Parallel()

	for _, path := range []string{".stow/primary", ".stow", "../escape", "a/../../b"} {
		t.Run(path, func(t *testing.T) {
			t.Parallel()

			dest := filepath.Join(t.TempDir(), "out.stow")
			b, err := Create(nil, WithDestination(dest))
			require.NoError(t, err)
			defer b.Close()
			b.AddBytes(path, []byte("x"), 0o644)

			_, err = b.Commit(context.Background())
			require.ErrorIs(t, err, ErrConfiguration)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.NoFileExists(t, dest)
		})
	}
}

func TestBuilderCollision(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.stow")

	b, err := Create(nil, WithDestination(dest))
	require.NoError(t, err)
	b.AddBytes("a", []byte("file"), 0o644)
	commit(t, b)
	require.NoError(t, b.Close())
	before, err := os.ReadFile(dest)
	require.NoError(t, err)

	edit, err := OpenBuilder(dest, nil)
	require.NoError(t, err)
	defer edit.Close()
	edit.AddBytes("a/b", []byte("nested"), 0o644)

	_, err = edit.Commit(context.Background())
	require.ErrorIs(t, err, ErrPathCollision)
	var collision *CollisionError
	require.ErrorAs(t, err, &collision)
	assert.Equal(t, "a", collision.File)
	assert.Equal(t, "a/b", collision.Path)

	after, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestBuilderEditPreservesEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.stow")

	b, err := Create(nil, WithDestination(dest))
	require.NoError(t, err)
	b.SetCompression(CompressionGzip).SetBootstrap([]byte("#!/bin/sh\n"))
	b.AddBytes("keep.txt", bytes.Repeat([]byte("k"), 512), 0o644)
	b.AddBytes("dir/a.txt", []byte("a"), 0o644)
	b.AddBytes("dir/b.txt", []byte("b"), 0o644)
	commit(t, b)
	require.NoError(t, b.Close())

	edit, err := OpenBuilder(dest, nil)
	require.NoError(t, err)
	defer edit.Close()
	assert.Equal(t, CompressionGzip, edit.Container().Compression())
	edit.SetCompression(CompressionZstd)
	edit.RemovePath("dir")
	edit.AddBytes("new.txt", bytes.Repeat([]byte("n"), 512), 0o644)
	edit.AddBytes("keep.txt", []byte("replaced"), 0o644)
	commit(t, edit)

	cf := openArchive(t, dest)
	assert.Equal(t, []byte("#!/bin/sh\n"), cf.Stub())
	assert.Equal(t, []string{"keep.txt", "new.txt"}, cf.Paths())

	keep, ok := cf.Entry("keep.txt")
	require.True(t, ok)
	assert.Equal(t, CompressionZstd, keep.Compression)
	got, err := cf.Content("keep.txt")
	require.NoError(t, err)
	assert.Equal(t, "replaced", string(got))

	fresh, ok := cf.Entry("new.txt")
	require.True(t, ok)
	assert.Equal(t, CompressionZstd, fresh.Compression)
}

func TestBuilderCarriesCompressedEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.stow")

	b, err := Create(nil, WithDestination(dest))
	require.NoError(t, err)
	b.SetCompression(CompressionLZ4).AddBytes("old.txt", bytes.Repeat([]byte("o"), 256), 0o600)
	commit(t, b)
	require.NoError(t, b.Close())

	edit, err := OpenBuilder(dest, nil)
	require.NoError(t, err)
	defer edit.Close()
	edit.SetCompression(CompressionBzip2).AddBytes("new.txt", bytes.Repeat([]byte("n"), 256), 0o644)
	commit(t, edit)

	cf := openArchive(t, dest)
	old, ok := cf.Entry("old.txt")
	require.True(t, ok)
	assert.Equal(t, CompressionLZ4, old.Compression)
	assert.Equal(t, 0o600, int(old.Mode))

	fresh, ok := cf.Entry("new.txt")
	require.True(t, ok)
	assert.Equal(t, CompressionBzip2, fresh.Compression)

	for _, p := range []string{"old.txt", "new.txt"} {
		got, err := cf.Content(p)
		require.NoError(t, err)
		assert.Len(t, got, 256)
	}
}

func TestBuilderRemoveDropsStagedBytes(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "out.stow")
	b, err := Create(nil, WithDestination(dest))
	require.NoError(t, err)
	defer b.Close()
	b.AddBytes("tmp/a", []byte("a"), 0o644).AddBytes("tmpfile", []byte("t"), 0o644)
	b.RemovePath("tmp")
	b.AddBytes("tmp/b", []byte("b"), 0o644)
	commit(t, b)

	assert.Equal(t, []string{"tmpfile", "tmp/b"}, b.Container().Paths())
}

func TestBuilderSkipCompression(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "out.stow")
	b, err := Create(nil, WithDestination(dest), WithSkipCompression(DefaultSkipCompression(64)))
	require.NoError(t, err)
	defer b.Close()
	b.SetCompression(CompressionZstd)
	b.AddBytes("small.txt", []byte("tiny"), 0o644)
	b.AddBytes("image.png", bytes.Repeat([]byte("p"), 1024), 0o644)
	b.AddBytes("large.txt", bytes.Repeat([]byte("l"), 1024), 0o644)
	commit(t, b)

	c := b.Container()
	for path, want := range map[string]Compression{
		"small.txt": CompressionNone,
		"image.png": CompressionNone,
		"large.txt": CompressionZstd,
	} {
		e, ok := c.Entry(path)
		require.True(t, ok, path)
		assert.Equal(t, want, e.Compression, path)
	}
}

func TestBuilderAtomicCommit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.stow")

	b, err := Create(nil, WithDestination(dest))
	require.NoError(t, err)
	b.AddBytes("a.txt", []byte("original"), 0o644)
	commit(t, b)
	require.NoError(t, b.Close())
	before, err := os.ReadFile(dest)
	require.NoError(t, err)

	edit, err := OpenBuilder(dest, nil)
	require.NoError(t, err)
	defer edit.Close()
	edit.rename = func(string, string) error { return errors.New("disk unplugged") }
	edit.AddBytes("a.txt", []byte("changed"), 0o644)

	_, err = edit.Commit(context.Background())
	require.ErrorContains(t, err, "disk unplugged")

	after, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	leftovers, err := filepath.Glob(filepath.Join(dir, ".stow-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestBuilderDestinationMode(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	withStub := filepath.Join(dir, "app.stow")
	b, err := Create(nil, WithDestination(withStub))
	require.NoError(t, err)
	defer b.Close()
	b.SetBootstrap([]byte("#!/bin/sh\n")).AddBytes("a", []byte("a"), 0o644)
	commit(t, b)
	info, err := os.Stat(withStub)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	plain := filepath.Join(dir, "data.stow")
	require.NoError(t, os.WriteFile(plain, nil, 0o600))
	p, err := Create(nil, WithDestination(plain))
	require.NoError(t, err)
	defer p.Close()
	p.AddBytes("a", []byte("a"), 0o644)
	commit(t, p)
	info, err = os.Stat(plain)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestBuilderDestinationLock(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "nested", "out.stow")
	b, err := Create(nil, WithDestination(dest), WithDestinationLock(true))
	require.NoError(t, err)
	defer b.Close()
	b.AddBytes("a", []byte("a"), 0o644)
	commit(t, b)

	assert.FileExists(t, dest)
	assert.FileExists(t, dest+".lock")
}

func TestBuilderEvents(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	testutil.WriteTree(t, src, map[string]string{"a.txt": "hello", "b.txt": "world"})
	dest := filepath.Join(dir, "out.stow")

	b, err := Create(nil, WithDestination(dest))
	require.NoError(t, err)
	defer b.Close()
	b.AddPaths(config.Path{Source: src})
	b.AddBytes("extra.txt", []byte("extra"), 0o644)

	var seen []string
	d := b.Dispatcher()
	event.Subscribe(d, func(e *event.BeforeSetPaths) error {
		seen = append(seen, "before-set-paths")
		e.Sources = append(e.Sources, config.Path{Source: filepath.Join(src, "a.txt"), Alias: "copy.txt"})
		return nil
	})
	event.Subscribe(d, func(e *event.AddFile) error {
		seen = append(seen, "add-file:"+e.Path())
		e.Content = bytes.ToUpper(e.Content)
		return nil
	})
	event.Subscribe(d, func(e *event.BeforeCommit) error {
		seen = append(seen, "before-commit")
		assert.Equal(t, dest, e.Destination())
		assert.Equal(t, []string{"src/a.txt", "src/b.txt", "copy.txt", "extra.txt"}, e.Paths())
		assert.NoFileExists(t, dest)
		return nil
	})
	var afterSum string
	event.Subscribe(d, func(e *event.AfterCommit) error {
		seen = append(seen, "after-commit")
		afterSum = e.Checksum().String()
		assert.Equal(t, 4, e.Entries())
		assert.FileExists(t, e.Destination())
		return nil
	})

	sum, err := b.Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"before-set-paths",
		"add-file:src/a.txt",
		"add-file:src/b.txt",
		"add-file:copy.txt",
		"add-file:extra.txt",
		"before-commit",
		"after-commit",
	}, seen)
	assert.Equal(t, sum.String(), afterSum)

	got, err := b.Container().Content("src/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "HELLO", string(got))
}

func TestBuilderExtensionErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")

	t.Run("before commit aborts", func(t *testing.T) {
		t.Parallel()

		dest := filepath.Join(t.TempDir(), "out.stow")
		b, err := Create(nil, WithDestination(dest))
		require.NoError(t, err)
		defer b.Close()
		b.AddBytes("a", []byte("a"), 0o644)
		event.Subscribe(b.Dispatcher(), func(*event.BeforeCommit) error { return boom })

		_, err = b.Commit(context.Background())
		require.ErrorIs(t, err, ErrExtension)
		require.ErrorIs(t, err, boom)
		var pe *event.PointError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, event.PointBeforeCommit, pe.Point)
		assert.NoFileExists(t, dest)
	})

	t.Run("add file aborts", func(t *testing.T) {
		t.Parallel()

		dest := filepath.Join(t.TempDir(), "out.stow")
		b, err := Create(nil, WithDestination(dest))
		require.NoError(t, err)
		defer b.Close()
		b.AddBytes("a", []byte("a"), 0o644)
		event.Subscribe(b.Dispatcher(), func(*event.AddFile) error { return boom })

		_, err = b.Commit(context.Background())
		require.ErrorIs(t, err, ErrExtension)
		assert.NoFileExists(t, dest)
	})

	t.Run("after commit keeps archive", func(t *testing.T) {
		t.Parallel()

		dest := filepath.Join(t.TempDir(), "out.stow")
		b, err := Create(nil, WithDestination(dest))
		require.NoError(t, err)
		defer b.Close()
		b.AddBytes("a", []byte("a"), 0o644)
		event.Subscribe(b.Dispatcher(), func(*event.AfterCommit) error { return boom })

		sum, err := b.Commit(context.Background())
		require.ErrorIs(t, err, ErrExtension)
		assert.NotEmpty(t, sum)
		verified, err := VerifyFile(dest)
		require.NoError(t, err)
		assert.Equal(t, sum, verified)
	})
}

func TestBuilderApplyConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"bootstrap.php":  "<?php require 'phar://main';\n",
		"src/main.php":   "<?php main();",
		"src/lib.php":    "<?php lib();",
		"src/debug.log":  "noise",
		"tests/t.php":    "<?php test();",
		"README.md":      "readme",
		"assets/img.txt": "img",
	})
	cfg := &config.Config{
		Directory:   dir,
		Bootstrap:   "bootstrap.php",
		Compression: "GZIP",
		Main:        "src/main.php",
		Output:      "build/app.stow",
		Shebang:     "/usr/bin/env php",
		Exclude:     []string{"*.log"},
		Paths: []config.Path{
			{Source: "src"},
			{Source: "README.md"},
			{Source: "assets", Alias: "static"},
		},
	}

	b, err := Create(cfg)
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, filepath.Join(dir, "build", "app.stow"), b.Destination())
	require.NoError(t, b.ApplyConfig())
	commit(t, b)

	cf := openArchive(t, filepath.Join(dir, "build", "app.stow"))
	assert.Equal(t, "#!/usr/bin/env php\n<?php require 'phar://main';\n", string(cf.Stub()))
	assert.Equal(t, CompressionGzip, cf.Compression())
	primary, ok := cf.Primary()
	require.True(t, ok)
	assert.Equal(t, "src/main.php", primary)
	assert.Equal(t, []string{"src/lib.php", "src/main.php", "README.md", "static/img.txt", PrimaryPath}, cf.Paths())

	data, err := os.ReadFile(filepath.Join(dir, "build", "app.stow"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "#!/usr/bin/env php\n"))
}

func TestBuilderConfigErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{"unknown compression", &config.Config{Compression: "rar"}},
		{"unknown digest", &config.Config{Digest: "md5"}},
		{"empty source", &config.Config{Paths: []config.Path{{Source: ""}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Create(tt.cfg)
			require.ErrorIs(t, err, ErrConfiguration)
		})
	}

	t.Run("missing bootstrap", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		b, err := Create(&config.Config{Directory: dir, Bootstrap: "nope.php"})
		require.NoError(t, err)
		defer b.Close()
		require.ErrorIs(t, b.ApplyConfig(), ErrConfiguration)
	})
}

func TestBuilderRegisterPlugins(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "out.stow")
	b, err := Create(nil, WithDestination(dest))
	require.NoError(t, err)
	defer b.Close()

	suffix := PluginFunc(func(d *event.Dispatcher, _ *config.Config, c *Container) error {
		assert.NotNil(t, c)
		event.Subscribe(d, func(e *event.AddFile) error {
			e.Content = append(e.Content, "!"...)
			return nil
		})
		return nil
	})
	require.NoError(t, b.RegisterPlugins(suffix))

	failing := PluginFunc(func(*event.Dispatcher, *config.Config, *Container) error {
		return errors.New("bad settings")
	})
	require.ErrorIs(t, b.RegisterPlugins(failing), ErrConfiguration)

	b.AddBytes("a.txt", []byte("hi"), 0o644)
	commit(t, b)
	got, err := b.Container().Content("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hi!", string(got))
}

func TestBuilderCommitTwice(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "out.stow")
	b, err := Create(nil, WithDestination(dest))
	require.NoError(t, err)
	defer b.Close()
	b.AddBytes("a", []byte("a"), 0o644)

	first, err := b.Commit(context.Background())
	require.NoError(t, err)
	second, err := b.Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
