package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/stow"
	"github.com/meigma/stow/core/testutil"
)

func invoke(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// project writes a source tree with a configuration and returns the
// configuration path and the archive path it builds.
func project(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"stow.yml": `
stow:
  compression: gzip
  main: app/main.php
  output: out/app.stow
  shebang: "#!/usr/bin/env php"
  paths:
    - app
`,
		"app/main.php": "<?php main();",
		"app/lib.php":  "<?php lib();",
	})
	return filepath.Join(dir, "stow.yml"), filepath.Join(dir, "out", "app.stow")
}

func TestUsage(t *testing.T) {
	t.Parallel()

	code, _, stderr := invoke(t)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "Commands:")

	code, _, _ = invoke(t, "--help")
	assert.Equal(t, exitOK, code)

	code, _, stderr = invoke(t, "bogus")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, `unknown command "bogus"`)

	code, _, _ = invoke(t, "extract", "only-one-arg")
	assert.Equal(t, exitUsage, code)

	code, _, _ = invoke(t, "list", "--no-such-flag", "x")
	assert.Equal(t, exitUsage, code)

	code, _, _ = invoke(t, "create", "-h")
	assert.Equal(t, exitOK, code)
}

func TestCreateListExtractVerify(t *testing.T) {
	t.Parallel()

	cfgPath, archive := project(t)

	code, stdout, stderr := invoke(t, "create", "--config", cfgPath)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "created "+archive)

	code, stdout, stderr = invoke(t, "list", archive)
	require.Equal(t, exitOK, code, stderr)
	assert.Equal(t, "app/lib.php\napp/main.php\n"+stow.PrimaryPath+"\n", stdout)

	code, stdout, _ = invoke(t, "list", "-l", archive)
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "entry point: app/main.php")
	assert.Contains(t, stdout, "gzip")

	dest := t.TempDir()
	code, stdout, stderr = invoke(t, "extract", archive, dest)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "extracted 2 files")
	got, err := os.ReadFile(filepath.Join(dest, "app", "main.php"))
	require.NoError(t, err)
	assert.Equal(t, "<?php main();", string(got))

	code, stdout, _ = invoke(t, "verify", archive)
	require.Equal(t, exitOK, code)
	fields := strings.Fields(stdout)
	require.Len(t, fields, 3)
	sum := fields[2]

	code, _, _ = invoke(t, "verify", "--expect", sum, archive)
	assert.Equal(t, exitOK, code)

	other := "sha256:" + strings.Repeat("0", 64)
	code, _, stderr = invoke(t, "verify", "--expect", other, archive)
	assert.Equal(t, exitIntegrity, code)
	assert.Contains(t, stderr, "integrity mismatch")
}

func TestRemoteArchive(t *testing.T) {
	t.Parallel()

	cfgPath, archive := project(t)
	code, _, stderr := invoke(t, "create", "--config", cfgPath)
	require.Equal(t, exitOK, code, stderr)

	server := httptest.NewServer(http.FileServer(http.Dir(filepath.Dir(archive))))
	t.Cleanup(server.Close)
	url := server.URL + "/" + filepath.Base(archive)

	code, stdout, stderr := invoke(t, "list", url)
	require.Equal(t, exitOK, code, stderr)
	assert.Equal(t, "app/lib.php\napp/main.php\n"+stow.PrimaryPath+"\n", stdout)

	code, stdout, stderr = invoke(t, "verify", url)
	require.Equal(t, exitOK, code, stderr)
	assert.True(t, strings.HasPrefix(stdout, url+": OK sha256:"))

	dest := t.TempDir()
	code, _, stderr = invoke(t, "extract", "--prefix", "app/lib.php", url, dest)
	require.Equal(t, exitOK, code, stderr)
	got, err := os.ReadFile(filepath.Join(dest, "app", "lib.php"))
	require.NoError(t, err)
	assert.Equal(t, "<?php lib();", string(got))
	assert.NoFileExists(t, filepath.Join(dest, "app", "main.php"))

	code, _, _ = invoke(t, "list", server.URL+"/missing.stow")
	assert.Equal(t, exitFailure, code)
}

func TestCreateFromArguments(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"src/a.txt":   "a",
		"src/b.log":   "b",
		"single.conf": "c",
	})
	archive := filepath.Join(dir, "args.stow")
	missingConfig := filepath.Join(dir, "none.yml")
	require.NoError(t, os.WriteFile(missingConfig, []byte("stow: {}\n"), 0o644))

	code, _, stderr := invoke(t, "create", "-c", missingConfig, "-o", archive,
		"--compression", "lz4", "--digest", "blake3", "--exclude", "*.log",
		"lib="+filepath.Join(dir, "src"), filepath.Join(dir, "single.conf"))
	require.Equal(t, exitOK, code, stderr)

	c, err := stow.Open(archive)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, []string{"lib/a.txt", "single.conf"}, c.Paths())
	assert.Equal(t, stow.CompressionLZ4, c.Compression())
	assert.Equal(t, stow.DigestBLAKE3, c.DigestAlgorithm())
}

func TestEdit(t *testing.T) {
	t.Parallel()

	cfgPath, archive := project(t)
	code, _, stderr := invoke(t, "create", "--config", cfgPath)
	require.Equal(t, exitOK, code, stderr)

	extra := filepath.Join(t.TempDir(), "extra.txt")
	require.NoError(t, os.WriteFile(extra, []byte("extra"), 0o644))

	code, stdout, stderr := invoke(t, "edit", "--remove", "app/lib.php", "--add", "docs/extra.txt="+extra, "--main", "", archive)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "updated "+archive)

	c, err := stow.Open(archive)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, []string{"app/main.php", "docs/extra.txt"}, c.Paths())
	assert.Equal(t, "#!/usr/bin/env php\n", string(c.Stub()))
}

func TestExitCodes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.stow")
	require.NoError(t, os.WriteFile(garbage, bytes.Repeat([]byte("x"), 128), 0o644))

	code, stdout, _ := invoke(t, "verify", garbage)
	assert.Equal(t, exitCorrupt, code)
	assert.Contains(t, stdout, "FAILED")

	cfgPath, archive := project(t)
	code, _, stderr := invoke(t, "create", "--config", cfgPath)
	require.Equal(t, exitOK, code, stderr)
	data, err := os.ReadFile(archive)
	require.NoError(t, err)
	data[len(data)-60] ^= 0xff
	require.NoError(t, os.WriteFile(archive, data, 0o644))
	code, _, _ = invoke(t, "list", archive)
	assert.Equal(t, exitIntegrity, code)

	code, _, _ = invoke(t, "create", "--config", cfgPath, "--compression", "rar")
	assert.Equal(t, exitConfiguration, code)

	code, _, _ = invoke(t, "create", "--config", filepath.Join(dir, "missing.yml"))
	assert.Equal(t, exitConfiguration, code)
}

func TestExitCodeMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{usagef("bad"), exitUsage},
		{stow.ErrCorruptFormat, exitCorrupt},
		{stow.ErrIntegrityMismatch, exitIntegrity},
		{stow.ErrDecompression, exitDecompression},
		{&stow.CollisionError{File: "a", Path: "a/b"}, exitCollision},
		{stow.ErrConfiguration, exitConfiguration},
		{stow.ErrExtension, exitExtension},
		{os.ErrPermission, exitFailure},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), "%v", tt.err)
	}
}
