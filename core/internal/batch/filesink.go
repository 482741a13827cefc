package batch

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	defaultFileMode fs.FileMode = 0o644
	defaultDirMode  fs.FileMode = 0o755
)

// FileSink writes entries below a destination directory.
//
// All access goes through an os.Root, so entry paths cannot escape the
// destination. Files are written to a temporary file in the same directory
// and renamed to the final path on Commit, so partially written files are
// never visible at the final path.
type FileSink struct {
	destDir      string
	root         *os.Root
	overwrite    bool
	preserveMode bool
}

// FileSinkOption configures a FileSink.
type FileSinkOption func(*FileSink)

// WithOverwrite allows overwriting existing files.
// By default, existing files are skipped.
func WithOverwrite(overwrite bool) FileSinkOption {
	return func(s *FileSink) {
		s.overwrite = overwrite
	}
}

// WithPreserveMode applies the permission bits recorded in the archive.
// By default files get 0644 and directories 0755.
func WithPreserveMode(preserve bool) FileSinkOption {
	return func(s *FileSink) {
		s.preserveMode = preserve
	}
}

// OpenFileSink creates destDir if needed and returns a sink rooted at it.
// The sink must be closed.
func OpenFileSink(destDir string, opts ...FileSinkOption) (*FileSink, error) {
	if err := os.MkdirAll(destDir, defaultDirMode); err != nil {
		return nil, fmt.Errorf("create destination %s: %w", destDir, err)
	}
	root, err := os.OpenRoot(destDir)
	if err != nil {
		return nil, fmt.Errorf("open destination root %s: %w", destDir, err)
	}
	s := &FileSink{destDir: destDir, root: root}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the destination root.
func (s *FileSink) Close() error {
	return s.root.Close()
}

// ShouldProcess returns false if the path already exists and overwrite is
// disabled.
func (s *FileSink) ShouldProcess(entry *Entry) bool {
	if !fs.ValidPath(entry.Path) {
		return false
	}
	if s.overwrite {
		return true
	}
	_, err := s.root.Lstat(filepath.FromSlash(entry.Path))
	return errors.Is(err, fs.ErrNotExist)
}

func (s *FileSink) mode(entry *Entry, fallback fs.FileMode) fs.FileMode {
	if s.preserveMode && entry.Mode.Perm() != 0 {
		return entry.Mode.Perm()
	}
	return fallback
}

// Mkdir creates the directory for a directory entry.
func (s *FileSink) Mkdir(entry *Entry) error {
	if !fs.ValidPath(entry.Path) {
		return &fs.PathError{Op: "mkdir", Path: entry.Path, Err: fs.ErrInvalid}
	}
	rel := filepath.FromSlash(entry.Path)
	if err := s.root.MkdirAll(rel, defaultDirMode); err != nil {
		return fmt.Errorf("create directory %s: %w", entry.Path, err)
	}
	if s.preserveMode {
		if err := s.root.Chmod(rel, s.mode(entry, defaultDirMode)); err != nil {
			return fmt.Errorf("chmod %s: %w", entry.Path, err)
		}
	}
	return nil
}

// Writer returns a Committer that writes to a temp file and renames on Commit.
func (s *FileSink) Writer(entry *Entry) (Committer, error) {
	if !fs.ValidPath(entry.Path) {
		return nil, &fs.PathError{Op: "extract", Path: entry.Path, Err: fs.ErrInvalid}
	}
	destRel := filepath.FromSlash(entry.Path)
	dir := filepath.Dir(destRel)
	if err := s.root.MkdirAll(dir, defaultDirMode); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", filepath.ToSlash(dir), err)
	}

	tempFile, tempRel, err := createTempFile(s.root, dir, ".stow-")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return &fileCommitter{
		destRel:  destRel,
		tempFile: tempFile,
		tempRel:  tempRel,
		mode:     s.mode(entry, defaultFileMode),
		root:     s.root,
	}, nil
}

// fileCommitter writes to a temp file and renames on Commit.
type fileCommitter struct {
	destRel  string
	tempFile *os.File
	tempRel  string
	mode     fs.FileMode
	root     *os.Root
}

// Write implements io.Writer.
func (c *fileCommitter) Write(p []byte) (int, error) {
	return c.tempFile.Write(p)
}

// Commit closes the temp file, applies the mode, and renames to the final path.
func (c *fileCommitter) Commit() error {
	if err := c.tempFile.Close(); err != nil {
		_ = c.root.Remove(c.tempRel) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := c.root.Chmod(c.tempRel, c.mode); err != nil {
		_ = c.root.Remove(c.tempRel) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("chmod: %w", err)
	}
	if err := c.root.Rename(c.tempRel, c.destRel); err != nil {
		_ = c.root.Remove(c.tempRel) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("rename to %s: %w", filepath.ToSlash(c.destRel), err)
	}
	return nil
}

// Discard closes and removes the temp file.
func (c *fileCommitter) Discard() error {
	_ = c.tempFile.Close() //nolint:errcheck // we're cleaning up
	return c.root.Remove(c.tempRel)
}

func createTempFile(root *os.Root, dir, prefix string) (*os.File, string, error) {
	const attempts = 10
	for range attempts {
		name, err := randomSuffix()
		if err != nil {
			return nil, "", err
		}
		relPath := filepath.Join(dir, prefix+name)
		f, err := root.OpenFile(relPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			return f, relPath, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", errors.New("create temp file: exhausted retries")
}

func randomSuffix() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
