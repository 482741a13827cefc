package stow

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fluxcd/pkg/lockedfile"
	"github.com/opencontainers/go-digest"
)

// save writes the planned archive to the destination.
//
// Uses atomic writes (temp file + rename) so the destination is either the
// previous archive or the complete new one. Parent directories are created
// as needed.
func (b *Builder) save(plan []planned) (digest.Digest, error) {
	dir := filepath.Dir(b.dest)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create destination directory: %w", err)
	}

	if b.lock {
		unlock, err := lockedfile.MutexAt(b.dest + ".lock").Lock()
		if err != nil {
			return "", fmt.Errorf("lock destination: %w", err)
		}
		defer unlock()
	}

	mode, err := b.destMode()
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, ".stow-*")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()

	d, err := encode(tmp, b.stub, b.compression, b.algorithm, plan)
	if err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("write archive: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	if err := b.rename(tmpPath, b.dest); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("replace destination: %w", err)
	}
	return d, nil
}

// destMode keeps the permissions of an existing destination. New archives
// with a stub are executable.
func (b *Builder) destMode() (fs.FileMode, error) {
	info, err := os.Stat(b.dest)
	switch {
	case err == nil:
		return info.Mode().Perm(), nil
	case !errors.Is(err, fs.ErrNotExist):
		return 0, err
	case len(b.stub) > 0:
		return 0o755, nil
	default:
		return 0o644, nil
	}
}
