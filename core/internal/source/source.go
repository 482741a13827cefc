// Package source enumerates build sources on disk.
//
// A source is a regular file or a directory. Directories are walked in
// lexical order through an os.Root, so symlinks are never followed and
// nothing outside the directory can be read.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/meigma/stow/core/internal/platform"
	"github.com/meigma/stow/core/internal/sizing"
	"github.com/meigma/stow/core/internal/stowtype"
)

// File is one item found in a source.
type File struct {
	// Path is slash-separated and relative to the source directory.
	// It is empty when the source itself is a regular file.
	Path string

	// Kind is file or directory. Directories are reported only when empty.
	Kind stowtype.Kind

	// Mode holds the permission bits.
	Mode fs.FileMode

	// Content holds the file bytes. Nil for directories.
	Content []byte
}

// Options configures enumeration.
type Options struct {
	// Exclude holds gitignore-style patterns matched relative to the source
	// directory.
	Exclude []string

	// MaxFileSize limits the size of a single file. Zero means no limit.
	MaxFileSize uint64

	// Logger receives per-file debug records.
	Logger *slog.Logger
}

func (o *Options) log() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

func (o *Options) limit() uint64 {
	if o.MaxFileSize == 0 {
		return ^uint64(0) >> 2
	}
	return o.MaxFileSize
}

// ErrNotFound is returned when a source does not exist.
var ErrNotFound = errors.New("source not found")

// Collect enumerates the source at path.
func Collect(ctx context.Context, path string, opts Options) ([]File, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}

	switch {
	case info.Mode().IsRegular():
		content, err := readFile(path, opts.limit())
		if err != nil {
			return nil, err
		}
		return []File{{Kind: stowtype.KindFile, Mode: info.Mode().Perm(), Content: content}}, nil
	case info.IsDir():
		return collectDir(ctx, path, &opts)
	default:
		return nil, fmt.Errorf("source %s is not a regular file or directory", path)
	}
}

func readFile(path string, limit uint64) ([]byte, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided path is intentional
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := sizing.ReadAllLimit(f, limit)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func newMatcher(patterns []string) gitignore.Matcher {
	ps := make([]gitignore.Pattern, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(p, nil))
	}
	return gitignore.NewMatcher(ps)
}

func collectDir(ctx context.Context, dir string, opts *Options) ([]File, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	defer root.Close()

	matcher := newMatcher(opts.Exclude)
	limit := opts.limit()
	var (
		files    []File
		dirs     []File
		nonEmpty = make(map[string]struct{})
	)

	err = fs.WalkDir(root.FS(), ".", func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == "." {
			return nil
		}
		if matcher.Match(strings.Split(p, "/"), d.IsDir()) {
			opts.log().Debug("excluded", "path", p)
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		info, ok, err := resolveInfo(root, p, d)
		if err != nil {
			return err
		}
		if !ok {
			opts.log().Debug("skipped non-regular file", "path", p)
			return nil
		}
		if info.IsDir() {
			dirs = append(dirs, File{Path: p, Kind: stowtype.KindDirectory, Mode: info.Mode().Perm()})
			return nil
		}

		content, err := platform.ReadFile(root, filepath.FromSlash(p), limit)
		if errors.Is(err, platform.ErrSymlink) {
			opts.log().Debug("skipped symlink", "path", p)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		files = append(files, File{Path: p, Kind: stowtype.KindFile, Mode: info.Mode().Perm(), Content: content})
		markParents(nonEmpty, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Deepest directories first so a directory holding only empty
	// directories is not itself reported.
	var empty []File
	for i := len(dirs) - 1; i >= 0; i-- {
		d := dirs[i]
		if _, ok := nonEmpty[d.Path]; !ok {
			empty = append(empty, d)
			markParents(nonEmpty, d.Path)
		}
	}
	slices.Reverse(empty)
	return append(files, empty...), nil
}

// markParents records every ancestor directory of p as non-empty.
func markParents(set map[string]struct{}, p string) {
	for {
		i := strings.LastIndexByte(p, '/')
		if i < 0 {
			return
		}
		p = p[:i]
		set[p] = struct{}{}
	}
}
