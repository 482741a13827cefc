package stow

import (
	"io"
	"io/fs"
	"slices"
	"strings"

	"github.com/meigma/stow/core/internal/file"
)

// Open implements fs.FS.
//
// Files are decompressed in full when opened; the returned file also
// implements io.ReaderAt and io.Seeker. Directories are either recorded
// directory entries or synthesized from file paths.
func (c *Container) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	if e, ok := c.idx.Get(name); ok && !e.IsDir() {
		content, err := c.Content(name)
		if err != nil {
			return nil, &fs.PathError{Op: "open", Path: name, Err: unwrapPathError(err)}
		}
		return file.NewFile(file.NewInfo(&e, file.Base(name)), content), nil
	}
	if c.isDir(name) {
		return &openDir{c: c, name: name}, nil
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// Stat implements fs.StatFS.
func (c *Container) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	if e, ok := c.idx.Get(name); ok {
		return file.NewInfo(&e, file.Base(name)), nil
	}
	if c.isDir(name) {
		return file.NewDirInfo(file.Base(name)), nil
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

// ReadFile implements fs.ReadFileFS.
func (c *Container) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}
	content, err := c.Content(name)
	if err != nil {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: unwrapPathError(err)}
	}
	return content, nil
}

// ReadDir implements fs.ReadDirFS.
//
// ReadDir returns the immediate children of the named directory, sorted by
// name.
func (c *Container) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	if !c.isDir(name) {
		if c.idx.Has(name) {
			return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
		}
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	return c.children(name), nil
}

// isDir reports whether name is a directory. The root always exists.
func (c *Container) isDir(name string) bool {
	return c.idx.IsDir(name)
}

// children synthesizes the sorted directory listing of name.
func (c *Container) children(name string) []fs.DirEntry {
	prefix := file.DirPrefix(name)
	seen := make(map[string]struct{})
	var out []fs.DirEntry
	for e := range c.idx.All() {
		child, isSubDir, ok := file.Child(e.Path, prefix)
		if !ok {
			continue
		}
		if _, dup := seen[child]; dup {
			continue
		}
		seen[child] = struct{}{}
		if isSubDir {
			if dirEntry, ok := c.idx.Get(prefix + child); ok {
				out = append(out, file.NewDirEntry(file.NewInfo(&dirEntry, child)))
			} else {
				out = append(out, file.NewDirEntry(file.NewDirInfo(child)))
			}
			continue
		}
		out = append(out, file.NewDirEntry(file.NewInfo(&e, child)))
	}
	slices.SortFunc(out, func(a, b fs.DirEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return out
}

func unwrapPathError(err error) error {
	if pe, ok := err.(*fs.PathError); ok { //nolint:errorlint // only the outermost wrapper is replaced
		return pe.Err
	}
	return err
}

// openDir implements fs.File and fs.ReadDirFile for directories.
type openDir struct {
	c       *Container
	name    string
	entries []fs.DirEntry
	offset  int
	loaded  bool
}

func (d *openDir) Read(_ []byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: fs.ErrInvalid}
}

func (d *openDir) Stat() (fs.FileInfo, error) {
	return d.c.Stat(d.name)
}

func (d *openDir) Close() error {
	return nil
}

func (d *openDir) ReadDir(n int) ([]fs.DirEntry, error) {
	if !d.loaded {
		d.entries = d.c.children(d.name)
		d.loaded = true
	}
	rest := d.entries[d.offset:]
	if n <= 0 {
		d.offset = len(d.entries)
		return slices.Clone(rest), nil
	}
	if len(rest) == 0 {
		return nil, io.EOF
	}
	n = min(n, len(rest))
	d.offset += n
	return slices.Clone(rest[:n]), nil
}
