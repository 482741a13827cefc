package file

import (
	"io/fs"
	"time"

	"github.com/meigma/stow/core/internal/stowtype"
)

const defaultDirMode fs.FileMode = 0o755

// Info implements fs.FileInfo for an archive entry. ModTime is always the
// zero time; archives do not record timestamps.
type Info struct {
	name  string
	size  int64
	mode  fs.FileMode
	entry *stowtype.Entry
}

// NewInfo creates file info for entry using name as the base name.
func NewInfo(entry *stowtype.Entry, name string) *Info {
	e := *entry
	info := &Info{name: name, entry: &e}
	if e.IsDir() {
		info.mode = fs.ModeDir | e.Mode.Perm()
		if e.Mode.Perm() == 0 {
			info.mode = fs.ModeDir | defaultDirMode
		}
		return info
	}
	info.mode = e.Mode.Perm()
	// OriginalSize above MaxInt64 is rejected at decode time by the
	// content block bound; clamp rather than wrap if it ever appears.
	if e.OriginalSize > uint64(1<<63-1) {
		info.size = 1<<63 - 1
	} else {
		info.size = int64(e.OriginalSize)
	}
	return info
}

func (i *Info) Name() string       { return i.name }
func (i *Info) Size() int64        { return i.size }
func (i *Info) Mode() fs.FileMode  { return i.mode }
func (i *Info) ModTime() time.Time { return time.Time{} }
func (i *Info) IsDir() bool        { return i.mode.IsDir() }

// Sys returns the archive entry as a stowtype.Entry value.
func (i *Info) Sys() any { return *i.entry }

// DirInfo implements fs.FileInfo for directories synthesized from file paths.
type DirInfo struct {
	name string
}

// NewDirInfo creates synthetic directory info.
func NewDirInfo(name string) *DirInfo {
	return &DirInfo{name: name}
}

func (di *DirInfo) Name() string       { return di.name }
func (di *DirInfo) Size() int64        { return 0 }
func (di *DirInfo) Mode() fs.FileMode  { return fs.ModeDir | defaultDirMode }
func (di *DirInfo) ModTime() time.Time { return time.Time{} }
func (di *DirInfo) IsDir() bool        { return true }
func (di *DirInfo) Sys() any           { return nil }

// DirEntry implements fs.DirEntry by wrapping fs.FileInfo.
type DirEntry struct {
	info fs.FileInfo
}

// NewDirEntry creates a DirEntry wrapping info.
func NewDirEntry(info fs.FileInfo) *DirEntry {
	return &DirEntry{info: info}
}

func (de *DirEntry) Name() string               { return de.info.Name() }
func (de *DirEntry) IsDir() bool                { return de.info.IsDir() }
func (de *DirEntry) Type() fs.FileMode          { return de.info.Mode().Type() }
func (de *DirEntry) Info() (fs.FileInfo, error) { return de.info, nil }
func (de *DirEntry) String() string             { return fs.FormatDirEntry(de) }
