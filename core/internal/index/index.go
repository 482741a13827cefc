package index

import (
	"iter"
	"slices"
	"strings"

	"github.com/meigma/stow/core/internal/stowtype"
)

// Index maps paths to entries, preserving insertion order.
//
// Index is not safe for concurrent mutation; concurrent readers are fine
// once mutation has stopped.
type Index struct {
	entries []stowtype.Entry
	pos     map[string]int
}

// New returns an empty index.
func New() *Index {
	return &Index{pos: make(map[string]int)}
}

// FromEntries builds an index from entries in order. Later duplicates
// replace earlier ones.
func FromEntries(entries []stowtype.Entry) *Index {
	idx := &Index{
		entries: make([]stowtype.Entry, 0, len(entries)),
		pos:     make(map[string]int, len(entries)),
	}
	for i := range entries {
		idx.Put(entries[i])
	}
	return idx
}

// Put inserts or replaces the entry for e.Path. A replaced entry keeps its
// position.
func (idx *Index) Put(e stowtype.Entry) {
	if i, ok := idx.pos[e.Path]; ok {
		idx.entries[i] = e
		return
	}
	idx.pos[e.Path] = len(idx.entries)
	idx.entries = append(idx.entries, e)
}

// Remove deletes path and reports whether it was present.
func (idx *Index) Remove(path string) bool {
	i, ok := idx.pos[path]
	if !ok {
		return false
	}
	idx.entries = slices.Delete(idx.entries, i, i+1)
	delete(idx.pos, path)
	for j := i; j < len(idx.entries); j++ {
		idx.pos[idx.entries[j].Path] = j
	}
	return true
}

// RemoveTree deletes path and every entry below it. It returns the number
// of entries removed.
func (idx *Index) RemoveTree(path string) int {
	prefix := path + "/"
	kept := idx.entries[:0]
	removed := 0
	for _, e := range idx.entries {
		if e.Path == path || strings.HasPrefix(e.Path, prefix) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	if removed == 0 {
		return 0
	}
	clear(idx.entries[len(kept):])
	idx.entries = kept
	idx.reindex()
	return removed
}

func (idx *Index) reindex() {
	clear(idx.pos)
	for i := range idx.entries {
		idx.pos[idx.entries[i].Path] = i
	}
}

// Get returns the entry for path.
func (idx *Index) Get(path string) (stowtype.Entry, bool) {
	i, ok := idx.pos[path]
	if !ok {
		return stowtype.Entry{}, false
	}
	return idx.entries[i], true
}

// Has reports whether path is present.
func (idx *Index) Has(path string) bool {
	_, ok := idx.pos[path]
	return ok
}

// Len returns the number of entries.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Paths returns all paths in index order.
func (idx *Index) Paths() []string {
	paths := make([]string, len(idx.entries))
	for i := range idx.entries {
		paths[i] = idx.entries[i].Path
	}
	return paths
}

// All iterates over entries in index order.
func (idx *Index) All() iter.Seq[stowtype.Entry] {
	return func(yield func(stowtype.Entry) bool) {
		for _, e := range idx.entries {
			if !yield(e) {
				return
			}
		}
	}
}

// Entries returns a copy of all entries in index order.
func (idx *Index) Entries() []stowtype.Entry {
	return slices.Clone(idx.entries)
}

// Clone returns an independent copy of the index.
func (idx *Index) Clone() *Index {
	return FromEntries(idx.entries)
}

// IsDir reports whether path is a directory, either as an explicit
// directory entry or implied by entries below it.
func (idx *Index) IsDir(path string) bool {
	if path == "." {
		return true
	}
	if e, ok := idx.Get(path); ok {
		return e.Kind == stowtype.KindDirectory
	}
	prefix := path + "/"
	for _, e := range idx.entries {
		if strings.HasPrefix(e.Path, prefix) {
			return true
		}
	}
	return false
}

// CheckCollisions verifies that no file entry is the ancestor of another
// entry. It runs over the whole index because intermediate states during a
// build may be transiently inconsistent.
func (idx *Index) CheckCollisions() error {
	for _, e := range idx.entries {
		p := e.Path
		for {
			slash := strings.LastIndexByte(p, '/')
			if slash < 0 {
				break
			}
			p = p[:slash]
			if anc, ok := idx.Get(p); ok && anc.Kind == stowtype.KindFile {
				return &stowtype.CollisionError{File: p, Path: e.Path}
			}
		}
	}
	return nil
}
