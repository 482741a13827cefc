package batch

import (
	"io"

	"github.com/meigma/stow/core/internal/stowtype"
)

// Entry is an alias for stowtype.Entry.
type Entry = stowtype.Entry

// Sink receives decompressed entry content during extraction.
//
// Implementations determine where content is written and can filter which
// entries to process.
type Sink interface {
	// ShouldProcess returns false if this entry should be skipped.
	// This allows implementations to skip existing files.
	ShouldProcess(entry *Entry) bool

	// Writer returns a writer for a file entry's content.
	// The returned Committer must have Commit() called after a successful
	// write, or Discard() called on any error.
	Writer(entry *Entry) (Committer, error)

	// Mkdir materializes a directory entry.
	Mkdir(entry *Entry) error
}

// Committer is a writer that can be committed or discarded.
//
// Implementations should stage writes until Commit is called. A file-based
// implementation writes to a temp file and renames it on Commit, or deletes
// it on Discard.
type Committer interface {
	io.Writer

	// Commit finalizes the write, making content available.
	Commit() error

	// Discard aborts the write and cleans up any temporary resources.
	Discard() error
}
