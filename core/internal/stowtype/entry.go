package stowtype

import "io/fs"

// Kind distinguishes file entries from directory entries.
type Kind uint8

const (
	KindFile Kind = iota
	KindDirectory
)

// String returns "file" or "directory".
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// Entry describes one item in the archive.
type Entry struct {
	// Path is the normalized, slash-separated path (e.g., "src/main.php").
	Path string

	// Kind is file or directory.
	Kind Kind

	// Mode holds the permission bits recorded at build time.
	Mode fs.FileMode

	// OriginalSize is the uncompressed size in bytes.
	OriginalSize uint64

	// StoredSize is the number of bytes stored in the content block.
	// Equal to OriginalSize for uncompressed entries, zero for directories.
	StoredSize uint64

	// Compression is the algorithm applied to this entry's stored bytes.
	Compression Compression

	// Offset is the position of the stored bytes within the content block.
	// Only meaningful for entries of a serialized container.
	Offset uint64
}

// IsDir reports whether the entry is a directory.
func (e *Entry) IsDir() bool {
	return e.Kind == KindDirectory
}
