package stow

import (
	"io"

	"github.com/meigma/stow/core/internal/stowtype"
)

// Re-export types from internal/stowtype for public API.
type (
	// Entry describes one item in the archive.
	Entry = stowtype.Entry

	// Kind distinguishes file entries from directory entries.
	Kind = stowtype.Kind

	// Compression identifies the compression applied to an entry.
	Compression = stowtype.Compression

	// DigestAlgorithm identifies the trailer digest algorithm.
	DigestAlgorithm = stowtype.DigestAlgorithm

	// CollisionError reports a file path used as a directory.
	CollisionError = stowtype.CollisionError

	// ValidationError describes why a path was rejected.
	ValidationError = stowtype.ValidationError
)

// Re-export kind constants.
const (
	KindFile      = stowtype.KindFile
	KindDirectory = stowtype.KindDirectory
)

// Re-export compression constants.
const (
	CompressionNone  = stowtype.CompressionNone
	CompressionGzip  = stowtype.CompressionGzip
	CompressionBzip2 = stowtype.CompressionBzip2
	CompressionZstd  = stowtype.CompressionZstd
	CompressionLZ4   = stowtype.CompressionLZ4
)

// Re-export digest algorithm constants.
const (
	DigestSHA256 = stowtype.DigestSHA256
	DigestBLAKE3 = stowtype.DigestBLAKE3
)

// Sentinel errors re-exported from internal/stowtype.
var (
	ErrCorruptFormat     = stowtype.ErrCorruptFormat
	ErrIntegrityMismatch = stowtype.ErrIntegrityMismatch
	ErrDecompression     = stowtype.ErrDecompression
	ErrPathCollision     = stowtype.ErrPathCollision
	ErrConfiguration     = stowtype.ErrConfiguration
	ErrExtension         = stowtype.ErrExtension
	ErrSizeOverflow      = stowtype.ErrSizeOverflow
)

// ParseCompression parses a compression name, case-insensitively.
func ParseCompression(name string) (Compression, error) {
	return stowtype.ParseCompression(name)
}

// ParseDigestAlgorithm parses a digest algorithm name.
func ParseDigestAlgorithm(name string) (DigestAlgorithm, error) {
	return stowtype.ParseDigestAlgorithm(name)
}

// ByteSource provides random access to an archive.
//
// *os.File needs a size wrapper; *bytes.Reader and *io.SectionReader
// satisfy it directly.
type ByteSource interface {
	io.ReaderAt
	Size() int64
}
