package stowtype

import (
	"fmt"
	"strings"
)

// Compression identifies the compression algorithm applied to an entry's
// stored bytes. Values are written to the archive index as a single byte;
// changing them breaks format compatibility.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionBzip2
	CompressionZstd
	CompressionLZ4
)

// String returns the human-readable name of the compression algorithm.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionBzip2:
		return "bzip2"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// Valid reports whether c is a known compression tag.
func (c Compression) Valid() bool {
	return c <= CompressionLZ4
}

// ParseCompression parses a compression name. Matching is case-insensitive
// and "deflate" is accepted as an alias for gzip.
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return CompressionNone, nil
	case "gzip", "deflate":
		return CompressionGzip, nil
	case "bzip2":
		return CompressionBzip2, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression mode %q", name)
	}
}
