// Package compress implements the per-entry compression strategies.
//
// A strategy is selected by the compression tag recorded for each entry, so
// decompression never depends on the archive-wide default.
package compress

import (
	"fmt"

	"github.com/meigma/stow/core/internal/stowtype"
)

// Strategy compresses and decompresses whole entry payloads.
//
// Implementations must be deterministic: the same input always produces the
// same stored bytes. Implementations must be safe for concurrent use.
type Strategy interface {
	// Compression returns the tag recorded for entries written by this strategy.
	Compression() stowtype.Compression

	// Compress returns the stored form of src.
	Compress(src []byte) ([]byte, error)

	// Decompress returns the original bytes of an entry. originalSize is the
	// size recorded in the index; output of any other length is an error.
	Decompress(src []byte, originalSize uint64) ([]byte, error)
}

var strategies = map[stowtype.Compression]Strategy{
	stowtype.CompressionNone:  none{},
	stowtype.CompressionGzip:  gzipStrategy{},
	stowtype.CompressionBzip2: bzip2Strategy{},
	stowtype.CompressionZstd:  zstdStrategy{},
	stowtype.CompressionLZ4:   lz4Strategy{},
}

// Lookup returns the strategy for a compression tag.
func Lookup(c stowtype.Compression) (Strategy, error) {
	s, ok := strategies[c]
	if !ok {
		return nil, fmt.Errorf("unsupported compression tag %d", uint8(c))
	}
	return s, nil
}

// Compress compresses src with the strategy for c.
// Empty input is stored as zero bytes regardless of strategy.
func Compress(c stowtype.Compression, src []byte) ([]byte, error) {
	s, err := Lookup(c)
	if err != nil {
		return nil, err
	}
	if len(src) == 0 {
		return []byte{}, nil
	}
	out, err := s.Compress(src)
	if err != nil {
		return nil, fmt.Errorf("%s compress: %w", c, err)
	}
	return out, nil
}

// Decompress restores an entry's original bytes. Every failure, including a
// length that disagrees with originalSize, wraps stowtype.ErrDecompression.
func Decompress(c stowtype.Compression, src []byte, originalSize uint64) ([]byte, error) {
	s, err := Lookup(c)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", stowtype.ErrDecompression, err)
	}
	if len(src) == 0 {
		if originalSize != 0 {
			return nil, fmt.Errorf("%w: %s: empty stored data for %d byte entry", stowtype.ErrDecompression, c, originalSize)
		}
		return []byte{}, nil
	}
	out, err := s.Decompress(src, originalSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", stowtype.ErrDecompression, c, err)
	}
	if uint64(len(out)) != originalSize {
		return nil, fmt.Errorf("%w: %s: size %d does not match expected %d",
			stowtype.ErrDecompression, c, len(out), originalSize)
	}
	return out, nil
}
