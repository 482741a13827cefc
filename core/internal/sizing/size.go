// Package sizing provides overflow-checked size arithmetic for archive
// offsets and lengths.
package sizing

import (
	"io"
	"math"

	"github.com/meigma/stow/core/internal/stowtype"
)

// ToInt converts a uint64 to int, returning ErrSizeOverflow if it doesn't fit.
func ToInt(size uint64) (int, error) {
	if size > uint64(math.MaxInt) {
		return 0, stowtype.ErrSizeOverflow
	}
	return int(size), nil
}

// ToInt64 converts a uint64 to int64, returning ErrSizeOverflow if it doesn't fit.
func ToInt64(size uint64) (int64, error) {
	if size > uint64(math.MaxInt64) {
		return 0, stowtype.ErrSizeOverflow
	}
	return int64(size), nil
}

// Add returns a+b, or false when the sum overflows.
func Add(a, b uint64) (uint64, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

// Within reports whether [off, off+n) lies inside [0, limit).
func Within(off, n, limit uint64) bool {
	end, ok := Add(off, n)
	return ok && end <= limit
}

// ReadAllLimit reads r to EOF, failing with ErrSizeOverflow once more than
// max bytes are produced.
func ReadAllLimit(r io.Reader, max uint64) ([]byte, error) {
	if max > uint64(math.MaxInt-1) {
		return nil, stowtype.ErrSizeOverflow
	}
	lr := &io.LimitedReader{R: r, N: int64(max) + 1} //nolint:gosec // checked above
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) > max {
		return nil, stowtype.ErrSizeOverflow
	}
	return data, nil
}
