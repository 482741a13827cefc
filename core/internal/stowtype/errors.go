package stowtype

import (
	"errors"
	"fmt"
)

// Sentinel errors. Each corresponds to one failure class of the archive
// engine; callers match them with errors.Is.
var (
	// ErrCorruptFormat is returned when the archive structure cannot be parsed.
	ErrCorruptFormat = errors.New("stow: corrupt format")

	// ErrIntegrityMismatch is returned when the trailer digest does not match
	// the archive body.
	ErrIntegrityMismatch = errors.New("stow: integrity mismatch")

	// ErrDecompression is returned when an entry's stored bytes do not
	// decompress under its recorded compression.
	ErrDecompression = errors.New("stow: decompression failed")

	// ErrPathCollision is returned when a file path is also used as a directory.
	ErrPathCollision = errors.New("stow: path collision")

	// ErrConfiguration is returned for invalid build settings.
	ErrConfiguration = errors.New("stow: configuration error")

	// ErrExtension is returned when an extension subscriber fails.
	ErrExtension = errors.New("stow: extension failure")

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = errors.New("stow: size overflow")
)

// CollisionError reports a file path that is also the ancestor of another path.
type CollisionError struct {
	// File is the path registered as a file.
	File string

	// Path is the path that requires File to be a directory.
	Path string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("stow: path collision: %q is a file but %q needs it as a directory", e.File, e.Path)
}

// Unwrap returns ErrPathCollision.
func (e *CollisionError) Unwrap() error {
	return ErrPathCollision
}

// ValidationError describes why a path failed validation.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("stow: invalid path %q: %s", e.Path, e.Reason)
}
