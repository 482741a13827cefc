package stow

import (
	"fmt"

	"github.com/meigma/stow/config"
	stowcore "github.com/meigma/stow/core"
	"github.com/meigma/stow/core/remote"
)

// Errors re-exported from core.
var (
	// ErrCorruptFormat is returned when an archive is structurally invalid.
	ErrCorruptFormat = stowcore.ErrCorruptFormat

	// ErrIntegrityMismatch is returned when the recorded digest does not
	// match the archive body.
	ErrIntegrityMismatch = stowcore.ErrIntegrityMismatch

	// ErrDecompression is returned when stored bytes cannot be decompressed.
	ErrDecompression = stowcore.ErrDecompression

	// ErrPathCollision is returned when a file path is also used as a
	// directory.
	ErrPathCollision = stowcore.ErrPathCollision

	// ErrConfiguration is returned for invalid build settings.
	ErrConfiguration = stowcore.ErrConfiguration

	// ErrExtension is returned when a plugin subscriber fails.
	ErrExtension = stowcore.ErrExtension

	// ErrSizeOverflow is returned when a size exceeds supported limits.
	ErrSizeOverflow = stowcore.ErrSizeOverflow

	// ErrRangeUnsupported is returned when a server cannot serve byte ranges.
	ErrRangeUnsupported = remote.ErrRangeUnsupported

	// ErrModified is returned when a remote archive changes while open.
	ErrModified = remote.ErrModified
)

// LoadConfig reads the configuration file at path. Any failure is reported
// as ErrConfiguration.
func LoadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return cfg, nil
}
