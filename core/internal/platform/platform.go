// Package platform wraps OS-specific file access used when reading build
// sources.
package platform

import (
	"errors"
	"os"

	"github.com/meigma/stow/core/internal/sizing"
)

// ErrSymlink is returned when a source path resolves to a symbolic link.
var ErrSymlink = errors.New("symbolic links not supported")

// ReadFile reads name from root without following a final symlink.
// Files larger than limit fail with sizing's overflow error.
func ReadFile(root *os.Root, name string, limit uint64) ([]byte, error) {
	f, err := OpenFileNoFollow(root, name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return sizing.ReadAllLimit(f, limit)
}
