package compress

import (
	"path"
	"strings"
)

// SkipFunc returns true when an entry should be stored uncompressed.
// It is called once per staged file and should be inexpensive.
type SkipFunc func(path string, size int) bool

// DefaultSkip returns a SkipFunc that skips files smaller than minSize and
// files with extensions of already-compressed formats.
func DefaultSkip(minSize int) SkipFunc {
	return func(p string, size int) bool {
		if minSize > 0 && size < minSize {
			return true
		}
		_, ok := compressedExts[strings.ToLower(path.Ext(p))]
		return ok
	}
}

// ShouldSkip reports whether any predicate returns true.
func ShouldSkip(p string, size int, predicates []SkipFunc) bool {
	for _, fn := range predicates {
		if fn != nil && fn(p, size) {
			return true
		}
	}
	return false
}

var compressedExts = map[string]struct{}{
	".7z":    {},
	".br":    {},
	".bz2":   {},
	".gif":   {},
	".gz":    {},
	".jar":   {},
	".jpeg":  {},
	".jpg":   {},
	".lz4":   {},
	".mp3":   {},
	".mp4":   {},
	".phar":  {},
	".png":   {},
	".stow":  {},
	".webp":  {},
	".woff2": {},
	".xz":    {},
	".zip":   {},
	".zst":   {},
}
