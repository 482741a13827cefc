package stow

import (
	"fmt"
	"io/fs"
	"strings"
)

// PrimaryPath is the reserved entry holding the archive's entry point.
// Its content is the archive path of the entry-point file.
const PrimaryPath = ".stow/primary"

// ReservedDir is the namespace reserved for archive metadata entries.
const ReservedDir = ".stow"

// NormalizePath converts a user-provided path to fs.ValidPath format.
//
// It performs the following transformations:
//   - Converts backslashes to slashes: `src\lib` → "src/lib"
//   - Strips leading slashes: "/etc/nginx" → "etc/nginx"
//   - Strips trailing slashes: "etc/nginx/" → "etc/nginx"
//   - Collapses consecutive slashes and "." segments: "etc//./nginx" → "etc/nginx"
//   - Converts empty string to root: "" → "."
//
// ".." elements are preserved so that ValidatePath rejects them.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	parts := strings.Split(p, "/")
	result := parts[:0] // reuse backing array
	for _, part := range parts {
		if part != "" && part != "." {
			result = append(result, part)
		}
	}
	if len(result) == 0 {
		return "."
	}
	return strings.Join(result, "/")
}

// IsReserved reports whether p lies in the reserved metadata namespace.
func IsReserved(p string) bool {
	return p == ReservedDir || strings.HasPrefix(p, ReservedDir+"/")
}

// ValidatePath checks that p is a normalized archive path usable for a
// user entry.
func ValidatePath(p string) error {
	switch {
	case p == "" || p == ".":
		return &ValidationError{Path: p, Reason: "empty path"}
	case !fs.ValidPath(p):
		return &ValidationError{Path: p, Reason: "must be relative without '.' or '..' elements"}
	case len(p) > 1<<16-1:
		return &ValidationError{Path: p, Reason: fmt.Sprintf("longer than %d bytes", 1<<16-1)}
	case IsReserved(p):
		return &ValidationError{Path: p, Reason: "reserved for archive metadata"}
	}
	return nil
}

// joinPath places a source-relative path under an alias.
func joinPath(alias, rel string) string {
	switch {
	case alias == ".":
		return NormalizePath(rel)
	case rel == "":
		return alias
	default:
		return NormalizePath(alias + "/" + rel)
	}
}
