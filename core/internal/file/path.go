package file

import "strings"

// Base returns the last element of a slash-separated path.
// If path is empty or ".", it returns ".".
func Base(path string) string {
	if path == "" || path == "." {
		return "."
	}
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// DirPrefix converts a directory name to its prefix form.
// For ".", returns "" (empty prefix matches all).
func DirPrefix(name string) string {
	if name == "." {
		return ""
	}
	return name + "/"
}

// Child extracts the immediate child name of path below prefix and reports
// whether more path components follow it. ok is false when path is not
// below prefix.
func Child(path, prefix string) (name string, isSubDir, ok bool) {
	if !strings.HasPrefix(path, prefix) || len(path) == len(prefix) {
		return "", false, false
	}
	rel := path[len(prefix):]
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		return rel[:i], true, true
	}
	return rel, false, true
}
