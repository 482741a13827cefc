package source

import (
	"io/fs"
	"os"
	"path/filepath"
)

// resolveInfo returns file info for a walked entry, filtering out symlinks
// and anything that is neither a regular file nor a directory. ok=false
// means the entry should be skipped.
func resolveInfo(root *os.Root, p string, d fs.DirEntry) (fs.FileInfo, bool, error) {
	dtype := d.Type()
	if dtype&fs.ModeSymlink != 0 {
		return nil, false, nil
	}
	info, err := root.Lstat(filepath.FromSlash(p))
	if err != nil {
		return nil, false, err
	}
	mode := info.Mode()
	if mode&fs.ModeSymlink != 0 {
		return nil, false, nil
	}
	if !mode.IsRegular() && !mode.IsDir() {
		return nil, false, nil
	}
	return info, true, nil
}
