// Package file provides fs.File, fs.FileInfo and fs.DirEntry
// implementations for archive entries, along with helpers for
// slash-separated archive paths.
package file
