package file

import (
	"bytes"
	"io"
	"io/fs"
)

// File is an opened archive file entry backed by its decompressed content.
// It implements fs.File, io.ReaderAt and io.Seeker.
type File struct {
	*bytes.Reader
	info   fs.FileInfo
	closed bool
}

// NewFile returns a File serving content.
func NewFile(info fs.FileInfo, content []byte) *File {
	return &File{Reader: bytes.NewReader(content), info: info}
}

// Stat returns the file info.
func (f *File) Stat() (fs.FileInfo, error) {
	return f.info, nil
}

// Read implements io.Reader.
func (f *File) Read(p []byte) (int, error) {
	if f.closed {
		return 0, &fs.PathError{Op: "read", Path: f.info.Name(), Err: fs.ErrClosed}
	}
	return f.Reader.Read(p)
}

// ReadAt implements io.ReaderAt.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if f.closed {
		return 0, &fs.PathError{Op: "read", Path: f.info.Name(), Err: fs.ErrClosed}
	}
	return f.Reader.ReadAt(p, off)
}

// Close marks the file closed. Closing twice returns fs.ErrClosed.
func (f *File) Close() error {
	if f.closed {
		return &fs.PathError{Op: "close", Path: f.info.Name(), Err: fs.ErrClosed}
	}
	f.closed = true
	return nil
}

var (
	_ fs.File     = (*File)(nil)
	_ io.ReaderAt = (*File)(nil)
	_ io.Seeker   = (*File)(nil)
)
