package stow

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/meigma/stow/core/remote"
)

// fileSource wraps *os.File to implement ByteSource.
// os.File has ReadAt but not Size, so we cache the size at construction.
type fileSource struct {
	file *os.File
	size int64
}

// newFileSource creates a fileSource from an open file.
func newFileSource(f *os.File) (*fileSource, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}
	return &fileSource{file: f, size: info.Size()}, nil
}

// ReadAt implements io.ReaderAt.
func (fs *fileSource) ReadAt(p []byte, off int64) (int, error) {
	return fs.file.ReadAt(p, off)
}

// Size returns the size of the file when it was opened.
func (fs *fileSource) Size() int64 {
	return fs.size
}

// ContainerFile wraps a Container with the source it reads from.
// Close must be called to release file resources.
type ContainerFile struct {
	*Container
	closer io.Closer
	path   string
	size   int64
}

// Path returns the archive file path or URL.
func (cf *ContainerFile) Path() string {
	return cf.path
}

// Size returns the archive size in bytes.
func (cf *ContainerFile) Size() int64 {
	return cf.size
}

// Close closes the underlying file. Content already read stays available;
// reading new content after Close fails.
func (cf *ContainerFile) Close() error {
	if cf.closer == nil {
		return nil
	}
	err := cf.closer.Close()
	cf.closer = nil
	return err
}

// Open opens the archive file at path for random access. The trailer digest
// is verified before Open returns.
//
// The returned ContainerFile must be closed to release file resources.
func Open(path string, opts ...Option) (*ContainerFile, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided path is intentional
	if err != nil {
		return nil, err
	}
	source, err := newFileSource(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	c, err := New(source, opts...)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	c.log().Info("opened archive", "path", path, "entries", c.Len(), "checksum", c.Checksum())
	return &ContainerFile{Container: c, closer: f, path: path, size: source.size}, nil
}

// OpenURL opens an archive served over HTTP. The server must honor range
// requests; only the header, index and trailer are fetched up front and
// entry content is fetched on first read. Reads fail with
// remote.ErrModified if the archive changes on the server after opening.
//
// ctx bounds every request, including later content reads.
func OpenURL(ctx context.Context, url string, opts ...Option) (*ContainerFile, error) {
	logger := newContainer(opts).log()
	source, err := remote.NewSource(ctx, url, remote.WithConditionalHeaders(), remote.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	c, err := New(source, opts...)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", url, err)
	}
	logger.Info("opened remote archive", "url", url, "entries", c.Len(), "checksum", c.Checksum())
	return &ContainerFile{Container: c, path: url, size: source.Size()}, nil
}
