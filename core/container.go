package stow

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/singleflight"

	"github.com/meigma/stow/core/internal/compress"
	"github.com/meigma/stow/core/internal/format"
	"github.com/meigma/stow/core/internal/index"
	"github.com/meigma/stow/core/internal/integrity"
	"github.com/meigma/stow/core/internal/sizing"
)

// Interface compliance.
var (
	_ fs.FS         = (*Container)(nil)
	_ fs.StatFS     = (*Container)(nil)
	_ fs.ReadFileFS = (*Container)(nil)
	_ fs.ReadDirFS  = (*Container)(nil)
)

// Container provides read access to an archive.
//
// A Container is immutable once constructed and safe for concurrent use.
// Entry content is read from the source on first access, decompressed, and
// memoized for the lifetime of the Container.
type Container struct {
	source       ByteSource // nil for an empty container
	contentStart int64      // absolute offset of the content block
	idx          *index.Index
	compression  Compression
	algorithm    DigestAlgorithm
	checksum     digest.Digest
	stub         []byte
	maxEntrySize uint64
	logger       *slog.Logger

	mu    sync.RWMutex
	cache map[string][]byte
	group singleflight.Group // zero value is valid
}

// log returns the logger, falling back to a discard logger if nil.
func (c *Container) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

func newContainer(opts []Option) *Container {
	c := &Container{
		idx:          index.New(),
		algorithm:    DigestSHA256,
		maxEntrySize: DefaultMaxEntrySize,
		cache:        make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Empty returns a container with no entries, no stub and no checksum.
func Empty(opts ...Option) *Container {
	return newContainer(opts)
}

// New opens the archive held by source.
//
// The trailer digest is verified over the index and content block before
// the index is parsed, so a damaged body reports ErrIntegrityMismatch and a
// well-hashed but malformed body reports ErrCorruptFormat. Entry content is
// not read until requested.
func New(source ByteSource, opts ...Option) (*Container, error) {
	c := newContainer(opts)

	a, err := readArchive(source)
	if err != nil {
		return nil, err
	}
	sum, err := integrity.Check(a.trailer.Algorithm, io.NewSectionReader(source, a.layout.BodyOffset, a.layout.BodySize), a.trailer.Sum[:])
	if err != nil {
		return nil, err
	}

	hdr := make([]byte, format.HeaderSize)
	if err := readFull(source, hdr, a.layout.BodyOffset); err != nil {
		return nil, err
	}
	h, err := format.ParseHeader(hdr)
	if err != nil {
		return nil, err
	}
	if int64(h.IndexSize) > a.layout.BodySize {
		return nil, fmt.Errorf("%w: index size %d exceeds body size %d", ErrCorruptFormat, h.IndexSize, a.layout.BodySize)
	}
	raw := make([]byte, h.IndexSize)
	if err := readFull(source, raw, a.layout.BodyOffset); err != nil {
		return nil, err
	}
	contentSize := uint64(a.layout.BodySize) - uint64(h.IndexSize) //nolint:gosec // both non-negative, checked above
	entries, err := format.ParseRecords(raw, h, contentSize)
	if err != nil {
		return nil, err
	}

	c.source = source
	c.contentStart = a.layout.BodyOffset + int64(h.IndexSize)
	c.idx = index.FromEntries(entries)
	c.compression = h.Compression
	c.algorithm = a.trailer.Algorithm
	c.checksum = sum
	c.stub = a.stub
	c.log().Debug("opened archive", "entries", len(entries), "stub_size", len(a.stub), "checksum", sum)
	return c, nil
}

// Decode opens an archive held in memory.
func Decode(data []byte, opts ...Option) (*Container, error) {
	return New(bytes.NewReader(data), opts...)
}

// archive holds the parts of an archive located from its trailer.
type archive struct {
	trailer format.Trailer
	layout  format.Layout
	stub    []byte
}

// readArchive parses the trailer, locates the body and reads the stub.
// It does not hash or parse the body.
func readArchive(source ByteSource) (*archive, error) {
	size := source.Size()
	if size < format.TrailerSize+format.HeaderSize {
		return nil, fmt.Errorf("%w: archive of %d bytes is too small", ErrCorruptFormat, size)
	}
	buf := make([]byte, format.TrailerSize)
	if err := readFull(source, buf, size-format.TrailerSize); err != nil {
		return nil, err
	}
	t, err := format.ParseTrailer(buf)
	if err != nil {
		return nil, err
	}
	layout, err := format.Locate(&t, size)
	if err != nil {
		return nil, err
	}
	a := &archive{trailer: t, layout: layout}
	if layout.StubSize == 0 {
		return a, nil
	}
	region := make([]byte, layout.StubSize)
	if err := readFull(source, region, 0); err != nil {
		return nil, err
	}
	stub, ok := bytes.CutSuffix(region, []byte(format.StubMarker))
	if !ok {
		return nil, fmt.Errorf("%w: stub marker missing before header", ErrCorruptFormat)
	}
	a.stub = stub
	return a, nil
}

// readFull fills p from source at off. A short read is a format error.
func readFull(source io.ReaderAt, p []byte, off int64) error {
	n, err := source.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: unexpected end of archive at offset %d", ErrCorruptFormat, off+int64(n))
	}
	return err
}

// HasPath reports whether path names an entry.
func (c *Container) HasPath(path string) bool {
	return c.idx.Has(path)
}

// Entry returns the entry for path.
func (c *Container) Entry(path string) (Entry, bool) {
	return c.idx.Get(path)
}

// Paths returns all entry paths in index order, including reserved entries.
func (c *Container) Paths() []string {
	return c.idx.Paths()
}

// Entries returns a copy of all entries in index order.
func (c *Container) Entries() []Entry {
	return c.idx.Entries()
}

// Len returns the number of entries.
func (c *Container) Len() int {
	return c.idx.Len()
}

// Stub returns a copy of the stub bytes, without the marker. It is nil when
// the archive has no stub.
func (c *Container) Stub() []byte {
	return bytes.Clone(c.stub)
}

// Compression returns the archive-wide compression recorded in the header.
// Individual entries carry their own tag, see Entry.Compression.
func (c *Container) Compression() Compression {
	return c.compression
}

// DigestAlgorithm returns the trailer digest algorithm.
func (c *Container) DigestAlgorithm() DigestAlgorithm {
	return c.algorithm
}

// Checksum returns the verified trailer digest. It is empty for a container
// that was not read from an archive.
func (c *Container) Checksum() digest.Digest {
	return c.checksum
}

// Primary returns the entry-point path designated by the archive.
func (c *Container) Primary() (string, bool) {
	e, ok := c.idx.Get(PrimaryPath)
	if !ok || e.IsDir() {
		return "", false
	}
	content, err := c.Content(PrimaryPath)
	if err != nil {
		c.log().Warn("unreadable primary entry", "error", err)
		return "", false
	}
	return string(content), true
}

// Content returns the decompressed content of the file at path.
//
// The first read of a path decompresses and memoizes the content;
// concurrent first reads of the same path share one decompression. The
// returned slice is a copy owned by the caller.
func (c *Container) Content(path string) ([]byte, error) {
	e, ok := c.idx.Get(path)
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: path, Err: fs.ErrNotExist}
	}
	if e.IsDir() {
		return nil, &fs.PathError{Op: "read", Path: path, Err: fs.ErrInvalid}
	}

	c.mu.RLock()
	content, ok := c.cache[path]
	c.mu.RUnlock()
	if ok {
		return bytes.Clone(content), nil
	}

	result, err, _ := c.group.Do(path, func() (any, error) {
		c.mu.RLock()
		content, ok := c.cache[path]
		c.mu.RUnlock()
		if ok {
			return content, nil
		}

		content, err := c.decompress(&e)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.cache[path] = content
		c.mu.Unlock()
		c.log().Debug("decompressed entry", "path", path, "compression", e.Compression.String(), "size", len(content))
		return content, nil
	})
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: path, Err: err}
	}
	return bytes.Clone(result.([]byte)), nil //nolint:forcetypeassert // always []byte when err is nil
}

func (c *Container) decompress(e *Entry) ([]byte, error) {
	if c.maxEntrySize > 0 && (e.OriginalSize > c.maxEntrySize || e.StoredSize > c.maxEntrySize) {
		return nil, ErrSizeOverflow
	}
	stored, err := c.stored(e)
	if err != nil {
		return nil, err
	}
	return compress.Decompress(e.Compression, stored, e.OriginalSize)
}

// stored reads an entry's stored bytes from the source.
func (c *Container) stored(e *Entry) ([]byte, error) {
	if e.StoredSize == 0 {
		return []byte{}, nil
	}
	n, err := sizing.ToInt(e.StoredSize)
	if err != nil {
		return nil, err
	}
	off, err := sizing.ToInt64(e.Offset)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if err := readFull(c.source, buf, c.contentStart+off); err != nil {
		return nil, err
	}
	return buf, nil
}

// Encode writes the container's current state as an archive and returns
// its trailer digest. Encoding the same container always produces the same
// bytes.
func (c *Container) Encode(w io.Writer) (digest.Digest, error) {
	plan := make([]planned, 0, c.idx.Len())
	for e := range c.idx.All() {
		stored, err := c.stored(&e)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", e.Path, err)
		}
		plan = append(plan, planned{entry: e, stored: stored})
	}
	return encode(w, c.stub, c.compression, c.algorithm, plan)
}
