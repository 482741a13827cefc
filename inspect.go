package stow

import (
	"context"
	"sync"

	"github.com/opencontainers/go-digest"

	stowcore "github.com/meigma/stow/core"
)

// InspectResult summarizes an archive without reading entry content.
type InspectResult struct {
	path        string
	size        int64
	stubSize    int
	primary     string
	checksum    digest.Digest
	compression Compression
	algorithm   DigestAlgorithm
	entries     []Entry

	// Lazy computed stats
	statsOnce              sync.Once
	files                  int
	directories            int
	totalOriginalSize      uint64
	totalStoredSize        uint64
	compressionRatioResult float64
}

// Path returns the archive file path or URL.
func (r *InspectResult) Path() string {
	return r.path
}

// Size returns the archive file size in bytes.
func (r *InspectResult) Size() int64 {
	return r.size
}

// StubSize returns the size of the stub, excluding the marker.
func (r *InspectResult) StubSize() int {
	return r.stubSize
}

// Primary returns the entry-point path, or "" if none is designated.
func (r *InspectResult) Primary() string {
	return r.primary
}

// Checksum returns the verified trailer digest.
func (r *InspectResult) Checksum() digest.Digest {
	return r.checksum
}

// Compression returns the archive's default compression.
func (r *InspectResult) Compression() Compression {
	return r.compression
}

// DigestAlgorithm returns the trailer digest algorithm.
func (r *InspectResult) DigestAlgorithm() DigestAlgorithm {
	return r.algorithm
}

// Entries returns the entries in archive order.
func (r *InspectResult) Entries() []Entry {
	return r.entries
}

// FileCount returns the number of file entries.
func (r *InspectResult) FileCount() int {
	r.computeStats()
	return r.files
}

// DirCount returns the number of directory entries.
func (r *InspectResult) DirCount() int {
	r.computeStats()
	return r.directories
}

// TotalOriginalSize returns the sum of all decompressed file sizes.
func (r *InspectResult) TotalOriginalSize() uint64 {
	r.computeStats()
	return r.totalOriginalSize
}

// TotalStoredSize returns the sum of all stored file sizes.
func (r *InspectResult) TotalStoredSize() uint64 {
	r.computeStats()
	return r.totalStoredSize
}

// CompressionRatio returns the ratio of stored to original size.
// Returns 1.0 if the archive holds no content.
func (r *InspectResult) CompressionRatio() float64 {
	r.computeStats()
	return r.compressionRatioResult
}

// computeStats computes aggregate statistics by iterating all entries.
func (r *InspectResult) computeStats() {
	r.statsOnce.Do(func() {
		for i := range r.entries {
			e := &r.entries[i]
			if e.IsDir() {
				r.directories++
				continue
			}
			r.files++
			r.totalOriginalSize += e.OriginalSize
			r.totalStoredSize += e.StoredSize
		}
		if r.totalOriginalSize > 0 {
			r.compressionRatioResult = float64(r.totalStoredSize) / float64(r.totalOriginalSize)
		} else {
			r.compressionRatioResult = 1.0
		}
	})
}

// Inspect opens the archive at path, verifies its trailer, and summarizes
// its index. Only the primary entry's content is read.
func Inspect(path string, opts ...Option) (*InspectResult, error) {
	cf, err := stowcore.Open(path, opts...)
	if err != nil {
		return nil, err
	}
	defer cf.Close()
	return inspect(cf), nil
}

// InspectURL is Inspect for an archive served over HTTP range requests.
func InspectURL(ctx context.Context, url string, opts ...Option) (*InspectResult, error) {
	cf, err := stowcore.OpenURL(ctx, url, opts...)
	if err != nil {
		return nil, err
	}
	defer cf.Close()
	return inspect(cf), nil
}

func inspect(cf *stowcore.ContainerFile) *InspectResult {
	primary, _ := cf.Primary()
	return &InspectResult{
		path:        cf.Path(),
		size:        cf.Size(),
		stubSize:    len(cf.Stub()),
		primary:     primary,
		checksum:    cf.Checksum(),
		compression: cf.Compression(),
		algorithm:   cf.DigestAlgorithm(),
		entries:     cf.Entries(),
	}
}
