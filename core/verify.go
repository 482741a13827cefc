package stow

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/stow/core/internal/integrity"
	"github.com/meigma/stow/core/remote"
)

// Verify recomputes the trailer digest of the archive in r over its index
// and content block and compares it with the recorded value. It works on
// stored bytes only: nothing is parsed beyond the trailer and nothing is
// decompressed.
//
// The computed digest is returned on success and on ErrIntegrityMismatch.
func Verify(r io.ReaderAt, size int64) (digest.Digest, error) {
	a, err := readArchive(io.NewSectionReader(r, 0, size))
	if err != nil {
		return "", err
	}
	return integrity.Check(a.trailer.Algorithm, io.NewSectionReader(r, a.layout.BodyOffset, a.layout.BodySize), a.trailer.Sum[:])
}

// VerifyFile verifies the archive file at path. See Verify.
func VerifyFile(path string) (digest.Digest, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided path is intentional
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat archive: %w", err)
	}
	return Verify(f, info.Size())
}

// VerifyURL verifies the archive served at url. The whole body is fetched
// through range requests pinned to the validators seen when probing.
func VerifyURL(ctx context.Context, url string) (digest.Digest, error) {
	source, err := remote.NewSource(ctx, url, remote.WithConditionalHeaders())
	if err != nil {
		return "", err
	}
	return Verify(source, source.Size())
}
