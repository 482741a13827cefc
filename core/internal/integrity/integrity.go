// Package integrity computes and checks the archive trailer digest.
//
// The digest covers the serialized index and content block only. It is
// computed over stored bytes, so verification cost does not depend on the
// compression used by entries.
package integrity

import (
	"bytes"
	_ "crypto/sha256" // registers SHA-256 for go-digest
	"fmt"
	"hash"
	"io"

	"github.com/opencontainers/go-digest"
	"github.com/zeebo/blake3"

	"github.com/meigma/stow/core/internal/stowtype"
)

// Size is the width in bytes of every supported digest.
const Size = 32

// blake3Algorithm names BLAKE3 digests. go-digest does not register it, so
// values using it are formatted but never validated through go-digest.
const blake3Algorithm digest.Algorithm = "blake3"

// New returns a fresh hash for the algorithm.
func New(alg stowtype.DigestAlgorithm) (hash.Hash, error) {
	switch alg {
	case stowtype.DigestSHA256:
		return digest.SHA256.Hash(), nil
	case stowtype.DigestBLAKE3:
		return blake3.New(), nil
	default:
		return nil, fmt.Errorf("unsupported digest algorithm %d", uint8(alg))
	}
}

// Format renders a raw sum as a digest string such as "sha256:<hex>".
func Format(alg stowtype.DigestAlgorithm, sum []byte) digest.Digest {
	switch alg {
	case stowtype.DigestBLAKE3:
		return digest.NewDigestFromBytes(blake3Algorithm, sum)
	default:
		return digest.NewDigestFromBytes(digest.SHA256, sum)
	}
}

// Sum hashes everything read from r.
func Sum(alg stowtype.DigestAlgorithm, r io.Reader) ([]byte, error) {
	h, err := New(alg)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(h, r); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// Check hashes r and compares the result with want. A difference is
// reported as stowtype.ErrIntegrityMismatch. The computed digest is returned
// in both cases.
func Check(alg stowtype.DigestAlgorithm, r io.Reader, want []byte) (digest.Digest, error) {
	got, err := Sum(alg, r)
	if err != nil {
		return "", err
	}
	d := Format(alg, got)
	if !bytes.Equal(got, want) {
		return d, fmt.Errorf("%w: computed %s, trailer records %s",
			stowtype.ErrIntegrityMismatch, d, Format(alg, want))
	}
	return d, nil
}
