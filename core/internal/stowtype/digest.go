package stowtype

import (
	"fmt"
	"strings"
)

// DigestAlgorithm identifies the hash used for the archive trailer digest.
// The value is stored in the trailer as a single byte.
type DigestAlgorithm uint8

const (
	DigestSHA256 DigestAlgorithm = iota + 1
	DigestBLAKE3
)

// String returns the algorithm name as used in digest strings.
func (a DigestAlgorithm) String() string {
	switch a {
	case DigestSHA256:
		return "sha256"
	case DigestBLAKE3:
		return "blake3"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(a))
	}
}

// Valid reports whether a is a known digest algorithm.
func (a DigestAlgorithm) Valid() bool {
	return a == DigestSHA256 || a == DigestBLAKE3
}

// ParseDigestAlgorithm parses a digest algorithm name. An empty name selects
// sha256.
func ParseDigestAlgorithm(name string) (DigestAlgorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sha256":
		return DigestSHA256, nil
	case "blake3":
		return DigestBLAKE3, nil
	default:
		return 0, fmt.Errorf("unknown digest algorithm %q", name)
	}
}
