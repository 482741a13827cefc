package format

import (
	"encoding/binary"

	"github.com/meigma/stow/core/internal/stowtype"
)

// Trailer is the fixed-size record at the end of every archive.
//
//	sum [32] | body size u64 | algorithm u8 | reserved [3] | Magic [4]
type Trailer struct {
	Sum       [32]byte
	BodySize  uint64
	Algorithm stowtype.DigestAlgorithm
}

// AppendTrailer appends the encoded trailer to dst.
func AppendTrailer(dst []byte, t *Trailer) []byte {
	dst = append(dst, t.Sum[:]...)
	dst = binary.LittleEndian.AppendUint64(dst, t.BodySize)
	dst = append(dst, byte(t.Algorithm), 0, 0, 0)
	return append(dst, Magic...)
}

// ParseTrailer decodes a trailer. b must hold exactly TrailerSize bytes.
func ParseTrailer(b []byte) (Trailer, error) {
	if len(b) != TrailerSize {
		return Trailer{}, corrupt("trailer is %d bytes, want %d", len(b), TrailerSize)
	}
	if string(b[44:48]) != Magic {
		return Trailer{}, corrupt("bad trailer magic %q", b[44:48])
	}
	var t Trailer
	copy(t.Sum[:], b[:32])
	t.BodySize = binary.LittleEndian.Uint64(b[32:40])
	t.Algorithm = stowtype.DigestAlgorithm(b[40])
	if !t.Algorithm.Valid() {
		return Trailer{}, corrupt("unknown digest algorithm %d", b[40])
	}
	if t.BodySize < HeaderSize {
		return Trailer{}, corrupt("body size %d smaller than header", t.BodySize)
	}
	return t, nil
}

// Layout locates the regions of an archive of the given total size.
type Layout struct {
	// StubSize is the length of the stub region including StubMarker.
	StubSize int64

	// BodyOffset is the absolute offset of the header.
	BodyOffset int64

	// BodySize is the length of header, records and content block.
	BodySize int64
}

// Locate computes the layout from a parsed trailer and the archive size.
// The stub region is found from the end of the file without scanning it.
func Locate(t *Trailer, size int64) (Layout, error) {
	if size < TrailerSize+HeaderSize {
		return Layout{}, corrupt("archive of %d bytes is too small", size)
	}
	avail := uint64(size - TrailerSize)
	if t.BodySize > avail {
		return Layout{}, corrupt("body size %d exceeds archive size %d", t.BodySize, size)
	}
	stub := int64(avail - t.BodySize)
	if stub != 0 && stub < int64(len(StubMarker)) {
		return Layout{}, corrupt("stub region of %d bytes has no marker", stub)
	}
	return Layout{StubSize: stub, BodyOffset: stub, BodySize: int64(t.BodySize)}, nil
}
