// Package format defines the bit-exact on-disk layout of a stow archive.
//
//	[stub][StubMarker]   optional
//	[header]             HeaderSize bytes
//	[index records]      one per entry
//	[content block]      stored bytes in index order
//	[trailer]            TrailerSize bytes
//
// The header, records and content block form the body; the trailer digest
// covers exactly the body. All integers are little-endian.
package format

import (
	"encoding/binary"
	"fmt"
	"io/fs"
	"math"

	"github.com/meigma/stow/core/internal/sizing"
	"github.com/meigma/stow/core/internal/stowtype"
)

const (
	// Magic opens the header and closes the trailer.
	Magic = "STOW"

	// Version is the current format version.
	Version uint8 = 1

	// HeaderSize is the fixed size of the body header.
	HeaderSize = 16

	// TrailerSize is the fixed size of the trailer.
	TrailerSize = 48

	// StubMarker terminates the stub region. It starts with a newline and a
	// shell comment so script stubs stay well-formed.
	StubMarker = "\n#__STOW_ARCHIVE__\n"

	// recordFixedSize is the size of an index record excluding the path bytes.
	recordFixedSize = 2 + 1 + 4 + 8 + 8 + 1 + 8
)

// Header is the fixed prefix of the index block.
type Header struct {
	Version     uint8
	Compression stowtype.Compression
	EntryCount  uint32

	// IndexSize is the length of header plus records, which is also the
	// offset of the content block within the body.
	IndexSize uint32
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{stowtype.ErrCorruptFormat}, args...)...)
}

// IndexSize returns the encoded size of the header and records for entries.
func IndexSize(entries []stowtype.Entry) (uint32, error) {
	size := uint64(HeaderSize)
	for i := range entries {
		size += recordFixedSize + uint64(len(entries[i].Path))
	}
	if size > math.MaxUint32 {
		return 0, stowtype.ErrSizeOverflow
	}
	return uint32(size), nil
}

// AppendIndex appends the header and index records to dst. Entry offsets
// must already be laid out.
func AppendIndex(dst []byte, compression stowtype.Compression, entries []stowtype.Entry) ([]byte, error) {
	size, err := IndexSize(entries)
	if err != nil {
		return nil, err
	}
	if len(entries) > math.MaxUint32 {
		return nil, stowtype.ErrSizeOverflow
	}

	dst = append(dst, Magic...)
	dst = append(dst, Version, byte(compression), 0, 0)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(entries)))
	dst = binary.LittleEndian.AppendUint32(dst, size)

	for i := range entries {
		e := &entries[i]
		if len(e.Path) == 0 || len(e.Path) > math.MaxUint16 {
			return nil, fmt.Errorf("path length %d out of range: %q", len(e.Path), e.Path)
		}
		dst = binary.LittleEndian.AppendUint16(dst, uint16(len(e.Path)))
		dst = append(dst, e.Path...)
		dst = append(dst, byte(e.Kind))
		dst = binary.LittleEndian.AppendUint32(dst, uint32(e.Mode.Perm()))
		dst = binary.LittleEndian.AppendUint64(dst, e.OriginalSize)
		dst = binary.LittleEndian.AppendUint64(dst, e.StoredSize)
		dst = append(dst, byte(e.Compression))
		dst = binary.LittleEndian.AppendUint64(dst, e.Offset)
	}
	return dst, nil
}

// ParseHeader decodes the body header.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, corrupt("truncated header")
	}
	if string(b[:4]) != Magic {
		return Header{}, corrupt("bad magic %q", b[:4])
	}
	h := Header{
		Version:     b[4],
		Compression: stowtype.Compression(b[5]),
		EntryCount:  binary.LittleEndian.Uint32(b[8:12]),
		IndexSize:   binary.LittleEndian.Uint32(b[12:16]),
	}
	if h.Version == 0 || h.Version > Version {
		return Header{}, corrupt("unsupported version %d", h.Version)
	}
	if !h.Compression.Valid() {
		return Header{}, corrupt("unknown archive compression %d", b[5])
	}
	if h.IndexSize < HeaderSize {
		return Header{}, corrupt("index size %d smaller than header", h.IndexSize)
	}
	return h, nil
}

// ParseRecords decodes the index records that follow the header. index must
// hold exactly header.IndexSize bytes (header included). Offsets are checked
// against contentSize.
func ParseRecords(index []byte, h Header, contentSize uint64) ([]stowtype.Entry, error) {
	if uint64(len(index)) != uint64(h.IndexSize) {
		return nil, corrupt("index is %d bytes, header declares %d", len(index), h.IndexSize)
	}
	// Every record needs at least recordFixedSize+1 bytes; reject counts that
	// could not fit before allocating.
	if uint64(h.EntryCount)*(recordFixedSize+1) > uint64(len(index)-HeaderSize) {
		return nil, corrupt("truncated index: %d entries declared", h.EntryCount)
	}

	entries := make([]stowtype.Entry, 0, h.EntryCount)
	seen := make(map[string]struct{}, h.EntryCount)
	b := index[HeaderSize:]
	for i := range h.EntryCount {
		if len(b) < 2 {
			return nil, corrupt("truncated index at entry %d", i)
		}
		n := int(binary.LittleEndian.Uint16(b))
		if len(b) < recordFixedSize+n {
			return nil, corrupt("truncated index at entry %d", i)
		}
		path := string(b[2 : 2+n])
		r := b[2+n:]
		e := stowtype.Entry{
			Path:         path,
			Kind:         stowtype.Kind(r[0]),
			Mode:         fs.FileMode(binary.LittleEndian.Uint32(r[1:5])) & fs.ModePerm,
			OriginalSize: binary.LittleEndian.Uint64(r[5:13]),
			StoredSize:   binary.LittleEndian.Uint64(r[13:21]),
			Compression:  stowtype.Compression(r[21]),
			Offset:       binary.LittleEndian.Uint64(r[22:30]),
		}
		b = r[recordFixedSize-2:]

		if err := checkRecord(&e, contentSize); err != nil {
			return nil, err
		}
		if _, dup := seen[e.Path]; dup {
			return nil, corrupt("duplicate path %q", e.Path)
		}
		seen[e.Path] = struct{}{}
		entries = append(entries, e)
	}
	if len(b) != 0 {
		return nil, corrupt("%d trailing bytes after index records", len(b))
	}
	return entries, nil
}

func checkRecord(e *stowtype.Entry, contentSize uint64) error {
	if e.Path == "." || !fs.ValidPath(e.Path) {
		return corrupt("invalid path %q", e.Path)
	}
	switch e.Kind {
	case stowtype.KindFile:
	case stowtype.KindDirectory:
		if e.StoredSize != 0 || e.OriginalSize != 0 {
			return corrupt("directory %q has content", e.Path)
		}
	default:
		return corrupt("unknown kind %d for %q", e.Kind, e.Path)
	}
	if !e.Compression.Valid() {
		return corrupt("unknown compression %d for %q", e.Compression, e.Path)
	}
	if !sizing.Within(e.Offset, e.StoredSize, contentSize) {
		return corrupt("entry %q at offset %d size %d exceeds content block of %d bytes",
			e.Path, e.Offset, e.StoredSize, contentSize)
	}
	return nil
}
