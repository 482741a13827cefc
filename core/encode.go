package stow

import (
	"bufio"
	"fmt"
	"io"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/stow/core/internal/format"
	"github.com/meigma/stow/core/internal/integrity"
	"github.com/meigma/stow/core/internal/sizing"
)

// planned pairs an entry with its stored bytes for encoding.
type planned struct {
	entry  Entry
	stored []byte
}

// encode writes an archive in two passes: offsets are laid out from the
// stored sizes already known, then the stub, body and trailer are streamed
// to w while the body is hashed.
func encode(w io.Writer, stub []byte, compression Compression, alg DigestAlgorithm, plan []planned) (digest.Digest, error) {
	entries := make([]Entry, len(plan))
	var offset uint64
	for i := range plan {
		e := plan[i].entry
		e.StoredSize = uint64(len(plan[i].stored))
		e.Offset = offset
		if e.IsDir() {
			e.Offset = 0
		}
		next, ok := sizing.Add(offset, e.StoredSize)
		if !ok {
			return "", ErrSizeOverflow
		}
		offset = next
		entries[i] = e
	}

	index, err := format.AppendIndex(nil, compression, entries)
	if err != nil {
		return "", err
	}
	bodySize, ok := sizing.Add(uint64(len(index)), offset)
	if !ok {
		return "", ErrSizeOverflow
	}

	h, err := integrity.New(alg)
	if err != nil {
		return "", err
	}
	bw := bufio.NewWriter(w)
	if len(stub) > 0 {
		if _, err := bw.Write(stub); err != nil {
			return "", err
		}
		if _, err := bw.WriteString(format.StubMarker); err != nil {
			return "", err
		}
	}
	body := io.MultiWriter(bw, h)
	if _, err := body.Write(index); err != nil {
		return "", err
	}
	for i := range plan {
		if _, err := body.Write(plan[i].stored); err != nil {
			return "", fmt.Errorf("write %s: %w", plan[i].entry.Path, err)
		}
	}

	t := format.Trailer{BodySize: bodySize, Algorithm: alg}
	copy(t.Sum[:], h.Sum(nil))
	if _, err := bw.Write(format.AppendTrailer(nil, &t)); err != nil {
		return "", err
	}
	if err := bw.Flush(); err != nil {
		return "", err
	}
	return integrity.Format(alg, t.Sum[:]), nil
}
