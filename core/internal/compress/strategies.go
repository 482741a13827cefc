package compress

import (
	"bytes"
	"sync"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/meigma/stow/core/internal/sizing"
	"github.com/meigma/stow/core/internal/stowtype"
)

// none stores bytes unchanged.
type none struct{}

func (none) Compression() stowtype.Compression { return stowtype.CompressionNone }

func (none) Compress(src []byte) ([]byte, error) {
	return bytes.Clone(src), nil
}

func (none) Decompress(src []byte, _ uint64) ([]byte, error) {
	return bytes.Clone(src), nil
}

// gzipStrategy is the deflate family. The gzip header carries no name or
// modification time so output is reproducible.
type gzipStrategy struct{}

func (gzipStrategy) Compression() stowtype.Compression { return stowtype.CompressionGzip }

func (gzipStrategy) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(src); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gzipStrategy) Decompress(src []byte, originalSize uint64) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return sizing.ReadAllLimit(zr, originalSize)
}

// bzip2Strategy uses dsnet/compress; the standard library only decodes bzip2.
type bzip2Strategy struct{}

func (bzip2Strategy) Compression() stowtype.Compression { return stowtype.CompressionBzip2 }

func (bzip2Strategy) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := bzip2.NewWriter(&buf, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(src); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (bzip2Strategy) Decompress(src []byte, originalSize uint64) ([]byte, error) {
	zr, err := bzip2.NewReader(bytes.NewReader(src), nil)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return sizing.ReadAllLimit(zr, originalSize)
}

// zstdStrategy shares one encoder, which is safe for concurrent EncodeAll
// calls. Decoding streams so output stops at the recorded size.
type zstdStrategy struct{}

var zstdEncoder = sync.OnceValues(func() (*zstd.Encoder, error) {
	return zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1), zstd.WithLowerEncoderMem(true))
})

func (zstdStrategy) Compression() stowtype.Compression { return stowtype.CompressionZstd }

func (zstdStrategy) Compress(src []byte) ([]byte, error) {
	enc, err := zstdEncoder()
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(src, nil), nil
}

func (zstdStrategy) Decompress(src []byte, originalSize uint64) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(src), zstd.WithDecoderConcurrency(1), zstd.WithDecoderLowmem(true))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return sizing.ReadAllLimit(dec, originalSize)
}

// lz4Strategy uses the lz4 frame format.
type lz4Strategy struct{}

func (lz4Strategy) Compression() stowtype.Compression { return stowtype.CompressionLZ4 }

func (lz4Strategy) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(src); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (lz4Strategy) Decompress(src []byte, originalSize uint64) ([]byte, error) {
	return sizing.ReadAllLimit(lz4.NewReader(bytes.NewReader(src)), originalSize)
}
