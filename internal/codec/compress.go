package codec

import (
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
)

// ResetWriter is a compressing writer that can be retargeted at a new
// destination. Both *zstd.Encoder and *flate.Writer satisfy it.
type ResetWriter interface {
	io.WriteCloser
	Reset(w io.Writer)
}

// NewZstdWriter returns a single-threaded zstd encoder writing to w.
func NewZstdWriter(w io.Writer) (*zstd.Encoder, error) {
	return zstd.NewWriter(w, zstd.WithEncoderConcurrency(1), zstd.WithLowerEncoderMem(true))
}

// NewDeflateWriter returns a raw deflate writer at the default level.
func NewDeflateWriter(w io.Writer) (*flate.Writer, error) {
	return flate.NewWriter(w, flate.DefaultCompression)
}

// NewDeflateReader returns a raw deflate reader over r.
func NewDeflateReader(r io.Reader) io.ReadCloser {
	return flate.NewReader(r)
}

// EncodeZstd compresses src in one shot.
func EncodeZstd(src []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(src, make([]byte, 0, len(src)/2)), nil
}
