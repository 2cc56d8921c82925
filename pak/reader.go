package pak

import (
	"bytes"
	"fmt"
	"hash"
	"io"

	"github.com/cespare/xxhash/v2"

	"github.com/meigma/texpak/internal/codec"
	"github.com/meigma/texpak/pak/internal/sizing"
)

// ArchiveReader reads entry payloads from the file behind an Archive.
//
// ArchiveReader wraps a single seekable handle and is NOT safe for concurrent
// use. Callers sharing one reader across goroutines must serialize calls;
// readers returned by OwnedEntryReader are independent of the handle and may
// be consumed without holding that lock.
type ArchiveReader struct {
	r       io.ReadSeeker
	archive *Archive
	pool    *codec.DecoderPool
}

// ReaderOption configures an ArchiveReader.
type ReaderOption func(*ArchiveReader)

// WithDecoderPool sets the zstd decoder pool. Defaults to codec.Shared().
func WithDecoderPool(p *codec.DecoderPool) ReaderOption {
	return func(ar *ArchiveReader) {
		ar.pool = p
	}
}

// NewArchiveReader creates a reader for the entries of a.
func NewArchiveReader(r io.ReadSeeker, a *Archive, opts ...ReaderOption) *ArchiveReader {
	ar := &ArchiveReader{r: r, archive: a}
	for _, opt := range opts {
		opt(ar)
	}
	if ar.pool == nil {
		ar.pool = codec.Shared()
	}
	return ar
}

// Archive returns the archive this reader serves.
func (ar *ArchiveReader) Archive() *Archive {
	return ar.archive
}

// OwnedEntryReader copies the stored bytes of e into memory and returns a
// reader that decodes them. The shared handle is only used during this call.
//
// The returned reader verifies the decoded size and checksum when it reaches
// EOF and reports ErrChecksumMismatch instead of io.EOF on mismatch.
func (ar *ArchiveReader) OwnedEntryReader(e Entry) (io.ReadCloser, error) {
	raw, err := ar.readRaw(e)
	if err != nil {
		return nil, err
	}
	return newEntryReader(e, raw, ar.pool)
}

// ReadEntry returns the decoded payload of e.
func (ar *ArchiveReader) ReadEntry(e Entry) ([]byte, error) {
	rc, err := ar.OwnedEntryReader(e)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	size, err := sizing.ToInt(e.Size, ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(make([]byte, 0, size))
	if _, err := io.Copy(buf, rc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RawEntry returns the stored (possibly compressed) bytes of e without
// decoding them. Pair it with Writer.WriteRaw to copy an entry verbatim.
func (ar *ArchiveReader) RawEntry(e Entry) ([]byte, error) {
	return ar.readRaw(e)
}

func (ar *ArchiveReader) readRaw(e Entry) ([]byte, error) {
	if !sizing.Within(e.Offset, e.CompressedSize, headerSize, ar.archive.dataEnd) {
		return nil, fmt.Errorf("%w: entry %s outside data region", ErrInvalidFormat, e)
	}
	n, err := sizing.ToInt(e.CompressedSize, ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	off, err := sizing.ToInt64(e.Offset, ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	raw := make([]byte, n)
	if err := readAt(ar.r, raw, off); err != nil {
		return nil, fmt.Errorf("pak: read entry %s: %w", e, err)
	}
	return raw, nil
}

// entryReader decodes an owned payload and verifies it at EOF.
type entryReader struct {
	entry   Entry
	src     io.Reader
	release func()
	hasher  hash.Hash64
	n       uint64
	done    bool
}

func newEntryReader(e Entry, raw []byte, pool *codec.DecoderPool) (*entryReader, error) {
	er := &entryReader{entry: e, release: func() {}, hasher: xxhash.New()}
	switch e.Compression {
	case CompressionNone:
		er.src = bytes.NewReader(raw)
	case CompressionDeflate:
		fr := codec.NewDeflateReader(bytes.NewReader(raw))
		er.src = fr
		er.release = func() { _ = fr.Close() }
	case CompressionZstd:
		dec, release, err := pool.Get(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
		}
		er.src = dec
		er.release = release
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrInvalidFormat, e.Compression)
	}
	return er, nil
}

func (er *entryReader) Read(p []byte) (int, error) {
	if er.done {
		return 0, io.EOF
	}
	n, err := er.src.Read(p)
	if n > 0 {
		er.n += uint64(n)
		if er.n > er.entry.Size {
			return 0, fmt.Errorf("%w: entry %s: more data than recorded size", ErrDecompression, er.entry)
		}
		_, _ = er.hasher.Write(p[:n])
	}
	if err == io.EOF {
		er.done = true
		if verr := er.verify(); verr != nil {
			return n, verr
		}
		return n, io.EOF
	}
	if err != nil && er.entry.Compression != CompressionNone {
		return n, fmt.Errorf("%w: entry %s: %v", ErrDecompression, er.entry, err)
	}
	return n, err
}

func (er *entryReader) verify() error {
	if er.n != er.entry.Size {
		return fmt.Errorf("%w: entry %s: size %d, want %d", ErrDecompression, er.entry, er.n, er.entry.Size)
	}
	if er.hasher.Sum64() != er.entry.Checksum {
		return fmt.Errorf("%w: entry %s", ErrChecksumMismatch, er.entry)
	}
	return nil
}

func (er *entryReader) Close() error {
	if er.release != nil {
		er.release()
		er.release = nil
	}
	return nil
}
