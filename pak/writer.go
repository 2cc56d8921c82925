package pak

import (
	"fmt"
	"hash"
	"io"
	"log/slog"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"

	"github.com/meigma/texpak/internal/codec"
)

// Writer streams entries into a new container.
//
// Entries are appended to the data region as they are written; Finish writes
// the TOC and trailer. A container that was never finished cannot be opened.
// Writer is not safe for concurrent use.
type Writer struct {
	w        io.Writer
	data     *dataWriter
	capacity int
	entries  []Entry
	seen     map[uint64]struct{}
	cur      *openEntry
	zstdEnc  *zstd.Encoder
	flateEnc *flate.Writer
	finished bool
	logger   *slog.Logger
}

type openEntry struct {
	entry  Entry
	hasher hash.Hash64
	enc    codec.ResetWriter
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithLogger sets the logger for writer diagnostics.
func WithLogger(l *slog.Logger) WriterOption {
	return func(w *Writer) {
		w.logger = l
	}
}

// log returns the configured logger or a discard logger if nil.
func (w *Writer) log() *slog.Logger {
	if w.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return w.logger
}

// NewWriter writes the container header to w and returns a writer that
// accepts at most capacity entries.
func NewWriter(w io.Writer, capacity int, opts ...WriterOption) (*Writer, error) {
	if capacity < 0 || uint64(capacity) > uint64(^uint32(0)) {
		return nil, fmt.Errorf("pak: invalid capacity %d", capacity)
	}
	pw := &Writer{
		w:        w,
		capacity: capacity,
		entries:  make([]Entry, 0, capacity),
		seen:     make(map[uint64]struct{}, capacity),
	}
	for _, opt := range opts {
		opt(pw)
	}
	h := header{version: FormatVersion, capacity: uint32(capacity)} //nolint:gosec // bounded above
	if _, err := w.Write(h.marshal()); err != nil {
		return nil, fmt.Errorf("pak: write header: %w", err)
	}
	pw.data = &dataWriter{w: w, off: headerSize, digester: digest.Canonical.Digester()}
	return pw, nil
}

// Len returns the number of entries started so far.
func (w *Writer) Len() int {
	return len(w.entries) + boolToInt(w.cur != nil)
}

// Capacity returns the maximum number of entries.
func (w *Writer) Capacity() int {
	return w.capacity
}

// StartEntry closes the current entry and begins a new one for the logical
// path name.
func (w *Writer) StartEntry(name string, opts EntryOptions) error {
	return w.StartEntryHash(HashName(name), opts)
}

// StartEntryHash begins a new entry identified directly by hash.
func (w *Writer) StartEntryHash(hash uint64, opts EntryOptions) error {
	if err := w.checkStart(hash, opts); err != nil {
		return err
	}
	enc, err := w.encoder(opts.Compression)
	if err != nil {
		return err
	}
	w.seen[hash] = struct{}{}
	w.cur = &openEntry{
		entry: Entry{
			Hash:        hash,
			Offset:      w.data.off,
			Compression: opts.Compression,
			Attr:        opts.Attr,
		},
		hasher: xxhash.New(),
		enc:    enc,
	}
	return nil
}

// WriteRaw appends an entry whose stored bytes are already encoded, such as
// a payload copied verbatim from another container. e supplies the hash,
// decoded size, compression and checksum; offsets are assigned here.
func (w *Writer) WriteRaw(e Entry, raw []byte) error {
	if err := w.checkStart(e.Hash, EntryOptions{Compression: e.Compression, Attr: e.Attr}); err != nil {
		return err
	}
	e.Offset = w.data.off
	if _, err := w.data.Write(raw); err != nil {
		return fmt.Errorf("pak: write entry %s: %w", e, err)
	}
	e.CompressedSize = uint64(len(raw))
	w.seen[e.Hash] = struct{}{}
	w.entries = append(w.entries, e)
	return nil
}

func (w *Writer) checkStart(hash uint64, opts EntryOptions) error {
	if w.finished {
		return ErrWriterClosed
	}
	if !opts.Compression.valid() {
		return fmt.Errorf("pak: unknown compression %d", opts.Compression)
	}
	if err := w.closeEntry(); err != nil {
		return err
	}
	if len(w.entries) >= w.capacity {
		return fmt.Errorf("%w: capacity %d", ErrCapacityExceeded, w.capacity)
	}
	if _, dup := w.seen[hash]; dup {
		return fmt.Errorf("%w: %016x", ErrDuplicateEntry, hash)
	}
	return nil
}

// Write appends p to the current entry.
func (w *Writer) Write(p []byte) (int, error) {
	if w.finished {
		return 0, ErrWriterClosed
	}
	if w.cur == nil {
		return 0, ErrNoEntry
	}
	_, _ = w.cur.hasher.Write(p)
	w.cur.entry.Size += uint64(len(p))
	if w.cur.enc != nil {
		return w.cur.enc.Write(p)
	}
	return w.data.Write(p)
}

func (w *Writer) encoder(c Compression) (codec.ResetWriter, error) {
	switch c {
	case CompressionZstd:
		if w.zstdEnc == nil {
			enc, err := codec.NewZstdWriter(w.data)
			if err != nil {
				return nil, fmt.Errorf("pak: create zstd encoder: %w", err)
			}
			w.zstdEnc = enc
			return enc, nil
		}
		w.zstdEnc.Reset(w.data)
		return w.zstdEnc, nil
	case CompressionDeflate:
		if w.flateEnc == nil {
			enc, err := codec.NewDeflateWriter(w.data)
			if err != nil {
				return nil, fmt.Errorf("pak: create deflate encoder: %w", err)
			}
			w.flateEnc = enc
			return enc, nil
		}
		w.flateEnc.Reset(w.data)
		return w.flateEnc, nil
	default:
		return nil, nil
	}
}

func (w *Writer) closeEntry() error {
	cur := w.cur
	if cur == nil {
		return nil
	}
	w.cur = nil
	if cur.enc != nil {
		if err := cur.enc.Close(); err != nil {
			return fmt.Errorf("pak: flush entry %s: %w", cur.entry, err)
		}
	}
	cur.entry.CompressedSize = w.data.off - cur.entry.Offset
	cur.entry.Checksum = cur.hasher.Sum64()
	w.entries = append(w.entries, cur.entry)
	return nil
}

// DiscardEntry drops the current entry without recording it, typically
// after a failed Write. Bytes it already wrote stay in the data region but
// are not referenced by the TOC. The entry's hash may be started again.
func (w *Writer) DiscardEntry() {
	cur := w.cur
	if cur == nil {
		return
	}
	w.cur = nil
	if cur.enc != nil {
		cur.enc.Reset(io.Discard)
	}
	delete(w.seen, cur.entry.Hash)
}

// Finish closes the current entry and writes the TOC and trailer.
// The writer cannot be used afterwards. Finish does not close the
// underlying io.Writer.
func (w *Writer) Finish() error {
	if w.finished {
		return ErrWriterClosed
	}
	if err := w.closeEntry(); err != nil {
		return err
	}
	w.finished = true
	if w.zstdEnc != nil {
		_ = w.zstdEnc.Close()
	}

	tocOffset := w.data.off
	dataDigest := w.data.digester.Digest()
	tocData := buildTOC(w.entries, uint32(w.capacity), tocOffset-headerSize, dataDigest) //nolint:gosec // capacity bounded in NewWriter
	if _, err := w.w.Write(tocData); err != nil {
		return fmt.Errorf("pak: write toc: %w", err)
	}
	t := trailer{tocOffset: tocOffset, tocSize: uint64(len(tocData))}
	if _, err := w.w.Write(t.marshal()); err != nil {
		return fmt.Errorf("pak: write trailer: %w", err)
	}
	w.log().Debug("container finished",
		slog.Int("entries", len(w.entries)),
		slog.Int("capacity", w.capacity),
		slog.Uint64("data_size", tocOffset-headerSize),
		slog.String("digest", dataDigest.String()))
	return nil
}

// dataWriter forwards the data region to the output while tracking the
// absolute offset and digest.
type dataWriter struct {
	w        io.Writer
	off      uint64
	digester digest.Digester
}

func (d *dataWriter) Write(p []byte) (int, error) {
	n, err := d.w.Write(p)
	if n > 0 {
		_, _ = d.digester.Hash().Write(p[:n])
		d.off += uint64(n)
	}
	return n, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
