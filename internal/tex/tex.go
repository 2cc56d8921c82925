// Package tex reads and rewrites texture payloads.
//
// A texture is a fixed header, one record per mip level and the mip data:
//
//	magic "TEX\0" | u32 version | u16 width | u16 height | u16 mip_count | u16 flags
//	mip_count x (u32 offset | u32 size | u32 raw_size)
//	mip data
//
// Integers are little-endian and offsets are relative to the start of the
// texture. When FlagCompressed is set every mip is a zstd frame that decodes
// to raw_size bytes.
package tex

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/meigma/texpak/internal/codec"
)

// FlagCompressed marks zstd-compressed mip data.
const FlagCompressed uint16 = 1 << 0

// Version is the texture revision produced by New.
const Version uint32 = 241106027

// MaxSize bounds both the encoded texture read by Decode and the total
// decoded size of its mips.
const MaxSize = codec.DefaultMaxDecoderMemory

const (
	headerSize = 16
	recordSize = 12
	maxMips    = 32
)

var magic = [4]byte{'T', 'E', 'X', 0}

var (
	// ErrNotTexture is returned when the payload does not start with the texture magic.
	ErrNotTexture = errors.New("tex: not a texture")

	// ErrCorrupt is returned for structurally invalid textures.
	ErrCorrupt = errors.New("tex: corrupt texture")
)

// Mip is one mip level. Data is stored as-is; RawSize is the decoded size.
type Mip struct {
	Data    []byte
	RawSize uint32
}

// Texture is a decoded texture payload.
type Texture struct {
	Version uint32
	Width   uint16
	Height  uint16
	Flags   uint16
	Mips    []Mip
}

// New returns an uncompressed texture with the given mip levels.
func New(width, height uint16, mips ...[]byte) *Texture {
	t := &Texture{Version: Version, Width: width, Height: height}
	for _, m := range mips {
		t.Mips = append(t.Mips, Mip{Data: m, RawSize: uint32(len(m))}) //nolint:gosec // test-sized mips
	}
	return t
}

// Compressed reports whether mip data is zstd compressed.
func (t *Texture) Compressed() bool {
	return t.Flags&FlagCompressed != 0
}

// Decode parses a texture from r. Payloads larger than MaxSize are rejected.
func Decode(r io.Reader) (*Texture, error) {
	data, err := readAllWithLimit(r, MaxSize)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func readAllWithLimit(r io.Reader, maxSize int64) ([]byte, error) {
	data, err := io.ReadAll(&io.LimitedReader{R: r, N: maxSize + 1})
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrCorrupt, maxSize)
	}
	return data, nil
}

// Parse parses a texture held in memory. Mip data aliases data.
func Parse(data []byte) (*Texture, error) {
	if len(data) < headerSize || !bytes.Equal(data[:4], magic[:]) {
		return nil, ErrNotTexture
	}
	t := &Texture{
		Version: binary.LittleEndian.Uint32(data[4:8]),
		Width:   binary.LittleEndian.Uint16(data[8:10]),
		Height:  binary.LittleEndian.Uint16(data[10:12]),
		Flags:   binary.LittleEndian.Uint16(data[14:16]),
	}
	count := int(binary.LittleEndian.Uint16(data[12:14]))
	if count > maxMips {
		return nil, fmt.Errorf("%w: %d mip levels", ErrCorrupt, count)
	}
	dataStart := headerSize + count*recordSize
	if len(data) < dataStart {
		return nil, fmt.Errorf("%w: truncated mip table", ErrCorrupt)
	}

	t.Mips = make([]Mip, count)
	for i := range count {
		rec := data[headerSize+i*recordSize:]
		off := uint64(binary.LittleEndian.Uint32(rec[0:4]))
		size := uint64(binary.LittleEndian.Uint32(rec[4:8]))
		raw := binary.LittleEndian.Uint32(rec[8:12])
		if off < uint64(dataStart) || off+size > uint64(len(data)) {
			return nil, fmt.Errorf("%w: mip %d out of range", ErrCorrupt, i)
		}
		if !t.Compressed() && uint64(raw) != size {
			return nil, fmt.Errorf("%w: mip %d size %d, raw size %d", ErrCorrupt, i, size, raw)
		}
		t.Mips[i] = Mip{Data: data[off : off+size], RawSize: raw}
	}
	return t, nil
}

// Decompress decodes every mip in place and clears FlagCompressed.
// It is a no-op for uncompressed textures.
func (t *Texture) Decompress() error {
	if !t.Compressed() {
		return nil
	}
	var total uint64
	for i, m := range t.Mips {
		total += uint64(m.RawSize)
		if total > MaxSize {
			return fmt.Errorf("%w: mip %d raw size %d exceeds limit", ErrCorrupt, i, m.RawSize)
		}
	}
	pool := codec.Shared()
	for i, m := range t.Mips {
		raw, err := pool.DecodeAll(m.Data, int(m.RawSize))
		if err != nil {
			return fmt.Errorf("%w: mip %d: %v", ErrCorrupt, i, err)
		}
		if len(raw) != int(m.RawSize) {
			return fmt.Errorf("%w: mip %d decoded to %d bytes, want %d", ErrCorrupt, i, len(raw), m.RawSize)
		}
		t.Mips[i].Data = raw
	}
	t.Flags &^= FlagCompressed
	return nil
}

// Compress encodes every mip with zstd and sets FlagCompressed.
// It is a no-op for compressed textures.
func (t *Texture) Compress() error {
	if t.Compressed() {
		return nil
	}
	for i, m := range t.Mips {
		enc, err := codec.EncodeZstd(m.Data)
		if err != nil {
			return fmt.Errorf("tex: compress mip %d: %w", i, err)
		}
		t.Mips[i].Data = enc
	}
	t.Flags |= FlagCompressed
	return nil
}

// Bytes serializes the texture.
func (t *Texture) Bytes() ([]byte, error) {
	if len(t.Mips) > maxMips {
		return nil, fmt.Errorf("tex: %d mip levels", len(t.Mips))
	}
	total := headerSize + len(t.Mips)*recordSize
	for _, m := range t.Mips {
		total += len(m.Data)
	}
	if total > math.MaxUint32 {
		return nil, fmt.Errorf("tex: texture too large (%d bytes)", total)
	}

	out := make([]byte, headerSize+len(t.Mips)*recordSize, total)
	copy(out[0:4], magic[:])
	binary.LittleEndian.PutUint32(out[4:8], t.Version)
	binary.LittleEndian.PutUint16(out[8:10], t.Width)
	binary.LittleEndian.PutUint16(out[10:12], t.Height)
	binary.LittleEndian.PutUint16(out[12:14], uint16(len(t.Mips))) //nolint:gosec // bounded by maxMips
	binary.LittleEndian.PutUint16(out[14:16], t.Flags)

	off := len(out)
	for i, m := range t.Mips {
		rec := out[headerSize+i*recordSize:]
		binary.LittleEndian.PutUint32(rec[0:4], uint32(off))         //nolint:gosec // bounded by total
		binary.LittleEndian.PutUint32(rec[4:8], uint32(len(m.Data))) //nolint:gosec // bounded by total
		binary.LittleEndian.PutUint32(rec[8:12], m.RawSize)
		off += len(m.Data)
	}
	for _, m := range t.Mips {
		out = append(out, m.Data...)
	}
	return out, nil
}

// Encode serializes t, compressing the mips of a copy first when compress
// is set. t itself is not modified.
func Encode(t *Texture, compress bool) ([]byte, error) {
	c := *t
	c.Mips = append([]Mip(nil), t.Mips...)
	if compress {
		if err := c.Compress(); err != nil {
			return nil, err
		}
	}
	return c.Bytes()
}

// Decompress reads a texture from r and returns it with decompressed mips.
func Decompress(r io.Reader) ([]byte, error) {
	t, err := Decode(r)
	if err != nil {
		return nil, err
	}
	if err := t.Decompress(); err != nil {
		return nil, err
	}
	return t.Bytes()
}
