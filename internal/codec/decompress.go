package codec

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// DefaultMaxDecoderMemory is the default maximum decoder memory (512MB).
const DefaultMaxDecoderMemory = 512 << 20

// zstdMagic is the little-endian frame magic number 0xFD2FB528.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// IsZstd reports whether b starts with a zstd frame header.
func IsZstd(b []byte) bool {
	return bytes.HasPrefix(b, zstdMagic)
}

// DecoderPool manages reusable zstd decoders to reduce allocation overhead.
// It is safe for concurrent use.
type DecoderPool struct {
	pool             *sync.Pool
	maxDecoderMemory uint64
	lowmem           bool
}

// PoolOption configures a DecoderPool.
type PoolOption func(*DecoderPool)

// WithLowmem enables or disables low-memory mode for decoders.
func WithLowmem(b bool) PoolOption {
	return func(p *DecoderPool) {
		p.lowmem = b
	}
}

// NewDecoderPool creates a new pool for zstd decoders.
// If maxMemory is 0, no memory limit is applied to decoders.
func NewDecoderPool(maxMemory uint64, opts ...PoolOption) *DecoderPool {
	p := &DecoderPool{maxDecoderMemory: maxMemory}
	for _, opt := range opts {
		opt(p)
	}
	p.pool = &sync.Pool{
		New: func() any {
			dec, err := p.newDecoder(nil)
			if err != nil {
				return nil
			}
			return dec
		},
	}
	return p
}

var (
	sharedOnce sync.Once
	shared     *DecoderPool
)

// Shared returns a process-wide pool with default limits.
func Shared() *DecoderPool {
	sharedOnce.Do(func() {
		shared = NewDecoderPool(DefaultMaxDecoderMemory)
	})
	return shared
}

// Get returns a decoder configured to read from r.
// The caller must call the returned release function when done.
// If an error is returned, no release function needs to be called.
func (p *DecoderPool) Get(r io.Reader) (*zstd.Decoder, func(), error) {
	if p == nil || p.pool == nil {
		dec, err := p.newDecoder(r)
		if err != nil {
			return nil, nil, err
		}
		return dec, dec.Close, nil
	}

	dec, ok := p.pool.Get().(*zstd.Decoder)
	if !ok || dec == nil {
		dec, err := p.newDecoder(r)
		if err != nil {
			return nil, nil, err
		}
		return dec, dec.Close, nil
	}

	if err := dec.Reset(r); err != nil {
		dec.Close()
		newDec, err := p.newDecoder(r)
		if err != nil {
			return nil, nil, err
		}
		return newDec, newDec.Close, nil
	}

	return dec, func() {
		_ = dec.Reset(nil) //nolint:errcheck // clearing state before pool return
		p.pool.Put(dec)
	}, nil
}

// DecodeAll decompresses a complete zstd payload held in memory.
func (p *DecoderPool) DecodeAll(src []byte, sizeHint int) ([]byte, error) {
	dec, release, err := p.Get(nil)
	if err != nil {
		return nil, err
	}
	defer release()
	return dec.DecodeAll(src, make([]byte, 0, sizeHint))
}

// newDecoder creates a new zstd decoder with the configured memory limit.
func (p *DecoderPool) newDecoder(r io.Reader) (*zstd.Decoder, error) {
	if p == nil {
		return zstd.NewReader(r)
	}
	opts := []zstd.DOption{
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(p.lowmem),
	}
	if p.maxDecoderMemory != 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(p.maxDecoderMemory))
	}
	return zstd.NewReader(r, opts...)
}
