// Package testutil builds containers, textures and chunk directories for tests.
package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/meigma/texpak/internal/provenance"
	"github.com/meigma/texpak/internal/tex"
	"github.com/meigma/texpak/pak"
)

// Entry is one payload of a test container.
type Entry struct {
	Name        string
	Data        []byte
	Compression pak.Compression
	Attr        uint64
}

// Container describes a test container.
type Container struct {
	Entries []Entry

	// Provenance, when set, writes a provenance record first.
	Provenance *provenance.Record
}

// WriteContainer writes c to path and fails the test on error.
func WriteContainer(tb testing.TB, path string, c Container) {
	tb.Helper()

	capacity := len(c.Entries)
	if c.Provenance != nil {
		capacity++
	}
	fw, err := pak.Create(path, capacity)
	if err != nil {
		tb.Fatalf("create %s: %v", path, err)
	}
	if c.Provenance != nil {
		if err := provenance.Write(fw.Writer, c.Provenance.IsFullPackage); err != nil {
			tb.Fatalf("write provenance: %v", err)
		}
	}
	for _, e := range c.Entries {
		opts := pak.DefaultEntryOptions().WithCompression(e.Compression).WithAttr(e.Attr)
		if err := fw.StartEntry(e.Name, opts); err != nil {
			tb.Fatalf("start %s: %v", e.Name, err)
		}
		if _, err := fw.Write(e.Data); err != nil {
			tb.Fatalf("write %s: %v", e.Name, err)
		}
	}
	if err := fw.Finish(); err != nil {
		tb.Fatalf("finish %s: %v", path, err)
	}
}

// ReadContainer returns the decoded payload of every entry keyed by hash.
func ReadContainer(tb testing.TB, path string) map[uint64][]byte {
	tb.Helper()

	f, err := pak.Open(path)
	if err != nil {
		tb.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	out := make(map[uint64][]byte, f.Archive().Len())
	for _, e := range f.Archive().Entries() {
		data, err := f.Reader().ReadEntry(e)
		if err != nil {
			tb.Fatalf("read %s: %v", e, err)
		}
		out[e.Hash] = data
	}
	return out
}

// CompressedTexture returns a texture payload with zstd-compressed mips
// derived from seed, and the payload the transform should produce.
func CompressedTexture(tb testing.TB, seed byte) (compressed, decompressed []byte) {
	tb.Helper()

	t := tex.New(16, 16,
		bytes.Repeat([]byte{seed, seed + 1}, 512),
		bytes.Repeat([]byte{seed + 2}, 256),
	)
	compressed, err := tex.Encode(t, true)
	if err != nil {
		tb.Fatalf("encode texture: %v", err)
	}
	decompressed, err = tex.Encode(t, false)
	if err != nil {
		tb.Fatalf("encode texture: %v", err)
	}
	return compressed, decompressed
}

// TexturePath returns a logical texture path for index i.
func TexturePath(i int) string {
	return fmt.Sprintf("natives/stm/art/tex_%03d.tex.241106027", i)
}

// WriteFile writes data to dir/name and returns the path.
func WriteFile(tb testing.TB, dir, name string, data []byte) string {
	tb.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
	return path
}
