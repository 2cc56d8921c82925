package pak

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Entry describes one payload stored in a container.
type Entry struct {
	// Hash identifies the entry. It is derived from the logical path with HashName.
	Hash uint64

	// Offset is the absolute file offset of the stored payload.
	Offset uint64

	// CompressedSize is the number of bytes stored in the data region.
	CompressedSize uint64

	// Size is the decoded payload size.
	Size uint64

	// Compression is the algorithm applied to the stored payload.
	Compression Compression

	// Attr is an opaque per-entry attribute word carried through rewrites.
	Attr uint64

	// Checksum is the xxhash64 of the decoded payload.
	Checksum uint64
}

// String renders the entry identity for logs.
func (e Entry) String() string {
	return fmt.Sprintf("%016x", e.Hash)
}

// HashName derives the entry identity for a logical path. Paths are compared
// case-insensitively with forward slashes.
func HashName(name string) uint64 {
	normalized := strings.ToLower(strings.ReplaceAll(name, `\`, "/"))
	return xxhash.Sum64String(normalized)
}

// EntryOptions controls how an entry is stored.
type EntryOptions struct {
	Compression Compression
	Attr        uint64
}

// DefaultEntryOptions stores the payload uncompressed with a zero attribute word.
func DefaultEntryOptions() EntryOptions {
	return EntryOptions{}
}

// WithAttr returns a copy of o carrying the given attribute word.
func (o EntryOptions) WithAttr(attr uint64) EntryOptions {
	o.Attr = attr
	return o
}

// WithCompression returns a copy of o using compression c.
func (o EntryOptions) WithCompression(c Compression) EntryOptions {
	o.Compression = c
	return o
}
