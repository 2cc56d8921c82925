// Package filelist maps entry hashes back to logical paths.
//
// A list is newline-separated logical paths, optionally zstd-compressed.
// Entries in a container only carry the hash of their path, so the list is
// what lets the tool tell textures from other payloads.
package filelist

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/meigma/texpak/internal/codec"
	"github.com/meigma/texpak/pak"
)

// DefaultTargetSuffix identifies texture payloads by logical path.
const DefaultTargetSuffix = ".tex.241106027"

// Table is a hash to logical path lookup. It is read-only after Load and
// safe for concurrent use.
type Table struct {
	names  map[uint64]string
	suffix string
}

// Option configures a Table.
type Option func(*Table)

// WithTargetSuffix overrides the suffix used by IsTargetKind.
func WithTargetSuffix(s string) Option {
	return func(t *Table) {
		if s != "" {
			t.suffix = strings.ToLower(s)
		}
	}
}

// LoadFile reads a list from path.
func LoadFile(path string, opts ...Option) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := Load(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("filelist: %s: %w", path, err)
	}
	return t, nil
}

// Load reads a list from r. zstd input is detected by its frame magic.
func Load(r io.Reader, opts ...Option) (*Table, error) {
	br := bufio.NewReaderSize(r, 64<<10)
	head, err := br.Peek(4)
	if err != nil && err != io.EOF {
		return nil, err
	}

	var src io.Reader = br
	if codec.IsZstd(head) {
		dec, release, err := codec.Shared().Get(br)
		if err != nil {
			return nil, fmt.Errorf("filelist: zstd: %w", err)
		}
		defer release()
		src = dec
	}

	t := &Table{names: make(map[uint64]string), suffix: DefaultTargetSuffix}
	for _, opt := range opts {
		opt(t)
	}

	sc := bufio.NewScanner(src)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		name := string(line)
		t.names[pak.HashName(name)] = name
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("filelist: read: %w", err)
	}
	return t, nil
}

// FromNames builds a table from logical paths.
func FromNames(names []string, opts ...Option) *Table {
	t := &Table{names: make(map[uint64]string, len(names)), suffix: DefaultTargetSuffix}
	for _, opt := range opts {
		opt(t)
	}
	for _, n := range names {
		t.names[pak.HashName(n)] = n
	}
	return t
}

// Len returns the number of names.
func (t *Table) Len() int {
	return len(t.names)
}

// Lookup returns the logical path for hash.
func (t *Table) Lookup(hash uint64) (string, bool) {
	name, ok := t.names[hash]
	return name, ok
}

// IsTargetKind reports whether hash names a texture. Unknown hashes are not
// targets.
func (t *Table) IsTargetKind(hash uint64) bool {
	name, ok := t.names[hash]
	if !ok {
		return false
	}
	return strings.HasSuffix(strings.ToLower(name), t.suffix)
}

// Selector returns a predicate over entries backed by IsTargetKind.
func (t *Table) Selector() func(pak.Entry) bool {
	return func(e pak.Entry) bool {
		return t.IsTargetKind(e.Hash)
	}
}
