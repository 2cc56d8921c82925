package pak

import (
	"errors"
	"fmt"
	"io"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/texpak/pak/internal/sizing"
)

// Archive is the parsed table of contents of a container.
//
// An Archive holds no file handle; pair it with an [ArchiveReader] to read
// entry payloads. It is safe for concurrent use.
type Archive struct {
	header  header
	toc     *toc
	byHash  map[uint64]int
	dataEnd uint64
}

// ReadArchive parses the header, trailer and TOC of the container behind r.
func ReadArchive(r io.ReadSeeker) (*Archive, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("pak: seek end: %w", err)
	}
	if size < headerSize+trailerSize {
		return nil, fmt.Errorf("%w: file too small (%d bytes)", ErrInvalidFormat, size)
	}
	fileSize := uint64(size)

	buf := make([]byte, headerSize)
	if err := readAt(r, buf, 0); err != nil {
		return nil, fmt.Errorf("pak: read header: %w", err)
	}
	h, err := parseHeader(buf)
	if err != nil {
		return nil, err
	}

	buf = make([]byte, trailerSize)
	if err := readAt(r, buf, size-trailerSize); err != nil {
		return nil, fmt.Errorf("pak: read trailer: %w", err)
	}
	t, err := parseTrailer(buf, fileSize)
	if err != nil {
		return nil, err
	}

	tocLen, err := sizing.ToInt(t.tocSize, ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	tocOffset, err := sizing.ToInt64(t.tocOffset, ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	tocData := make([]byte, tocLen)
	if err := readAt(r, tocData, tocOffset); err != nil {
		return nil, fmt.Errorf("pak: read toc: %w", err)
	}
	parsed, err := loadTOC(tocData, t.tocOffset)
	if err != nil {
		return nil, err
	}

	if parsed.dataSize != t.tocOffset-headerSize {
		return nil, fmt.Errorf("%w: data size %d does not match toc offset", ErrInvalidFormat, parsed.dataSize)
	}

	a := &Archive{
		header:  h,
		toc:     parsed,
		byHash:  make(map[uint64]int, len(parsed.entries)),
		dataEnd: t.tocOffset,
	}
	for i, e := range parsed.entries {
		if _, dup := a.byHash[e.Hash]; dup {
			return nil, fmt.Errorf("%w: %w: %s", ErrInvalidFormat, ErrDuplicateEntry, e)
		}
		a.byHash[e.Hash] = i
	}
	return a, nil
}

func readAt(r io.ReadSeeker, buf []byte, off int64) error {
	if _, err := r.Seek(off, io.SeekStart); err != nil {
		return err
	}
	_, err := io.ReadFull(r, buf)
	return err
}

// Len returns the number of entries.
func (a *Archive) Len() int {
	return len(a.toc.entries)
}

// Capacity returns the entry count reserved when the container was created.
func (a *Archive) Capacity() int {
	return int(a.header.capacity)
}

// Version returns the container format version.
func (a *Archive) Version() int {
	return int(a.header.version)
}

// Entries returns a copy of all entries in write order.
func (a *Archive) Entries() []Entry {
	out := make([]Entry, len(a.toc.entries))
	copy(out, a.toc.entries)
	return out
}

// Lookup returns the entry with the given hash.
func (a *Archive) Lookup(hash uint64) (Entry, bool) {
	i, ok := a.byHash[hash]
	if !ok {
		return Entry{}, false
	}
	return a.toc.entries[i], true
}

// LookupName returns the entry stored under the logical path name.
func (a *Archive) LookupName(name string) (Entry, bool) {
	return a.Lookup(HashName(name))
}

// DataSize returns the size of the data region in bytes.
func (a *Archive) DataSize() uint64 {
	return a.toc.dataSize
}

// DataDigest returns the digest recorded for the data region.
// ok is false when the writer did not record one.
func (a *Archive) DataDigest() (digest.Digest, bool) {
	return a.toc.dataDigest, a.toc.dataDigest != ""
}

// VerifyData streams the data region of r through the recorded digest.
func (a *Archive) VerifyData(r io.ReadSeeker) error {
	d, ok := a.DataDigest()
	if !ok {
		return errors.New("pak: container has no data digest")
	}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	size, err := sizing.ToInt64(a.toc.dataSize, ErrSizeOverflow)
	if err != nil {
		return err
	}
	if _, err := r.Seek(headerSize, io.SeekStart); err != nil {
		return err
	}
	verifier := d.Verifier()
	if _, err := io.CopyN(verifier, r, size); err != nil {
		return fmt.Errorf("pak: read data region: %w", err)
	}
	if !verifier.Verified() {
		return ErrDigestMismatch
	}
	return nil
}
