package pak

import (
	_ "crypto/sha256" // digest.Canonical
	"errors"
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/opencontainers/go-digest"

	"github.com/meigma/texpak/pak/internal/fb"
	"github.com/meigma/texpak/pak/internal/sizing"
)

// toc is the decoded table of contents.
type toc struct {
	version    uint32
	capacity   uint32
	entries    []Entry
	dataSize   uint64
	dataDigest digest.Digest
}

// buildTOC serializes entries to FlatBuffers format. Entries keep write order.
func buildTOC(entries []Entry, capacity uint32, dataSize uint64, dataDigest digest.Digest) []byte {
	builder := flatbuffers.NewBuilder(64 + len(entries)*64)

	offsets := make([]flatbuffers.UOffsetT, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		fb.EntryStart(builder)
		fb.EntryAddHash(builder, e.Hash)
		fb.EntryAddOffset(builder, e.Offset)
		fb.EntryAddCompressedSize(builder, e.CompressedSize)
		fb.EntryAddSize(builder, e.Size)
		fb.EntryAddCompression(builder, fb.Compression(e.Compression))
		fb.EntryAddAttr(builder, e.Attr)
		fb.EntryAddChecksum(builder, e.Checksum)
		offsets[i] = fb.EntryEnd(builder)
	}

	fb.TocStartEntriesVector(builder, len(entries))
	for i := len(offsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(offsets[i])
	}
	entriesOffset := builder.EndVector(len(entries))

	var digestOffset flatbuffers.UOffsetT
	if dataDigest != "" {
		digestOffset = builder.CreateString(dataDigest.String())
	}

	fb.TocStart(builder)
	fb.TocAddVersion(builder, FormatVersion)
	fb.TocAddEntries(builder, entriesOffset)
	fb.TocAddDataSize(builder, dataSize)
	if digestOffset != 0 {
		fb.TocAddDataDigest(builder, digestOffset)
	}
	fb.TocAddCapacity(builder, capacity)
	fb.FinishTocBuffer(builder, fb.TocEnd(builder))
	return builder.FinishedBytes()
}

// loadTOC parses a FlatBuffers-encoded TOC and validates every entry range
// against the data region [headerSize, dataEnd).
func loadTOC(data []byte, dataEnd uint64) (t *toc, err error) {
	defer func() {
		if r := recover(); r != nil {
			t = nil
			err = fmt.Errorf("%w: corrupt toc: %v", ErrInvalidFormat, r)
		}
	}()
	if len(data) < flatbuffers.SizeUOffsetT {
		return nil, errors.New("pak: empty toc")
	}

	root := fb.GetRootAsToc(data, 0)
	t = &toc{
		version:  root.Version(),
		capacity: root.Capacity(),
		dataSize: root.DataSize(),
	}
	if t.version > FormatVersion {
		return nil, fmt.Errorf("%w: toc version %d", ErrUnsupportedVersion, t.version)
	}
	if raw := root.DataDigest(); len(raw) > 0 {
		d, parseErr := digest.Parse(string(raw))
		if parseErr != nil {
			return nil, fmt.Errorf("%w: data digest: %v", ErrInvalidFormat, parseErr)
		}
		t.dataDigest = d
	}

	n := root.EntriesLength()
	t.entries = make([]Entry, 0, n)
	var fbEntry fb.Entry
	for i := range n {
		if !root.Entries(&fbEntry, i) {
			return nil, fmt.Errorf("%w: entry %d unreadable", ErrInvalidFormat, i)
		}
		e := Entry{
			Hash:           fbEntry.Hash(),
			Offset:         fbEntry.Offset(),
			CompressedSize: fbEntry.CompressedSize(),
			Size:           fbEntry.Size(),
			Compression:    Compression(fbEntry.Compression()),
			Attr:           fbEntry.Attr(),
			Checksum:       fbEntry.Checksum(),
		}
		if !e.Compression.valid() {
			return nil, fmt.Errorf("%w: entry %s: unknown compression %d", ErrInvalidFormat, e, e.Compression)
		}
		if !sizing.Within(e.Offset, e.CompressedSize, headerSize, dataEnd) {
			return nil, fmt.Errorf("%w: entry %s outside data region", ErrInvalidFormat, e)
		}
		t.entries = append(t.entries, e)
	}
	return t, nil
}
