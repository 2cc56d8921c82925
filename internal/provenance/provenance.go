// Package provenance embeds and reads the record that marks a container as
// produced by texpak.
//
// The record is stored as a JSON document under a reserved entry name and is
// always the first entry of an output container. A container without the
// entry is not tool-generated; that is a normal outcome, not an error.
package provenance

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/meigma/texpak/pak"
)

// EntryName is the reserved logical path of the provenance entry.
const EntryName = "__TEXPAK_PROVENANCE__"

// CurrentVersion is the record version written by this package.
const CurrentVersion uint32 = 1

// maxRecordSize bounds the entry read during directory scans.
const maxRecordSize = 64 << 10

// ErrInvalidRecord is returned when the provenance entry exists but cannot be decoded.
var ErrInvalidRecord = errors.New("provenance: invalid record")

// Record describes how a container was produced.
type Record struct {
	Version uint32 `json:"version"`

	// IsFullPackage marks a replace-mode output that carries every entry of
	// the original and stands in for it. False marks a filtered patch.
	IsFullPackage bool `json:"is_full_package"`
}

// New returns a record at CurrentVersion.
func New(isFullPackage bool) Record {
	return Record{Version: CurrentVersion, IsFullPackage: isFullPackage}
}

// wireRecord accepts both the current field and the older
// is_uncompressed_patch flag, which had the opposite meaning.
type wireRecord struct {
	Version             uint32 `json:"version"`
	IsFullPackage       *bool  `json:"is_full_package,omitempty"`
	IsUncompressedPatch *bool  `json:"is_uncompressed_patch,omitempty"`
}

// Hash returns the entry identity of the provenance entry.
func Hash() uint64 {
	return pak.HashName(EntryName)
}

// Write stores a record for isFullPackage as the next entry of w. Callers
// write it before any data entry.
func Write(w *pak.Writer, isFullPackage bool) error {
	data, err := json.Marshal(New(isFullPackage))
	if err != nil {
		return fmt.Errorf("provenance: encode: %w", err)
	}
	if err := w.StartEntry(EntryName, pak.DefaultEntryOptions()); err != nil {
		return fmt.Errorf("provenance: start entry: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("provenance: write: %w", err)
	}
	return nil
}

// Read returns the record stored in a. ok is false when the container has no
// provenance entry.
func Read(a *pak.Archive, r *pak.ArchiveReader) (rec Record, ok bool, err error) {
	e, found := a.Lookup(Hash())
	if !found {
		return Record{}, false, nil
	}
	if e.Size > maxRecordSize {
		return Record{}, false, fmt.Errorf("%w: entry size %d", ErrInvalidRecord, e.Size)
	}
	data, err := r.ReadEntry(e)
	if err != nil {
		return Record{}, false, fmt.Errorf("provenance: read entry: %w", err)
	}
	rec, err = Decode(data)
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

// ReadFile opens the container at path and reads its record.
func ReadFile(path string) (Record, bool, error) {
	f, err := pak.Open(path)
	if err != nil {
		return Record{}, false, err
	}
	defer f.Close()
	return Read(f.Archive(), f.Reader())
}

// Decode parses a serialized record.
func Decode(data []byte) (Record, error) {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	rec := Record{Version: w.Version}
	switch {
	case w.IsFullPackage != nil:
		rec.IsFullPackage = *w.IsFullPackage
	case w.IsUncompressedPatch != nil:
		rec.IsFullPackage = !*w.IsUncompressedPatch
	default:
		return Record{}, fmt.Errorf("%w: missing package flag", ErrInvalidRecord)
	}
	if rec.Version == 0 {
		return Record{}, fmt.Errorf("%w: missing version", ErrInvalidRecord)
	}
	return rec, nil
}
