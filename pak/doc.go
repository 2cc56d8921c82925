// Package pak implements the single-file chunk container read and written by
// texpak.
//
// A container consists of four regions:
//   - Header: magic, format version and the entry capacity reserved at creation
//   - Data: concatenated entry payloads, optionally compressed per entry
//   - TOC: FlatBuffers-encoded entry table plus a digest of the data region
//   - Trailer: location of the TOC and a closing magic
//
// Entries carry no names. They are identified by [HashName] of their logical
// path, so consumers must look entries up by hash rather than by position.
// A container only becomes readable once [Writer.Finish] has written the TOC
// and trailer.
package pak
