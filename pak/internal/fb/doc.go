// Package fb holds the FlatBuffers accessors and builders for the TOC
// described by pak/schema/toc.fbs. They follow the layout flatc emits for
// Go, so the schema stays the reference for the wire format.
package fb
