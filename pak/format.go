package pak

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// FormatVersion is the container revision written by this package.
const FormatVersion = 1

const (
	headerSize  = 16
	trailerSize = 24
)

var (
	headerMagic  = [4]byte{'T', 'P', 'A', 'K'}
	trailerMagic = [8]byte{'T', 'P', 'A', 'K', 'T', 'O', 'C', 0}
)

// header is the fixed prefix of every container.
type header struct {
	version  uint16
	flags    uint16
	capacity uint32
}

func (h header) marshal() []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:4], headerMagic[:])
	binary.LittleEndian.PutUint16(buf[4:6], h.version)
	binary.LittleEndian.PutUint16(buf[6:8], h.flags)
	binary.LittleEndian.PutUint32(buf[8:12], h.capacity)
	return buf
}

func parseHeader(buf []byte) (header, error) {
	if len(buf) < headerSize || !bytes.Equal(buf[0:4], headerMagic[:]) {
		return header{}, fmt.Errorf("%w: bad header magic", ErrInvalidFormat)
	}
	h := header{
		version:  binary.LittleEndian.Uint16(buf[4:6]),
		flags:    binary.LittleEndian.Uint16(buf[6:8]),
		capacity: binary.LittleEndian.Uint32(buf[8:12]),
	}
	if h.version == 0 {
		return header{}, fmt.Errorf("%w: zero version", ErrInvalidFormat)
	}
	if h.version > FormatVersion {
		return header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.version)
	}
	return h, nil
}

// trailer locates the TOC at the end of the file.
type trailer struct {
	tocOffset uint64
	tocSize   uint64
}

func (t trailer) marshal() []byte {
	buf := make([]byte, trailerSize)
	binary.LittleEndian.PutUint64(buf[0:8], t.tocOffset)
	binary.LittleEndian.PutUint64(buf[8:16], t.tocSize)
	copy(buf[16:24], trailerMagic[:])
	return buf
}

func parseTrailer(buf []byte, fileSize uint64) (trailer, error) {
	if len(buf) < trailerSize || !bytes.Equal(buf[16:24], trailerMagic[:]) {
		return trailer{}, fmt.Errorf("%w: missing trailer (container not finalized?)", ErrInvalidFormat)
	}
	t := trailer{
		tocOffset: binary.LittleEndian.Uint64(buf[0:8]),
		tocSize:   binary.LittleEndian.Uint64(buf[8:16]),
	}
	if t.tocOffset < headerSize || t.tocSize == 0 || t.tocSize > math.MaxInt32 {
		return trailer{}, fmt.Errorf("%w: bad toc location", ErrInvalidFormat)
	}
	if t.tocOffset+t.tocSize != fileSize-trailerSize {
		return trailer{}, fmt.Errorf("%w: toc does not end at trailer", ErrInvalidFormat)
	}
	return t, nil
}
