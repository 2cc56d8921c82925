package pak

import "errors"

var (
	// ErrInvalidFormat is returned when a file is not a well-formed container.
	ErrInvalidFormat = errors.New("pak: invalid container format")

	// ErrUnsupportedVersion is returned for containers written by a newer format revision.
	ErrUnsupportedVersion = errors.New("pak: unsupported container version")

	// ErrChecksumMismatch is returned when decoded entry content does not match its checksum.
	ErrChecksumMismatch = errors.New("pak: entry checksum mismatch")

	// ErrDigestMismatch is returned when the data region does not match the recorded digest.
	ErrDigestMismatch = errors.New("pak: data digest mismatch")

	// ErrCapacityExceeded is returned when more entries are started than the writer reserved.
	ErrCapacityExceeded = errors.New("pak: entry capacity exceeded")

	// ErrDuplicateEntry is returned when an entry hash is written twice.
	ErrDuplicateEntry = errors.New("pak: duplicate entry")

	// ErrNoEntry is returned by Write when no entry has been started.
	ErrNoEntry = errors.New("pak: no entry started")

	// ErrWriterClosed is returned when using a writer after Finish.
	ErrWriterClosed = errors.New("pak: writer already finished")

	// ErrSizeOverflow is returned when a size does not fit the host integer types.
	ErrSizeOverflow = errors.New("pak: size overflow")

	// ErrDecompression is returned when an entry payload cannot be decoded.
	ErrDecompression = errors.New("pak: decompression failed")
)
