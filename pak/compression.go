package pak

// Compression identifies the algorithm used for an entry payload.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionDeflate
	CompressionZstd
)

// String returns the human-readable name of the compression algorithm.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionDeflate:
		return "deflate"
	case CompressionZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// ParseCompression maps a configuration value to a Compression.
func ParseCompression(s string) (Compression, bool) {
	switch s {
	case "", "none":
		return CompressionNone, true
	case "deflate":
		return CompressionDeflate, true
	case "zstd":
		return CompressionZstd, true
	default:
		return CompressionNone, false
	}
}

func (c Compression) valid() bool {
	return c <= CompressionZstd
}
