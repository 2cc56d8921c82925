package fb

import "strconv"

type Compression byte

const (
	CompressionNone    Compression = 0
	CompressionDeflate Compression = 1
	CompressionZstd    Compression = 2
)

var EnumNamesCompression = map[Compression]string{
	CompressionNone:    "None",
	CompressionDeflate: "Deflate",
	CompressionZstd:    "Zstd",
}

var EnumValuesCompression = map[string]Compression{
	"None":    CompressionNone,
	"Deflate": CompressionDeflate,
	"Zstd":    CompressionZstd,
}

func (v Compression) String() string {
	if s, ok := EnumNamesCompression[v]; ok {
		return s
	}
	return "Compression(" + strconv.FormatInt(int64(v), 10) + ")"
}
