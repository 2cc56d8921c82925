// Package codec provides the compression primitives shared by the container
// format and the texture transform: pooled zstd decoders, reusable encoders,
// and deflate readers.
package codec
