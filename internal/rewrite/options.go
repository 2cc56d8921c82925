package rewrite

import (
	"log/slog"
	"runtime"

	"github.com/meigma/texpak/pak"
)

// AttributePolicy controls the attribute word of written entries.
type AttributePolicy int

const (
	// AttributesDefault writes every entry with a zero attribute word.
	AttributesDefault AttributePolicy = iota

	// AttributesClone copies the attribute word of the source entry.
	AttributesClone
)

// ProgressFunc is called after each entry is written. It may be called from
// several goroutines at once.
type ProgressFunc func(done, total int, bytesWritten uint64)

// Option configures Rewrite.
type Option func(*config)

type config struct {
	fullPackage bool
	attrs       AttributePolicy
	workers     int
	compression pak.Compression
	logger      *slog.Logger
	progress    ProgressFunc
}

func newConfig(opts []Option) *config {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.workers <= 0 {
		cfg.workers = runtime.GOMAXPROCS(0)
	}
	return cfg
}

func (c *config) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// WithFullPackage carries unselected entries verbatim when set. Otherwise
// the output holds only the selected entries.
func WithFullPackage(full bool) Option {
	return func(c *config) {
		c.fullPackage = full
	}
}

// WithAttributePolicy sets how entry attribute words are written.
func WithAttributePolicy(p AttributePolicy) Option {
	return func(c *config) {
		c.attrs = p
	}
}

// WithWorkers bounds the number of concurrent workers.
// Values <= 0 use GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// WithCompression sets the compression for transformed entries.
// Defaults to pak.CompressionNone.
func WithCompression(comp pak.Compression) Option {
	return func(c *config) {
		c.compression = comp
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithProgress sets a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(c *config) {
		c.progress = fn
	}
}
