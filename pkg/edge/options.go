package edge

import (
	"time"

	"github.com/spf13/afero"

	"github.com/anhnt/edge/internal/loader"
	"github.com/anhnt/edge/internal/logging"
	"github.com/anhnt/edge/internal/scope"
	"github.com/anhnt/edge/internal/whitespace"
)

// Option configures an Edge instance.
type Option func(*Edge)

// WithLoader replaces the filesystem loader. Mount and List are only
// available with the default loader.
func WithLoader(l loader.Loader) Option {
	return func(e *Edge) {
		e.loader = l
		e.fsLoader, _ = l.(*loader.FSLoader)
	}
}

// WithFs uses fsys for the default loader.
func WithFs(fsys afero.Fs) Option {
	return func(e *Edge) {
		l := loader.NewFSLoader(fsys)
		e.loader = l
		e.fsLoader = l
	}
}

// WithCache sets the number of compiled templates kept in memory. Zero
// disables caching.
func WithCache(size int) Option {
	return func(e *Edge) {
		e.cacheSize = size
	}
}

// WithCacheTTL expires cached templates after ttl.
func WithCacheTTL(ttl time.Duration) Option {
	return func(e *Edge) {
		e.cacheTTL = ttl
	}
}

// WithEscaper replaces the HTML escaper used by "{{ }}".
func WithEscaper(escaper scope.Escaper) Option {
	return func(e *Edge) {
		e.globals.SetEscaper(escaper)
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(e *Edge) {
		e.logger = logger
	}
}

// WithRawWhitespace sets the whitespace policy for literal text.
func WithRawWhitespace(mode whitespace.Mode) Option {
	return func(e *Edge) {
		e.mode = mode
	}
}
