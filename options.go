package relay

import (
	"sync"

	"go.uber.org/zap"
)

// Option configures Pump, Relay and RelayContext.
type Option func(*config)

type config struct {
	bufferSize int
	negotiator *Negotiator
	logger     *zap.Logger

	// zeroCopy is the fast path. Tests swap it to observe or script it.
	zeroCopy func(dst, src Endpoint, limit int64) (Outcome, bool)
}

// defaultNegotiator is built from HostPlatform the first time a relay runs
// without WithPlatform or WithNegotiator.
var defaultNegotiator = sync.OnceValue(func() *Negotiator {
	return NewNegotiator(HostPlatform())
})

func newConfig(opts []Option) *config {
	cfg := &config{
		bufferSize: DefaultBufferSize,
		zeroCopy:   spliceTo,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.negotiator == nil {
		cfg.negotiator = defaultNegotiator()
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	return cfg
}

// WithBufferSize sets the buffered path's read size. Values <= 0 select
// DefaultBufferSize. Only default-sized buffers are pooled.
func WithBufferSize(n int) Option {
	return func(c *config) {
		if n <= 0 {
			n = DefaultBufferSize
		}
		c.bufferSize = n
	}
}

// WithPlatform negotiates against p instead of HostPlatform.
func WithPlatform(p Platform) Option {
	return func(c *config) {
		c.negotiator = NewNegotiator(p)
	}
}

// WithNegotiator shares a prebuilt Negotiator across relays.
func WithNegotiator(n *Negotiator) Option {
	return func(c *config) {
		c.negotiator = n
	}
}

// WithLogger sets the logger for fallback and shutdown events. The
// default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// buffer returns a private buffer for one pump and the func that gives it
// back.
func (c *config) buffer() ([]byte, func()) {
	if c.bufferSize != DefaultBufferSize {
		return make([]byte, c.bufferSize), func() {}
	}
	bp := bufferPool.Get().(*[]byte)
	return *bp, func() { bufferPool.Put(bp) }
}
