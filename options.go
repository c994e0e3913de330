package fount

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fountkit/fount/internal/reservoir"
)

// config accumulates the effect of every Option passed to New.
type config struct {
	logger       *zap.Logger
	name         string
	rateLimit    rate.Limit
	rateBurst    int
	hasRateLimit bool
	replyTimeout time.Duration
	debugDump    bool
}

// Option configures a Fount at construction. See New.
type Option func(*config)

// WithLogger attaches a *zap.Logger. Subsystems are named off it
// ("fount.core", "fount.allocator"). Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *config) { c.logger = log }
}

// WithName binds the constructed Fount to a process-wide name, so other
// parts of the same process can retrieve it with Lookup. Registration is
// local-process only; it is never visible across hosts.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithSpawnRateLimit caps how many spawn-one calls all of this Fount's
// allocators may make per second, with an initial allowance of burst
// calls. Use this to protect a worker factory backed by a costly resource
// (a subprocess, a connection) from being hammered by many concurrently
// running allocators. Unset (the default) imposes no pacing.
func WithSpawnRateLimit(r rate.Limit, burst int) Option {
	return func(c *config) {
		c.rateLimit = r
		c.rateBurst = burst
		c.hasRateLimit = true
	}
}

// WithReplyTimeout overrides the default 500ms synchronous reply timeout
// applied when a caller's context carries no deadline of its own.
func WithReplyTimeout(d time.Duration) Option {
	return func(c *config) { c.replyTimeout = d }
}

// WithDebugDump logs a go-spew dump of internal content after every event
// the core processes. Intended for tests and local debugging only.
func WithDebugDump() Option {
	return func(c *config) { c.debugDump = true }
}

func (c *config) toCoreConfig() reservoir.CoreConfig {
	cfg := reservoir.CoreConfig{
		Logger:       c.logger,
		ReplyTimeout: c.replyTimeout,
		DebugDump:    c.debugDump,
	}
	if c.hasRateLimit {
		cfg.Limiter = reservoir.NewRateLimiter(c.rateLimit, c.rateBurst)
	}
	return cfg
}
