package stow

import "log/slog"

// DefaultMaxEntrySize is the default limit on an entry's original and
// stored size.
const DefaultMaxEntrySize = 256 << 20

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger for container operations.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		c.logger = logger
	}
}

// WithMaxEntrySize limits the size of a single entry's content, compressed
// and uncompressed. Set limit to 0 to disable the limit.
func WithMaxEntrySize(limit uint64) Option {
	return func(c *Container) {
		c.maxEntrySize = limit
	}
}
