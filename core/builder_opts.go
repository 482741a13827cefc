package stow

import (
	"log/slog"

	"github.com/meigma/stow/core/internal/compress"
)

// SkipCompressionFunc returns true when a staged file should be stored
// uncompressed regardless of the active compression.
type SkipCompressionFunc = compress.SkipFunc

// DefaultSkipCompression returns a SkipCompressionFunc that skips files
// smaller than minSize and files with already-compressed extensions.
func DefaultSkipCompression(minSize int) SkipCompressionFunc {
	return compress.DefaultSkip(minSize)
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithBuilderLogger sets the logger for build operations. It is also passed
// to the containers the builder opens.
func WithBuilderLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithDestination overrides the archive path written by Commit.
func WithDestination(path string) BuilderOption {
	return func(b *Builder) {
		b.dest = path
	}
}

// WithDestinationLock makes Commit hold an exclusive lock on
// "<destination>.lock" while it writes, so concurrent builders targeting
// the same file are serialized.
func WithDestinationLock(enabled bool) BuilderOption {
	return func(b *Builder) {
		b.lock = enabled
	}
}

// WithMaxSourceSize limits the size of a single source file read during
// Commit. Zero uses DefaultMaxEntrySize.
func WithMaxSourceSize(limit uint64) BuilderOption {
	return func(b *Builder) {
		b.maxSourceSize = limit
	}
}

// WithSkipCompression adds predicates that store a file uncompressed.
// If any predicate returns true, the entry is recorded with CompressionNone.
func WithSkipCompression(fns ...SkipCompressionFunc) BuilderOption {
	return func(b *Builder) {
		b.skip = append(b.skip, fns...)
	}
}

// WithContainerOptions sets options for containers opened by the builder.
func WithContainerOptions(opts ...Option) BuilderOption {
	return func(b *Builder) {
		b.containerOpts = append(b.containerOpts, opts...)
	}
}
