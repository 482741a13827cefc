package stow

import (
	"context"
	"log/slog"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/stow/config"
	stowcore "github.com/meigma/stow/core"
	"github.com/meigma/stow/plugin"
)

// BuildResult describes a committed archive.
type BuildResult struct {
	// Path is the archive file written.
	Path string

	// Checksum is the trailer digest of the archive.
	Checksum digest.Digest

	// Entries is the number of entries in the archive, including reserved
	// metadata entries.
	Entries int
}

// BuildOption configures Build and Edit.
type BuildOption func(*buildConfig)

type buildConfig struct {
	registry    *plugin.Registry
	logger      *slog.Logger
	builderOpts []BuilderOption
	mutate      []func(*Builder) error
}

// WithRegistry sets the registry used to resolve configured plugins.
// Defaults to plugin.Default().
func WithRegistry(r *plugin.Registry) BuildOption {
	return func(c *buildConfig) {
		c.registry = r
	}
}

// WithLogger sets the logger for the builder, its containers and plugins.
func WithLogger(logger *slog.Logger) BuildOption {
	return func(c *buildConfig) {
		c.logger = logger
	}
}

// WithBuilderOptions passes options through to the builder.
func WithBuilderOptions(opts ...BuilderOption) BuildOption {
	return func(c *buildConfig) {
		c.builderOpts = append(c.builderOpts, opts...)
	}
}

// WithMutation runs fn against the builder after the configuration is
// applied and before the commit. Mutations run in the order given.
func WithMutation(fn func(*Builder) error) BuildOption {
	return func(c *buildConfig) {
		c.mutate = append(c.mutate, fn)
	}
}

func newBuildConfig(opts []BuildOption) *buildConfig {
	c := &buildConfig{}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		if c.logger != nil {
			c.registry = plugin.Default(plugin.WithLogger(c.logger))
		} else {
			c.registry = plugin.Default()
		}
	}
	if c.logger != nil {
		c.builderOpts = append([]BuilderOption{stowcore.WithBuilderLogger(c.logger)}, c.builderOpts...)
	}
	return c
}

// Build creates a new archive from cfg: the configuration is applied,
// configured plugins are registered, and the archive is committed to the
// configured output path. A nil cfg uses config.Default().
func Build(ctx context.Context, cfg *config.Config, opts ...BuildOption) (*BuildResult, error) {
	bc := newBuildConfig(opts)
	cfg = cfg.WithDefaults()

	plugins, err := bc.registry.Resolve(cfg.Plugins)
	if err != nil {
		return nil, err
	}
	b, err := stowcore.Create(cfg, bc.builderOpts...)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	if err := b.ApplyConfig(); err != nil {
		return nil, err
	}
	return run(ctx, b, bc, plugins)
}

// Edit amends the archive at path. When cfg is non-nil it is applied to the
// builder as in Build and its plugins are registered; with a nil cfg only
// the mutations change the archive.
func Edit(ctx context.Context, path string, cfg *config.Config, opts ...BuildOption) (*BuildResult, error) {
	bc := newBuildConfig(opts)

	var plugins []Plugin
	if cfg != nil {
		var err error
		if plugins, err = bc.registry.Resolve(cfg.Plugins); err != nil {
			return nil, err
		}
	}
	b, err := stowcore.OpenBuilder(path, cfg, bc.builderOpts...)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	if cfg != nil {
		if err := b.ApplyConfig(); err != nil {
			return nil, err
		}
	}
	return run(ctx, b, bc, plugins)
}

func run(ctx context.Context, b *Builder, bc *buildConfig, plugins []Plugin) (*BuildResult, error) {
	if err := b.RegisterPlugins(plugins...); err != nil {
		return nil, err
	}
	for _, fn := range bc.mutate {
		if err := fn(b); err != nil {
			return nil, err
		}
	}
	sum, err := b.Commit(ctx)
	if err != nil {
		return nil, err
	}
	return &BuildResult{
		Path:     b.Destination(),
		Checksum: sum,
		Entries:  b.Container().Len(),
	}, nil
}
