// Package plugin resolves plugin references from a build configuration and
// provides the bundled build extensions.
//
// A plugin subscribes to build events when a builder registers it:
//
//	reg := plugin.Default()
//	plugins, err := reg.Resolve(cfg.Plugins)
//	...
//	err = builder.RegisterPlugins(plugins...)
package plugin

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	stowcore "github.com/meigma/stow/core"
)

// Factory constructs a plugin. The logger is never nil.
type Factory func(logger *slog.Logger) stowcore.Plugin

// Registry maps plugin references to factories.
type Registry struct {
	factories map[string]Factory
	logger    *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger handed to constructed plugins.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Default returns a registry holding the bundled plugins.
func Default(opts ...RegistryOption) *Registry {
	r := NewRegistry(opts...)
	r.mustRegister(ReplaceName, func(logger *slog.Logger) stowcore.Plugin { return NewReplace(logger) })
	r.mustRegister(EnvsubstName, func(logger *slog.Logger) stowcore.Plugin { return NewEnvsubst(logger) })
	return r
}

func normalizeRef(ref string) string {
	return strings.ToLower(strings.TrimSpace(ref))
}

// Register adds a factory under name. Names are case-insensitive and must
// be unique.
func (r *Registry) Register(name string, f Factory) error {
	key := normalizeRef(name)
	if key == "" {
		return fmt.Errorf("%w: empty plugin name", stowcore.ErrConfiguration)
	}
	if _, ok := r.factories[key]; ok {
		return fmt.Errorf("%w: plugin %q already registered", stowcore.ErrConfiguration, name)
	}
	r.factories[key] = f
	return nil
}

func (r *Registry) mustRegister(name string, f Factory) {
	if err := r.Register(name, f); err != nil {
		panic(err)
	}
}

// Names returns the registered references in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Resolve constructs the plugins named by refs, in order. An unknown
// reference fails with ErrConfiguration.
func (r *Registry) Resolve(refs []string) ([]stowcore.Plugin, error) {
	logger := r.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	plugins := make([]stowcore.Plugin, 0, len(refs))
	for _, ref := range refs {
		f, ok := r.factories[normalizeRef(ref)]
		if !ok {
			return nil, fmt.Errorf("%w: unknown plugin %q (known: %s)", stowcore.ErrConfiguration, ref, strings.Join(r.Names(), ", "))
		}
		plugins = append(plugins, f(logger.With("plugin", normalizeRef(ref))))
	}
	return plugins, nil
}
