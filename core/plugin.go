package stow

import (
	"github.com/meigma/stow/config"
	"github.com/meigma/stow/core/event"
)

// Plugin subscribes to build events.
//
// Register is called once per build with the builder's dispatcher, its
// configuration and the container being amended.
type Plugin interface {
	Register(d *event.Dispatcher, cfg *config.Config, c *Container) error
}

// PluginFunc adapts a function to the Plugin interface.
type PluginFunc func(d *event.Dispatcher, cfg *config.Config, c *Container) error

// Register calls f.
func (f PluginFunc) Register(d *event.Dispatcher, cfg *config.Config, c *Container) error {
	return f(d, cfg, c)
}
