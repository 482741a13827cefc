// Package config provides build settings for stow archives.
//
// Settings are loaded from a single file. The file holds a "stow" section
// with the build settings and any number of additional top-level sections
// read by plugins:
//
//	stow:
//	  compression: gzip
//	  main: bin/main.php
//	  output: app.stow
//	  paths:
//	    - src
//	    - test: tests        # alias: source
//	  plugins: [replace]
//	replace:
//	  global:
//	    "@version@": 1.2.0
//
// YAML (.yml, .yaml) and JSON with comments (.json, .jsonc) are accepted.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// SectionName is the top-level key holding build settings.
const SectionName = "stow"

// Default values applied to unset fields.
const (
	DefaultCompression = "none"
	DefaultOutput      = "project.stow"
	DefaultDigest      = "sha256"
)

// Config holds build settings.
//
// A zero Config is valid; unset fields take the values of Default() when the
// configuration is consumed by a builder.
type Config struct {
	// Directory is the base for relative paths in the configuration,
	// normally the directory holding the configuration file.
	Directory string `yaml:"-"`

	// Bootstrap is the path of a script placed in the stub, after Shebang.
	Bootstrap string `yaml:"bootstrap,omitempty"`

	// Compression names the compression applied to new entries.
	Compression string `yaml:"compression,omitempty"`

	// Main is the archive path of the entry point. Empty removes the
	// primary designation.
	Main string `yaml:"main,omitempty"`

	// Output is the archive file written by a build.
	Output string `yaml:"output,omitempty"`

	// Paths are the sources added to the archive.
	Paths []Path `yaml:"paths,omitempty"`

	// Plugins are plugin references resolved against a plugin registry.
	Plugins []string `yaml:"plugins,omitempty"`

	// Shebang is the first line of the stub, such as "#!/usr/bin/env php".
	Shebang string `yaml:"shebang,omitempty"`

	// Exclude holds gitignore-style patterns matched against paths inside
	// each source directory.
	Exclude []string `yaml:"exclude,omitempty"`

	// Digest names the trailer digest algorithm.
	Digest string `yaml:"digest,omitempty"`

	sections map[string]any
}

// Default returns the default settings.
func Default() *Config {
	return &Config{
		Compression: DefaultCompression,
		Output:      DefaultOutput,
		Digest:      DefaultDigest,
	}
}

// WithDefaults returns a copy of c with every unset field taken from
// Default(). A nil receiver yields Default().
func (c *Config) WithDefaults() *Config {
	d := Default()
	if c == nil {
		return d
	}
	out := c.Clone()
	if out.Compression == "" {
		out.Compression = d.Compression
	}
	if out.Output == "" {
		out.Output = d.Output
	}
	if out.Digest == "" {
		out.Digest = d.Digest
	}
	return out
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.Paths = slices.Clone(c.Paths)
	out.Plugins = slices.Clone(c.Plugins)
	out.Exclude = slices.Clone(c.Exclude)
	if c.sections != nil {
		out.sections = make(map[string]any, len(c.sections))
		for k, v := range c.sections {
			out.sections[k] = v
		}
	}
	return &out
}

// Resolve returns p relative to Directory unless p is absolute.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Directory == "" {
		return p
	}
	return filepath.Join(c.Directory, p)
}

// OutputPath returns the resolved output path.
func (c *Config) OutputPath() string {
	out := c.Output
	if out == "" {
		out = DefaultOutput
	}
	return c.Resolve(out)
}

// SetSection stores a plugin settings section.
func (c *Config) SetSection(name string, value any) {
	if c.sections == nil {
		c.sections = make(map[string]any)
	}
	c.sections[name] = value
}

// HasSection reports whether a plugin settings section is present.
func (c *Config) HasSection(name string) bool {
	_, ok := c.sections[name]
	return ok
}

// Decode decodes the named plugin settings section into out using yaml
// field tags. A missing section leaves out unchanged.
func (c *Config) Decode(name string, out any) error {
	v, ok := c.sections[name]
	if !ok {
		return nil
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("section %q: %w", name, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("section %q: %w", name, err)
	}
	return nil
}

// Validate checks the structure of the settings. Compression and digest
// names are checked by the builder that consumes them.
func (c *Config) Validate() error {
	var errs []error
	for i, p := range c.Paths {
		if strings.TrimSpace(p.Source) == "" {
			errs = append(errs, fmt.Errorf("paths[%d]: empty source", i))
		}
		if p.Alias != "" && (strings.HasPrefix(p.Alias, "/") || slices.Contains(strings.Split(p.Alias, "/"), "..")) {
			errs = append(errs, fmt.Errorf("paths[%d]: alias %q must be relative", i, p.Alias))
		}
	}
	for i, ref := range c.Plugins {
		if strings.TrimSpace(ref) == "" {
			errs = append(errs, fmt.Errorf("plugins[%d]: empty reference", i))
		}
	}
	for i, pattern := range c.Exclude {
		if strings.TrimSpace(pattern) == "" {
			errs = append(errs, fmt.Errorf("exclude[%d]: empty pattern", i))
		}
	}
	return errors.Join(errs...)
}
