package plugin

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"github.com/fluxcd/pkg/envsubst"

	"github.com/meigma/stow/config"
	stowcore "github.com/meigma/stow/core"
	"github.com/meigma/stow/core/event"
)

// EnvsubstName is the reference and settings section of the envsubst plugin.
const EnvsubstName = "envsubst"

// EnvsubstSettings is the "envsubst" settings section.
//
//	envsubst:
//	  patterns: ["\\.env$", "^config/"]
//	  strict: true
//	  vars:
//	    APP_ENV: production
type EnvsubstSettings struct {
	// Patterns are regular expressions over archive paths selecting the
	// files to expand. Empty selects every file.
	Patterns []string `yaml:"patterns,omitempty"`

	// Strict fails the build on references to undefined variables.
	Strict bool `yaml:"strict,omitempty"`

	// Vars are consulted before the process environment.
	Vars map[string]string `yaml:"vars,omitempty"`
}

// Envsubst expands ${VAR} references in file contents as files are added
// to an archive.
type Envsubst struct {
	logger *slog.Logger
	lookup func(string) (string, bool)
}

// NewEnvsubst returns the envsubst plugin reading the process environment.
// A nil logger discards output.
func NewEnvsubst(logger *slog.Logger) *Envsubst {
	return &Envsubst{logger: logger, lookup: os.LookupEnv}
}

func (p *Envsubst) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}

// Register reads the envsubst settings section and subscribes to add-file
// events. An invalid pattern fails registration.
func (p *Envsubst) Register(d *event.Dispatcher, cfg *config.Config, _ *stowcore.Container) error {
	var s EnvsubstSettings
	if err := cfg.Decode(EnvsubstName, &s); err != nil {
		return err
	}
	patterns := make([]*regexp.Regexp, 0, len(s.Patterns))
	for _, expr := range s.Patterns {
		re, err := regexp.Compile(expr)
		if err != nil {
			return fmt.Errorf("envsubst: pattern %q: %w", expr, err)
		}
		patterns = append(patterns, re)
	}

	mapping := func(name string) (string, bool) {
		if v, ok := s.Vars[name]; ok {
			return v, true
		}
		v, ok := p.lookup(name)
		if !ok && !s.Strict {
			return "", true
		}
		return v, ok
	}

	event.Subscribe(d, func(e *event.AddFile) error {
		if !matchAny(patterns, e.Path()) {
			return nil
		}
		out, err := envsubst.Eval(string(e.Content), mapping)
		if err != nil {
			return fmt.Errorf("envsubst %s: %w", e.Path(), err)
		}
		p.log().Debug("expanded variables", "path", e.Path())
		e.Content = []byte(out)
		return nil
	})
	return nil
}

func matchAny(patterns []*regexp.Regexp, path string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, re := range patterns {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}
