package plugin

import (
	"cmp"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/meigma/stow/config"
	stowcore "github.com/meigma/stow/core"
	"github.com/meigma/stow/core/event"
)

// ReplaceName is the reference and settings section of the replace plugin.
const ReplaceName = "replace"

// ReplaceSettings is the "replace" settings section.
//
//	replace:
//	  global:
//	    "@version@": 1.2.0
//	  paths:
//	    bin/main.php:
//	      "@mode@": production
//	  patterns:
//	    "\\.php$":
//	      "@license@": MIT
type ReplaceSettings struct {
	// Global replacements apply to every file.
	Global map[string]string `yaml:"global,omitempty"`

	// Paths maps an archive path to replacements for that file only.
	Paths map[string]map[string]string `yaml:"paths,omitempty"`

	// Patterns maps a regular expression over archive paths to
	// replacements for matching files.
	Patterns map[string]map[string]string `yaml:"patterns,omitempty"`
}

// Replace substitutes configured tokens in file contents as files are
// added to an archive.
type Replace struct {
	logger *slog.Logger
}

// NewReplace returns the replace plugin. A nil logger discards output.
func NewReplace(logger *slog.Logger) *Replace {
	return &Replace{logger: logger}
}

func (p *Replace) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}

// Register reads the replace settings section and subscribes to add-file
// events. An invalid pattern fails registration.
func (p *Replace) Register(d *event.Dispatcher, cfg *config.Config, _ *stowcore.Container) error {
	var s ReplaceSettings
	if err := cfg.Decode(ReplaceName, &s); err != nil {
		return err
	}
	r, err := newReplacer(&s)
	if err != nil {
		return err
	}
	event.Subscribe(d, func(e *event.AddFile) error {
		out, n := r.apply(e.Path(), e.Content)
		if n > 0 {
			p.log().Debug("replaced tokens", "path", e.Path(), "rules", n)
		}
		e.Content = out
		return nil
	})
	return nil
}

type patternRule struct {
	re  *regexp.Regexp
	rep *strings.Replacer
}

type replacer struct {
	global   *strings.Replacer
	paths    map[string]*strings.Replacer
	patterns []patternRule
}

func newReplacer(s *ReplaceSettings) (*replacer, error) {
	r := &replacer{
		global: newTokenReplacer(s.Global),
		paths:  make(map[string]*strings.Replacer, len(s.Paths)),
	}
	for path, tokens := range s.Paths {
		r.paths[stowcore.NormalizePath(path)] = newTokenReplacer(tokens)
	}
	exprs := make([]string, 0, len(s.Patterns))
	for expr := range s.Patterns {
		exprs = append(exprs, expr)
	}
	slices.Sort(exprs)
	for _, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("replace: pattern %q: %w", expr, err)
		}
		r.patterns = append(r.patterns, patternRule{re: re, rep: newTokenReplacer(s.Patterns[expr])})
	}
	return r, nil
}

// newTokenReplacer returns nil when there is nothing to replace. Longer
// tokens are tried first so a token that prefixes another cannot shadow it.
func newTokenReplacer(tokens map[string]string) *strings.Replacer {
	keys := make([]string, 0, len(tokens))
	for k := range tokens {
		if k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	slices.SortFunc(keys, func(a, b string) int {
		return cmp.Or(cmp.Compare(len(b), len(a)), strings.Compare(a, b))
	})
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, k, tokens[k])
	}
	return strings.NewReplacer(pairs...)
}

// apply runs the global, path and pattern rules in that order and reports
// how many rule sets applied.
func (r *replacer) apply(path string, content []byte) ([]byte, int) {
	s := string(content)
	n := 0
	run := func(rep *strings.Replacer) {
		if rep == nil {
			return
		}
		s = rep.Replace(s)
		n++
	}
	run(r.global)
	run(r.paths[path])
	for _, rule := range r.patterns {
		if rule.re.MatchString(path) {
			run(rule.rep)
		}
	}
	if n == 0 {
		return content, 0
	}
	return []byte(s), n
}
