package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Path is one build source: a file or directory on disk and the archive
// path it is placed under. An empty Alias uses the source's base name; an
// Alias of "." places a directory's contents at the archive root.
type Path struct {
	Source string `yaml:"source"`
	Alias  string `yaml:"alias,omitempty"`
}

// UnmarshalYAML accepts three forms:
//
//	- src                          bare source
//	- {source: src, alias: lib}    explicit fields
//	- lib: src                     alias mapped to source
func (p *Path) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*p = Path{Source: node.Value}
		return nil
	case yaml.MappingNode:
		for i := 0; i < len(node.Content); i += 2 {
			if k := node.Content[i].Value; k == "source" || k == "alias" {
				type plain Path
				var out plain
				if err := node.Decode(&out); err != nil {
					return err
				}
				*p = Path(out)
				return nil
			}
		}
		if len(node.Content) != 2 || node.Content[1].Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: path mapping must be {alias: source}", node.Line)
		}
		*p = Path{Alias: node.Content[0].Value, Source: node.Content[1].Value}
		return nil
	default:
		return fmt.Errorf("line %d: path must be a string or mapping", node.Line)
	}
}

// MarshalYAML writes bare sources as scalars.
func (p Path) MarshalYAML() (any, error) {
	if p.Alias == "" {
		return p.Source, nil
	}
	type plain Path
	return plain(p), nil
}

// String renders the path as "alias=source" or "source".
func (p Path) String() string {
	if p.Alias == "" {
		return p.Source
	}
	return p.Alias + "=" + p.Source
}

// ParsePath parses the "alias=source" or "source" form used on command lines.
func ParsePath(s string) Path {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return Path{Alias: s[:i], Source: s[i+1:]}
		}
	}
	return Path{Source: s}
}
