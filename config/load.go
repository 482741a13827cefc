package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable consulted for the config path.
const EnvConfig = "STOW_CONFIG"

// DefaultFile is the configuration file looked up in the working directory.
const DefaultFile = "stow.yml"

// Locate picks the configuration file: flag if set, else $STOW_CONFIG, else
// DefaultFile when it exists. It returns "" when there is no configuration.
func Locate(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(EnvConfig); env != "" {
		return env
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return DefaultFile
	}
	return ""
}

// Load reads a configuration file. The format is chosen by extension:
// .json and .jsonc are parsed as JSON with comments, everything else as
// YAML. Directory is set to the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided path is intentional
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data, err = jsoncToYAML(data)
		if err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	cfg.Directory = filepath.Dir(abs)
	return cfg, nil
}

// Parse decodes YAML configuration data and validates it.
func Parse(data []byte) (*Config, error) {
	var doc struct {
		Stow     Config         `yaml:"stow"`
		Sections map[string]any `yaml:",inline"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	cfg := doc.Stow
	cfg.sections = doc.Sections
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// jsoncToYAML strips comments and trailing commas, then re-encodes the
// document as YAML so a single decoder handles both formats.
func jsoncToYAML(data []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(jsonc.ToJSON(data), &v); err != nil {
		return nil, err
	}
	return yaml.Marshal(v)
}
