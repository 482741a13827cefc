package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
stow:
  compression: GZIP
  main: bin/main.php
  shebang: "#!/usr/bin/env php"
  paths:
    - src
    - test: tests
    - source: vendor
      alias: lib
  plugins: [replace]
  exclude: ["*.log"]
replace:
  global:
    "@version@": "1.2.0"
  paths:
    src/a.php:
      "@name@": demo
`

func TestParse(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "GZIP", cfg.Compression)
	assert.Equal(t, "bin/main.php", cfg.Main)
	assert.Equal(t, "#!/usr/bin/env php", cfg.Shebang)
	assert.Equal(t, []Path{
		{Source: "src"},
		{Source: "tests", Alias: "test"},
		{Source: "vendor", Alias: "lib"},
	}, cfg.Paths)
	assert.Equal(t, []string{"replace"}, cfg.Plugins)
	assert.Equal(t, []string{"*.log"}, cfg.Exclude)
	assert.True(t, cfg.HasSection("replace"))
	assert.False(t, cfg.HasSection("stow"))
}

func TestDecodeSection(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	var settings struct {
		Global map[string]string            `yaml:"global"`
		Paths  map[string]map[string]string `yaml:"paths"`
	}
	require.NoError(t, cfg.Decode("replace", &settings))
	assert.Equal(t, map[string]string{"@version@": "1.2.0"}, settings.Global)
	assert.Equal(t, "demo", settings.Paths["src/a.php"]["@name@"])

	// Missing sections leave the target alone.
	settings.Global = map[string]string{"keep": "me"}
	require.NoError(t, cfg.Decode("missing", &settings))
	assert.Equal(t, "me", settings.Global["keep"])
}

func TestWithDefaults(t *testing.T) {
	t.Parallel()

	var nilCfg *Config
	assert.Equal(t, Default(), nilCfg.WithDefaults())

	cfg := &Config{Compression: "zstd", Paths: []Path{{Source: "src"}}}
	merged := cfg.WithDefaults()
	assert.Equal(t, "zstd", merged.Compression)
	assert.Equal(t, DefaultOutput, merged.Output)
	assert.Equal(t, DefaultDigest, merged.Digest)

	// The input is not modified.
	assert.Empty(t, cfg.Output)
	merged.Paths[0].Source = "changed"
	assert.Equal(t, "src", cfg.Paths[0].Source)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"empty", Config{}, ""},
		{"empty source", Config{Paths: []Path{{Source: " "}}}, "empty source"},
		{"absolute alias", Config{Paths: []Path{{Source: "a", Alias: "/abs"}}}, "must be relative"},
		{"dotdot alias", Config{Paths: []Path{{Source: "a", Alias: "x/../.."}}}, "must be relative"},
		{"empty plugin", Config{Plugins: []string{""}}, "empty reference"},
		{"empty exclude", Config{Exclude: []string{""}}, "empty pattern"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPathUnmarshalRejectsBadShapes(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("stow:\n  paths:\n    - [a, b]\n"))
	require.Error(t, err)

	_, err = Parse([]byte("stow:\n  paths:\n    - {a: x, b: y}\n"))
	require.Error(t, err)
}

func TestParsePath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Path{Source: "src"}, ParsePath("src"))
	assert.Equal(t, Path{Alias: "lib", Source: "vendor/x"}, ParsePath("lib=vendor/x"))
	assert.Equal(t, "lib=vendor/x", Path{Alias: "lib", Source: "vendor/x"}.String())
}

func TestLoadYAMLAndJSONC(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "stow.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(sampleYAML), 0o600))

	jsoncPath := filepath.Join(dir, "stow.jsonc")
	jsoncData := `{
	// build settings
	"stow": {
		"compression": "GZIP",
		"main": "bin/main.php",
		"shebang": "#!/usr/bin/env php",
		"paths": ["src", {"test": "tests"}, {"source": "vendor", "alias": "lib"}],
		"plugins": ["replace"],
		"exclude": ["*.log"], /* trailing comma next */
	},
	"replace": {"global": {"@version@": "1.2.0"}, "paths": {"src/a.php": {"@name@": "demo"}}},
}`
	require.NoError(t, os.WriteFile(jsoncPath, []byte(jsoncData), 0o600))

	fromYAML, err := Load(yamlPath)
	require.NoError(t, err)
	fromJSONC, err := Load(jsoncPath)
	require.NoError(t, err)

	assert.Equal(t, dir, fromYAML.Directory)
	assert.Equal(t, fromYAML.Paths, fromJSONC.Paths)
	assert.Equal(t, fromYAML.Main, fromJSONC.Main)
	assert.Equal(t, fromYAML.Exclude, fromJSONC.Exclude)

	var global struct {
		Global map[string]string `yaml:"global"`
	}
	require.NoError(t, fromJSONC.Decode("replace", &global))
	assert.Equal(t, "1.2.0", global.Global["@version@"])

	assert.Equal(t, filepath.Join(dir, "src"), fromYAML.Resolve("src"))
	assert.Equal(t, filepath.Join(dir, DefaultOutput), fromYAML.OutputPath())
}

func TestLoadMissing(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
