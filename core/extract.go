package stow

import (
	"context"
	"strings"

	"github.com/meigma/stow/core/internal/batch"
)

// ExtractStats reports the outcome of an extraction.
type ExtractStats = batch.ProcessStats

// ExtractOption configures Extract.
type ExtractOption func(*extractConfig)

type extractConfig struct {
	overwrite    bool
	preserveMode bool
	workers      int
	prefix       string
	reserved     bool
}

// ExtractWithOverwrite allows overwriting existing files.
// By default, existing files are skipped.
func ExtractWithOverwrite(overwrite bool) ExtractOption {
	return func(c *extractConfig) {
		c.overwrite = overwrite
	}
}

// ExtractWithPreserveMode applies the permission bits recorded in the
// archive. By default files get 0644 and directories 0755.
func ExtractWithPreserveMode(preserve bool) ExtractOption {
	return func(c *extractConfig) {
		c.preserveMode = preserve
	}
}

// ExtractWithWorkers sets the number of concurrent writers.
// Values < 0 force serial processing. Zero uses GOMAXPROCS.
func ExtractWithWorkers(n int) ExtractOption {
	return func(c *extractConfig) {
		c.workers = n
	}
}

// ExtractWithPrefix limits extraction to prefix and everything below it.
func ExtractWithPrefix(prefix string) ExtractOption {
	return func(c *extractConfig) {
		c.prefix = NormalizePath(prefix)
	}
}

// ExtractWithReserved includes the reserved metadata entries, such as
// PrimaryPath, which are skipped by default.
func ExtractWithReserved(include bool) ExtractOption {
	return func(c *extractConfig) {
		c.reserved = include
	}
}

// Extract writes the archive's entries below destDir.
//
// All writes go through an os.Root opened at destDir, so entries cannot
// escape it. Each file is written to a temporary file and renamed into
// place. Directory entries are created; parent directories are created as
// needed. The first failure cancels the remaining work.
func (c *Container) Extract(ctx context.Context, destDir string, opts ...ExtractOption) (ExtractStats, error) {
	cfg := extractConfig{prefix: "."}
	for _, opt := range opts {
		opt(&cfg)
	}

	entries := c.collect(&cfg)
	c.log().Info("extracting archive", "dest", destDir, "entries", len(entries), "prefix", cfg.prefix)

	sink, err := batch.OpenFileSink(destDir,
		batch.WithOverwrite(cfg.overwrite),
		batch.WithPreserveMode(cfg.preserveMode),
	)
	if err != nil {
		return ExtractStats{}, err
	}
	defer sink.Close()

	procOpts := []batch.ProcessorOption{batch.WithWorkers(cfg.workers)}
	if c.logger != nil {
		procOpts = append(procOpts, batch.WithProcessorLogger(c.logger))
	}
	proc := batch.NewProcessor(func(_ context.Context, e *Entry) ([]byte, error) {
		return c.Content(e.Path)
	}, procOpts...)

	stats, err := proc.Process(ctx, entries, sink)
	if err != nil {
		return stats, err
	}
	c.log().Info("extracted archive", "dest", destDir, "files", stats.Files, "directories", stats.Directories, "skipped", stats.Skipped)
	return stats, nil
}

// collect selects the entries to extract.
func (c *Container) collect(cfg *extractConfig) []*batch.Entry {
	var out []*batch.Entry
	for e := range c.idx.All() {
		if !cfg.reserved && IsReserved(e.Path) {
			continue
		}
		if cfg.prefix != "." && e.Path != cfg.prefix && !strings.HasPrefix(e.Path, cfg.prefix+"/") {
			continue
		}
		out = append(out, &e)
	}
	return out
}
