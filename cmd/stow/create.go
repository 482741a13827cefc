package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/meigma/stow"
	"github.com/meigma/stow/config"
)

func runCreate(ctx context.Context, e *env, args []string) error {
	var (
		c           common
		configPath  string
		output      string
		compression string
		digestName  string
		entryPoint  string
		excludes    []string
		lock        bool
	)
	flags := newFlagSet(e, "create", "[flags] [alias=source ...]", &c)
	flags.StringVarP(&configPath, "config", "c", "", "configuration file (default $"+config.EnvConfig+" or "+config.DefaultFile+")")
	flags.StringVarP(&output, "output", "o", "", "archive path, overriding the configuration")
	flags.StringVar(&compression, "compression", "", "compression for new entries: none, gzip, bzip2, zstd, lz4")
	flags.StringVar(&digestName, "digest", "", "trailer digest algorithm: sha256, blake3")
	flags.StringVar(&entryPoint, "main", "", "archive path of the entry point")
	flags.StringArrayVar(&excludes, "exclude", nil, "gitignore-style pattern to leave out (repeatable)")
	flags.BoolVar(&lock, "lock", false, "hold <output>.lock while writing")
	if err := parse(flags, args); err != nil {
		return err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if output != "" {
		cfg.Output = output
	}
	if compression != "" {
		cfg.Compression = compression
	}
	if digestName != "" {
		cfg.Digest = digestName
	}
	if flags.Changed("main") {
		cfg.Main = entryPoint
	}
	cfg.Exclude = append(cfg.Exclude, excludes...)
	for _, arg := range flags.Args() {
		p := config.ParsePath(arg)
		if p.Source == "" {
			return usagef("empty source in %q", arg)
		}
		// Arguments are relative to the working directory, not the
		// configuration file.
		abs, err := filepath.Abs(p.Source)
		if err != nil {
			return err
		}
		p.Source = abs
		cfg.Paths = append(cfg.Paths, p)
	}
	if len(cfg.Paths) == 0 {
		return usagef("no sources: list paths in the configuration or as arguments")
	}

	res, err := stow.Build(ctx, cfg,
		stow.WithLogger(c.logger(e)),
		stow.WithBuilderOptions(stow.WithDestinationLock(lock)),
	)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "created %s (%d entries) %s\n", res.Path, res.Entries, res.Checksum)
	return nil
}
