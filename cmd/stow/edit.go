package main

import (
	"context"
	"fmt"

	"github.com/meigma/stow"
	"github.com/meigma/stow/config"
)

func runEdit(ctx context.Context, e *env, args []string) error {
	var (
		c           common
		configPath  string
		applyConfig bool
		output      string
		compression string
		entryPoint  string
		adds        []string
		removes     []string
		lock        bool
	)
	flags := newFlagSet(e, "edit", "[flags] ARCHIVE", &c)
	flags.StringVarP(&configPath, "config", "c", "", "configuration file (default $"+config.EnvConfig+" or "+config.DefaultFile+")")
	flags.BoolVar(&applyConfig, "apply-config", false, "apply the configuration and its plugins to the archive")
	flags.StringVarP(&output, "output", "o", "", "write the amended archive here instead of in place")
	flags.StringVar(&compression, "compression", "", "compression for new entries")
	flags.StringVar(&entryPoint, "main", "", "archive path of the entry point; empty removes it")
	flags.StringArrayVar(&adds, "add", nil, "alias=source to add (repeatable)")
	flags.StringArrayVar(&removes, "remove", nil, "archive path to remove with everything below it (repeatable)")
	flags.BoolVar(&lock, "lock", false, "hold <archive>.lock while writing")
	if err := parse(flags, args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return usagef("expected one archive, got %d arguments", flags.NArg())
	}
	archive := flags.Arg(0)

	var cfg *config.Config
	if applyConfig {
		var err error
		if cfg, err = loadConfig(configPath); err != nil {
			return err
		}
	}

	var newCompression stow.Compression
	if compression != "" {
		var err error
		if newCompression, err = stow.ParseCompression(compression); err != nil {
			return fmt.Errorf("%w: %w", stow.ErrConfiguration, err)
		}
	}
	mainChanged := flags.Changed("main")

	builderOpts := []stow.BuilderOption{stow.WithDestinationLock(lock)}
	if output != "" {
		builderOpts = append(builderOpts, stow.WithDestination(output))
	}

	res, err := stow.Edit(ctx, archive, cfg,
		stow.WithLogger(c.logger(e)),
		stow.WithBuilderOptions(builderOpts...),
		stow.WithMutation(func(b *stow.Builder) error {
			for _, p := range removes {
				b.RemovePath(p)
			}
			for _, arg := range adds {
				p := config.ParsePath(arg)
				if p.Source == "" {
					return usagef("empty source in %q", arg)
				}
				b.AddPaths(p)
			}
			if compression != "" {
				b.SetCompression(newCompression)
			}
			if mainChanged {
				b.SetEntryPoint(entryPoint)
			}
			return nil
		}),
	)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "updated %s (%d entries) %s\n", res.Path, res.Entries, res.Checksum)
	return nil
}
