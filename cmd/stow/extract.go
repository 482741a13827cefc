package main

import (
	"context"
	"fmt"

	"github.com/meigma/stow"
)

func runExtract(ctx context.Context, e *env, args []string) error {
	var (
		c          common
		overwrite  bool
		noPreserve bool
		prefix     string
		workers    int
		reserved   bool
	)
	flags := newFlagSet(e, "extract", "[flags] ARCHIVE|URL DIR", &c)
	flags.BoolVarP(&overwrite, "overwrite", "f", false, "replace existing files")
	flags.BoolVar(&noPreserve, "no-preserve-mode", false, "ignore recorded permissions")
	flags.StringVar(&prefix, "prefix", "", "extract only this path and everything below it")
	flags.IntVarP(&workers, "workers", "j", 0, "concurrent writers (0 = GOMAXPROCS, <0 = serial)")
	flags.BoolVar(&reserved, "reserved", false, "also extract archive metadata entries")
	if err := parse(flags, args); err != nil {
		return err
	}
	if flags.NArg() != 2 {
		return usagef("expected ARCHIVE DIR, got %d arguments", flags.NArg())
	}

	logger := c.logger(e)
	open := func() (*stow.ContainerFile, error) {
		return stow.Open(flags.Arg(0), stow.WithContainerLogger(logger))
	}
	if stow.IsURL(flags.Arg(0)) {
		open = func() (*stow.ContainerFile, error) {
			return stow.OpenURL(ctx, flags.Arg(0), stow.WithContainerLogger(logger))
		}
	}
	archive, err := open()
	if err != nil {
		return err
	}
	defer archive.Close()

	opts := []stow.ExtractOption{
		stow.ExtractWithOverwrite(overwrite),
		stow.ExtractWithPreserveMode(!noPreserve),
		stow.ExtractWithWorkers(workers),
		stow.ExtractWithReserved(reserved),
	}
	if prefix != "" {
		opts = append(opts, stow.ExtractWithPrefix(prefix))
	}
	stats, err := archive.Extract(ctx, flags.Arg(1), opts...)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "extracted %d files, %d directories (%d bytes), skipped %d\n",
		stats.Files, stats.Directories, stats.TotalBytes, stats.Skipped)
	return nil
}
