package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/meigma/stow"
)

func runList(ctx context.Context, e *env, args []string) error {
	var (
		c    common
		long bool
	)
	flags := newFlagSet(e, "list", "[flags] ARCHIVE|URL", &c)
	flags.BoolVarP(&long, "long", "l", false, "show kind, mode, sizes and compression")
	if err := parse(flags, args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return usagef("expected one archive, got %d arguments", flags.NArg())
	}

	ref := flags.Arg(0)
	var (
		info *stow.InspectResult
		err  error
	)
	if stow.IsURL(ref) {
		info, err = stow.InspectURL(ctx, ref, stow.WithContainerLogger(c.logger(e)))
	} else {
		info, err = stow.Inspect(ref, stow.WithContainerLogger(c.logger(e)))
	}
	if err != nil {
		return err
	}
	if !long {
		for _, entry := range info.Entries() {
			fmt.Fprintln(e.stdout, entry.Path)
		}
		return nil
	}

	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	for _, entry := range info.Entries() {
		kind := "f"
		if entry.IsDir() {
			kind = "d"
		}
		fmt.Fprintf(tw, "%s\t%04o\t%d\t%d\t%s\t%s\n",
			kind, entry.Mode.Perm(), entry.OriginalSize, entry.StoredSize, entry.Compression, entry.Path)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "\n%d files, %d directories, %d bytes (%d stored, ratio %.2f)\n",
		info.FileCount(), info.DirCount(), info.TotalOriginalSize(), info.TotalStoredSize(), info.CompressionRatio())
	if p := info.Primary(); p != "" {
		fmt.Fprintf(e.stdout, "entry point: %s\n", p)
	}
	fmt.Fprintf(e.stdout, "checksum: %s\n", info.Checksum())
	return nil
}
