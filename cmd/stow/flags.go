package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/meigma/stow"
	"github.com/meigma/stow/config"
)

// common holds flags shared by every command.
type common struct {
	verbose bool
}

func newFlagSet(e *env, name, usage string, c *common) *pflag.FlagSet {
	fs := pflag.NewFlagSet("stow "+name, pflag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.BoolVarP(&c.verbose, "verbose", "v", false, "log per-entry detail to stderr")
	fs.Usage = func() {
		fmt.Fprintf(e.stderr, "Usage: stow %s %s\n\nFlags:\n", name, usage)
		fs.PrintDefaults()
	}
	return fs
}

// parse parses args and wraps flag errors as usage errors.
func parse(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp { //nolint:errorlint // pflag returns the sentinel unwrapped
			return err
		}
		return usagef("%v", err)
	}
	return nil
}

func (c *common) logger(e *env) *slog.Logger {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(e.stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig loads the configuration picked by config.Locate. With no file
// found it returns the defaults rooted at the working directory.
func loadConfig(flag string) (*config.Config, error) {
	path := config.Locate(flag)
	if path == "" {
		return config.Default(), nil
	}
	return stow.LoadConfig(path)
}
