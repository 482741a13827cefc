// Command stow builds, amends, extracts and verifies stow archives.
//
// Usage:
//
//	stow create [flags] [alias=source ...]
//	stow edit [flags] ARCHIVE
//	stow extract [flags] ARCHIVE DIR
//	stow verify [flags] ARCHIVE...
//	stow list [flags] ARCHIVE
//
// Build settings come from --config, else $STOW_CONFIG, else stow.yml in
// the working directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/meigma/stow"
)

// Exit codes.
const (
	exitOK            = 0
	exitFailure       = 1
	exitUsage         = 2
	exitCorrupt       = 3
	exitIntegrity     = 4
	exitDecompression = 5
	exitCollision     = 6
	exitConfiguration = 7
	exitExtension     = 8
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// usageError reports a malformed command line.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, env *env, args []string) error
}

var commands = []command{
	{"create", "build a new archive from the configuration", runCreate},
	{"edit", "amend an existing archive in place", runEdit},
	{"extract", "write an archive's entries to a directory", runExtract},
	{"verify", "check archive digests", runVerify},
	{"list", "list an archive's entries", runList},
}

// env carries the output streams of one invocation.
type env struct {
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	e := &env{stdout: stdout, stderr: stderr}
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(stderr)
		if len(args) == 0 {
			return exitUsage
		}
		return exitOK
	}
	for _, c := range commands {
		if c.name != args[0] {
			continue
		}
		err := c.run(ctx, e, args[1:])
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		if err != nil {
			fmt.Fprintf(stderr, "stow %s: %v\n", c.name, err)
		}
		return exitCode(err)
	}
	fmt.Fprintf(stderr, "stow: unknown command %q\n", args[0])
	printUsage(stderr)
	return exitUsage
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: stow <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.summary)
	}
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	var usage *usageError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &usage):
		return exitUsage
	case errors.Is(err, stow.ErrCorruptFormat):
		return exitCorrupt
	case errors.Is(err, stow.ErrIntegrityMismatch):
		return exitIntegrity
	case errors.Is(err, stow.ErrDecompression):
		return exitDecompression
	case errors.Is(err, stow.ErrPathCollision):
		return exitCollision
	case errors.Is(err, stow.ErrConfiguration):
		return exitConfiguration
	case errors.Is(err, stow.ErrExtension):
		return exitExtension
	default:
		return exitFailure
	}
}
