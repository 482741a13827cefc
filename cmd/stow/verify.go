package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/stow"
)

func runVerify(ctx context.Context, e *env, args []string) error {
	var (
		c      common
		expect string
	)
	flags := newFlagSet(e, "verify", "[flags] ARCHIVE|URL...", &c)
	flags.StringVar(&expect, "expect", "", "digest the archive must carry, such as sha256:<hex>")
	if err := parse(flags, args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		return usagef("expected at least one archive")
	}

	var want digest.Digest
	if expect != "" {
		want = digest.Digest(expect)
		if err := want.Validate(); err != nil && !errors.Is(err, digest.ErrDigestUnsupported) {
			return usagef("invalid --expect digest %q: %v", expect, err)
		}
	}

	logger := c.logger(e)
	var errs []error
	for _, path := range flags.Args() {
		var (
			got digest.Digest
			err error
		)
		if stow.IsURL(path) {
			got, err = stow.VerifyURL(ctx, path)
		} else {
			got, err = stow.VerifyFile(path)
		}
		if err == nil && want != "" && got != want {
			err = fmt.Errorf("%w: digest %s, expected %s", stow.ErrIntegrityMismatch, got, want)
		}
		if err != nil {
			fmt.Fprintf(e.stdout, "%s: FAILED\n", path)
			logger.Debug("verify failed", "path", path, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		fmt.Fprintf(e.stdout, "%s: OK %s\n", path, got)
	}
	return errors.Join(errs...)
}
