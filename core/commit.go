package stow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/stow/config"
	"github.com/meigma/stow/core/event"
	"github.com/meigma/stow/core/internal/compress"
	"github.com/meigma/stow/core/internal/source"
)

// Commit enumerates the staged sources, runs the build events, and writes
// the archive to the destination atomically. It returns the trailer digest.
//
// Events fire in order: before-set-paths, add-file once per file (in
// enumeration order), before-commit, and after-commit once the archive is
// in place. A subscriber error before the write aborts the commit with
// ErrExtension and leaves the destination untouched. An after-commit error
// is returned with the digest of the archive already written.
//
// After a successful write the builder's container is the committed
// archive and the staged sources, bytes and removals are cleared.
func (b *Builder) Commit(ctx context.Context) (digest.Digest, error) {
	log := b.log()
	log.Info("committing archive", "dest", b.dest, "compression", b.compression.String(), "digest", b.algorithm.String())

	paths := event.NewBeforeSetPaths(b.sources)
	if err := b.dispatcher.Dispatch(paths); err != nil {
		return "", extensionError(err)
	}

	files, err := b.enumerate(ctx, paths.Sources)
	if err != nil {
		return "", err
	}
	for _, s := range b.added {
		s.content = bytes.Clone(s.content)
		files = append(files, s)
	}

	names := make([]string, 0, len(files))
	for i := range files {
		names = append(names, files[i].path)
		if files[i].kind != KindFile {
			continue
		}
		ev := event.NewAddFile(files[i].path, files[i].content)
		if err := b.dispatcher.Dispatch(ev); err != nil {
			return "", extensionError(err)
		}
		files[i].content = ev.Content
	}

	if err := b.dispatcher.Dispatch(event.NewBeforeCommit(b.dest, names)); err != nil {
		return "", extensionError(err)
	}

	plan, err := b.resolve(files)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	d, err := b.save(plan)
	if err != nil {
		return "", err
	}
	log.Info("committed archive", "dest", b.dest, "entries", len(plan), "checksum", d)

	cf, err := Open(b.dest, b.containerOpts...)
	if err != nil {
		return d, fmt.Errorf("reopen committed archive: %w", err)
	}
	b.setBase(cf)
	b.sources, b.added, b.removals = nil, nil, nil

	if err := b.dispatcher.Dispatch(event.NewAfterCommit(b.dest, d, len(plan))); err != nil {
		return d, extensionError(err)
	}
	return d, nil
}

func extensionError(err error) error {
	return fmt.Errorf("%w: %w", ErrExtension, err)
}

// enumerate reads every source into staged entries placed under the
// source's alias.
func (b *Builder) enumerate(ctx context.Context, sources []config.Path) ([]staged, error) {
	var out []staged
	for _, src := range sources {
		alias := src.Alias
		if alias == "" {
			alias = filepath.Base(filepath.Clean(src.Source))
		}
		alias = NormalizePath(alias)

		files, err := source.Collect(ctx, src.Source, source.Options{
			Exclude:     b.exclude,
			MaxFileSize: b.maxSourceSize,
			Logger:      b.logger,
		})
		if err != nil {
			if errors.Is(err, source.ErrNotFound) {
				return nil, configError("%w", err)
			}
			return nil, fmt.Errorf("enumerate %s: %w", src.Source, err)
		}
		for _, f := range files {
			out = append(out, staged{
				path:    joinPath(alias, f.Path),
				kind:    f.Kind,
				mode:    f.Mode,
				content: f.Content,
			})
		}
		b.log().Debug("enumerated source", "source", src.Source, "alias", alias, "entries", len(files))
	}
	return out, nil
}

// resolve merges the staged entries into the base index and compresses the
// new content. Removals apply first, later additions of a path replace
// earlier ones, and the primary entry is rewritten from the entry point.
func (b *Builder) resolve(files []staged) ([]planned, error) {
	idx := b.base.idx.Clone()
	for _, p := range b.removals {
		if n := idx.RemoveTree(p); n > 0 {
			b.log().Debug("removed entries", "path", p, "count", n)
		}
	}

	fresh := make(map[string][]byte, len(files))
	for _, s := range files {
		if err := ValidatePath(s.path); err != nil {
			return nil, configError("%w", err)
		}
		idx.Put(Entry{
			Path:         s.path,
			Kind:         s.kind,
			Mode:         s.mode,
			OriginalSize: uint64(len(s.content)),
		})
		fresh[s.path] = s.content
	}

	idx.Remove(PrimaryPath)
	if b.entryPoint != "" {
		e, ok := idx.Get(b.entryPoint)
		if !ok || e.IsDir() {
			return nil, configError("entry point %q is not a file in the archive", b.entryPoint)
		}
		idx.Put(Entry{
			Path:         PrimaryPath,
			Kind:         KindFile,
			Mode:         0o644,
			OriginalSize: uint64(len(b.entryPoint)),
		})
		fresh[PrimaryPath] = []byte(b.entryPoint)
	}

	if err := idx.CheckCollisions(); err != nil {
		return nil, err
	}

	plan := make([]planned, 0, idx.Len())
	for e := range idx.All() {
		content, ok := fresh[e.Path]
		if !ok {
			stored, err := b.base.stored(&e)
			if err != nil {
				return nil, &fs.PathError{Op: "read", Path: e.Path, Err: err}
			}
			plan = append(plan, planned{entry: e, stored: stored})
			continue
		}
		if e.IsDir() {
			e.Compression = CompressionNone
			plan = append(plan, planned{entry: e})
			continue
		}
		c := b.compression
		if compress.ShouldSkip(e.Path, len(content), b.skip) {
			c = CompressionNone
		}
		stored, err := compress.Compress(c, content)
		if err != nil {
			return nil, fmt.Errorf("compress %s: %w", e.Path, err)
		}
		e.Compression = c
		plan = append(plan, planned{entry: e, stored: stored})
	}
	return plan, nil
}
