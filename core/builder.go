package stow

import (
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/meigma/stow/config"
	"github.com/meigma/stow/core/event"
)

// Builder stages changes to an archive and commits them atomically.
//
// Mutations only update the builder's staged state; Commit is the only
// operation that writes to disk. A Builder is not safe for concurrent use.
type Builder struct {
	cfg        *config.Config
	base       *Container
	baseFile   *ContainerFile // owned; nil for a fresh archive
	dest       string
	dispatcher *event.Dispatcher

	stub        []byte
	compression Compression
	algorithm   DigestAlgorithm
	entryPoint  string
	sources     []config.Path
	exclude     []string
	added       []staged
	removals    []string

	lock          bool
	maxSourceSize uint64
	skip          []SkipCompressionFunc
	containerOpts []Option
	logger        *slog.Logger

	// rename moves the finished temp file over the destination.
	rename func(oldpath, newpath string) error
}

// staged is an entry added by the current build.
type staged struct {
	path    string
	kind    Kind
	mode    fs.FileMode
	content []byte
}

// log returns the logger, falling back to a discard logger if nil.
func (b *Builder) log() *slog.Logger {
	if b.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.logger
}

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConfiguration}, args...)...)
}

func newBuilder(cfg *config.Config, opts []BuilderOption) (*Builder, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, configError("%w", err)
	}
	b := &Builder{
		cfg:        cfg,
		dispatcher: event.NewDispatcher(),
		rename:     os.Rename,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger != nil {
		b.containerOpts = append([]Option{WithLogger(b.logger)}, b.containerOpts...)
	}
	if b.maxSourceSize == 0 {
		b.maxSourceSize = DefaultMaxEntrySize
	}

	var err error
	if b.compression, err = ParseCompression(cfg.Compression); err != nil {
		return nil, configError("%w", err)
	}
	if b.algorithm, err = ParseDigestAlgorithm(cfg.Digest); err != nil {
		return nil, configError("%w", err)
	}
	return b, nil
}

// Create returns a builder for a new, empty archive. The destination is the
// configured output path unless WithDestination is given. A nil cfg uses
// config.Default().
//
// Unknown compression or digest names fail with ErrConfiguration.
func Create(cfg *config.Config, opts ...BuilderOption) (*Builder, error) {
	b, err := newBuilder(cfg, opts)
	if err != nil {
		return nil, err
	}
	b.base = Empty(b.containerOpts...)
	if b.dest == "" {
		b.dest = b.cfg.OutputPath()
	}
	return b, nil
}

// OpenBuilder returns a builder that amends the archive at path. The
// archive's stub, compression, digest algorithm and entry point are the
// starting state. The destination defaults to path.
//
// The builder holds the archive open; Close releases it.
func OpenBuilder(path string, cfg *config.Config, opts ...BuilderOption) (*Builder, error) {
	b, err := newBuilder(cfg, opts)
	if err != nil {
		return nil, err
	}
	cf, err := Open(path, b.containerOpts...)
	if err != nil {
		return nil, err
	}
	b.setBase(cf)
	b.stub = cf.Stub()
	b.compression = cf.Compression()
	b.algorithm = cf.DigestAlgorithm()
	b.entryPoint, _ = cf.Primary()
	if b.dest == "" {
		b.dest = path
	}
	return b, nil
}

func (b *Builder) setBase(cf *ContainerFile) {
	if b.baseFile != nil {
		if err := b.baseFile.Close(); err != nil {
			b.log().Warn("close previous archive", "path", b.baseFile.Path(), "error", err)
		}
	}
	b.baseFile = cf
	b.base = cf.Container
}

// Close releases the archive file held by the builder.
func (b *Builder) Close() error {
	if b.baseFile == nil {
		return nil
	}
	err := b.baseFile.Close()
	b.baseFile = nil
	return err
}

// Container returns the container the builder amends. After a successful
// Commit this is the committed archive.
func (b *Builder) Container() *Container {
	return b.base
}

// Dispatcher returns the builder's event dispatcher.
func (b *Builder) Dispatcher() *event.Dispatcher {
	return b.dispatcher
}

// Config returns the builder's configuration with defaults applied.
func (b *Builder) Config() *config.Config {
	return b.cfg
}

// Destination returns the archive path written by Commit.
func (b *Builder) Destination() string {
	return b.dest
}

// SetBootstrap sets the stub bytes. Nil or empty removes the stub.
func (b *Builder) SetBootstrap(stub []byte) *Builder {
	if len(stub) == 0 {
		b.stub = nil
		return b
	}
	b.stub = bytes.Clone(stub)
	return b
}

// SetCompression sets the compression applied to entries staged by this
// builder. Carried entries keep their own compression.
func (b *Builder) SetCompression(c Compression) *Builder {
	b.compression = c
	return b
}

// SetDigestAlgorithm sets the trailer digest algorithm.
func (b *Builder) SetDigestAlgorithm(a DigestAlgorithm) *Builder {
	b.algorithm = a
	return b
}

// SetEntryPoint designates the archive path of the entry point. An empty
// path removes the designation.
func (b *Builder) SetEntryPoint(path string) *Builder {
	if path == "" {
		b.entryPoint = ""
		return b
	}
	b.entryPoint = NormalizePath(path)
	return b
}

// AddPaths stages sources to be enumerated at commit time. A directory
// source is placed under its alias, which defaults to its base name.
func (b *Builder) AddPaths(paths ...config.Path) *Builder {
	b.sources = append(b.sources, paths...)
	return b
}

// AddBytes stages a file with the given content.
func (b *Builder) AddBytes(path string, content []byte, mode fs.FileMode) *Builder {
	b.added = append(b.added, staged{
		path:    NormalizePath(path),
		kind:    KindFile,
		mode:    mode.Perm(),
		content: bytes.Clone(content),
	})
	return b
}

// AddDirectory stages an empty directory entry.
func (b *Builder) AddDirectory(path string, mode fs.FileMode) *Builder {
	b.added = append(b.added, staged{path: NormalizePath(path), kind: KindDirectory, mode: mode.Perm()})
	return b
}

// RemovePath removes path and everything below it from the archive being
// amended, and drops bytes staged under it so far. Sources enumerated at
// commit time are added after removals.
func (b *Builder) RemovePath(path string) *Builder {
	p := NormalizePath(path)
	b.removals = append(b.removals, p)
	kept := b.added[:0]
	for _, s := range b.added {
		if s.path != p && !strings.HasPrefix(s.path, p+"/") {
			kept = append(kept, s)
		}
	}
	b.added = kept
	return b
}

// SetExclude sets gitignore-style patterns applied inside source
// directories.
func (b *Builder) SetExclude(patterns ...string) *Builder {
	b.exclude = append([]string(nil), patterns...)
	return b
}

// ApplyConfig stages everything the configuration describes: the stub
// (shebang line followed by the bootstrap script), compression, digest
// algorithm, entry point, exclude patterns and sources. An unset entry
// point removes the designation.
func (b *Builder) ApplyConfig() error {
	cfg := b.cfg

	var stub []byte
	if cfg.Shebang != "" {
		line := strings.TrimRight(cfg.Shebang, "\r\n")
		if !strings.HasPrefix(line, "#!") {
			line = "#!" + line
		}
		stub = append(stub, line...)
		stub = append(stub, '\n')
	}
	if cfg.Bootstrap != "" {
		data, err := os.ReadFile(cfg.Resolve(cfg.Bootstrap))
		if err != nil {
			return configError("bootstrap: %w", err)
		}
		stub = append(stub, data...)
	}
	b.SetBootstrap(stub)

	c, err := ParseCompression(cfg.Compression)
	if err != nil {
		return configError("%w", err)
	}
	alg, err := ParseDigestAlgorithm(cfg.Digest)
	if err != nil {
		return configError("%w", err)
	}
	b.SetCompression(c).SetDigestAlgorithm(alg).SetEntryPoint(cfg.Main)
	b.SetExclude(cfg.Exclude...)
	for _, p := range cfg.Paths {
		b.AddPaths(config.Path{Source: cfg.Resolve(p.Source), Alias: p.Alias})
	}
	return nil
}

// RegisterPlugins lets each plugin subscribe to the builder's events.
// A failing registration returns ErrConfiguration.
func (b *Builder) RegisterPlugins(plugins ...Plugin) error {
	for _, p := range plugins {
		if err := p.Register(b.dispatcher, b.cfg, b.base); err != nil {
			return configError("register plugin: %w", err)
		}
	}
	return nil
}
