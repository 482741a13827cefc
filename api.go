package stow

import (
	stowcore "github.com/meigma/stow/core"
	"github.com/meigma/stow/core/remote"
)

// --- Re-exports from core ---

// Container provides read access to an archive.
type Container = stowcore.Container

// ContainerFile is a Container backed by an open file or a remote source.
type ContainerFile = stowcore.ContainerFile

// Builder stages changes to an archive and commits them atomically.
type Builder = stowcore.Builder

// Plugin subscribes to build events.
type Plugin = stowcore.Plugin

// PluginFunc adapts a function to the Plugin interface.
type PluginFunc = stowcore.PluginFunc

// Entry describes one item in the archive.
type Entry = stowcore.Entry

// Kind distinguishes file entries from directory entries.
type Kind = stowcore.Kind

// Compression identifies the compression applied to an entry.
type Compression = stowcore.Compression

// DigestAlgorithm identifies the trailer digest algorithm.
type DigestAlgorithm = stowcore.DigestAlgorithm

// ByteSource provides random access to an archive.
type ByteSource = stowcore.ByteSource

// Option configures a Container.
type Option = stowcore.Option

// BuilderOption configures a Builder.
type BuilderOption = stowcore.BuilderOption

// ExtractOption configures Container.Extract.
type ExtractOption = stowcore.ExtractOption

// ExtractStats reports the outcome of an extraction.
type ExtractStats = stowcore.ExtractStats

// SkipCompressionFunc returns true when a file should be stored uncompressed.
type SkipCompressionFunc = stowcore.SkipCompressionFunc

// ValidationError describes why a path failed validation.
type ValidationError = stowcore.ValidationError

// CollisionError reports a file path used as a directory.
type CollisionError = stowcore.CollisionError

// Kind constants.
const (
	KindFile      = stowcore.KindFile
	KindDirectory = stowcore.KindDirectory
)

// Compression constants.
const (
	CompressionNone  = stowcore.CompressionNone
	CompressionGzip  = stowcore.CompressionGzip
	CompressionBzip2 = stowcore.CompressionBzip2
	CompressionZstd  = stowcore.CompressionZstd
	CompressionLZ4   = stowcore.CompressionLZ4
)

// Digest algorithm constants.
const (
	DigestSHA256 = stowcore.DigestSHA256
	DigestBLAKE3 = stowcore.DigestBLAKE3
)

// PrimaryPath is the reserved entry naming the archive's entry point.
const PrimaryPath = stowcore.PrimaryPath

// Constructors and helpers re-exported from core.
var (
	Open                   = stowcore.Open
	OpenURL                = stowcore.OpenURL
	New                    = stowcore.New
	Decode                 = stowcore.Decode
	Empty                  = stowcore.Empty
	Verify                 = stowcore.Verify
	VerifyFile             = stowcore.VerifyFile
	VerifyURL              = stowcore.VerifyURL
	IsURL                  = remote.IsURL
	Create                 = stowcore.Create
	OpenBuilder            = stowcore.OpenBuilder
	NormalizePath          = stowcore.NormalizePath
	ParseCompression       = stowcore.ParseCompression
	ParseDigestAlgorithm   = stowcore.ParseDigestAlgorithm
	DefaultSkipCompression = stowcore.DefaultSkipCompression
)

// Container options re-exported from core.
var (
	WithContainerLogger = stowcore.WithLogger
	WithMaxEntrySize    = stowcore.WithMaxEntrySize
)

// Builder options re-exported from core.
var (
	WithBuilderLogger    = stowcore.WithBuilderLogger
	WithDestination      = stowcore.WithDestination
	WithDestinationLock  = stowcore.WithDestinationLock
	WithMaxSourceSize    = stowcore.WithMaxSourceSize
	WithSkipCompression  = stowcore.WithSkipCompression
	WithContainerOptions = stowcore.WithContainerOptions
)

// Extract options re-exported from core.
var (
	ExtractWithOverwrite    = stowcore.ExtractWithOverwrite
	ExtractWithPreserveMode = stowcore.ExtractWithPreserveMode
	ExtractWithWorkers      = stowcore.ExtractWithWorkers
	ExtractWithPrefix       = stowcore.ExtractWithPrefix
	ExtractWithReserved     = stowcore.ExtractWithReserved
)
