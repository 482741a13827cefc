// Package event implements the build extension pipeline: typed lifecycle
// events dispatched synchronously to subscribers in registration order.
//
// Each event is a pointer struct. Exported fields may be changed by
// subscribers and the builder reads them back after dispatch; everything
// else is exposed through read-only accessors.
package event

import (
	"fmt"
	"slices"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/stow/config"
)

// Point names a lifecycle point.
type Point string

// Lifecycle points in dispatch order.
const (
	PointBeforeSetPaths Point = "before-set-paths"
	PointAddFile        Point = "add-file"
	PointBeforeCommit   Point = "before-commit"
	PointAfterCommit    Point = "after-commit"
)

// Event is implemented by every event type.
type Event interface {
	Point() Point
}

// BeforeSetPaths is dispatched before build sources are enumerated.
// Subscribers may add, remove or rewrite Sources.
type BeforeSetPaths struct {
	Sources []config.Path
}

// NewBeforeSetPaths returns an event holding a copy of sources.
func NewBeforeSetPaths(sources []config.Path) *BeforeSetPaths {
	return &BeforeSetPaths{Sources: slices.Clone(sources)}
}

// Point returns PointBeforeSetPaths.
func (*BeforeSetPaths) Point() Point { return PointBeforeSetPaths }

// AddFile is dispatched for every file staged by a commit, before it is
// compressed. Subscribers may replace Content.
type AddFile struct {
	path string

	// Content is the file content that will be stored.
	Content []byte
}

// NewAddFile returns an event for the file at archive path.
func NewAddFile(path string, content []byte) *AddFile {
	return &AddFile{path: path, Content: content}
}

// Point returns PointAddFile.
func (*AddFile) Point() Point { return PointAddFile }

// Path returns the archive path of the file.
func (e *AddFile) Path() string { return e.path }

// BeforeCommit is dispatched after all staged files were processed and
// before anything is written. A subscriber error vetoes the commit.
type BeforeCommit struct {
	destination string
	paths       []string
}

// NewBeforeCommit returns an event for a commit to destination that stages
// paths.
func NewBeforeCommit(destination string, paths []string) *BeforeCommit {
	return &BeforeCommit{destination: destination, paths: paths}
}

// Point returns PointBeforeCommit.
func (*BeforeCommit) Point() Point { return PointBeforeCommit }

// Destination returns the archive file about to be written.
func (e *BeforeCommit) Destination() string { return e.destination }

// Paths returns the archive paths staged by this commit.
func (e *BeforeCommit) Paths() []string { return slices.Clone(e.paths) }

// AfterCommit is dispatched once the archive has been renamed into place.
type AfterCommit struct {
	destination string
	checksum    digest.Digest
	entries     int
}

// NewAfterCommit returns an event for a completed commit.
func NewAfterCommit(destination string, checksum digest.Digest, entries int) *AfterCommit {
	return &AfterCommit{destination: destination, checksum: checksum, entries: entries}
}

// Point returns PointAfterCommit.
func (*AfterCommit) Point() Point { return PointAfterCommit }

// Destination returns the committed archive file.
func (e *AfterCommit) Destination() string { return e.destination }

// Checksum returns the trailer digest of the committed archive.
func (e *AfterCommit) Checksum() digest.Digest { return e.checksum }

// Entries returns the number of entries in the committed archive.
func (e *AfterCommit) Entries() int { return e.entries }

// PointError wraps a subscriber failure with the point it happened at.
type PointError struct {
	Point Point
	Err   error
}

func (e *PointError) Error() string {
	return fmt.Sprintf("%s: %v", e.Point, e.Err)
}

// Unwrap returns the subscriber error.
func (e *PointError) Unwrap() error {
	return e.Err
}
