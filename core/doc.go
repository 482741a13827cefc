// Package stow implements a single-file archive container.
//
// An archive is one self-describing file:
//
//	[stub][marker]   optional bytes run by the host when the file is executed
//	[index]          path, kind, mode, sizes, compression and offset per entry
//	[content]        stored entry bytes in index order
//	[trailer]        digest over index and content
//
// A Container gives read access to an archive: entries are decompressed on
// first access and memoized. A Builder stages changes on top of a Container
// and commits them by writing a new archive to a temporary file and renaming
// it over the destination.
//
// Container implements fs.FS and related interfaces for stdlib
// compatibility.
package stow
