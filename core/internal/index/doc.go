// Package index implements the archive path index.
//
// The index is an insertion-ordered mapping from normalized path to entry.
// Order is preserved so that serializing the same sequence of operations
// always yields the same bytes.
package index
