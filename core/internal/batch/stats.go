package batch

// ProcessStats contains statistics from a batch processing operation.
type ProcessStats struct {
	// Files is the number of file entries written to the sink.
	Files int

	// Directories is the number of directory entries materialized.
	Directories int

	// Skipped is the number of entries skipped (ShouldProcess returned false).
	Skipped int

	// TotalBytes is the sum of OriginalSize for all written files.
	TotalBytes uint64
}
