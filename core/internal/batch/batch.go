// Package batch writes archive entries to a sink with a bounded pool of
// workers.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ContentFunc returns the decompressed content of a file entry.
type ContentFunc func(ctx context.Context, entry *Entry) ([]byte, error)

// Processor fans file entries out to workers that fetch their content and
// write it to a sink.
type Processor struct {
	content ContentFunc
	workers int // 0 = GOMAXPROCS, <0 = serial, >0 = fixed count
	logger  *slog.Logger
}

// log returns the logger, falling back to a discard logger if nil.
func (p *Processor) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithWorkers sets the number of concurrent workers.
// Values < 0 force serial processing. Zero uses GOMAXPROCS.
func WithWorkers(n int) ProcessorOption {
	return func(p *Processor) {
		p.workers = n
	}
}

// WithProcessorLogger sets the logger for batch processing operations.
// If not set, logging is disabled.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor creates a processor that reads file content through content.
func NewProcessor(content ContentFunc, opts ...ProcessorOption) *Processor {
	p := &Processor{content: content}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Processor) limit() int {
	switch {
	case p.workers < 0:
		return 1
	case p.workers == 0:
		return runtime.GOMAXPROCS(0)
	default:
		return p.workers
	}
}

// Process writes entries to sink.
//
// Directory entries are materialized first, in order. File entries are then
// written concurrently. Processing stops at the first error and cancels the
// remaining work.
func (p *Processor) Process(ctx context.Context, entries []*Entry, sink Sink) (ProcessStats, error) {
	var stats ProcessStats
	files := make([]*Entry, 0, len(entries))
	for _, entry := range entries {
		if !sink.ShouldProcess(entry) {
			stats.Skipped++
			continue
		}
		if entry.IsDir() {
			if err := sink.Mkdir(entry); err != nil {
				return stats, fmt.Errorf("batch: %s: %w", entry.Path, err)
			}
			stats.Directories++
			continue
		}
		files = append(files, entry)
	}
	if len(files) == 0 {
		return stats, nil
	}

	workers := min(p.limit(), len(files))
	p.log().Debug("batch processing", "files", len(files), "workers", workers)

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, entry := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := p.processFile(ctx, entry, sink); err != nil {
				return fmt.Errorf("batch: %s: %w", entry.Path, err)
			}
			mu.Lock()
			stats.Files++
			stats.TotalBytes += entry.OriginalSize
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	return stats, err
}

func (p *Processor) processFile(ctx context.Context, entry *Entry, sink Sink) error {
	content, err := p.content(ctx, entry)
	if err != nil {
		return err
	}
	w, err := sink.Writer(entry)
	if err != nil {
		return err
	}
	if _, err := w.Write(content); err != nil {
		_ = w.Discard() //nolint:errcheck // best-effort cleanup
		return err
	}
	if err := w.Commit(); err != nil {
		return err
	}
	p.log().Debug("wrote file", "path", entry.Path, "size", len(content))
	return nil
}
