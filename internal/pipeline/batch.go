package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of files processed at once when no
// WithConcurrency option is given.
const DefaultConcurrency = 4

// BatchProcessor applies one operation to many files concurrently.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: per-file failures are collected, not returned to the
// errgroup, so one unreadable file never cancels the rest of the batch.
// Only context cancellation stops a batch early.
type BatchProcessor struct {
	// concurrency is the maximum number of files processed at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of files processed at once.
// Values below one are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ItemFunc processes the item at index.
type ItemFunc func(ctx context.Context, index int, item string) error

// ProcessBatch calls fn for every item with at most the configured number
// of calls in flight.
//
// The returned slice holds fn's error for each item at the item's index,
// nil on success. The second return value is non-nil only when ctx was
// cancelled; items not started by then have ctx's error recorded.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, items []string, fn ItemFunc) ([]error, error) {
	errs := make([]error, len(items))
	err := bp.ProcessBatchWithCallback(ctx, items, fn, func(index int, err error) {
		// Each index is written by exactly one goroutine.
		errs[index] = err
	})
	return errs, err
}

// ProcessBatchWithCallback calls fn for every item and reports each
// outcome to callback as soon as it is known.
//
// The callback is called from the goroutine that processed the item, so
// it must be safe for concurrent use if it touches shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	items []string,
	fn ItemFunc,
	callback func(index int, err error),
) error {
	bp.logger.Debug("starting batch processing",
		"total_items", len(items),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, item := range items {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				callback(i, ctx.Err())
				return ctx.Err()
			default:
			}

			err := fn(ctx, i, item)
			callback(i, err)
			if err != nil {
				bp.logger.Debug("item failed",
					"item", item,
					"error", err,
				)
			}
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Debug("batch processing complete",
		"total_items", len(items),
		"elapsed", time.Since(startTime),
	)

	return err
}
