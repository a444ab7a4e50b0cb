// Package apply writes a dirty set back to the table one item at a time.
// Writes are not transactional across items, so every failure reports how
// many items were already durably written.
package apply

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/dynarename/internal/dynamo"
	"github.com/conduit-lang/dynarename/internal/journal"
	"github.com/conduit-lang/dynarename/internal/rewrite"
	"github.com/conduit-lang/dynarename/internal/tracking"
)

// Writer performs one conditional write
type Writer interface {
	Put(ctx context.Context, original, mutated rewrite.Item) error
}

// Recorder stores applied writes
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// ErrNotJournaled marks a write that reached the table but could not be recorded
var ErrNotJournaled = errors.New("item written but not journaled")

// PartialError reports a run that stopped after Applied successful writes
type PartialError struct {
	Applied int
	Err     error
}

// Error implements the error interface
func (e *PartialError) Error() string {
	if dynamo.IsConflict(e.Err) {
		return fmt.Sprintf("after %d successfully updated item(s), concurrent modification detected. retry if desired.", e.Applied)
	}
	if errors.Is(e.Err, ErrNotJournaled) {
		return fmt.Sprintf("after %d successfully updated item(s), %v", e.Applied, e.Err)
	}
	return fmt.Sprintf("after %d successfully updated item(s), error putting item: %v", e.Applied, e.Err)
}

// Unwrap returns the failure that stopped the run
func (e *PartialError) Unwrap() error {
	return e.Err
}

// AppliedCount extracts the number of durable writes from an Apply error
func AppliedCount(err error) (int, bool) {
	var pe *PartialError
	if errors.As(err, &pe) {
		return pe.Applied, true
	}
	return 0, false
}

// Runner applies changes sequentially
type Runner struct {
	writer   Writer
	recorder Recorder
	runID    string
	table    string
	keyFunc  func(rewrite.Item) string
	progress func(applied, total int)
	logger   *zap.Logger
}

// Config holds configuration for a Runner
type Config struct {
	// Recorder, if set, receives every successful write
	Recorder Recorder
	// RunID and Table label recorded entries
	RunID string
	Table string
	// KeyFunc renders an item's identity for the recorder
	KeyFunc func(rewrite.Item) string
	// Progress, if set, is called after every successful write
	Progress func(applied, total int)
	Logger   *zap.Logger
}

// NewRunner creates a new Runner
func NewRunner(writer Writer, config Config) *Runner {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = func(item rewrite.Item) string { return dynamo.KeyString(item, nil) }
	}
	return &Runner{
		writer:   writer,
		recorder: config.Recorder,
		runID:    config.RunID,
		table:    config.Table,
		keyFunc:  keyFunc,
		progress: config.Progress,
		logger:   logger,
	}
}

// Apply writes every change in order and stops at the first failure.
// It returns the number of items written; on failure the error is a
// *PartialError carrying the same count.
func (r *Runner) Apply(ctx context.Context, changes []tracking.Change) (int, error) {
	start := time.Now()
	applied := 0

	for i, change := range changes {
		if err := r.writer.Put(ctx, change.Original, change.Mutated); err != nil {
			r.logger.Warn("write failed",
				zap.Int("index", i),
				zap.Int("applied", applied),
				zap.Bool("conflict", dynamo.IsConflict(err)),
				zap.Error(err),
			)
			return applied, &PartialError{Applied: applied, Err: err}
		}
		applied++

		if r.recorder != nil {
			entry := journal.Entry{
				RunID: r.runID,
				Table: r.table,
				Seq:   applied,
				Key:   r.keyFunc(change.Mutated),
			}
			if err := r.recorder.Record(ctx, entry); err != nil {
				// the put itself is durable and already counted
				return applied, &PartialError{Applied: applied, Err: fmt.Errorf("%w: %w", ErrNotJournaled, err)}
			}
		}

		if r.progress != nil {
			r.progress(applied, len(changes))
		}
		r.logger.Debug("item written", zap.Int("index", i), zap.Int("applied", applied))
	}

	r.logger.Info("writes applied",
		zap.Int("applied", applied),
		zap.Duration("took", time.Since(start)),
	)
	return applied, nil
}
