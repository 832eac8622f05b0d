// Package batch provides a bounded-chunk transactional processor with
// skip-limit and retry fault tolerance.
package batch

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yachaerang/pricebatch/pkg/observability"
)

var (
	// ErrSkipLimitExceeded is returned when a step accumulates more record
	// failures than its skip budget allows
	ErrSkipLimitExceeded = errors.New("skip limit exceeded")
)

// FaultPolicy bounds how much failure a step tolerates before giving up.
type FaultPolicy struct {
	// SkipLimit is the maximum number of record-level failures tolerated
	// before the step itself fails.
	SkipLimit int
	// RetryLimit is the number of times a retryable chunk commit is retried.
	RetryLimit int
	// Retryable reports whether an error is transient. Nil means nothing
	// is retried.
	Retryable func(error) bool
	// RetryBackoff is the pause between commit retries.
	RetryBackoff time.Duration
}

func (p FaultPolicy) retryable(err error) bool {
	return p.Retryable != nil && p.Retryable(err)
}

// Sink commits a chunk of records. Implementations are expected to make
// the whole chunk atomic (one transaction per call).
type Sink[T any] interface {
	Write(ctx context.Context, records []T) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc[T any] func(ctx context.Context, records []T) error

// Write calls f.
func (f SinkFunc[T]) Write(ctx context.Context, records []T) error {
	return f(ctx, records)
}

// Summary reports what a processor run did.
type Summary struct {
	// Read is the number of inputs consumed.
	Read int
	// Written is the number of records committed.
	Written int
	// Skipped is the number of record-level failures absorbed by the
	// skip budget.
	Skipped int
	// Filtered is the number of inputs the transform dropped without
	// error (duplicates, unresolved references). Never counts against
	// the skip budget.
	Filtered int
}

// Processor drives inputs through a transform into chunked sink commits.
// I is the input record type, O the persisted record type.
type Processor[I, O any] struct {
	log       logrus.FieldLogger
	step      string
	chunkSize int
	transform func(ctx context.Context, input I) (O, bool, error)
	sink      Sink[O]
	policy    FaultPolicy
}

// NewProcessor creates a chunked processor. The step names the pipeline
// stage in logs and metrics. The transform returns the output record,
// whether to keep it, and a record-level error; errors count against the
// skip budget, keep=false does not.
func NewProcessor[I, O any](
	log logrus.FieldLogger,
	step string,
	chunkSize int,
	transform func(ctx context.Context, input I) (O, bool, error),
	sink Sink[O],
	policy FaultPolicy,
) *Processor[I, O] {
	if policy.RetryBackoff <= 0 {
		policy.RetryBackoff = 100 * time.Millisecond
	}

	return &Processor[I, O]{
		log:       log.WithField("step", step),
		step:      step,
		chunkSize: chunkSize,
		transform: transform,
		sink:      sink,
		policy:    policy,
	}
}

// Run consumes the input sequence to completion or to the first
// step-level failure. Chunks committed before a failure stay committed.
func (p *Processor[I, O]) Run(ctx context.Context, inputs iter.Seq[I]) (Summary, error) {
	var summary Summary

	chunk := make([]O, 0, p.chunkSize)

	for input := range inputs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		summary.Read++

		record, keep, err := p.transform(ctx, input)
		if err != nil {
			if failErr := p.recordFailure(&summary, err); failErr != nil {
				return summary, failErr
			}

			continue
		}

		if !keep {
			summary.Filtered++

			continue
		}

		chunk = append(chunk, record)
		if len(chunk) >= p.chunkSize {
			if err := p.commit(ctx, &summary, chunk); err != nil {
				return summary, err
			}

			chunk = chunk[:0]
		}
	}

	if len(chunk) > 0 {
		if err := p.commit(ctx, &summary, chunk); err != nil {
			return summary, err
		}
	}

	return summary, nil
}

func (p *Processor[I, O]) recordFailure(summary *Summary, err error) error {
	summary.Skipped++
	p.log.WithError(err).WithField("skipped", summary.Skipped).Warn("Skipping failed record")

	if summary.Skipped > p.policy.SkipLimit {
		return fmt.Errorf("%w: %d failures with limit %d, last: %s",
			ErrSkipLimitExceeded, summary.Skipped, p.policy.SkipLimit, err.Error())
	}

	return nil
}

// commit writes one chunk, retrying transient failures. When retries are
// exhausted the chunk degrades to per-record writes so that one poisoned
// record costs one skip instead of the whole chunk.
func (p *Processor[I, O]) commit(ctx context.Context, summary *Summary, chunk []O) error {
	err := p.writeWithRetry(ctx, chunk)
	if err == nil {
		summary.Written += len(chunk)
		observability.ChunkCommitsTotal.WithLabelValues(p.step, "success").Inc()

		return nil
	}

	observability.ChunkCommitsTotal.WithLabelValues(p.step, "failed").Inc()

	if !p.policy.retryable(err) {
		return fmt.Errorf("chunk commit failed: %w", err)
	}

	p.log.WithError(err).WithField("chunk_size", len(chunk)).
		Warn("Chunk commit exhausted retries, degrading to per-record writes")

	for _, record := range chunk {
		if writeErr := p.sink.Write(ctx, []O{record}); writeErr != nil {
			if failErr := p.recordFailure(summary, writeErr); failErr != nil {
				return failErr
			}

			continue
		}

		summary.Written++
	}

	return nil
}

func (p *Processor[I, O]) writeWithRetry(ctx context.Context, chunk []O) error {
	var err error

	for attempt := 0; attempt <= p.policy.RetryLimit; attempt++ {
		if attempt > 0 {
			observability.ChunkCommitsTotal.WithLabelValues(p.step, "retried").Inc()

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.policy.RetryBackoff):
			}
		}

		err = p.sink.Write(ctx, chunk)
		if err == nil {
			return nil
		}

		if !p.policy.retryable(err) {
			return err
		}

		p.log.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"retries": p.policy.RetryLimit,
		}).Warn("Retrying chunk commit")
	}

	return err
}

// Slice adapts a slice to the iter.Seq consumed by Run.
func Slice[T any](items []T) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, item := range items {
			if !yield(item) {
				return
			}
		}
	}
}
