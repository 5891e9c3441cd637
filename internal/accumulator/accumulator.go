// Package accumulator deduplicates extracted listings and hands them to a
// sink in fixed-size batches until a target count is reached.
package accumulator

import (
	"context"
	"fmt"

	"relentless-autoscout/internal/models"
)

// Sink is the external consumer of listing batches.
type Sink interface {
	PushBatch(ctx context.Context, batch []models.ListingRecord) error
}

// Accumulator is the per-crawl dedup and batching state. It is not safe for
// concurrent use; a single goroutine owns it for the lifetime of a crawl.
type Accumulator struct {
	sink      Sink
	target    int
	batchSize int

	seen    map[string]struct{}
	pending []models.ListingRecord
	emitted int
	batches int
}

// New creates an accumulator that accepts at most target records and pushes
// them in batches of batchSize.
func New(sink Sink, target, batchSize int) *Accumulator {
	if target < 1 {
		target = 1
	}
	if batchSize < 1 {
		batchSize = 1
	}
	return &Accumulator{
		sink:      sink,
		target:    target,
		batchSize: batchSize,
		seen:      make(map[string]struct{}),
	}
}

// Offer accepts rec unless its identifier was seen before or the target is
// already met. Records without an identifier are always accepted.
func (a *Accumulator) Offer(rec models.ListingRecord) bool {
	if a.Reached() {
		return false
	}
	if rec.ID != nil {
		if _, dup := a.seen[*rec.ID]; dup {
			return false
		}
		a.seen[*rec.ID] = struct{}{}
	}
	a.pending = append(a.pending, rec)
	a.emitted++
	return true
}

// Flush pushes pending records when a full batch is waiting, or when force is
// set and anything is pending. The pending buffer is cleared only after the
// sink accepts the batch.
func (a *Accumulator) Flush(ctx context.Context, force bool) error {
	if len(a.pending) == 0 {
		return nil
	}
	if len(a.pending) < a.batchSize && !force {
		return nil
	}
	batch := a.pending
	if err := a.sink.PushBatch(ctx, batch); err != nil {
		return fmt.Errorf("push batch of %d listings: %w", len(batch), err)
	}
	a.pending = nil
	a.batches++
	return nil
}

// Emitted is the number of accepted records, pushed or pending.
func (a *Accumulator) Emitted() int { return a.emitted }

// Reached reports whether the target count has been accepted.
func (a *Accumulator) Reached() bool { return a.emitted >= a.target }

// Target returns the configured target count.
func (a *Accumulator) Target() int { return a.target }

// Pending is the number of accepted records not yet pushed.
func (a *Accumulator) Pending() int { return len(a.pending) }

// Batches is the number of batches the sink accepted.
func (a *Accumulator) Batches() int { return a.batches }
