// Package sink combines listing sinks.
package sink

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"relentless-autoscout/internal/accumulator"
	"relentless-autoscout/internal/models"
)

// Named pairs a sink with a label used in error messages.
type Named struct {
	Name string
	Sink accumulator.Sink
}

// Multi pushes every batch to each of its sinks in order.
type Multi struct {
	sinks []Named
}

// NewMulti returns a fan-out sink.
func NewMulti(sinks ...Named) *Multi {
	return &Multi{sinks: sinks}
}

// PushBatch delivers batch to every sink. All sinks are attempted; the
// returned error joins every failure.
func (m *Multi) PushBatch(ctx context.Context, batch []models.ListingRecord) error {
	var err error
	for _, s := range m.sinks {
		if perr := s.Sink.PushBatch(ctx, batch); perr != nil {
			err = multierror.Append(err, fmt.Errorf("%s: %w", s.Name, perr))
		}
	}
	return err
}
