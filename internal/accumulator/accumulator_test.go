package accumulator_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/golang/mock/gomock"

	"relentless-autoscout/internal/accumulator"
	"relentless-autoscout/internal/models"
	"relentless-autoscout/mocks"
)

func listing(id string) models.ListingRecord {
	rec := models.ListingRecord{Currency: "EUR", URL: "https://www.autoscout24.com/offers/" + id}
	if id != "" {
		rec.ID = models.StringPtr(id)
	}
	return rec
}

func TestOfferRejectsDuplicateIDs(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	acc := accumulator.New(mocks.NewMockSink(ctrl), 10, 10)
	if !acc.Offer(listing("a1")) {
		t.Fatal("first offer must be accepted")
	}
	if acc.Offer(listing("a1")) {
		t.Fatal("duplicate offer must be rejected")
	}
	if acc.Emitted() != 1 || acc.Pending() != 1 {
		t.Fatalf("unexpected counters: emitted=%d pending=%d", acc.Emitted(), acc.Pending())
	}
}

func TestOfferAcceptsListingsWithoutID(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	acc := accumulator.New(mocks.NewMockSink(ctrl), 10, 10)
	for i := 0; i < 3; i++ {
		if !acc.Offer(listing("")) {
			t.Fatalf("offer %d without id must be accepted", i)
		}
	}
	if acc.Emitted() != 3 {
		t.Fatalf("expected 3 emitted, got %d", acc.Emitted())
	}
}

func TestOfferStopsAtTarget(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	acc := accumulator.New(mocks.NewMockSink(ctrl), 2, 10)
	acc.Offer(listing("a"))
	acc.Offer(listing("b"))
	if !acc.Reached() {
		t.Fatal("expected target reached")
	}
	if acc.Offer(listing("c")) {
		t.Fatal("offer past target must be rejected")
	}
	if acc.Emitted() != 2 {
		t.Fatalf("emitted must not exceed target, got %d", acc.Emitted())
	}
}

func TestFlushPushesFullBatchesOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	sink := mocks.NewMockSink(ctrl)
	var sizes []int
	sink.EXPECT().PushBatch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, batch []models.ListingRecord) error {
			sizes = append(sizes, len(batch))
			return nil
		}).Times(3)

	acc := accumulator.New(sink, 25, 10)
	for i := 0; i < 25; i++ {
		acc.Offer(listing(fmt.Sprintf("id-%d", i)))
		if err := acc.Flush(context.Background(), false); err != nil {
			t.Fatalf("Flush error: %v", err)
		}
	}
	if acc.Pending() != 5 {
		t.Fatalf("expected 5 pending before final flush, got %d", acc.Pending())
	}
	if err := acc.Flush(context.Background(), true); err != nil {
		t.Fatalf("forced Flush error: %v", err)
	}
	if len(sizes) != 3 || sizes[0] != 10 || sizes[1] != 10 || sizes[2] != 5 {
		t.Fatalf("unexpected batch sizes: %v", sizes)
	}
	if acc.Batches() != 3 || acc.Pending() != 0 {
		t.Fatalf("unexpected state: batches=%d pending=%d", acc.Batches(), acc.Pending())
	}
}

func TestForcedFlushWithNothingPending(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	acc := accumulator.New(mocks.NewMockSink(ctrl), 5, 10)
	if err := acc.Flush(context.Background(), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFlushKeepsPendingOnSinkError(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	sink := mocks.NewMockSink(ctrl)
	sink.EXPECT().PushBatch(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	acc := accumulator.New(sink, 5, 2)
	acc.Offer(listing("a"))
	acc.Offer(listing("b"))
	if err := acc.Flush(context.Background(), false); err == nil {
		t.Fatal("expected sink error")
	}
	if acc.Pending() != 2 || acc.Batches() != 0 {
		t.Fatalf("pending must survive a failed push: pending=%d batches=%d", acc.Pending(), acc.Batches())
	}
}

func TestNewClampsArguments(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	acc := accumulator.New(mocks.NewMockSink(ctrl), 0, 0)
	if acc.Target() != 1 {
		t.Fatalf("expected target floor of 1, got %d", acc.Target())
	}
}
