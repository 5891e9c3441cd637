package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	kgo "github.com/segmentio/kafka-go"

	rkafka "relentless-autoscout/internal/kafka"
	"relentless-autoscout/internal/models"
	"relentless-autoscout/mocks"
)

func TestBatchProducerPushBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	writer := mocks.NewMockMessageWriter(ctrl)
	batches := rkafka.NewProducerWithWriter(writer).Batches("session-123")

	listings := []models.ListingRecord{
		{ID: models.StringPtr("a1"), Currency: "EUR", URL: "https://www.autoscout24.com/offers/a1"},
		{ID: models.StringPtr("b2"), Currency: "EUR", URL: "https://www.autoscout24.com/offers/b2"},
	}

	var sequences []int
	writer.EXPECT().
		WriteMessages(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msgs ...kgo.Message) error {
			if len(msgs) != 1 {
				t.Fatalf("expected 1 message, got %d", len(msgs))
			}
			if string(msgs[0].Key) != "session-123" {
				t.Fatalf("unexpected message key: %s", string(msgs[0].Key))
			}

			var got models.ListingBatch
			if err := json.Unmarshal(msgs[0].Value, &got); err != nil {
				t.Fatalf("failed to decode message: %v", err)
			}
			if got.SessionID != "session-123" || len(got.Listings) != 2 || got.Listings[1].URL != listings[1].URL {
				t.Fatalf("unexpected batch payload: %+v", got)
			}
			sequences = append(sequences, got.Sequence)
			return nil
		}).Times(2)

	for i := 0; i < 2; i++ {
		if err := batches.PushBatch(context.Background(), listings); err != nil {
			t.Fatalf("PushBatch returned error: %v", err)
		}
	}
	if len(sequences) != 2 || sequences[0] != 1 || sequences[1] != 2 {
		t.Fatalf("unexpected sequences: %v", sequences)
	}
}

func TestBatchProducerPushBatchError(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	writer := mocks.NewMockMessageWriter(ctrl)
	batches := rkafka.NewProducerWithWriter(writer).Batches("session-err")

	writer.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).Return(errors.New("write failed"))
	if err := batches.PushBatch(context.Background(), nil); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestFailureProducerReportFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	writer := mocks.NewMockMessageWriter(ctrl)
	dlq := rkafka.NewFailureProducer(rkafka.NewProducerWithWriter(writer))

	failure := models.CrawlFailure{
		SessionID: "session-9",
		SeedURL:   "https://www.autoscout24.com/lst?cy=D",
		URL:       "https://www.autoscout24.com/lst?cy=D&page=3",
		Page:      3,
		Error:     "unexpected status 503",
		FailedAt:  time.Unix(0, 0).UTC(),
	}

	var got models.CrawlFailure
	writer.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, msgs ...kgo.Message) error {
			if len(msgs) != 1 {
				t.Fatalf("expected 1 message, got %d", len(msgs))
			}
			if err := json.Unmarshal(msgs[0].Value, &got); err != nil {
				t.Fatalf("failed to decode failure: %v", err)
			}
			return nil
		},
	).Times(1)

	if err := dlq.ReportFailure(context.Background(), failure); err != nil {
		t.Fatalf("ReportFailure returned error: %v", err)
	}
	if got.SessionID != failure.SessionID || got.URL != failure.URL || got.Page != 3 || got.Error == "" {
		t.Fatalf("unexpected failure payload: %+v", got)
	}
}

func TestProducerClose(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	writer := mocks.NewMockMessageWriter(ctrl)
	writer.EXPECT().Close().Return(nil)
	if err := rkafka.NewProducerWithWriter(writer).Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}
