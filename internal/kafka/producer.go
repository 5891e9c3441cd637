package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"relentless-autoscout/internal/crawler"
	"relentless-autoscout/internal/models"
)

// Producer wraps a Kafka writer for one topic.
type Producer struct {
	writer crawler.MessageWriter
}

// NewProducer creates a Kafka producer for the given broker and topic.
func NewProducer(broker, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(broker),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: false,
		},
	}
}

// NewProducerWithWriter builds a producer using a custom writer (tests).
func NewProducerWithWriter(writer crawler.MessageWriter) *Producer {
	return &Producer{writer: writer}
}

// Close shuts down the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

func (p *Producer) write(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now().UTC(),
	}

	return p.writer.WriteMessages(ctx, msg)
}

// BatchProducer publishes the listing batches of one crawl session. Each
// batch becomes one message keyed by session so batches stay ordered within
// a partition.
type BatchProducer struct {
	producer  *Producer
	sessionID string
	sequence  atomic.Int64
}

// Batches returns a batch sink for sessionID.
func (p *Producer) Batches(sessionID string) *BatchProducer {
	return &BatchProducer{producer: p, sessionID: sessionID}
}

// PushBatch publishes one batch.
func (b *BatchProducer) PushBatch(ctx context.Context, listings []models.ListingRecord) error {
	seq := int(b.sequence.Add(1))
	batch := models.ListingBatch{
		SessionID: b.sessionID,
		Sequence:  seq,
		Listings:  listings,
		PushedAt:  time.Now().UTC(),
	}
	if err := b.producer.write(ctx, b.sessionID, batch); err != nil {
		return fmt.Errorf("publish batch %d: %w", seq, err)
	}
	return nil
}

// FailureProducer publishes dropped page requests to the dead-letter topic.
type FailureProducer struct {
	producer *Producer
}

// NewFailureProducer wraps a producer bound to the DLQ topic.
func NewFailureProducer(p *Producer) *FailureProducer {
	return &FailureProducer{producer: p}
}

// ReportFailure publishes one CrawlFailure keyed by session.
func (f *FailureProducer) ReportFailure(ctx context.Context, failure models.CrawlFailure) error {
	return f.producer.write(ctx, failure.SessionID, failure)
}
