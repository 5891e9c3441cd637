// Package bootstrap wires the runtime configuration into a crawl runner.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"relentless-autoscout/internal/accumulator"
	"relentless-autoscout/internal/config"
	"relentless-autoscout/internal/frontier"
	"relentless-autoscout/internal/kafka"
	"relentless-autoscout/internal/postgres"
	"relentless-autoscout/internal/runner"
	"relentless-autoscout/internal/sink"
	"relentless-autoscout/internal/store"
	"relentless-autoscout/internal/transport"
)

// Deps holds the runner and the clients it depends on.
type Deps struct {
	Runner *runner.Runner

	closers []func() error
	logger  *logrus.Entry
}

// Close releases every client in reverse order of creation.
func (d *Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.logger.WithError(err).Warn("close failed")
		}
	}
}

// Build connects the configured sinks, the status store and the dead-letter
// producer. Clients created before a failure are closed.
func Build(ctx context.Context, rt config.Runtime, logger *logrus.Entry) (*Deps, error) {
	d := &Deps{logger: logger}

	var (
		producer *kafka.Producer
		failures frontier.FailureReporter
		writer   *postgres.ListingWriter
	)

	if rt.HasSink(config.SinkKafka) {
		producer = kafka.NewProducer(rt.KafkaBroker, rt.ListingsTopic)
		d.closers = append(d.closers, producer.Close)

		dlq := kafka.NewProducer(rt.KafkaBroker, rt.DLQTopic)
		d.closers = append(d.closers, dlq.Close)
		failures = kafka.NewFailureProducer(dlq)
	}

	if rt.HasSink(config.SinkPostgres) {
		w, err := postgres.NewListingWriter(ctx, rt.DatabaseURL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		d.closers = append(d.closers, func() error { w.Close(); return nil })
		if err := w.EnsureSchema(ctx); err != nil {
			d.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		writer = w
	}

	var statusStore store.StatusStore = store.NewMemoryStatusStore()
	if rt.RedisAddr != "" {
		redisStore := store.NewRedisStatusStore(rt.RedisAddr, store.DefaultStatusPrefix, rt.StatusTTL)
		d.closers = append(d.closers, redisStore.Close)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisStore.Ping(pingCtx); err != nil {
			logger.WithError(err).WithField("addr", rt.RedisAddr).Warn("redis not reachable; status updates may fail")
		}
		cancel()
		statusStore = redisStore
	}

	r, err := runner.New(runner.Config{
		NewFetcher:  FetcherFactory(rt, logger),
		NewSink:     sinkFactory(producer, writer),
		Failures:    failures,
		Status:      statusStore,
		Concurrency: rt.Concurrency,
		BatchSize:   rt.BatchSize,
		Logger:      logger,
	})
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Runner = r
	return d, nil
}

// FetcherFactory builds one transport client per crawl. Proxies from the
// input win over PROXY_URL, which wins over PROXY_POOL.
func FetcherFactory(rt config.Runtime, logger *logrus.Entry) runner.FetcherFactory {
	return func(in config.CrawlInput) (frontier.Fetcher, error) {
		proxies := transport.ResolveProxies(in.ProxyURLs(), rt.ProxyURL, rt.ProxyPool, os.Getenv("HOSTNAME"))
		if len(proxies) > 0 {
			logger.WithField("proxies", len(proxies)).Info("using proxies")
		}
		return transport.NewClient(transport.Options{
			Timeout:           rt.RequestTimeout,
			RetryMax:          rt.RetryMax,
			RetryBaseDelay:    rt.RetryBaseDelay,
			RetryMaxDelay:     rt.RetryMaxDelay,
			RequestsPerSecond: rt.RequestsPerSecond,
			SessionPoolSize:   rt.SessionPoolSize,
			Proxies:           proxies,
			RespectRobots:     rt.RespectRobotsTxt,
			Logger:            logger,
		})
	}
}

func sinkFactory(producer *kafka.Producer, writer *postgres.ListingWriter) runner.SinkFactory {
	return func(sessionID string) accumulator.Sink {
		var sinks []sink.Named
		if producer != nil {
			sinks = append(sinks, sink.Named{Name: config.SinkKafka, Sink: producer.Batches(sessionID)})
		}
		if writer != nil {
			sinks = append(sinks, sink.Named{Name: config.SinkPostgres, Sink: writer.ForSession(sessionID)})
		}
		return sink.NewMulti(sinks...)
	}
}
