package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/segmentio/kafka-go"

	"relentless-autoscout/common"
	"relentless-autoscout/internal/postgres"
	"relentless-autoscout/internal/store"
)

type check struct {
	name string
	run  func(ctx context.Context) (string, error)
}

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if failed := runChecks(ctx, checksFromEnv(), os.Stdout, os.Stderr); failed > 0 {
		os.Exit(1)
	}
}

// checksFromEnv returns a check per configured backend. Kafka is always
// checked; Postgres and Redis only when their address is set.
func checksFromEnv() []check {
	broker := common.GetEnv("KAFKA_BROKER", "localhost:9092")
	checks := []check{{name: "kafka", run: func(ctx context.Context) (string, error) { return checkKafka(ctx, broker) }}}

	if dsn := common.GetEnv("DATABASE_URL", ""); dsn != "" {
		checks = append(checks, check{name: "postgres", run: func(ctx context.Context) (string, error) { return checkPostgres(ctx, dsn) }})
	}
	if addr := common.GetEnv("REDIS_ADDR", ""); addr != "" {
		checks = append(checks, check{name: "redis", run: func(ctx context.Context) (string, error) { return checkRedis(ctx, addr) }})
	}
	return checks
}

// runChecks runs every check and returns the number that failed.
func runChecks(ctx context.Context, checks []check, stdout, stderr io.Writer) int {
	failed := 0
	for _, c := range checks {
		detail, err := c.run(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", c.name, err)
			failed++
			continue
		}
		fmt.Fprintf(stdout, "%s: %s\n", c.name, detail)
	}
	return failed
}

func checkKafka(ctx context.Context, broker string) (string, error) {
	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		return "", fmt.Errorf("failed to connect to Kafka at %s: %w", broker, err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return "", fmt.Errorf("failed to read metadata: %w", err)
	}
	return fmt.Sprintf("connected to Kafka at %s (%d partitions)", broker, len(partitions)), nil
}

func checkPostgres(ctx context.Context, dsn string) (string, error) {
	w, err := postgres.NewListingWriter(ctx, dsn)
	if err != nil {
		return "", err
	}
	defer w.Close()
	if err := w.Ping(ctx); err != nil {
		return "", fmt.Errorf("failed to ping Postgres: %w", err)
	}
	return "connected to Postgres", nil
}

func checkRedis(ctx context.Context, addr string) (string, error) {
	s := store.NewRedisStatusStore(addr, store.DefaultStatusPrefix, time.Minute)
	defer s.Close()
	if err := s.Ping(ctx); err != nil {
		return "", fmt.Errorf("failed to ping Redis at %s: %w", addr, err)
	}
	return fmt.Sprintf("connected to Redis at %s", addr), nil
}
