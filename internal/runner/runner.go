// Package runner turns a crawl input into a finished crawl: it derives the
// seeds, builds a controller and keeps the session status current.
package runner

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"relentless-autoscout/internal/accumulator"
	"relentless-autoscout/internal/config"
	"relentless-autoscout/internal/frontier"
	"relentless-autoscout/internal/metrics"
	"relentless-autoscout/internal/models"
	"relentless-autoscout/internal/store"
)

// FetcherFactory builds the page fetcher for one crawl input.
type FetcherFactory func(in config.CrawlInput) (frontier.Fetcher, error)

// SinkFactory builds the batch sink for one crawl session.
type SinkFactory func(sessionID string) accumulator.Sink

// Config defines the configuration for a Runner.
type Config struct {
	NewFetcher FetcherFactory
	NewSink    SinkFactory

	// Optional dead-letter reporter for failed page requests.
	Failures frontier.FailureReporter

	// Status store. If not defined statuses are kept in memory.
	Status store.StatusStore

	Concurrency int
	BatchSize   int

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (config *Config) validate() error {
	var err error

	if config.NewFetcher == nil {
		err = multierror.Append(err, fmt.Errorf("fetcher factory not provided"))
	}

	if config.NewSink == nil {
		err = multierror.Append(err, fmt.Errorf("sink factory not provided"))
	}

	if config.Status == nil {
		config.Status = store.NewMemoryStatusStore()
	}

	if config.Logger == nil {
		config.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}

	return err
}

// Runner executes crawl sessions.
type Runner struct {
	cfg Config
}

// New validates cfg and returns a Runner.
func New(cfg Config) (*Runner, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("runner config validation failed: %w", err)
	}
	return &Runner{cfg: cfg}, nil
}

// NewSessionID returns a fresh crawl session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// Status returns the stored status of a session.
func (r *Runner) Status(ctx context.Context, sessionID string) (models.CrawlStatus, bool, error) {
	return r.cfg.Status.GetStatus(ctx, sessionID)
}

// Queue records a queued status for a session that will run later.
func (r *Runner) Queue(ctx context.Context, sessionID string, in config.CrawlInput) models.CrawlStatus {
	now := time.Now().UTC()
	status := models.CrawlStatus{
		SessionID: sessionID,
		SeedURLs:  in.Seeds(),
		Status:    models.StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.setStatus(ctx, status)
	return status
}

// Run executes one crawl. Partial results are not an error: only a fetcher
// that cannot be built or a sink that rejects a batch fails the run.
func (r *Runner) Run(ctx context.Context, sessionID string, in config.CrawlInput) (frontier.Summary, error) {
	defer metrics.TrackCrawl()()

	seeds := in.Seeds()
	logger := r.cfg.Logger.WithField("session_id", sessionID)
	logger.WithFields(logrus.Fields{
		"seeds":          len(seeds),
		"results_wanted": in.TargetCount(),
		"max_pages":      in.PageCap(),
	}).Info("crawl starting")
	if in.CollectDetails {
		logger.Warn("collectDetails is not supported; listing pages only")
	}

	status, found, err := r.cfg.Status.GetStatus(ctx, sessionID)
	if err != nil || !found {
		status = models.CrawlStatus{SessionID: sessionID, CreatedAt: time.Now().UTC()}
	}
	status.SeedURLs = seeds
	status.Status = models.StatusRunning
	status.UpdatedAt = time.Now().UTC()
	r.setStatus(ctx, status)

	summary, runErr := r.crawl(ctx, sessionID, in, seeds, logger)

	status.Emitted = summary.Emitted
	status.PagesFetched = summary.PagesFetched
	status.PagesFailed = summary.PagesFailed
	status.UpdatedAt = time.Now().UTC()
	status.Status = models.StatusDone
	if runErr != nil {
		status.Status = models.StatusFailed
		status.Error = runErr.Error()
	}
	r.setStatus(context.WithoutCancel(ctx), status)
	return summary, runErr
}

func (r *Runner) crawl(ctx context.Context, sessionID string, in config.CrawlInput, seeds []string, logger *logrus.Entry) (frontier.Summary, error) {
	fetcher, err := r.cfg.NewFetcher(in)
	if err != nil {
		return frontier.Summary{}, fmt.Errorf("build fetcher: %w", err)
	}
	controller, err := frontier.New(frontier.Config{
		Fetcher:     fetcher,
		Sink:        r.cfg.NewSink(sessionID),
		Failures:    r.cfg.Failures,
		Concurrency: r.cfg.Concurrency,
		TargetCount: in.TargetCount(),
		PageCap:     in.PageCap(),
		BatchSize:   r.cfg.BatchSize,
		SessionID:   sessionID,
		Logger:      logger,
	})
	if err != nil {
		return frontier.Summary{}, err
	}
	return controller.Run(ctx, seeds)
}

func (r *Runner) setStatus(ctx context.Context, status models.CrawlStatus) {
	if err := r.cfg.Status.SetStatus(ctx, status); err != nil {
		r.cfg.Logger.WithError(err).WithField("session_id", status.SessionID).Warn("status update failed")
	}
}
