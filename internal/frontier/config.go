package frontier

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"relentless-autoscout/internal/accumulator"
	"relentless-autoscout/internal/autoscout"
	"relentless-autoscout/internal/models"
)

const (
	defaultConcurrency = 5
	defaultTargetCount = 50
	defaultPageCap     = 10
	defaultBatchSize   = 10
)

// Fetcher retrieves one search page. Retries are the fetcher's concern; an
// error means the request is given up.
type Fetcher interface {
	Fetch(ctx context.Context, req models.PageRequest) (models.PageFetchResult, error)
}

// FailureReporter receives requests that were given up.
type FailureReporter interface {
	ReportFailure(ctx context.Context, failure models.CrawlFailure) error
}

// ParseFunc turns a raw page into listings and a total-pages hint.
type ParseFunc func(raw []byte) autoscout.Page

// Config defines the configuration for a crawl controller.
type Config struct {
	// Fetcher used to retrieve search pages.
	Fetcher Fetcher

	// Sink receiving listing batches.
	Sink accumulator.Sink

	// Parser for fetched pages. Defaults to autoscout.ParsePage.
	Parse ParseFunc

	// Optional reporter for requests that failed after retries.
	Failures FailureReporter

	// Maximum number of concurrent page requests.
	Concurrency int

	// Number of listings after which the crawl stops.
	TargetCount int

	// Highest page number fetched for any seed.
	PageCap int

	// Listings per sink batch.
	BatchSize int

	// Session identifier stamped on requests and failures.
	SessionID string

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (config *Config) validate() error {
	var err error

	if config.Fetcher == nil {
		err = multierror.Append(err, fmt.Errorf("fetcher not provided"))
	}

	if config.Sink == nil {
		err = multierror.Append(err, fmt.Errorf("sink not provided"))
	}

	if config.Parse == nil {
		config.Parse = autoscout.ParsePage
	}

	if config.Concurrency <= 0 {
		config.Concurrency = defaultConcurrency
	}

	if config.TargetCount <= 0 {
		config.TargetCount = defaultTargetCount
	}

	if config.PageCap <= 0 {
		config.PageCap = defaultPageCap
	}

	if config.BatchSize <= 0 {
		config.BatchSize = defaultBatchSize
	}

	if config.Logger == nil {
		config.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}

	return err
}
