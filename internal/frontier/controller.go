// Package frontier drives a crawl: it owns the queue of page requests, runs
// a bounded pool of fetchers and feeds parsed listings to the accumulator.
package frontier

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"relentless-autoscout/internal/accumulator"
	"relentless-autoscout/internal/autoscout"
	"relentless-autoscout/internal/metrics"
	"relentless-autoscout/internal/models"
)

// Summary reports the outcome of a crawl run.
type Summary struct {
	Emitted      int `json:"emitted"`
	Duplicates   int `json:"duplicates"`
	PagesFetched int `json:"pages_fetched"`
	PagesFailed  int `json:"pages_failed"`
	PagesSkipped int `json:"pages_skipped"`
	Batches      int `json:"batches"`
}

// Controller runs crawls with a fixed configuration.
type Controller struct {
	cfg Config
}

// New validates cfg and returns a controller.
func New(cfg Config) (*Controller, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("frontier config validation failed: %w", err)
	}
	return &Controller{cfg: cfg}, nil
}

type pageOutcome struct {
	req     models.PageRequest
	page    autoscout.Page
	err     error
	skipped bool
}

// Run crawls from seeds until the frontier is empty, the target count is
// met or ctx is done. Pending listings are always flushed before returning.
// The returned error is non-nil only when the sink rejects a batch.
//
// Queue, accumulator and counters are touched only by the calling goroutine;
// workers fetch and parse and hand their outcome back over a channel.
func (c *Controller) Run(ctx context.Context, seeds []string) (Summary, error) {
	var (
		cfg     = c.cfg
		logger  = cfg.Logger.WithField("session_id", cfg.SessionID)
		acc     = accumulator.New(meteredSink{sink: cfg.Sink}, cfg.TargetCount, cfg.BatchSize)
		queue   []models.PageRequest
		summary Summary
		runErr  error
		// reached lets workers skip parsing once the target is met.
		reached  atomic.Bool
		inFlight int
		results  = make(chan pageOutcome, cfg.Concurrency)
		// Pushes outlive cancellation so accepted listings are not lost on
		// shutdown.
		pushCtx = context.WithoutCancel(ctx)
	)

	for _, seed := range seeds {
		queue = append(queue, models.PageRequest{
			SessionID: cfg.SessionID,
			SeedURL:   seed,
			URL:       seed,
			Page:      1,
			CreatedAt: time.Now().UTC(),
		})
	}

	for {
		for runErr == nil && ctx.Err() == nil && !acc.Reached() && inFlight < cfg.Concurrency && len(queue) > 0 {
			req := queue[0]
			queue = queue[1:]
			inFlight++
			go c.process(ctx, req, &reached, results)
		}
		if inFlight == 0 {
			break
		}

		out := <-results
		inFlight--

		if out.err != nil && ctx.Err() != nil {
			logger.WithField("url", out.req.URL).Debug("request abandoned on shutdown")
			continue
		}
		if out.err != nil {
			summary.PagesFailed++
			metrics.PageFailed()
			c.reportFailure(ctx, out.req, out.err)
			continue
		}
		summary.PagesFetched++
		metrics.PageFetched()
		if out.skipped || acc.Reached() || runErr != nil {
			summary.PagesSkipped++
			metrics.PageSkipped()
			continue
		}

		metrics.PageParsed(string(out.page.Strategy))
		logger.WithFields(logrus.Fields{
			"page":        out.req.Page,
			"url":         out.req.URL,
			"strategy":    out.page.Strategy,
			"listings":    len(out.page.Listings),
			"total_pages": out.page.TotalPages,
		}).Info("page parsed")

		for _, rec := range out.page.Listings {
			if acc.Reached() {
				break
			}
			if !acc.Offer(rec) {
				summary.Duplicates++
				metrics.ListingDuplicate()
				continue
			}
			metrics.ListingAccepted()
			if err := acc.Flush(pushCtx, false); err != nil {
				runErr = err
				break
			}
		}
		if acc.Reached() {
			reached.Store(true)
		}

		if runErr == nil && !acc.Reached() && out.req.Page < cfg.PageCap && out.req.Page < out.page.TotalPages {
			next, err := c.nextRequest(out.req)
			if err != nil {
				logger.WithError(err).WithField("url", out.req.URL).Warn("cannot build next page url")
				continue
			}
			queue = append(queue, next)
		}
	}

	if runErr == nil {
		runErr = acc.Flush(pushCtx, true)
	}

	summary.Emitted = acc.Emitted()
	summary.Batches = acc.Batches()
	entry := logger.WithFields(logrus.Fields{
		"emitted":       summary.Emitted,
		"duplicates":    summary.Duplicates,
		"pages_fetched": summary.PagesFetched,
		"pages_failed":  summary.PagesFailed,
		"pages_skipped": summary.PagesSkipped,
		"batches":       summary.Batches,
	})
	if runErr != nil {
		entry.WithError(runErr).Error("crawl aborted")
		return summary, runErr
	}
	entry.Info("crawl finished")
	return summary, nil
}

// process fetches and parses one request on a worker goroutine.
func (c *Controller) process(ctx context.Context, req models.PageRequest, reached *atomic.Bool, results chan<- pageOutcome) {
	done := metrics.TrackInFlight()
	res, err := c.cfg.Fetcher.Fetch(ctx, req)
	done()

	out := pageOutcome{req: req, err: err}
	if err == nil {
		if reached.Load() {
			out.skipped = true
		} else {
			out.page = c.cfg.Parse(res.Body)
		}
	}
	results <- out
}

func (c *Controller) nextRequest(cur models.PageRequest) (models.PageRequest, error) {
	nextURL, err := autoscout.PageURL(cur.URL, cur.Page+1)
	if err != nil {
		return models.PageRequest{}, err
	}
	return models.PageRequest{
		SessionID: cur.SessionID,
		SeedURL:   cur.SeedURL,
		URL:       nextURL,
		Page:      cur.Page + 1,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// reportFailure logs a dropped request and hands it to the failure reporter.
// Reporter errors are logged and otherwise ignored.
func (c *Controller) reportFailure(ctx context.Context, req models.PageRequest, cause error) {
	c.cfg.Logger.WithFields(logrus.Fields{
		"session_id": req.SessionID,
		"seed_url":   req.SeedURL,
		"url":        req.URL,
		"page":       req.Page,
	}).WithError(cause).Error("request failed")

	if c.cfg.Failures == nil {
		return
	}
	failure := models.CrawlFailure{
		SessionID: req.SessionID,
		SeedURL:   req.SeedURL,
		URL:       req.URL,
		Page:      req.Page,
		Error:     cause.Error(),
		FailedAt:  time.Now().UTC(),
	}
	if err := c.cfg.Failures.ReportFailure(context.WithoutCancel(ctx), failure); err != nil {
		c.cfg.Logger.WithError(err).WithField("url", req.URL).Warn("failure report not published")
		return
	}
	metrics.FailureReported()
}

// meteredSink records push latency and outcome for every batch.
type meteredSink struct {
	sink accumulator.Sink
}

func (m meteredSink) PushBatch(ctx context.Context, batch []models.ListingRecord) error {
	start := time.Now()
	err := m.sink.PushBatch(ctx, batch)
	metrics.BatchPushed(time.Since(start), err)
	return err
}
