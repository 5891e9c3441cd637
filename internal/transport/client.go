// Package transport fetches search pages over HTTP with retries, a session
// pool, proxies and rate limiting.
package transport

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"relentless-autoscout/internal/metrics"
	"relentless-autoscout/internal/models"
)

const (
	connectTimeout  = 10 * time.Second
	responseTimeout = 25 * time.Second // time to first response header
)

// Options configure a Client.
type Options struct {
	// Total per-attempt timeout.
	Timeout time.Duration

	// Attempts after the first one; the delay doubles from RetryBaseDelay up
	// to RetryMaxDelay.
	RetryMax       int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// Requests per second across all sessions; 0 disables limiting.
	RequestsPerSecond float64
	Burst             int

	// Number of independent sessions, each with its own cookie jar,
	// User-Agent and proxy.
	SessionPoolSize int

	// Proxy URLs assigned to sessions round-robin.
	Proxies []string

	// Check robots.txt before every request.
	RespectRobots bool

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

type session struct {
	client    *http.Client
	userAgent string
	proxy     string
}

// Client implements the page fetcher used by the crawl controller.
type Client struct {
	opts     Options
	sessions []*session
	limiter  *rate.Limiter
	robots   *robotsGate
}

// NewClient builds the session pool. Invalid proxy URLs are rejected.
func NewClient(opts Options) (*Client, error) {
	if opts.SessionPoolSize <= 0 {
		opts.SessionPoolSize = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryMax < 0 {
		opts.RetryMax = 0
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}

	c := &Client{opts: opts}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	if opts.RespectRobots {
		c.robots = newRobotsGate()
	}

	agentOffset := rand.Intn(len(userAgents))
	for i := 0; i < opts.SessionPoolSize; i++ {
		s, err := newSession(opts, i, userAgents[(agentOffset+i)%len(userAgents)])
		if err != nil {
			return nil, err
		}
		c.sessions = append(c.sessions, s)
	}
	metrics.SetProxies(opts.Proxies)
	return c, nil
}

func newSession(opts Options, index int, userAgent string) (*session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
		ResponseHeaderTimeout: responseTimeout,
		MaxIdleConnsPerHost:   4,
	}
	s := &session{userAgent: userAgent}
	if len(opts.Proxies) > 0 {
		s.proxy = opts.Proxies[index%len(opts.Proxies)]
		u, err := url.Parse(s.proxy)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy url %q", s.proxy)
		}
		transport.Proxy = http.ProxyURL(u)
	}
	s.client = &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   opts.Timeout,
	}
	return s, nil
}

// sessionFor picks the session for a request. Pages of one seed share a
// session so cookies carry over; each retry moves to the next session.
func (c *Client) sessionFor(req models.PageRequest, attempt int) *session {
	key := req.SeedURL
	if key == "" {
		key = req.URL
	}
	idx := (hashIndex(key, len(c.sessions)) + attempt) % len(c.sessions)
	return c.sessions[idx]
}

// Fetch retrieves the page, retrying transient failures with exponential
// backoff. Robots refusals and errors after ctx is done are returned
// immediately.
func (c *Client) Fetch(ctx context.Context, req models.PageRequest) (models.PageFetchResult, error) {
	delay := c.opts.RetryBaseDelay
	attempt := 0
	for {
		res, err := c.fetchOnce(ctx, req, c.sessionFor(req, attempt))
		if err == nil {
			return res, nil
		}
		if IsRateLimited(err) {
			metrics.RateLimitHit()
		}
		if ctx.Err() != nil || !retryable(err) || attempt >= c.opts.RetryMax {
			if attempt > 0 {
				return models.PageFetchResult{}, fmt.Errorf("after %d attempts: %w", attempt+1, err)
			}
			return models.PageFetchResult{}, err
		}
		attempt++
		metrics.FetchRetry()
		c.opts.Logger.WithFields(logrus.Fields{
			"url":     req.URL,
			"attempt": attempt,
		}).WithError(err).Warn("retrying page request")

		if delay > 0 {
			if c.opts.RetryMaxDelay > 0 && delay > c.opts.RetryMaxDelay {
				delay = c.opts.RetryMaxDelay
			}
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return models.PageFetchResult{}, ctx.Err()
			case <-timer.C:
			}
			delay *= 2
		}
	}
}

func (c *Client) fetchOnce(ctx context.Context, req models.PageRequest, s *session) (models.PageFetchResult, error) {
	if c.robots != nil && !c.robots.allowed(ctx, s, req.URL) {
		return models.PageFetchResult{}, fmt.Errorf("%s: %w", req.URL, ErrDisallowed)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return models.PageFetchResult{}, err
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return models.PageFetchResult{}, err
	}
	httpReq.Header = DefaultHeaders()
	httpReq.Header.Set("User-Agent", s.userAgent)

	start := time.Now()
	resp, err := s.client.Do(httpReq)
	if err != nil {
		metrics.ObserveFetchLatency(time.Since(start))
		return models.PageFetchResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ObserveFetchLatency(time.Since(start))
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return models.PageFetchResult{}, &StatusError{Code: resp.StatusCode, URL: req.URL}
	}

	body, err := decodeBody(resp.Body, resp.Header.Get("Content-Encoding"))
	metrics.ObserveFetchLatency(time.Since(start))
	if err != nil {
		return models.PageFetchResult{}, fmt.Errorf("read %s: %w", req.URL, err)
	}
	return models.PageFetchResult{
		URL:        req.URL,
		Page:       req.Page,
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}
