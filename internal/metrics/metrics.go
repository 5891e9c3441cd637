// Package metrics exposes crawl counters in the Prometheus text format.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// Page outcomes: fetched pages were parsed, skipped pages arrived after the
	// target was met, failed pages exhausted their retries.
	pagesFetched uint64
	pagesFailed  uint64
	pagesSkipped uint64

	// Listings offered to the accumulator, split by outcome.
	listingsAccepted  uint64
	listingsDuplicate uint64

	structuredPages uint64
	domPages        uint64
	emptyPages      uint64

	batchesPushed    uint64
	batchPushErrors  uint64
	failuresReported uint64

	// HTTP 429 responses; one increment per attempt.
	rateLimitHits uint64
	// Fetch attempts beyond the first.
	fetchRetries uint64

	inFlight      int64 // gauge: page requests currently being fetched
	crawlsRunning int64 // gauge: crawl runs in progress

	// Buckets are upper bounds in seconds; +Inf is implicit.
	fetchLatency = newHistogram(0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10)
	pushLatency  = newHistogram(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1)

	proxyMu   sync.RWMutex
	proxyURLs []string
)

type histogram struct {
	buckets []float64
	counts  []uint64 // last slot is +Inf
	sumNs   uint64
	count   uint64
}

func newHistogram(buckets ...float64) *histogram {
	return &histogram{buckets: buckets, counts: make([]uint64, len(buckets)+1)}
}

func (h *histogram) observe(duration time.Duration) {
	if duration <= 0 {
		return
	}
	seconds := duration.Seconds()
	bucketIndex := len(h.buckets)
	for i, bound := range h.buckets {
		if seconds <= bound {
			bucketIndex = i
			break
		}
	}
	atomic.AddUint64(&h.counts[bucketIndex], 1)
	atomic.AddUint64(&h.sumNs, uint64(duration.Nanoseconds()))
	atomic.AddUint64(&h.count, 1)
}

// write renders buckets, +Inf, sum and count. leFmt formats bucket bounds.
func (h *histogram) write(sb *strings.Builder, name, help, leFmt string) {
	fmt.Fprintf(sb, "# HELP %s %s\n", name, help)
	fmt.Fprintf(sb, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range h.buckets {
		cumulative += atomic.LoadUint64(&h.counts[i])
		fmt.Fprintf(sb, "%s_bucket{le=\"%s\"} %d\n", name, fmt.Sprintf(leFmt, bound), cumulative)
	}
	cumulative += atomic.LoadUint64(&h.counts[len(h.buckets)])
	fmt.Fprintf(sb, "%s_bucket{le=\"+Inf\"} %d\n", name, cumulative)
	fmt.Fprintf(sb, "%s_sum %.6f\n", name, float64(atomic.LoadUint64(&h.sumNs))/float64(time.Second))
	fmt.Fprintf(sb, "%s_count %d\n", name, atomic.LoadUint64(&h.count))
}

func PageFetched()      { atomic.AddUint64(&pagesFetched, 1) }
func PageFailed()       { atomic.AddUint64(&pagesFailed, 1) }
func PageSkipped()      { atomic.AddUint64(&pagesSkipped, 1) }
func ListingAccepted()  { atomic.AddUint64(&listingsAccepted, 1) }
func ListingDuplicate() { atomic.AddUint64(&listingsDuplicate, 1) }
func FailureReported()  { atomic.AddUint64(&failuresReported, 1) }
func RateLimitHit()     { atomic.AddUint64(&rateLimitHits, 1) }
func FetchRetry()       { atomic.AddUint64(&fetchRetries, 1) }

// PageParsed counts a parsed page by the strategy that produced it.
func PageParsed(strategy string) {
	switch strategy {
	case "structured":
		atomic.AddUint64(&structuredPages, 1)
	case "dom":
		atomic.AddUint64(&domPages, 1)
	default:
		atomic.AddUint64(&emptyPages, 1)
	}
}

// BatchPushed records one sink push and its latency.
func BatchPushed(duration time.Duration, err error) {
	pushLatency.observe(duration)
	if err != nil {
		atomic.AddUint64(&batchPushErrors, 1)
		return
	}
	atomic.AddUint64(&batchesPushed, 1)
}

// ObserveFetchLatency records the duration of one fetch attempt.
func ObserveFetchLatency(duration time.Duration) { fetchLatency.observe(duration) }

// TrackInFlight increments the in-flight gauge and returns its decrement.
func TrackInFlight() func() {
	atomic.AddInt64(&inFlight, 1)
	return func() { atomic.AddInt64(&inFlight, -1) }
}

// TrackCrawl increments the running-crawls gauge and returns its decrement.
func TrackCrawl() func() {
	atomic.AddInt64(&crawlsRunning, 1)
	return func() { atomic.AddInt64(&crawlsRunning, -1) }
}

// SetProxies records the proxy URLs in use for the proxy_info series.
func SetProxies(urls []string) {
	proxyMu.Lock()
	proxyURLs = append([]string(nil), urls...)
	proxyMu.Unlock()
}

// Handler serves the metrics page.
func Handler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(Render()))
}

// Render returns the full exposition text.
func Render() string {
	var sb strings.Builder
	sb.WriteString("autoscout_crawler_up 1\n")
	counter := func(name, help string, v *uint64) {
		fmt.Fprintf(&sb, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", name, help, name, name, atomic.LoadUint64(v))
	}
	gauge := func(name, help string, v *int64) {
		fmt.Fprintf(&sb, "# HELP %s %s\n# TYPE %s gauge\n%s %d\n", name, help, name, name, atomic.LoadInt64(v))
	}
	counter("autoscout_pages_fetched_total", "Search pages fetched and parsed.", &pagesFetched)
	counter("autoscout_pages_failed_total", "Search pages dropped after exhausting retries.", &pagesFailed)
	counter("autoscout_pages_skipped_total", "Search pages fetched after the target was met.", &pagesSkipped)
	fmt.Fprintf(&sb, "# HELP autoscout_pages_parsed_total Parsed pages by extraction strategy.\n# TYPE autoscout_pages_parsed_total counter\n")
	fmt.Fprintf(&sb, "autoscout_pages_parsed_total{strategy=\"structured\"} %d\n", atomic.LoadUint64(&structuredPages))
	fmt.Fprintf(&sb, "autoscout_pages_parsed_total{strategy=\"dom\"} %d\n", atomic.LoadUint64(&domPages))
	fmt.Fprintf(&sb, "autoscout_pages_parsed_total{strategy=\"none\"} %d\n", atomic.LoadUint64(&emptyPages))
	counter("autoscout_listings_accepted_total", "Listings accepted by the accumulator.", &listingsAccepted)
	counter("autoscout_listings_duplicate_total", "Listings rejected as duplicates.", &listingsDuplicate)
	counter("autoscout_batches_pushed_total", "Batches accepted by the sink.", &batchesPushed)
	counter("autoscout_batch_push_errors_total", "Batches the sink rejected.", &batchPushErrors)
	counter("autoscout_failures_reported_total", "Failed requests published to the dead-letter topic.", &failuresReported)
	counter("autoscout_rate_limit_hits_total", "HTTP 429 (rate limit) responses.", &rateLimitHits)
	counter("autoscout_fetch_retries_total", "Fetch attempts beyond the first.", &fetchRetries)
	gauge("autoscout_in_flight", "Page requests currently being fetched.", &inFlight)
	gauge("autoscout_crawls_running", "Crawl runs in progress.", &crawlsRunning)

	proxyMu.RLock()
	if len(proxyURLs) > 0 {
		sb.WriteString("# HELP autoscout_proxy_info Proxy URLs in the session pool (1 when set).\n")
		sb.WriteString("# TYPE autoscout_proxy_info gauge\n")
		for _, p := range proxyURLs {
			fmt.Fprintf(&sb, "autoscout_proxy_info{proxy=\"%s\"} 1\n", escapeLabel(p))
		}
	}
	proxyMu.RUnlock()

	fetchLatency.write(&sb, "autoscout_fetch_latency_seconds", "Search page fetch latency per attempt.", "%.2f")
	pushLatency.write(&sb, "autoscout_batch_push_latency_seconds", "Sink batch push latency.", "%.3f")
	return sb.String()
}

// escapeLabel escapes backslash and double quote for label values.
func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	return strings.ReplaceAll(s, "\"", "\\\"")
}

// StartServer serves /metrics on addr until ctx is done.
func StartServer(ctx context.Context, addr string, logger *logrus.Entry) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", Handler)

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("metrics shutdown error")
		}
	}()

	go func() {
		logger.WithField("addr", addr).Info("metrics listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("metrics server error")
		}
	}()
}
