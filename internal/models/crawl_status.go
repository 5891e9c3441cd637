package models

import "time"

// Crawl session states.
const (
	StatusQueued  = "queued"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// CrawlStatus tracks the state of a crawl session.
type CrawlStatus struct {
	SessionID    string    `json:"session_id"`
	SeedURLs     []string  `json:"seed_urls,omitempty"`
	Status       string    `json:"status"`
	Emitted      int       `json:"emitted"`
	PagesFetched int       `json:"pages_fetched"`
	PagesFailed  int       `json:"pages_failed"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}
