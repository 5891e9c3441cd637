package models

import "time"

// CrawlFailure captures a page request that failed after transport retries.
type CrawlFailure struct {
	SessionID string    `json:"session_id"`
	SeedURL   string    `json:"seed_url"`
	URL       string    `json:"url"`
	Page      int       `json:"page"`
	Error     string    `json:"error"`
	FailedAt  time.Time `json:"failed_at"`
}
