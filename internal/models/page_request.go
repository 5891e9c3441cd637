package models

import "time"

// PageRequest represents one search-results page waiting in the crawl frontier.
type PageRequest struct {
	SessionID string    `json:"session_id"`
	SeedURL   string    `json:"seed_url"`
	URL       string    `json:"url"`
	Page      int       `json:"page"`
	CreatedAt time.Time `json:"created_at"`
}

// PageFetchResult is the raw payload of a fetched page. It lives only while
// the page is being parsed.
type PageFetchResult struct {
	URL        string
	Page       int
	StatusCode int
	Body       []byte
}
