package models

import "time"

// ListingBatch is the payload written to the listings topic, one per flushed batch.
type ListingBatch struct {
	SessionID string          `json:"session_id"`
	Sequence  int             `json:"sequence"`
	Listings  []ListingRecord `json:"listings"`
	PushedAt  time.Time       `json:"pushed_at"`
}
