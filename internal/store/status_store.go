package store

import (
	"context"
	"sync"

	"relentless-autoscout/internal/models"
)

// StatusStore persists crawl session status.
type StatusStore interface {
	SetStatus(ctx context.Context, status models.CrawlStatus) error
	GetStatus(ctx context.Context, sessionID string) (models.CrawlStatus, bool, error)
}

// MemoryStatusStore keeps status in process memory. It is used when no Redis
// address is configured.
type MemoryStatusStore struct {
	mu       sync.RWMutex
	statuses map[string]models.CrawlStatus
}

// NewMemoryStatusStore returns an empty in-memory store.
func NewMemoryStatusStore() *MemoryStatusStore {
	return &MemoryStatusStore{statuses: make(map[string]models.CrawlStatus)}
}

// SetStatus stores a copy of status.
func (s *MemoryStatusStore) SetStatus(_ context.Context, status models.CrawlStatus) error {
	status.SeedURLs = append([]string(nil), status.SeedURLs...)
	s.mu.Lock()
	s.statuses[status.SessionID] = status
	s.mu.Unlock()
	return nil
}

// GetStatus returns the stored status, if any.
func (s *MemoryStatusStore) GetStatus(_ context.Context, sessionID string) (models.CrawlStatus, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.statuses[sessionID]
	return status, ok, nil
}
