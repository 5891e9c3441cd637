package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// robotsGate caches robots.txt per host and answers allow/deny questions.
type robotsGate struct {
	mu    sync.Mutex
	hosts map[string]*robotsEntry
}

type robotsEntry struct {
	once sync.Once
	data *robotstxt.RobotsData // nil = no check (fetch failed)
}

func newRobotsGate() *robotsGate {
	return &robotsGate{hosts: make(map[string]*robotsEntry)}
}

// allowed fetches robots.txt for the URL's host on first use. A failed fetch
// allows everything; the status-code rules of robotstxt apply otherwise.
func (g *robotsGate) allowed(ctx context.Context, s *session, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	key := u.Scheme + "://" + u.Host

	g.mu.Lock()
	entry, ok := g.hosts[key]
	if !ok {
		entry = &robotsEntry{}
		g.hosts[key] = entry
	}
	g.mu.Unlock()

	entry.once.Do(func() {
		entry.data, _ = fetchRobots(ctx, s, key)
	})
	if entry.data == nil {
		return true
	}
	return entry.data.TestAgent(u.RequestURI(), s.userAgent)
}

func fetchRobots(ctx context.Context, s *session, origin string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}
	return robotstxt.FromStatusAndBytes(resp.StatusCode, body)
}
