package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"relentless-autoscout/internal/models"
)

type fakeRedis struct {
	values  map[string]string
	ttls    map[string]time.Duration
	failSet error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.failSet != nil {
		return redis.NewStatusResult("", f.failSet)
	}
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Ping(context.Context) *redis.StatusCmd { return redis.NewStatusResult("PONG", nil) }

func (f *fakeRedis) Close() error { return nil }

func TestRedisStatusStoreRoundTrip(t *testing.T) {
	client := newFakeRedis()
	s := newRedisStatusStore(client, "", time.Hour)

	status := models.CrawlStatus{
		SessionID: "s-1",
		SeedURLs:  []string{"https://www.autoscout24.com/lst"},
		Status:    models.StatusRunning,
		Emitted:   12,
	}
	if err := s.SetStatus(context.Background(), status); err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}
	if client.ttls[DefaultStatusPrefix+"s-1"] != time.Hour {
		t.Fatalf("expected ttl to be applied, got %v", client.ttls)
	}

	got, ok, err := s.GetStatus(context.Background(), "s-1")
	if err != nil || !ok {
		t.Fatalf("GetStatus: ok=%v err=%v", ok, err)
	}
	if got.Status != models.StatusRunning || got.Emitted != 12 || len(got.SeedURLs) != 1 {
		t.Fatalf("unexpected status: %+v", got)
	}
}

func TestRedisStatusStoreMissing(t *testing.T) {
	s := newRedisStatusStore(newFakeRedis(), "p:", time.Hour)
	_, ok, err := s.GetStatus(context.Background(), "nope")
	if err != nil || ok {
		t.Fatalf("expected missing status, ok=%v err=%v", ok, err)
	}
}

func TestRedisStatusStoreSetError(t *testing.T) {
	client := newFakeRedis()
	client.failSet = errors.New("connection refused")
	s := newRedisStatusStore(client, "p:", time.Hour)
	if err := s.SetStatus(context.Background(), models.CrawlStatus{SessionID: "x"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRedisStatusStoreCorruptPayload(t *testing.T) {
	client := newFakeRedis()
	client.values["p:bad"] = "{not json"
	s := newRedisStatusStore(client, "p:", time.Hour)
	if _, _, err := s.GetStatus(context.Background(), "bad"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestMemoryStatusStore(t *testing.T) {
	s := NewMemoryStatusStore()
	seeds := []string{"a"}
	if err := s.SetStatus(context.Background(), models.CrawlStatus{SessionID: "m", SeedURLs: seeds, Status: models.StatusDone}); err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}
	seeds[0] = "mutated"
	got, ok, _ := s.GetStatus(context.Background(), "m")
	if !ok || got.Status != models.StatusDone || got.SeedURLs[0] != "a" {
		t.Fatalf("unexpected status: %+v", got)
	}
	if _, ok, _ := s.GetStatus(context.Background(), "other"); ok {
		t.Fatalf("expected missing status")
	}
}
