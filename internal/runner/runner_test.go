package runner_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"

	"relentless-autoscout/internal/accumulator"
	"relentless-autoscout/internal/config"
	"relentless-autoscout/internal/frontier"
	"relentless-autoscout/internal/models"
	"relentless-autoscout/internal/runner"
	"relentless-autoscout/mocks"
)

const structuredPage = `<html><head><script id="__NEXT_DATA__" type="application/json">
{"props":{"pageProps":{"numberOfPages":1,"listings":[
	{"id":"a1","url":"/offers/bmw-320-blue-a1","vehicle":{"make":"BMW","model":"320"},"price":{"priceRaw":15000}},
	{"id":"b2","url":"/offers/audi-a4-black-b2","vehicle":{"make":"Audi","model":"A4"},"price":{"priceRaw":21000}}
]}}}
</script></head><body></body></html>`

func decodeInput(t *testing.T, doc string) config.CrawlInput {
	t.Helper()
	in, err := config.DecodeInput(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("DecodeInput error: %v", err)
	}
	return in
}

func TestRunUpdatesStatusAndPushesListings(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	fetcher := mocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req models.PageRequest) (models.PageFetchResult, error) {
			if req.URL != "https://www.autoscout24.com/lst/bmw" {
				t.Errorf("unexpected url: %s", req.URL)
			}
			return models.PageFetchResult{URL: req.URL, Page: req.Page, StatusCode: 200, Body: []byte(structuredPage)}, nil
		}).Times(1)

	sink := mocks.NewMockSink(ctrl)
	sink.EXPECT().PushBatch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, batch []models.ListingRecord) error {
			if len(batch) != 2 || batch[0].Key() != "a1" || batch[1].Key() != "b2" {
				t.Errorf("unexpected batch: %+v", batch)
			}
			return nil
		}).Times(1)

	status := mocks.NewMockStatusStore(ctrl)
	status.EXPECT().GetStatus(gomock.Any(), "session-1").Return(models.CrawlStatus{}, false, nil)
	var states []models.CrawlStatus
	status.EXPECT().SetStatus(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, s models.CrawlStatus) error {
			states = append(states, s)
			return nil
		}).Times(2)

	r, err := runner.New(runner.Config{
		NewFetcher: func(config.CrawlInput) (frontier.Fetcher, error) { return fetcher, nil },
		NewSink:    func(string) accumulator.Sink { return sink },
		Status:     status,
		BatchSize:  10,
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	in := decodeInput(t, `{"startUrls": ["https://www.autoscout24.com/lst/bmw"], "collectDetails": true}`)
	summary, err := r.Run(context.Background(), "session-1", in)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if summary.Emitted != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(states) != 2 || states[0].Status != models.StatusRunning || states[1].Status != models.StatusDone {
		t.Fatalf("unexpected status transitions: %+v", states)
	}
	if states[1].Emitted != 2 || states[1].PagesFetched != 1 || len(states[1].SeedURLs) != 1 {
		t.Fatalf("unexpected final status: %+v", states[1])
	}
}

func TestRunMarksFailedWhenFetcherCannotBeBuilt(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	r, err := runner.New(runner.Config{
		NewFetcher: func(config.CrawlInput) (frontier.Fetcher, error) { return nil, errors.New("invalid proxy url") },
		NewSink:    func(string) accumulator.Sink { return mocks.NewMockSink(ctrl) },
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	if _, err := r.Run(context.Background(), "session-2", decodeInput(t, `{}`)); err == nil {
		t.Fatal("expected run error")
	}
	got, ok, err := r.Status(context.Background(), "session-2")
	if err != nil || !ok {
		t.Fatalf("status lookup: ok=%v err=%v", ok, err)
	}
	if got.Status != models.StatusFailed || !strings.Contains(got.Error, "invalid proxy url") {
		t.Fatalf("unexpected status: %+v", got)
	}
	if len(got.SeedURLs) != 1 || !strings.HasPrefix(got.SeedURLs[0], "https://www.autoscout24.com/lst?") {
		t.Fatalf("expected a built search seed, got %v", got.SeedURLs)
	}
}

func TestQueueRecordsQueuedStatus(t *testing.T) {
	r, err := runner.New(runner.Config{
		NewFetcher: func(config.CrawlInput) (frontier.Fetcher, error) { return nil, nil },
		NewSink:    func(string) accumulator.Sink { return nil },
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	st := r.Queue(context.Background(), "session-3", decodeInput(t, `{"make": "bmw"}`))
	if st.Status != models.StatusQueued {
		t.Fatalf("unexpected status: %+v", st)
	}
	if got, ok, _ := r.Status(context.Background(), "session-3"); !ok || got.Status != models.StatusQueued {
		t.Fatalf("queued status not stored: %+v", got)
	}
}

func TestNewRequiresFactories(t *testing.T) {
	if _, err := runner.New(runner.Config{}); err == nil {
		t.Fatal("expected validation error")
	}
	if id := runner.NewSessionID(); len(id) != 36 {
		t.Fatalf("unexpected session id: %q", id)
	}
}
