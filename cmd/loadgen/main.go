package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Plan lists the crawl inputs to submit. Each input is posted Repeat times.
type Plan struct {
	Inputs []json.RawMessage `json:"inputs"`
}

// Report counts the outcome of a load run.
type Report struct {
	Accepted int
	Rejected int
	Sessions []string
}

var errNoInputs = errors.New("plan has no inputs")

func main() {
	planPath := flag.String("plan", "inputs.json", "Path to a JSON file {\"inputs\": [<crawl input>, ...]}")
	apiBase := flag.String("api", "http://localhost:8080", "API base URL")
	repeat := flag.Int("repeat", 1, "Times each input is submitted")
	parallel := flag.Int("parallel", 4, "Maximum concurrent submissions")
	flag.Parse()

	logger := logrus.NewEntry(logrus.New()).WithField("app", "loadgen")
	report, err := run(context.Background(), *planPath, *apiBase, *repeat, *parallel, nil, logger)
	if err != nil {
		logger.WithError(err).Error("load run failed")
		os.Exit(1)
	}
	logger.WithFields(logrus.Fields{
		"accepted": report.Accepted,
		"rejected": report.Rejected,
	}).Info("load run finished")
}

// run posts every input of the plan repeat times with at most parallel
// requests in flight. A nil client gets a 30s timeout.
func run(ctx context.Context, planPath, apiBase string, repeat, parallel int, client *http.Client, logger *logrus.Entry) (Report, error) {
	plan, err := loadPlan(planPath)
	if err != nil {
		return Report{}, err
	}
	endpoint, err := crawlEndpoint(apiBase)
	if err != nil {
		return Report{}, err
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if repeat < 1 {
		repeat = 1
	}
	if parallel < 1 {
		parallel = 1
	}

	var (
		mu     sync.Mutex
		report Report
		wg     sync.WaitGroup
		sem    = make(chan struct{}, parallel)
	)
	for round := 0; round < repeat; round++ {
		for idx, body := range plan.Inputs {
			sem <- struct{}{}
			wg.Add(1)
			go func(idx int, body json.RawMessage) {
				defer func() { <-sem; wg.Done() }()
				sessionID, err := submit(ctx, client, endpoint, body)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					report.Rejected++
					logger.WithError(err).WithField("input", idx).Warn("submission rejected")
					return
				}
				report.Accepted++
				report.Sessions = append(report.Sessions, sessionID)
				logger.WithFields(logrus.Fields{"input": idx, "session_id": sessionID}).Debug("submission accepted")
			}(idx, body)
		}
	}
	wg.Wait()
	return report, nil
}

func loadPlan(path string) (Plan, error) {
	var plan Plan
	data, err := os.ReadFile(path)
	if err != nil {
		return plan, err
	}
	if err := json.Unmarshal(data, &plan); err != nil {
		return plan, fmt.Errorf("parse plan: %w", err)
	}
	if len(plan.Inputs) == 0 {
		return plan, errNoInputs
	}
	return plan, nil
}

func crawlEndpoint(apiBase string) (string, error) {
	base, err := url.Parse(apiBase)
	if err != nil {
		return "", err
	}
	return base.JoinPath("crawl").String(), nil
}

// submit posts one crawl input and returns the session id of the queued crawl.
func submit(ctx context.Context, client *http.Client, endpoint string, body json.RawMessage) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	var status struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return "", fmt.Errorf("decode status: %w", err)
	}
	return status.SessionID, nil
}
