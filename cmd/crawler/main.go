package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"relentless-autoscout/common"
	"relentless-autoscout/internal/bootstrap"
	"relentless-autoscout/internal/config"
	"relentless-autoscout/internal/frontier"
	"relentless-autoscout/internal/metrics"
	"relentless-autoscout/internal/runner"
)

func main() {
	inputPath := flag.String("input", common.GetEnv("INPUT_PATH", ""), "Path to the crawl input JSON (\"-\" or empty reads stdin)")
	flag.Parse()

	if err := run(*inputPath, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "crawler: %v\n", err)
		os.Exit(1)
	}
}

// run executes one crawl. Only startup failures and sink failures are
// returned; a run that stops early on the page cap is a success.
func run(inputPath string, stdin io.Reader, stdout io.Writer) error {
	rt, err := config.LoadRuntime()
	if err != nil {
		return err
	}
	logger := rt.Logger("crawler")

	in, err := readInput(inputPath, stdin)
	if err != nil {
		logger.WithError(err).Error("invalid crawl input")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if rt.MetricsAddr != "" {
		metrics.StartServer(ctx, rt.MetricsAddr, logger)
	}

	deps, err := bootstrap.Build(ctx, rt, logger)
	if err != nil {
		logger.WithError(err).Error("startup failed")
		return err
	}
	defer deps.Close()

	sessionID := runner.NewSessionID()
	summary, err := deps.Runner.Run(ctx, sessionID, in)
	logger.WithFields(logrus.Fields{
		"session_id":    sessionID,
		"emitted":       summary.Emitted,
		"duplicates":    summary.Duplicates,
		"pages_fetched": summary.PagesFetched,
		"pages_failed":  summary.PagesFailed,
		"pages_skipped": summary.PagesSkipped,
		"batches":       summary.Batches,
	}).Info("crawl finished")
	if err != nil {
		logger.WithError(err).Error("crawl failed")
		return err
	}

	return writeSummary(stdout, sessionID, summary)
}

func readInput(path string, stdin io.Reader) (config.CrawlInput, error) {
	if path == "" || path == "-" {
		return config.DecodeInput(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return config.CrawlInput{}, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return config.DecodeInput(f)
}

type summaryOutput struct {
	SessionID string `json:"session_id"`
	frontier.Summary
}

func writeSummary(w io.Writer, sessionID string, s frontier.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summaryOutput{SessionID: sessionID, Summary: s})
}
