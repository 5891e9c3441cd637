package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"relentless-autoscout/internal/bootstrap"
	"relentless-autoscout/internal/config"
	"relentless-autoscout/internal/frontier"
	"relentless-autoscout/internal/metrics"
	"relentless-autoscout/internal/models"
	"relentless-autoscout/internal/runner"
)

// maxInputBytes bounds the crawl input accepted by POST /crawl.
const maxInputBytes = 1 << 20

type crawlRunner interface {
	Queue(ctx context.Context, sessionID string, in config.CrawlInput) models.CrawlStatus
	Run(ctx context.Context, sessionID string, in config.CrawlInput) (frontier.Summary, error)
	Status(ctx context.Context, sessionID string) (models.CrawlStatus, bool, error)
}

type server struct {
	runner crawlRunner
	logger *logrus.Entry

	// Background crawls run on baseCtx so they outlive the request.
	baseCtx context.Context
	wg      sync.WaitGroup
}

func newServer(ctx context.Context, r crawlRunner, logger *logrus.Entry) *server {
	return &server{
		runner:  r,
		logger:  logger,
		baseCtx: ctx,
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	rt, err := config.LoadRuntime()
	if err != nil {
		return err
	}
	logger := rt.Logger("api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.Build(ctx, rt, logger)
	if err != nil {
		logger.WithError(err).Error("startup failed")
		return err
	}
	defer deps.Close()

	srv := newServer(ctx, deps.Runner, logger)
	httpServer := &http.Server{
		Addr:    rt.APIAddr,
		Handler: srv.routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("api shutdown error")
		}
	}()

	logger.WithField("addr", rt.APIAddr).Info("api listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	srv.wait()
	return nil
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/crawl", s.handleCrawl)
	mux.HandleFunc("/crawl/", s.handleCrawlStatus)
	mux.HandleFunc("/metrics", metrics.Handler)
	return mux
}

// wait blocks until background crawls have returned.
func (s *server) wait() {
	s.wg.Wait()
}

// handleCrawl accepts a crawl input and starts the crawl in the background.
//
// Method: POST
// Path:   /crawl
// Example:
//
//	curl -X POST -d '{"make":"bmw","results_wanted":20}' "http://localhost:8080/crawl"
func (s *server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	in, err := config.DecodeInput(io.LimitReader(r.Body, maxInputBytes))
	if err != nil {
		http.Error(w, "invalid crawl input", http.StatusBadRequest)
		return
	}

	sessionID := runner.NewSessionID()
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	status := s.runner.Queue(ctx, sessionID, in)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.runner.Run(s.baseCtx, sessionID, in); err != nil {
			s.logger.WithError(err).WithField("session_id", sessionID).Error("crawl failed")
		}
	}()

	writeJSON(w, status, http.StatusAccepted)
}

// handleCrawlStatus returns status for a previously created crawl session.
//
// Method: GET
// Path:   /crawl/{sessionID}
// Example:
//
//	curl "http://localhost:8080/crawl/6f1c7d2e-8a53-4d52-9a6a-2b1e0c3f4d5a"
func (s *server) handleCrawlStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/crawl/"), "/")
	if sessionID == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	status, ok, err := s.runner.Status(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "failed to load status", http.StatusBadGateway)
		return
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	writeJSON(w, status, http.StatusOK)
}

func writeJSON(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
