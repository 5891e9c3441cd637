package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRunChecksCountsFailures(t *testing.T) {
	checks := []check{
		{name: "ok", run: func(context.Context) (string, error) { return "fine", nil }},
		{name: "down", run: func(context.Context) (string, error) { return "", errors.New("refused") }},
	}
	var stdout, stderr bytes.Buffer
	if failed := runChecks(context.Background(), checks, &stdout, &stderr); failed != 1 {
		t.Fatalf("expected 1 failure, got %d", failed)
	}
	if stdout.String() != "ok: fine\n" {
		t.Fatalf("unexpected stdout: %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "down: refused") {
		t.Fatalf("unexpected stderr: %q", stderr.String())
	}
}

func TestChecksFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ADDR", "")
	if got := checksFromEnv(); len(got) != 1 || got[0].name != "kafka" {
		t.Fatalf("expected kafka only, got %d checks", len(got))
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/autoscout")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	got := checksFromEnv()
	if len(got) != 3 || got[1].name != "postgres" || got[2].name != "redis" {
		t.Fatalf("unexpected checks: %+v", got)
	}
}
