package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"relentless-autoscout/internal/frontier"
)

func TestReadInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.json")
	if err := os.WriteFile(path, []byte(`{"make":"bmw","results_wanted":"5"}`), 0644); err != nil {
		t.Fatal(err)
	}

	in, err := readInput(path, nil)
	if err != nil {
		t.Fatalf("readInput(file) error: %v", err)
	}
	if in.Make != "bmw" || in.TargetCount() != 5 {
		t.Fatalf("unexpected input: make=%q target=%d", in.Make, in.TargetCount())
	}

	in, err = readInput("-", strings.NewReader(`{"max_pages":3}`))
	if err != nil {
		t.Fatalf("readInput(stdin) error: %v", err)
	}
	if in.PageCap() != 3 {
		t.Fatalf("expected page cap 3, got %d", in.PageCap())
	}

	if _, err := readInput(filepath.Join(dir, "missing.json"), nil); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRunRejectsMalformedInput(t *testing.T) {
	t.Setenv("SINKS", "kafka")
	var out bytes.Buffer
	if err := run("-", strings.NewReader(`{not json`), &out); err == nil {
		t.Fatal("expected error for malformed input")
	}
	if out.Len() != 0 {
		t.Fatalf("expected no summary output, got %q", out.String())
	}
}

func TestRunRejectsInvalidRuntime(t *testing.T) {
	t.Setenv("SINKS", "carrier-pigeon")
	if err := run("-", strings.NewReader(`{}`), &bytes.Buffer{}); err == nil {
		t.Fatal("expected runtime validation error")
	}
}

func TestWriteSummary(t *testing.T) {
	var out bytes.Buffer
	err := writeSummary(&out, "s1", frontier.Summary{Emitted: 3, PagesFetched: 2, Batches: 1})
	if err != nil {
		t.Fatalf("writeSummary() error: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(out.Bytes(), &payload); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if payload["session_id"] != "s1" {
		t.Fatalf("unexpected session id: %v", payload["session_id"])
	}
	if payload["emitted"] != float64(3) || payload["pages_fetched"] != float64(2) {
		t.Fatalf("unexpected summary: %v", payload)
	}
}
