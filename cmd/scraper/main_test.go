package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/aluiziolira/go-page-scraper/config"
	"github.com/aluiziolira/go-page-scraper/models"
	"github.com/aluiziolira/go-page-scraper/scraper"
	"github.com/aluiziolira/go-page-scraper/status"
)

func TestLoadConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scraper.toml")
	data := "[server]\naddr = \":4000\"\n\n[fetch]\ntimeout = \"20s\"\n\n[output]\nformat = \"dual\"\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SCRAPER_CONFIG", path)
	t.Setenv("SCRAPER_TIMEOUT", "30s")

	cfg, target, err := loadConfig([]string{"-addr", ":5000", "-url", " https://example.test/ "})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddr != ":5000" {
		t.Fatalf("addr=%q, want flag value :5000", cfg.ListenAddr)
	}
	if cfg.Timeout != 30*time.Second {
		t.Fatalf("timeout=%v, want env value 30s", cfg.Timeout)
	}
	if cfg.OutputFormat != "dual" {
		t.Fatalf("format=%q, want file value dual", cfg.OutputFormat)
	}
	if target != "https://example.test/" {
		t.Fatalf("target=%q", target)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	if _, _, err := loadConfig([]string{"-format", "xml"}); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, _, err := loadConfig([]string{"-unknown"}); err == nil {
		t.Fatalf("expected flag parse error")
	}
}

func TestScrapeOnce(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://example.test/",
		httpmock.NewStringResponder(http.StatusOK, `<html><head><title>Demo</title></head><body><h1>Hello</h1><p>World</p></body></html>`))

	runner := scraper.NewRunner(config.DefaultConfig(), status.NewTracker(), nil)
	runner.WithTransport(transport)

	var out bytes.Buffer
	if code := scrapeOnce(context.Background(), runner, "https://example.test/", &out); code != 0 {
		t.Fatalf("exit code=%d, want 0", code)
	}

	var result models.ScrapeResult
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if result.Title != "Demo" || result.WordCount != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}

	out.Reset()
	if code := scrapeOnce(context.Background(), runner, "", &out); code != 1 {
		t.Fatalf("exit code=%d, want 1", code)
	}
	if out.Len() != 0 {
		t.Fatalf("failure should not print a result, got %q", out.String())
	}
}
