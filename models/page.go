// Package models defines data structures for the scraper.
package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Fixed classification tags attached to every scraped page.
const (
	TypeWebpage            = "webpage"
	CategoryScrapedContent = "scraped_content"
)

// ScrapeTarget is a validated absolute http(s) URL. The zero value is not usable.
type ScrapeTarget struct {
	raw    string
	parsed *url.URL
}

// ParseTarget validates raw and returns the target it names.
func ParseTarget(raw string) (ScrapeTarget, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ScrapeTarget{}, fmt.Errorf("URL is required")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return ScrapeTarget{}, fmt.Errorf("invalid URL format: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ScrapeTarget{}, fmt.Errorf("invalid URL format: unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Hostname() == "" {
		return ScrapeTarget{}, fmt.Errorf("invalid URL format: missing host")
	}

	return ScrapeTarget{raw: raw, parsed: parsed}, nil
}

// String returns the URL exactly as it was supplied.
func (t ScrapeTarget) String() string {
	return t.raw
}

// URL returns a copy of the parsed URL.
func (t ScrapeTarget) URL() *url.URL {
	if t.parsed == nil {
		return nil
	}
	copied := *t.parsed
	return &copied
}

// Hostname returns the host without any port.
func (t ScrapeTarget) Hostname() string {
	if t.parsed == nil {
		return ""
	}
	return t.parsed.Hostname()
}

// Port returns the explicit port, or the default port of the scheme.
func (t ScrapeTarget) Port() string {
	if t.parsed == nil {
		return ""
	}
	if port := t.parsed.Port(); port != "" {
		return port
	}
	if t.parsed.Scheme == "https" {
		return "443"
	}
	return "80"
}

// IsZero reports whether t was never parsed.
func (t ScrapeTarget) IsZero() bool {
	return t.parsed == nil
}

// ScrapeResult is the record produced by one successful fetch and extraction.
type ScrapeResult struct {
	Title       string    `csv:"title" json:"title"`
	URL         string    `csv:"url" json:"url"`
	Content     string    `csv:"content" json:"content"`
	Description string    `csv:"description" json:"description"`
	Headings    []string  `csv:"headings" json:"headings"`
	Source      string    `csv:"source" json:"source"`
	Type        string    `csv:"type" json:"type"`
	Category    string    `csv:"category" json:"category"`
	ScrapedAt   time.Time `csv:"scraped_at" json:"scraped_at"`
	WordCount   int       `csv:"word_count" json:"word_count"`
	Status      int       `csv:"status" json:"status"`
}
