package parser

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/aluiziolira/go-page-scraper/models"
)

func mustTarget(t *testing.T, raw string) models.ScrapeTarget {
	t.Helper()
	target, err := models.ParseTarget(raw)
	if err != nil {
		t.Fatalf("parse target %q: %v", raw, err)
	}
	return target
}

func fixedExtractor() *RegexExtractor {
	return &RegexExtractor{now: func() time.Time {
		return time.Date(2025, 11, 4, 13, 9, 13, 0, time.UTC)
	}}
}

func TestExtractDemoPage(t *testing.T) {
	body := `<html><head><title>Demo</title><meta name="description" content="A demo"></head><body><h1>Hello</h1><p>World</p></body></html>`
	target := mustTarget(t, "https://example.test/page")

	result, err := fixedExtractor().Extract([]byte(body), target)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if result.Title != "Demo" {
		t.Fatalf("title=%q, want %q", result.Title, "Demo")
	}
	if result.Description != "A demo" {
		t.Fatalf("description=%q, want %q", result.Description, "A demo")
	}
	if !reflect.DeepEqual(result.Headings, []string{"Hello"}) {
		t.Fatalf("headings=%v, want [Hello]", result.Headings)
	}
	if !strings.Contains(result.Content, "Hello World") {
		t.Fatalf("content=%q, want it to contain %q", result.Content, "Hello World")
	}
	if result.Content != "Hello World" {
		t.Fatalf("content=%q, want %q", result.Content, "Hello World")
	}
	if result.WordCount != 2 {
		t.Fatalf("word_count=%d, want 2", result.WordCount)
	}
	if result.Source != "example.test" {
		t.Fatalf("source=%q, want example.test", result.Source)
	}
	if result.URL != "https://example.test/page" {
		t.Fatalf("url=%q, want verbatim target", result.URL)
	}
	if result.Type != models.TypeWebpage || result.Category != models.CategoryScrapedContent {
		t.Fatalf("type/category=%q/%q", result.Type, result.Category)
	}
	if !result.ScrapedAt.Equal(time.Date(2025, 11, 4, 13, 9, 13, 0, time.UTC)) {
		t.Fatalf("scraped_at=%v", result.ScrapedAt)
	}
}

func TestExtractWordCountUsesFullText(t *testing.T) {
	body := "<html><body><p>" + strings.Repeat("word ", 500) + "</p></body></html>"
	target := mustTarget(t, "https://example.test/long")

	result, err := fixedExtractor().Extract([]byte(body), target)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if result.WordCount != 500 {
		t.Fatalf("word_count=%d, want 500", result.WordCount)
	}
	if !strings.HasSuffix(result.Content, TruncationMarker) {
		t.Fatalf("content should end with truncation marker")
	}
	if got := len([]rune(result.Content)); got != MaxContentLength+len(TruncationMarker) {
		t.Fatalf("content length=%d, want %d", got, MaxContentLength+len(TruncationMarker))
	}
}

func TestExtractStripsScriptAndStyle(t *testing.T) {
	body := `<html><head><style>.a { color: red; }</style><SCRIPT type="text/javascript">
alert('x')
</SCRIPT></head><body><script>alert('x')</script><p>visible</p></body></html>`
	target := mustTarget(t, "https://example.test/")

	result, err := fixedExtractor().Extract([]byte(body), target)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if strings.Contains(result.Content, "alert") {
		t.Fatalf("script content leaked: %q", result.Content)
	}
	if strings.Contains(result.Content, "color") {
		t.Fatalf("style content leaked: %q", result.Content)
	}
	if result.Content != "visible" {
		t.Fatalf("content=%q, want %q", result.Content, "visible")
	}
	if result.WordCount != 1 {
		t.Fatalf("word_count=%d, want 1", result.WordCount)
	}
}

func TestExtractMissingTitleUsesPlaceholder(t *testing.T) {
	target := mustTarget(t, "https://example.test/")

	result, err := fixedExtractor().Extract([]byte("<html><body><p>no head</p></body></html>"), target)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if result.Title != PlaceholderTitle {
		t.Fatalf("title=%q, want placeholder", result.Title)
	}
	if result.Description != "" {
		t.Fatalf("description=%q, want empty", result.Description)
	}
	if result.Headings == nil || len(result.Headings) != 0 {
		t.Fatalf("headings=%#v, want empty non-nil slice", result.Headings)
	}
}

func TestExtractEmptyBody(t *testing.T) {
	target := mustTarget(t, "https://example.test/")

	result, err := fixedExtractor().Extract(nil, target)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if result.Content != "" || result.WordCount != 0 {
		t.Fatalf("content=%q word_count=%d, want empty/0", result.Content, result.WordCount)
	}
}

func TestExtractZeroTargetFails(t *testing.T) {
	_, err := fixedExtractor().Extract([]byte("<title>x</title>"), models.ScrapeTarget{})
	var parseErr ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestExtractHeadings(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "document order",
			input:    "<h1>One</h1><h2>skip</h2><h1>Two</h1>",
			expected: []string{"One", "Two"},
		},
		{
			name:     "inner tags stripped",
			input:    `<H1 class="hero"><a href="/">Go <em>fast</em></a></H1>`,
			expected: []string{"Go fast"},
		},
		{
			name:     "empty dropped",
			input:    "<h1>   </h1><h1><img src=x></h1><h1>Kept</h1>",
			expected: []string{"Kept"},
		},
		{
			name:     "capped at five",
			input:    "<h1>1</h1><h1>2</h1><h1>3</h1><h1>4</h1><h1>5</h1><h1>6</h1>",
			expected: []string{"1", "2", "3", "4", "5"},
		},
		{
			name:     "spans lines",
			input:    "<h1>\n  Multi\n  line\n</h1>",
			expected: []string{"Multi line"},
		},
		{
			name:     "entities decoded",
			input:    "<h1>Tom &amp; Jerry</h1>",
			expected: []string{"Tom & Jerry"},
		},
		{
			name:     "none",
			input:    "<p>no headings</p>",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractHeadings(tt.input, MaxHeadings)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("ExtractHeadings(%q) = %#v, want %#v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "simple", input: "<title>Demo</title>", expected: "Demo"},
		{name: "case insensitive", input: "<TITLE lang=\"en\">Upper</TITLE>", expected: "Upper"},
		{name: "first wins", input: "<title>First</title><title>Second</title>", expected: "First"},
		{name: "trimmed", input: "<title>\n  Spaced  Out \n</title>", expected: "Spaced Out"},
		{name: "entity", input: "<title>Q&amp;A</title>", expected: "Q&A"},
		{name: "missing", input: "<html></html>", expected: PlaceholderTitle},
		{name: "blank", input: "<title>   </title>", expected: PlaceholderTitle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractTitle(tt.input); got != tt.expected {
				t.Errorf("ExtractTitle(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestExtractDescription(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "double quotes", input: `<meta name="description" content="A demo">`, expected: "A demo"},
		{name: "single quotes", input: `<meta name='description' content='Single'>`, expected: "Single"},
		{name: "case insensitive", input: `<META NAME="Description" CONTENT="Loud" />`, expected: "Loud"},
		{name: "first wins", input: `<meta name="description" content="one"><meta name="description" content="two">`, expected: "one"},
		{name: "other meta ignored", input: `<meta name="keywords" content="a,b">`, expected: ""},
		{name: "missing", input: `<head></head>`, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractDescription(tt.input); got != tt.expected {
				t.Errorf("ExtractDescription(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "tags become spaces", input: "<p>a</p><p>b</p>", expected: "a b"},
		{name: "whitespace collapsed", input: "  a \n\t b  ", expected: "a b"},
		{name: "script removed", input: "x<script>var y = 1;</script>z", expected: "xz"},
		{name: "style removed", input: "x<style>p{}</style> z", expected: "x z"},
		{name: "title removed", input: "<title>Head</title><p>body</p>", expected: "body"},
		{name: "entities decoded", input: "fish&nbsp;&amp;&nbsp;chips", expected: "fish & chips"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.input); got != tt.expected {
				t.Errorf("CleanText(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{name: "short", input: "abc", max: 5, expected: "abc"},
		{name: "exact", input: "abcde", max: 5, expected: "abcde"},
		{name: "cut", input: "abcdef", max: 5, expected: "abcde..."},
		{name: "multibyte", input: "ééééé", max: 2, expected: "éé..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.input, tt.max); got != tt.expected {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.expected)
			}
		})
	}
}
