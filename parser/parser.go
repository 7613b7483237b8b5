// Package parser derives structured page content from raw markup using
// pattern matching. It never builds a DOM tree, so badly nested or
// malformed markup can yield wrong element boundaries.
package parser

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aluiziolira/go-page-scraper/models"
)

const (
	// PlaceholderTitle is used when the document has no <title>.
	PlaceholderTitle = "No title found"
	// MaxContentLength is the number of characters kept in ScrapeResult.Content.
	MaxContentLength = 1000
	// TruncationMarker is appended to content that was cut.
	TruncationMarker = "..."
	// MaxHeadings caps the number of <h1> texts kept.
	MaxHeadings = 5
)

var (
	titlePattern       = regexp.MustCompile(`(?i)<title[^>]*>([^<]+)</title>`)
	scriptPattern      = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	stylePattern       = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	titleBlockPattern  = regexp.MustCompile(`(?is)<title[^>]*>.*?</title>`)
	tagPattern         = regexp.MustCompile(`<[^>]+>`)
	descriptionPattern = regexp.MustCompile(`(?i)<meta[^>]*name=["']description["'][^>]*content=["']([^"']+)["'][^>]*>`)
	headingPattern     = regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`)
)

// Extractor turns a fetched document into a ScrapeResult.
type Extractor interface {
	Extract(body []byte, target models.ScrapeTarget) (*models.ScrapeResult, error)
}

// ParseError wraps an unexpected failure while scanning a document.
type ParseError struct {
	Err error
}

func (e ParseError) Error() string {
	return fmt.Errorf("parse_failure: %w", e.Err).Error()
}

func (e ParseError) Unwrap() error {
	return e.Err
}

// RegexExtractor is the pattern-based Extractor.
type RegexExtractor struct {
	now func() time.Time
}

// NewRegexExtractor returns an extractor stamping results with the wall clock.
func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{now: time.Now}
}

// Extract derives title, cleaned content, description and headings from body.
// Status is left zero; the caller owns the HTTP response.
func (x *RegexExtractor) Extract(body []byte, target models.ScrapeTarget) (result *models.ScrapeResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = ParseError{Err: fmt.Errorf("%v", r)}
		}
	}()

	if target.IsZero() {
		return nil, ParseError{Err: fmt.Errorf("missing target")}
	}
	if !utf8.Valid(body) {
		body = []byte(strings.ToValidUTF8(string(body), "\uFFFD"))
	}
	doc := string(body)

	text := CleanText(doc)

	now := time.Now
	if x != nil && x.now != nil {
		now = x.now
	}

	return &models.ScrapeResult{
		Title:       ExtractTitle(doc),
		URL:         target.String(),
		Content:     Truncate(text, MaxContentLength),
		Description: ExtractDescription(doc),
		Headings:    ExtractHeadings(doc, MaxHeadings),
		Source:      target.Hostname(),
		Type:        models.TypeWebpage,
		Category:    models.CategoryScrapedContent,
		ScrapedAt:   now().UTC(),
		WordCount:   WordCount(text),
	}, nil
}

// ExtractTitle returns the text of the first <title> element.
func ExtractTitle(doc string) string {
	match := titlePattern.FindStringSubmatch(doc)
	if match == nil {
		return PlaceholderTitle
	}
	title := collapse(html.UnescapeString(match[1]))
	if title == "" {
		return PlaceholderTitle
	}
	return title
}

// CleanText drops script, style and title blocks, replaces every remaining
// tag with a space and collapses whitespace. The title is reported on its
// own and is not part of the visible body text.
func CleanText(doc string) string {
	doc = scriptPattern.ReplaceAllString(doc, "")
	doc = stylePattern.ReplaceAllString(doc, "")
	doc = titleBlockPattern.ReplaceAllString(doc, "")
	doc = tagPattern.ReplaceAllString(doc, " ")
	return collapse(html.UnescapeString(doc))
}

// ExtractDescription returns the content of the first meta description tag.
func ExtractDescription(doc string) string {
	match := descriptionPattern.FindStringSubmatch(doc)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(match[1]))
}

// ExtractHeadings returns up to limit non-empty <h1> texts in document order.
func ExtractHeadings(doc string, limit int) []string {
	headings := make([]string, 0, limit)
	for _, match := range headingPattern.FindAllStringSubmatch(doc, -1) {
		if len(headings) >= limit {
			break
		}
		text := collapse(html.UnescapeString(tagPattern.ReplaceAllString(match[1], " ")))
		if text == "" {
			continue
		}
		headings = append(headings, text)
	}
	return headings
}

// WordCount counts whitespace-delimited tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Truncate keeps the first max characters of text and appends the marker
// when anything was cut.
func Truncate(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + TruncationMarker
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
