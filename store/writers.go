package store

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/go-page-scraper/models"
)

// Writer persists a result set to a single file.
type Writer interface {
	Write(results []*models.ScrapeResult) error
	Close() error
	Validate() error
}

var csvHeader = []string{
	"title", "url", "content", "description", "headings", "source",
	"type", "category", "scraped_at", "word_count", "status",
}

// CSVWriter writes results to CSV with one row per page.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter creates the file and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(csvHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{file: f, writer: writer}, nil
}

// Write appends results as CSV rows. Headings are joined with " | ".
func (cw *CSVWriter) Write(results []*models.ScrapeResult) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, result := range results {
		record := []string{
			result.Title,
			result.URL,
			result.Content,
			result.Description,
			strings.Join(result.Headings, " | "),
			result.Source,
			result.Type,
			result.Category,
			result.ScrapedAt.Format(time.RFC3339),
			strconv.Itoa(result.WordCount),
			strconv.Itoa(result.Status),
		}
		if err := cw.writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		cw.file.Close()
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// Validate ensures the file holds at least the header.
func (cw *CSVWriter) Validate() error {
	return validateFile(cw.file, "csv")
}

// JSONWriter writes a result set as one indented JSON array.
type JSONWriter struct {
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
}

// NewJSONWriter creates the output file.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}

	return &JSONWriter{file: f, writer: bufio.NewWriter(f)}, nil
}

// Write encodes results as a JSON array with two-space indentation.
func (jw *JSONWriter) Write(results []*models.ScrapeResult) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if results == nil {
		results = []*models.ScrapeResult{}
	}
	encoder := json.NewEncoder(jw.writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(results); err != nil {
		return fmt.Errorf("encode json results: %w", err)
	}
	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		jw.file.Close()
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// Validate ensures the JSON file has data.
func (jw *JSONWriter) Validate() error {
	return validateFile(jw.file, "json")
}

func validateFile(f *os.File, kind string) error {
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s file: %w", kind, err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("%s file is empty", kind)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
