// Package store keeps scrape result sets in memory and on disk.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-page-scraper/models"
)

// ErrNotFound is returned when a named result set or file does not exist.
var ErrNotFound = errors.New("not found")

const (
	namePrefix = "scrape_"
	nameLayout = "20060102T150405.000000000"
)

// Format selects which files Save writes.
const (
	FormatJSON = "json"
	FormatDual = "dual"
)

// ResultStore caches recent result sets and optionally persists each one to
// its own timestamped file.
type ResultStore struct {
	dir    string
	format string
	cache  *lru.Cache[string, []*models.ScrapeResult]
	now    func() time.Time
	open   func(jsonPath string) (Writer, error)

	mu     sync.Mutex
	latest string
}

// Options configures a ResultStore. An empty Dir keeps results in memory only.
type Options struct {
	Dir       string
	Format    string
	CacheSize int
}

// New creates a store and loads previously saved JSON result sets from Dir.
func New(opts Options) (*ResultStore, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 32
	}
	if opts.Format == "" {
		opts.Format = FormatJSON
	}
	if opts.Format != FormatJSON && opts.Format != FormatDual {
		return nil, fmt.Errorf("unsupported output format %q", opts.Format)
	}

	cache, err := lru.New[string, []*models.ScrapeResult](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create result cache: %w", err)
	}

	s := &ResultStore{
		dir:    opts.Dir,
		format: opts.Format,
		cache:  cache,
		now:    time.Now,
	}
	s.open = s.openWriter

	if s.dir != "" {
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory %q: %w", s.dir, err)
		}
		if err := s.warm(opts.CacheSize); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Dir returns the output directory, empty when results are not persisted.
func (s *ResultStore) Dir() string {
	return s.dir
}

// Persistent reports whether saved result sets are written to disk.
func (s *ResultStore) Persistent() bool {
	return s.dir != ""
}

// Save stores results under a new timestamped name and returns that name.
func (s *ResultStore) Save(results []*models.ScrapeResult) (string, error) {
	if results == nil {
		results = []*models.ScrapeResult{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := s.nextName()
	if s.dir != "" {
		if err := s.writeFiles(name, results); err != nil {
			return "", err
		}
	}

	s.cache.Add(name, results)
	s.latest = name
	slog.Debug("result set stored", slog.String("name", name), slog.Int("results", len(results)))
	return name, nil
}

// Latest returns the most recently saved result set.
func (s *ResultStore) Latest() (string, []*models.ScrapeResult, bool) {
	s.mu.Lock()
	name := s.latest
	s.mu.Unlock()

	if name == "" {
		return "", nil, false
	}
	results, err := s.Get(name)
	if err != nil {
		return "", nil, false
	}
	return name, results, true
}

// All returns every cached result set keyed by name.
func (s *ResultStore) All() map[string][]*models.ScrapeResult {
	all := make(map[string][]*models.ScrapeResult, s.cache.Len())
	for _, name := range s.cache.Keys() {
		if results, ok := s.cache.Peek(name); ok {
			all[name] = results
		}
	}
	return all
}

// Get returns a result set by name, reading it from disk if it was evicted.
func (s *ResultStore) Get(name string) ([]*models.ScrapeResult, error) {
	if results, ok := s.cache.Get(name); ok {
		return results, nil
	}
	if s.dir == "" {
		return nil, ErrNotFound
	}

	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	results, err := readResults(path)
	if err != nil {
		return nil, err
	}
	s.cache.Add(name, results)
	return results, nil
}

// Path resolves a file name inside the output directory for download.
func (s *ResultStore) Path(name string) (string, error) {
	if s.dir == "" || !validName(name) {
		return "", ErrNotFound
	}
	path := filepath.Join(s.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("stat %s: %w", name, err)
	}
	if info.IsDir() {
		return "", ErrNotFound
	}
	return path, nil
}

// nextName keeps names strictly increasing even if the clock stalls.
func (s *ResultStore) nextName() string {
	ts := s.now().UTC()
	if last, ok := parseName(s.latest); ok && !ts.After(last) {
		ts = last.Add(time.Nanosecond)
	}
	return formatName(ts)
}

func formatName(ts time.Time) string {
	return namePrefix + ts.UTC().Format(nameLayout) + "Z.json"
}

func parseName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, namePrefix) || !strings.HasSuffix(name, "Z.json") {
		return time.Time{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(name, namePrefix), "Z.json")
	ts, err := time.Parse(nameLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func (s *ResultStore) openWriter(jsonPath string) (Writer, error) {
	if s.format == FormatDual {
		return NewDualWriter(csvPathFor(jsonPath), jsonPath)
	}
	return NewJSONWriter(jsonPath)
}

func csvPathFor(jsonPath string) string {
	return strings.TrimSuffix(jsonPath, ".json") + ".csv"
}

// writeFiles writes, validates and closes the files for one result set.
// Partial files are removed on failure so warm loading never sees them.
func (s *ResultStore) writeFiles(name string, results []*models.ScrapeResult) (err error) {
	jsonPath := filepath.Join(s.dir, name)

	writer, err := s.open(jsonPath)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(jsonPath)
			os.Remove(csvPathFor(jsonPath))
		}
	}()

	if err := writer.Write(results); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Validate(); err != nil {
		writer.Close()
		return fmt.Errorf("validate %s: %w", name, err)
	}
	return writer.Close()
}

func (s *ResultStore) warm(limit int) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read output directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := parseName(entry.Name()); !ok {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	if len(names) > limit {
		names = names[len(names)-limit:]
	}

	for _, name := range names {
		results, err := readResults(filepath.Join(s.dir, name))
		if err != nil {
			slog.Warn("skipping unreadable result file", slog.String("name", name), slog.Any("error", err))
			continue
		}
		s.cache.Add(name, results)
		s.latest = name
	}
	if len(names) > 0 {
		slog.Info("loaded saved results", slog.Int("files", s.cache.Len()), slog.String("dir", s.dir))
	}
	return nil
}

func readResults(path string) ([]*models.ScrapeResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read results: %w", err)
	}
	var results []*models.ScrapeResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return results, nil
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return false
	}
	return filepath.Base(name) == name
}
