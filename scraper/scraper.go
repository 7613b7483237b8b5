package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aluiziolira/go-page-scraper/config"
	"github.com/aluiziolira/go-page-scraper/models"
	"github.com/aluiziolira/go-page-scraper/parser"
	"github.com/aluiziolira/go-page-scraper/status"
)

// ResultSaver persists the results of a completed job and returns the name
// they were stored under.
type ResultSaver interface {
	Save(results []*models.ScrapeResult) (string, error)
}

// persister is implemented by savers that can report whether results reach disk.
type persister interface {
	Persistent() bool
}

func savedMessage(saver ResultSaver, name string) string {
	if p, ok := saver.(persister); ok && !p.Persistent() {
		return fmt.Sprintf("Kept results in memory as %s", name)
	}
	return fmt.Sprintf("Saved results to %s", name)
}

// Runner drives one scrape job at a time through fetch, extraction and
// persistence, reporting progress on the tracker.
type Runner struct {
	cfg       *config.Config
	fetcher   *Fetcher
	extractor parser.Extractor
	tracker   *status.Tracker
	saver     ResultSaver
	Metrics   *Metrics

	mu     sync.Mutex
	latest *models.ScrapeResult
}

// NewRunner builds a runner configured from cfg. saver may be nil, in which
// case results are kept in memory only.
func NewRunner(cfg *config.Config, tracker *status.Tracker, saver ResultSaver) *Runner {
	metrics := NewMetrics()
	return &Runner{
		cfg:       cfg,
		fetcher:   NewFetcher(cfg, metrics),
		extractor: parser.NewRegexExtractor(),
		tracker:   tracker,
		saver:     saver,
		Metrics:   metrics,
	}
}

// WithTransport replaces the round tripper used by the fetcher.
func (r *Runner) WithTransport(transport http.RoundTripper) {
	r.fetcher.WithTransport(transport)
}

// WithExtractor swaps the extraction strategy.
func (r *Runner) WithExtractor(extractor parser.Extractor) {
	r.extractor = extractor
}

// Scrape runs a complete job for rawURL and blocks until it finishes.
// Invalid input and job conflicts are rejected without touching the
// tracker; every other failure is recorded on it before being returned.
func (r *Runner) Scrape(ctx context.Context, rawURL string) (result *models.ScrapeResult, err error) {
	target, err := models.ParseTarget(rawURL)
	if err != nil {
		r.Metrics.IncError("invalid_input")
		return nil, ErrInvalidInput{Err: err}
	}

	jobID, err := r.tracker.Start(target.String())
	if err != nil {
		r.Metrics.IncError(ErrorTypeLabel(err))
		return nil, err
	}

	logger := slog.With(slog.String("job_id", jobID), slog.String("url", target.String()))
	logger.Info("scrape started")

	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = r.fail(logger, fmt.Errorf("internal error: %v", rec))
		}
	}()

	r.tracker.Advance(status.ProgressConnecting, fmt.Sprintf("Connecting to %s", target.Hostname()))
	page, err := r.fetcher.Fetch(ctx, target)
	if err != nil {
		return nil, r.fail(logger, err)
	}

	r.tracker.Advance(status.ProgressProcessing,
		fmt.Sprintf("Processing content (HTTP %d, %d bytes)", page.StatusCode, len(page.Body)))
	result, err = r.extractor.Extract(page.Body, target)
	if err != nil {
		var parseErr parser.ParseError
		if !errors.As(err, &parseErr) {
			err = parser.ParseError{Err: err}
		}
		return nil, r.fail(logger, err)
	}
	result.Status = page.StatusCode
	r.Metrics.ObserveWords(result.WordCount)

	if r.saver != nil {
		name, err := r.saver.Save([]*models.ScrapeResult{result})
		if err != nil {
			return nil, r.fail(logger, ErrPersistence{Err: err})
		}
		r.tracker.Advance(status.ProgressProcessing, savedMessage(r.saver, name))
		logger.Debug("results saved", slog.String("name", name))
	}

	r.mu.Lock()
	r.latest = result
	r.mu.Unlock()

	r.tracker.Finish(true, fmt.Sprintf("Scrape completed: %s (%d words)", result.Title, result.WordCount))
	r.Metrics.IncJob("success")
	logger.Info("scrape completed",
		slog.Int("status", result.Status),
		slog.Int("word_count", result.WordCount),
		slog.String("content_type", page.ContentType),
		slog.Duration("fetch_duration", page.Duration),
	)
	return result, nil
}

// Status returns a snapshot of the tracker.
func (r *Runner) Status() models.StatusRecord {
	return r.tracker.Snapshot()
}

// Running reports whether a job is in flight.
func (r *Runner) Running() bool {
	return r.tracker.Running()
}

// Latest returns the most recent successful result of this process.
func (r *Runner) Latest() (*models.ScrapeResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest, r.latest != nil
}

func (r *Runner) fail(logger *slog.Logger, err error) error {
	category := ErrorTypeLabel(err)
	r.Metrics.IncError(category)
	r.Metrics.IncJob("failure")
	r.tracker.Finish(false, err.Error())
	level := slog.LevelError
	if category == "canceled" {
		level = slog.LevelWarn
	}
	logger.Log(context.Background(), level, "scrape failed",
		slog.String("category", category),
		slog.Any("error", err),
	)
	return err
}
