package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/aluiziolira/go-page-scraper/config"
	"github.com/aluiziolira/go-page-scraper/models"
	"github.com/gocolly/colly/v2"
)

// FetchResult is the raw outcome of a single GET.
type FetchResult struct {
	StatusCode  int
	Body        []byte
	ContentType string
	Duration    time.Duration
}

// Fetcher performs one GET per call through a fresh colly collector. It
// holds no per-request state and is safe for concurrent use.
type Fetcher struct {
	cfg       *config.Config
	transport http.RoundTripper
	Metrics   *Metrics
}

// NewFetcher builds a fetcher configured from cfg.
func NewFetcher(cfg *config.Config, metrics *Metrics) *Fetcher {
	return &Fetcher{
		cfg:       cfg,
		transport: newTransport(cfg.Timeout),
		Metrics:   metrics,
	}
}

// WithTransport replaces the round tripper used for outbound requests.
func (f *Fetcher) WithTransport(transport http.RoundTripper) {
	f.transport = transport
}

func newTransport(timeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// Fetch issues a GET for target and returns the status code and full body,
// whatever the status. Failures are ErrTimeout or ErrConnection.
func (f *Fetcher) Fetch(ctx context.Context, target models.ScrapeTarget) (*FetchResult, error) {
	if target.IsZero() {
		return nil, ErrInvalidInput{Err: errors.New("missing target")}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	collector := colly.NewCollector(
		colly.UserAgent(f.cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(f.cfg.MaxBodySize),
	)
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(f.cfg.Timeout)
	collector.WithTransport(&contextTransport{ctx: ctx, base: f.transport})

	var result *FetchResult
	start := time.Now()

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		f.Metrics.IncRequest("started")
		slog.Debug("fetch request",
			slog.String("url", r.URL.String()),
			slog.String("port", target.Port()),
		)
	})

	collector.OnResponse(func(r *colly.Response) {
		elapsed := time.Since(start)
		f.Metrics.ObserveDuration(elapsed)
		f.Metrics.IncRequest("completed")
		if r.StatusCode >= http.StatusBadRequest {
			slog.Warn("non-2xx response",
				slog.Int("status", r.StatusCode),
				slog.String("url", r.Request.URL.String()),
			)
		}
		contentType := ""
		if r.Headers != nil {
			contentType = r.Headers.Get("Content-Type")
		}
		result = &FetchResult{
			StatusCode:  r.StatusCode,
			Body:        r.Body,
			ContentType: contentType,
			Duration:    elapsed,
		}
	})

	if err := collector.Visit(target.String()); err != nil {
		f.Metrics.IncRequest("failed")
		return nil, classifyError(err)
	}
	if result == nil {
		f.Metrics.IncRequest("failed")
		return nil, ErrConnection{Err: fmt.Errorf("no response received from %s", target.Hostname())}
	}
	return result, nil
}

// contextTransport binds every request to the fetch context so the
// timeout also aborts body reads.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t *contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req.WithContext(t.ctx))
}
