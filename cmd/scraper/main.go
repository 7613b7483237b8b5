package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/aluiziolira/go-page-scraper/api"
	"github.com/aluiziolira/go-page-scraper/config"
	"github.com/aluiziolira/go-page-scraper/scraper"
	"github.com/aluiziolira/go-page-scraper/status"
	"github.com/aluiziolira/go-page-scraper/store"
)

const shutdownTimeout = 5 * time.Second

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, targetURL, err := loadConfig(args)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		return 2
	}

	// Keep stdout clean for the JSON result in one-shot mode.
	logOut := os.Stdout
	if targetURL != "" {
		logOut = os.Stderr
	}
	logger, level, closeLog := newLogger(cfg, logOut)
	defer closeLog()
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	results, err := newStore(cfg)
	if err != nil {
		slog.Error("initialising result store", slog.Any("error", err))
		return 1
	}
	runner := scraper.NewRunner(cfg, status.NewTracker(), results)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if targetURL != "" {
		return scrapeOnce(ctx, runner, targetURL, os.Stdout)
	}
	if err := serve(ctx, cfg, runner, results); err != nil {
		slog.Error("server failed", slog.Any("error", err))
		return 1
	}
	return 0
}

// loadConfig layers defaults, the TOML file, SCRAPER_* variables and
// explicitly set flags, in that order.
func loadConfig(args []string) (*config.Config, string, error) {
	defaults := config.DefaultConfig()
	flagCfg := *defaults

	fs := flag.NewFlagSet("scraper", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a TOML configuration file (env SCRAPER_CONFIG)")
	targetURL := fs.String("url", "", "Scrape a single URL, print the result as JSON and exit")
	fs.StringVar(&flagCfg.ListenAddr, "addr", defaults.ListenAddr, "HTTP listen address")
	fs.DurationVar(&flagCfg.Timeout, "timeout", defaults.Timeout, "Request timeout")
	fs.StringVar(&flagCfg.UserAgent, "user-agent", defaults.UserAgent, "User-Agent header sent with every request")
	fs.IntVar(&flagCfg.MaxBodySize, "max-body", defaults.MaxBodySize, "Maximum response body size in bytes (0 = unlimited)")
	fs.StringVar(&flagCfg.OutputDir, "output-dir", defaults.OutputDir, "Directory for saved results")
	fs.StringVar(&flagCfg.OutputFormat, "format", defaults.OutputFormat, "Output format: json or dual")
	fs.BoolVar(&flagCfg.Persist, "persist", defaults.Persist, "Save each result set to the output directory")
	fs.IntVar(&flagCfg.ResultCacheSize, "cache-size", defaults.ResultCacheSize, "Number of result sets kept in memory")
	fs.IntVar(&flagCfg.StatusLogLines, "status-lines", defaults.StatusLogLines, "Log lines returned by /api/status")
	fs.BoolVar(&flagCfg.MetricsEnabled, "metrics", defaults.MetricsEnabled, "Expose Prometheus metrics on /metrics")
	fs.BoolVar(&flagCfg.Verbose, "v", defaults.Verbose, "Enable verbose logging")
	fs.StringVar(&flagCfg.LogFile, "log-file", defaults.LogFile, "Also write JSON logs to this rotated file")
	fs.IntVar(&flagCfg.LogMaxSizeMB, "log-max-size", defaults.LogMaxSizeMB, "Log file size in MB before rotation")
	fs.IntVar(&flagCfg.LogMaxBackups, "log-max-backups", defaults.LogMaxBackups, "Rotated log files to keep")

	if err := fs.Parse(args); err != nil {
		return nil, "", err
	}

	path := *configPath
	if path == "" {
		path, _ = config.EnvString("SCRAPER_CONFIG")
	}

	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, "", err
		}
		cfg = loaded
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, "", err
	}

	fs.Visit(func(f *flag.Flag) {
		applyFlag(cfg, &flagCfg, f.Name)
	})
	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, strings.TrimSpace(*targetURL), nil
}

func applyFlag(cfg, flags *config.Config, name string) {
	switch name {
	case "addr":
		cfg.ListenAddr = flags.ListenAddr
	case "timeout":
		cfg.Timeout = flags.Timeout
	case "user-agent":
		cfg.UserAgent = flags.UserAgent
	case "max-body":
		cfg.MaxBodySize = flags.MaxBodySize
	case "output-dir":
		cfg.OutputDir = flags.OutputDir
	case "format":
		cfg.OutputFormat = flags.OutputFormat
	case "persist":
		cfg.Persist = flags.Persist
	case "cache-size":
		cfg.ResultCacheSize = flags.ResultCacheSize
	case "status-lines":
		cfg.StatusLogLines = flags.StatusLogLines
	case "metrics":
		cfg.MetricsEnabled = flags.MetricsEnabled
	case "v":
		cfg.Verbose = flags.Verbose
	case "log-file":
		cfg.LogFile = flags.LogFile
	case "log-max-size":
		cfg.LogMaxSizeMB = flags.LogMaxSizeMB
	case "log-max-backups":
		cfg.LogMaxBackups = flags.LogMaxBackups
	}
}

func newStore(cfg *config.Config) (*store.ResultStore, error) {
	opts := store.Options{
		Format:    cfg.OutputFormat,
		CacheSize: cfg.ResultCacheSize,
	}
	if cfg.Persist {
		opts.Dir = cfg.OutputDir
	}
	return store.New(opts)
}

func scrapeOnce(ctx context.Context, runner *scraper.Runner, targetURL string, out io.Writer) int {
	result, err := runner.Scrape(ctx, targetURL)
	if err != nil {
		slog.Error("scraping failed",
			slog.String("url", targetURL),
			slog.String("category", scraper.ErrorTypeLabel(err)),
			slog.Any("error", err),
		)
		return 1
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		slog.Error("encoding result", slog.Any("error", err))
		return 1
	}
	return 0
}

func serve(ctx context.Context, cfg *config.Config, runner *scraper.Runner, results *store.ResultStore) error {
	if !cfg.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewRouter(cfg, runner, results),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Timeout + 10*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	slog.Info("scraper server listening",
		slog.String("addr", cfg.ListenAddr),
		slog.Bool("persist", cfg.Persist),
		slog.String("output_dir", results.Dir()),
		slog.Bool("metrics", cfg.MetricsEnabled),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("shutdown signal received, waiting for in-flight requests to finish",
			slog.Bool("scrape_running", runner.Running()),
		)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newLogger(cfg *config.Config, out *os.File) (*slog.Logger, *slog.LevelVar, func()) {
	level := &slog.LevelVar{}
	if cfg.Verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			Compress:   true,
		}
		handler := slog.NewJSONHandler(io.MultiWriter(out, rotator), opts)
		return slog.New(handler), level, func() { rotator.Close() }
	}

	var handler slog.Handler
	if isTerminal(out) {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	return slog.New(handler), level, func() {}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
