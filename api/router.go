// Package api exposes the scraper over HTTP.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-page-scraper/config"
	"github.com/aluiziolira/go-page-scraper/scraper"
	"github.com/aluiziolira/go-page-scraper/store"
)

// Server holds the dependencies shared by the HTTP handlers.
type Server struct {
	cfg     *config.Config
	runner  *scraper.Runner
	results *store.ResultStore
}

// NewRouter wires the HTTP routes. results may be nil when nothing is kept
// between jobs.
func NewRouter(cfg *config.Config, runner *scraper.Runner, results *store.ResultStore) *gin.Engine {
	s := &Server{cfg: cfg, runner: runner, results: results}

	router := gin.New()
	router.Use(Recovery())
	router.Use(RequestLogger())
	router.Use(CORS())

	router.GET("/health", s.health)
	if cfg.MetricsEnabled && runner.Metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(runner.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	routes := router.Group("/api")
	{
		routes.POST("/scrape/url", s.scrapeURL)
		routes.GET("/status", s.status)
		routes.GET("/results", s.listResults)
		routes.GET("/results/latest", s.latestResults)
		routes.GET("/download/:filename", s.download)
	}

	return router
}
