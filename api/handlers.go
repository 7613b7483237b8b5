package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aluiziolira/go-page-scraper/models"
	"github.com/aluiziolira/go-page-scraper/scraper"
	"github.com/aluiziolira/go-page-scraper/store"
)

// statusClientClosedRequest is the de facto code for a request the client
// abandoned before a response was written.
const statusClientClosedRequest = 499

type scrapeRequest struct {
	URL string `json:"url"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "busy": s.runner.Running()})
}

// scrapeURL runs one job synchronously and answers with its result.
func (s *Server) scrapeURL(c *gin.Context) {
	var req scrapeRequest
	// An empty body is treated as {} so it reports the missing URL.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body",
			"type":  "invalid_input",
		})
		return
	}

	result, err := s.runner.Scrape(c.Request.Context(), req.URL)
	if err != nil {
		var invalid scraper.ErrInvalidInput
		if errors.As(err, &invalid) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": invalid.Err.Error(),
				"type":  scraper.ErrorTypeLabel(err),
			})
			return
		}
		c.JSON(statusFor(err), gin.H{
			"error":   "Scraping failed",
			"message": err.Error(),
			"type":    scraper.ErrorTypeLabel(err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Scraping completed successfully",
		"data":    result,
	})
}

func (s *Server) status(c *gin.Context) {
	limit := s.cfg.StatusLogLines
	if raw := c.Query("tail"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tail must be a non-negative integer"})
			return
		}
		limit = n
	}

	record := s.runner.Status()
	record.Logs = record.RecentLogs(limit)
	c.JSON(http.StatusOK, record)
}

func (s *Server) listResults(c *gin.Context) {
	if s.results == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, s.results.All())
}

func (s *Server) latestResults(c *gin.Context) {
	if s.results != nil {
		if name, results, ok := s.results.Latest(); ok {
			c.JSON(http.StatusOK, gin.H{"name": name, "data": results})
			return
		}
	}
	if result, ok := s.runner.Latest(); ok {
		c.JSON(http.StatusOK, gin.H{"name": "", "data": []*models.ScrapeResult{result}})
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "No results yet"})
}

func (s *Server) download(c *gin.Context) {
	filename := c.Param("filename")
	if s.results == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}

	path, err := s.results.Path(filename)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.FileAttachment(path, filename)
}

func statusFor(err error) int {
	switch scraper.ErrorTypeLabel(err) {
	case "invalid_input":
		return http.StatusBadRequest
	case "job_conflict":
		return http.StatusConflict
	case "not_found":
		return http.StatusNotFound
	case "canceled":
		return statusClientClosedRequest
	case "timeout":
		return http.StatusGatewayTimeout
	case "connection":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
