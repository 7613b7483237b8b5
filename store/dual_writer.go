package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aluiziolira/go-page-scraper/models"
)

// DualWriter writes the same result set to CSV and JSON.
type DualWriter struct {
	csvWriter  *CSVWriter
	jsonWriter *JSONWriter
	mu         sync.Mutex
}

// NewDualWriter opens both output files.
func NewDualWriter(csvFilename, jsonFilename string) (*DualWriter, error) {
	csvWriter, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, fmt.Errorf("create csv writer: %w", err)
	}

	jsonWriter, err := NewJSONWriter(jsonFilename)
	if err != nil {
		csvWriter.Close()
		return nil, fmt.Errorf("create json writer: %w", err)
	}

	return &DualWriter{csvWriter: csvWriter, jsonWriter: jsonWriter}, nil
}

func (dw *DualWriter) Write(results []*models.ScrapeResult) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if err := dw.csvWriter.Write(results); err != nil {
		return fmt.Errorf("csv write failed: %w", err)
	}
	if err := dw.jsonWriter.Write(results); err != nil {
		return fmt.Errorf("json write failed: %w", err)
	}
	return nil
}

func (dw *DualWriter) Close() error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	var errs []error
	if err := dw.csvWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("csv close failed: %w", err))
	}
	if err := dw.jsonWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("json close failed: %w", err))
	}
	return errors.Join(errs...)
}

func (dw *DualWriter) Validate() error {
	return errors.Join(dw.csvWriter.Validate(), dw.jsonWriter.Validate())
}
