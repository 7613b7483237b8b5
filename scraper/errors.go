package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/aluiziolira/go-page-scraper/parser"
	"github.com/aluiziolira/go-page-scraper/status"
	"github.com/aluiziolira/go-page-scraper/store"
)

// ErrTimeout indicates the fetch did not complete within the configured timeout.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network failure: DNS, refused or reset connections.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrCanceled indicates the caller abandoned the fetch, for example a client
// disconnect or process shutdown.
type ErrCanceled struct {
	Err error
}

func (e ErrCanceled) Error() string {
	return fmt.Errorf("canceled: %w", e.Err).Error()
}

func (e ErrCanceled) Unwrap() error {
	return e.Err
}

// ErrInvalidInput indicates a missing or unparsable target URL.
type ErrInvalidInput struct {
	Err error
}

func (e ErrInvalidInput) Error() string {
	return fmt.Errorf("invalid_input: %w", e.Err).Error()
}

func (e ErrInvalidInput) Unwrap() error {
	return e.Err
}

// ErrPersistence indicates results could not be written or read back.
type ErrPersistence struct {
	Err error
}

func (e ErrPersistence) Error() string {
	return fmt.Errorf("persistence: %w", e.Err).Error()
}

func (e ErrPersistence) Unwrap() error {
	return e.Err
}

// ErrorTypeLabel returns the short machine-readable category for err.
func ErrorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var invalid ErrInvalidInput
	if errors.As(err, &invalid) {
		return "invalid_input"
	}
	if errors.Is(err, status.ErrJobConflict) {
		return "job_conflict"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var canceled ErrCanceled
	if errors.As(err, &canceled) {
		return "canceled"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var parse parser.ParseError
	if errors.As(err, &parse) {
		return "parse_failure"
	}
	var persistence ErrPersistence
	if errors.As(err, &persistence) {
		return "persistence"
	}
	if errors.Is(err, store.ErrNotFound) {
		return "not_found"
	}
	return "other"
}

// classifyError maps a transport failure onto ErrTimeout, ErrCanceled or
// ErrConnection.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return err
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return err
	}
	var canceled ErrCanceled
	if errors.As(err, &canceled) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return ErrCanceled{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	return ErrConnection{Err: err}
}
