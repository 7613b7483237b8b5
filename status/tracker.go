// Package status tracks the progress of the single scrape job the process
// runs at a time.
package status

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aluiziolira/go-page-scraper/models"
	"github.com/google/uuid"
)

// Checkpoints reported as a job moves through its phases.
const (
	ProgressStarted    = 0
	ProgressConnecting = 25
	ProgressProcessing = 75
	ProgressDone       = 100
)

// ErrJobConflict is returned by Start while another job is running.
var ErrJobConflict = errors.New("scraper is already running")

// Tracker owns the shared StatusRecord. All methods are safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	record models.StatusRecord
	target string
	now    func() time.Time
}

// NewTracker returns an idle tracker.
func NewTracker() *Tracker {
	return &Tracker{
		record: models.StatusRecord{Logs: []string{}},
		now:    time.Now,
	}
}

// Start resets the record for a new job on target. It fails with
// ErrJobConflict, leaving the record untouched, if a job is running.
func (t *Tracker) Start(target string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.record.IsRunning {
		return "", ErrJobConflict
	}

	jobID := uuid.NewString()
	t.target = target
	t.record = models.StatusRecord{
		JobID:     jobID,
		IsRunning: true,
		Progress:  ProgressStarted,
		Logs:      []string{t.line(fmt.Sprintf("Starting scrape of %s", target))},
	}
	return jobID, nil
}

// Advance appends message and raises progress to value. Progress never
// moves backwards. It is a no-op when no job is running.
func (t *Tracker) Advance(value int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.record.IsRunning {
		return
	}
	value = clamp(value)
	if value > t.record.Progress {
		t.record.Progress = value
	}
	t.record.Logs = append(t.record.Logs, t.line(message))
}

// Finish completes the running job. Failed jobs complete too, so pollers
// always observe progress 100 and isRunning false.
func (t *Tracker) Finish(success bool, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.record.IsRunning {
		return
	}
	if !success {
		message = "Error: " + message
	}
	t.record.Progress = ProgressDone
	t.record.IsRunning = false
	t.record.Logs = append(t.record.Logs, t.line(message))
}

// Running reports whether a job is in flight.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.record.IsRunning
}

// Snapshot returns a copy of the record that is safe to serialise.
func (t *Tracker) Snapshot() models.StatusRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := t.record
	out.Logs = make([]string, len(t.record.Logs))
	copy(out.Logs, t.record.Logs)
	if t.record.JobID != "" {
		target := t.target
		out.CurrentTarget = &target
	}
	return out
}

func (t *Tracker) line(message string) string {
	return fmt.Sprintf("[%s] %s", t.now().Format("15:04:05"), message)
}

func clamp(value int) int {
	switch {
	case value < 0:
		return 0
	case value > ProgressDone:
		return ProgressDone
	default:
		return value
	}
}
