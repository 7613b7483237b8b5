package models

// StatusRecord is a point-in-time view of the current or last scrape job.
type StatusRecord struct {
	JobID         string   `json:"jobId,omitempty"`
	IsRunning     bool     `json:"isRunning"`
	CurrentTarget *string  `json:"currentTarget"`
	Progress      int      `json:"progress"`
	Logs          []string `json:"logs"`
}

// RecentLogs returns at most the last n log lines.
func (s StatusRecord) RecentLogs(n int) []string {
	if n <= 0 || len(s.Logs) <= n {
		out := make([]string, len(s.Logs))
		copy(out, s.Logs)
		return out
	}
	out := make([]string, n)
	copy(out, s.Logs[len(s.Logs)-n:])
	return out
}
