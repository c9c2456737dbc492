// Package scenario replays hourly glucose series against a running infusion
// service and checks every answer against the local protocol.
package scenario

import (
	"errors"
	"time"
)

// Errors returned by the runner.
var (
	ErrNoSeries    = errors.New("no series to replay")
	ErrEmptySeries = errors.New("series has no readings")
	ErrUnhealthy   = errors.New("service health check failed")
	ErrRejected    = errors.New("service rejected request")
	ErrMismatch    = errors.New("service answer differs from local protocol")
)

// Config holds configuration for a titration check.
type Config struct {
	BaseURL    string        // Base URL of the service
	Series     []Series      // Series to replay
	Workers    int           // Number of series replayed concurrently
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Optional JSON report path
	Verbose    bool          // Log every step
}

// Series is one patient's hourly readings in mg/dL.
type Series struct {
	Name     string    `koanf:"name" json:"name"`
	Readings []float64 `koanf:"readings" json:"readings"`
}

// Step is one replayed reading with the server and local answers.
type Step struct {
	Index     int     `json:"index"`
	Mode      string  `json:"mode"`
	Glucose   float64 `json:"glucose"`
	Previous  float64 `json:"previous_glucose,omitempty"`
	LastRate  float64 `json:"last_rate"`
	Bolus     float64 `json:"bolus_units,omitempty"`
	Expected  float64 `json:"expected_rate"`
	Actual    float64 `json:"actual_rate"`
	Stopped   bool    `json:"stopped"`
	Match     bool    `json:"match"`
	RequestID string  `json:"request_id"`
}

// SeriesResult holds the replay of a single series.
type SeriesResult struct {
	Name       string `json:"name"`
	Steps      []Step `json:"steps"`
	Mismatches int    `json:"mismatches"`
	Err        string `json:"error,omitempty"`
}

// Report summarizes a run.
type Report struct {
	RunID      string         `json:"run_id"`
	Series     []SeriesResult `json:"series"`
	Steps      int            `json:"steps"`
	Mismatches int            `json:"mismatches"`
	Failed     int            `json:"failed"`
	StartTime  time.Time      `json:"start_time"`
	Duration   time.Duration  `json:"duration"`
}
