// Package loadtest drives a running service with synthetic station
// observations and checks the resulting station state against a local
// calculation.
package loadtest

import (
	"time"

	"github.com/okian/fwi/internal/domain/fwi"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Stations   int           // Number of synthetic stations
	Days       int           // Consecutive days per station
	Start      time.Time     // First day of every station
	Workers    int           // Concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	DrainWait  time.Duration // How long to wait for the queue to drain
	Seed       uint64        // Weather generator seed
	OutputFile string        // Optional JSON dump of the observations
	Verbose    bool
}

// Observation is one submitted station-day.
type Observation struct {
	StationID string  `json:"station_id"`
	Date      string  `json:"date"`
	Temp      float64 `json:"temp"`
	RH        float64 `json:"rh"`
	Wind      float64 `json:"wind"`
	Rain      float64 `json:"rain"`
}

// AckResponse is the answer to an observation submission.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
	ID        string `json:"id"`
}

// StationView is the subset of a station's state the run verifies.
type StationView struct {
	StationID    string    `json:"station_id"`
	LastDate     string    `json:"last_date"`
	Codes        fwi.Codes `json:"codes"`
	Observations int       `json:"observations"`
}

// Stats holds run statistics.
type Stats struct {
	Generated  int
	Submitted  int
	Accepted   int
	Duplicate  int
	Failed     int
	Retried    int
	Verified   int
	Mismatched int
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}
