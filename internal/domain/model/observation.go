// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/okian/fwi/internal/domain/fwi"
)

// DateLayout is the wire format of observation dates.
const DateLayout = "2006-01-02"

// observationNamespace scopes derived observation IDs.
var observationNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/okian/fwi/observation"))

// Observation is one station's daily weather reading.
type Observation struct {
	ID        string      // unique id for idempotency
	StationID string      // weather station identifier
	Date      time.Time   // civil day of the reading, UTC midnight
	Weather   fwi.Weather // Month is taken from Date
}

// StationState is the carried moisture state of one station plus the
// indices of its most recent day.
type StationState struct {
	StationID    string          `json:"station_id"`
	LastDate     time.Time       `json:"last_date"`
	Codes        fwi.Codes       `json:"codes"`
	Indices      fwi.Indices     `json:"indices"`
	DSR          float64         `json:"dsr"`
	Class        fwi.DangerClass `json:"class"`
	Observations int             `json:"observations"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Started reports whether at least one day has been applied.
func (s StationState) Started() bool {
	return s.Observations > 0
}

// Day truncates t to its civil day in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a DateLayout string into a UTC day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// ObservationID derives a stable id from the station and day so that a
// replayed reading is recognised as a duplicate.
func ObservationID(stationID string, date time.Time) string {
	return uuid.NewSHA1(observationNamespace, []byte(stationID+"|"+Day(date).Format(DateLayout))).String()
}
