package fwi

import "time"

// Code bounds.
const (
	MinFFMC = 0.0
	MaxFFMC = 101.0
)

// Weather is one day's noon observation for a single location.
type Weather struct {
	Temperature      float64    // °C, any sign
	RelativeHumidity float64    // %, 0-100
	WindSpeed        float64    // km/h, >= 0
	Rainfall         float64    // mm over the past 24h, >= 0
	Month            time.Month // selects the day-length tables
}

// Validate checks the observation ranges shared by every updater.
func (w Weather) Validate() error {
	const op = "Weather"
	if err := checkFinite(op, "temp", w.Temperature); err != nil {
		return err
	}
	if err := checkRange(op, "rh", w.RelativeHumidity, 0, 100); err != nil {
		return err
	}
	if err := checkNonNegative(op, "wind", w.WindSpeed); err != nil {
		return err
	}
	if err := checkNonNegative(op, "rain", w.Rainfall); err != nil {
		return err
	}
	return checkMonth(op, int(w.Month))
}

// Codes is the moisture state carried from one day to the next.
type Codes struct {
	FFMC float64 `json:"ffmc"`
	DMC  float64 `json:"dmc"`
	DC   float64 `json:"dc"`
}

// DefaultStartCodes are the customary start-of-season values.
var DefaultStartCodes = Codes{FFMC: 85, DMC: 6, DC: 15}

// Validate checks that c is an admissible carried state: FFMC within
// [MinFFMC, MaxFFMC], DMC non-negative and a finite DC.
func (c Codes) Validate() error {
	if err := checkRange("Codes", "ffmc", c.FFMC, MinFFMC, MaxFFMC); err != nil {
		return err
	}
	if err := checkNonNegative("Codes", "dmc", c.DMC); err != nil {
		return err
	}
	return checkFinite("Codes", "dc", c.DC)
}

// Indices are the behaviour indices derived from a day's codes.
type Indices struct {
	ISI float64 `json:"isi"`
	BUI float64 `json:"bui"`
	FWI float64 `json:"fwi"`
}

// Result is a complete evaluation for one day.
type Result struct {
	Codes
	Indices
	DSR   float64     `json:"dsr"`
	Class DangerClass `json:"class"`
}
