package fwi

import (
	"context"
	"fmt"
	"math"
)

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithRainCorrection selects the FFMC rain wetting formula.
func WithRainCorrection(rc RainCorrection) Option {
	return func(c *Calculator) {
		c.rain = rc
	}
}

// WithDroughtCodeFloor floors the Drought Code at zero.
func WithDroughtCodeFloor() Option {
	return func(c *Calculator) {
		c.floorDC = true
	}
}

// Calculator evaluates the full index chain for one day. The zero value is
// not usable; construct with NewCalculator.
type Calculator struct {
	rain    RainCorrection
	floorDC bool
}

// NewCalculator creates a calculator. Without options it reproduces the
// unified rain correction and an unfloored DC.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{rain: RainCorrectionUnified}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultCalculator = NewCalculator()

// Calculate evaluates one day with the default calculator.
func Calculate(w Weather, prev Codes) (Result, error) {
	return defaultCalculator.Calculate(w, prev)
}

// Calculate runs the three moisture updates, then ISI and BUI, then FWI.
func (c *Calculator) Calculate(w Weather, prev Codes) (Result, error) {
	ffmc, err := updateFFMC(w.Temperature, w.RelativeHumidity, w.WindSpeed, w.Rainfall, prev.FFMC, c.rain)
	if err != nil {
		return Result{}, err
	}
	dmc, err := UpdateDMC(w.Temperature, w.RelativeHumidity, w.Rainfall, w.Month, prev.DMC)
	if err != nil {
		return Result{}, err
	}
	dc, err := UpdateDC(w.Temperature, w.Rainfall, w.Month, prev.DC)
	if err != nil {
		return Result{}, err
	}
	if c.floorDC {
		dc = math.Max(0, dc)
	}

	isi, err := ISI(ffmc, w.WindSpeed)
	if err != nil {
		return Result{}, err
	}
	bui, err := BUI(dmc, dc)
	if err != nil {
		return Result{}, err
	}
	fwi, err := FWI(isi, bui)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Codes:   Codes{FFMC: ffmc, DMC: dmc, DC: dc},
		Indices: Indices{ISI: isi, BUI: bui, FWI: fwi},
		DSR:     DSR(fwi),
		Class:   Classify(fwi),
	}, nil
}

// Series evaluates consecutive days for one location, feeding each day's
// codes into the next. It stops at the first failing day.
func (c *Calculator) Series(ctx context.Context, start Codes, days []Weather) ([]Result, error) {
	out := make([]Result, 0, len(days))
	prev := start
	for i, w := range days {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("series cancelled at day %d: %w", i, err)
		}
		r, err := c.Calculate(w, prev)
		if err != nil {
			return out, fmt.Errorf("day %d: %w", i, err)
		}
		out = append(out, r)
		prev = r.Codes
	}
	return out, nil
}

// RainCorrection reports the configured FFMC rain correction.
func (c *Calculator) RainCorrection() RainCorrection { return c.rain }

// FloorsDroughtCode reports whether DC is floored at zero.
func (c *Calculator) FloorsDroughtCode() bool { return c.floorDC }
