// Package repository holds the carried moisture state of every station.
package repository

import (
	"context"
	"time"

	"github.com/okian/fwi/internal/domain/fwi"
	"github.com/okian/fwi/internal/domain/model"
)

// AdvanceFunc computes the next day from the station's carried codes.
type AdvanceFunc func(prev fwi.Codes) (fwi.Result, error)

// Store provides read/write access to per-station state.
type Store interface {
	// Seed sets the carried codes of a station as of the end of date. A zero
	// date leaves the next observation unconstrained.
	Seed(ctx context.Context, stationID string, codes fwi.Codes, date time.Time) (model.StationState, error)

	// Advance applies obs to its station. Observations of one station are
	// applied one at a time and in calendar order. Unknown stations start
	// from the configured start codes.
	Advance(ctx context.Context, obs model.Observation, fn AdvanceFunc) (model.StationState, error)

	// Get returns ErrNotFound if the station is unknown.
	Get(ctx context.Context, stationID string) (model.StationState, error)

	// List returns every station ordered by id.
	List(ctx context.Context) []model.StationState

	Count(ctx context.Context) int

	// Delete returns ErrNotFound if the station is unknown.
	Delete(ctx context.Context, stationID string) error
}
