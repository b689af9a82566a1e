package repository

import "errors"

// Sentinel kinds for station store errors.
var (
	ErrNotFound       = errors.New("station not found")
	ErrInvalidStation = errors.New("invalid station id")
	ErrOutOfOrder     = errors.New("observation is not after the station's last day")
	ErrDayGap         = errors.New("observation skips one or more days")
)
