package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted         = errors.New("service not started")
	ErrBackpressure       = errors.New("observation queue is full")
	ErrInvalidObservation = errors.New("invalid observation")
)
