package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrFull   = errors.New("observation queue is full")
	ErrClosed = errors.New("observation queue is closed")
)
