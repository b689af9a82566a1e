package worker

import (
	"github.com/okian/fwi/internal/domain/model"
	"github.com/okian/fwi/pkg/logger"
)

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithPublisher publishes every applied day.
func WithPublisher(p Publisher) Option {
	return func(pl *Pool) {
		if p != nil {
			pl.publisher = p
		}
	}
}

// WithLogger sets a custom logger for the pool and its workers.
func WithLogger(l logger.Logger) Option {
	return func(pl *Pool) {
		if l != nil {
			pl.logger = l
		}
	}
}

// WithInboxSize sets the per-worker buffer between the dispatcher and the worker.
func WithInboxSize(n int) Option {
	return func(pl *Pool) {
		if n > 0 {
			pl.inboxSize = n
		}
	}
}

// WithErrorHandler is called for every observation that fails to apply.
func WithErrorHandler(fn func(model.Observation, error)) Option {
	return func(pl *Pool) {
		pl.onError = fn
	}
}
