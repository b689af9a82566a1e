package service

import (
	"github.com/jonboulle/clockwork"
	"github.com/okian/fwi/internal/adapters/mq/worker"
	"github.com/okian/fwi/internal/domain/fwi"
	"github.com/okian/fwi/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of station workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued observations.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the number of remembered observation ids. 0 keeps
// every id; negative sizes are ignored.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.dedupeSize = size
		}
	}
}

// WithShardCount sets the number of station store shards.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithAllowGaps accepts observations that skip calendar days.
func WithAllowGaps(allow bool) Option {
	return func(s *Service) {
		s.allowGaps = allow
	}
}

// WithStartCodes sets the codes a new station starts from.
func WithStartCodes(c fwi.Codes) Option {
	return func(s *Service) {
		s.startCodes = c
	}
}

// WithCalculatorOptions configures the index calculator.
func WithCalculatorOptions(opts ...fwi.Option) Option {
	return func(s *Service) {
		s.calcOpts = append(s.calcOpts, opts...)
	}
}

// WithPublisher publishes every applied day.
func WithPublisher(p worker.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithClock sets the clock for timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
