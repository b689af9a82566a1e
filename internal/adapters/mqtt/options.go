package mqtt

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/okian/fwi/pkg/logger"
)

const (
	defaultQoS            byte = 1
	defaultPublishTimeout      = 5 * time.Second
)

type settings struct {
	qos            byte
	retain         bool
	publishTimeout time.Duration
	clock          clockwork.Clock
	logger         logger.Logger
}

func defaults() settings {
	return settings{
		qos:            defaultQoS,
		retain:         true,
		publishTimeout: defaultPublishTimeout,
		clock:          clockwork.NewRealClock(),
		logger:         logger.Get().Named("mqtt"),
	}
}

// Option configures a Subscriber or Publisher.
type Option func(*settings)

// WithQoS sets the quality of service for subscriptions and publications.
func WithQoS(qos byte) Option {
	return func(s *settings) {
		if qos <= 2 {
			s.qos = qos
		}
	}
}

// WithRetain controls whether published indices are retained by the broker.
func WithRetain(retain bool) Option {
	return func(s *settings) {
		s.retain = retain
	}
}

// WithPublishTimeout bounds how long Publish waits for the broker to
// acknowledge a message. Values <= 0 keep the default.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

// WithClock sets the clock that dates observations sent without a date and
// times out publications.
func WithClock(c clockwork.Clock) Option {
	return func(s *settings) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}
