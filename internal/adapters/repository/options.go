package repository

import (
	"github.com/jonboulle/clockwork"
	"github.com/okian/fwi/internal/domain/fwi"
)

// Option applies a configuration option to the ShardedStore.
type Option func(*ShardedStore)

// WithShardCount sets the number of lock shards.
func WithShardCount(n int) Option {
	return func(s *ShardedStore) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithAllowGaps accepts observations that skip days. The carried codes are
// applied as if the missing days never happened.
func WithAllowGaps(allow bool) Option {
	return func(s *ShardedStore) {
		s.allowGaps = allow
	}
}

// WithStartCodes sets the codes an unknown station starts from.
func WithStartCodes(c fwi.Codes) Option {
	return func(s *ShardedStore) {
		s.start = c
	}
}

// WithClock sets the clock used for UpdatedAt stamps.
func WithClock(c clockwork.Clock) Option {
	return func(s *ShardedStore) {
		if c != nil {
			s.clock = c
		}
	}
}
