package repository

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/okian/fwi/internal/domain/fwi"
	"github.com/okian/fwi/internal/domain/model"
	"github.com/okian/fwi/pkg/metrics"
)

const defaultShardCount = 16

type shard struct {
	mu     sync.RWMutex
	states map[string]model.StationState
}

// ShardedStore is an in-memory Store. Stations hash onto shards so that
// unrelated stations rarely contend on the same lock.
type ShardedStore struct {
	shards     []*shard
	shardCount int
	allowGaps  bool
	start      fwi.Codes
	clock      clockwork.Clock
	count      atomic.Int64
}

var _ Store = (*ShardedStore)(nil)

// NewShardedStore constructs a store with configuration options.
func NewShardedStore(opts ...Option) *ShardedStore {
	s := &ShardedStore{
		shardCount: defaultShardCount,
		start:      fwi.DefaultStartCodes,
		clock:      clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{states: make(map[string]model.StationState)}
	}
	metrics.UpdateRepositoryShardCount(s.shardCount)
	return s
}

func (s *ShardedStore) shardFor(stationID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(stationID))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Seed implements Store.Seed. Reseeding a station discards its history.
func (s *ShardedStore) Seed(_ context.Context, stationID string, codes fwi.Codes, date time.Time) (model.StationState, error) {
	if stationID == "" {
		return model.StationState{}, ErrInvalidStation
	}
	if err := codes.Validate(); err != nil {
		return model.StationState{}, err
	}
	if !date.IsZero() {
		date = model.Day(date)
	}

	sh := s.shardFor(stationID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.states[stationID]; !ok {
		s.trackNew()
	}
	st := model.StationState{
		StationID: stationID,
		LastDate:  date,
		Codes:     codes,
		UpdatedAt: s.clock.Now(),
	}
	sh.states[stationID] = st
	return st, nil
}

// Advance implements Store.Advance. fn runs under the shard lock and the
// state is left untouched when it fails.
func (s *ShardedStore) Advance(_ context.Context, obs model.Observation, fn AdvanceFunc) (model.StationState, error) {
	start := s.clock.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(s.clock.Since(start).Microseconds()) / 1000)
	}()

	if obs.StationID == "" {
		return model.StationState{}, ErrInvalidStation
	}
	day := model.Day(obs.Date)

	sh := s.shardFor(obs.StationID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	st, ok := sh.states[obs.StationID]
	if !ok {
		st = model.StationState{StationID: obs.StationID, Codes: s.start}
	}
	if !st.LastDate.IsZero() {
		if !day.After(st.LastDate) {
			return st, fmt.Errorf("%w: station %s at %s, got %s", ErrOutOfOrder,
				obs.StationID, st.LastDate.Format(model.DateLayout), day.Format(model.DateLayout))
		}
		if !s.allowGaps && day.After(st.LastDate.AddDate(0, 0, 1)) {
			return st, fmt.Errorf("%w: station %s at %s, got %s", ErrDayGap,
				obs.StationID, st.LastDate.Format(model.DateLayout), day.Format(model.DateLayout))
		}
	}

	res, err := fn(st.Codes)
	if err != nil {
		return st, err
	}

	st.LastDate = day
	st.Codes = res.Codes
	st.Indices = res.Indices
	st.DSR = res.DSR
	st.Class = res.Class
	st.Observations++
	st.UpdatedAt = s.clock.Now()
	sh.states[obs.StationID] = st
	if !ok {
		s.trackNew()
	}
	return st, nil
}

// Get implements Store.Get.
func (s *ShardedStore) Get(_ context.Context, stationID string) (model.StationState, error) {
	sh := s.shardFor(stationID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	st, ok := sh.states[stationID]
	if !ok {
		return model.StationState{}, ErrNotFound
	}
	return st, nil
}

// List implements Store.List.
func (s *ShardedStore) List(_ context.Context) []model.StationState {
	start := s.clock.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(s.clock.Since(start).Microseconds()) / 1000)
	}()

	out := make([]model.StationState, 0, s.count.Load())
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, st := range sh.states {
			out = append(out, st)
		}
		sh.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StationID < out[j].StationID })
	return out
}

// Count implements Store.Count.
func (s *ShardedStore) Count(_ context.Context) int {
	return int(s.count.Load())
}

// Delete implements Store.Delete.
func (s *ShardedStore) Delete(_ context.Context, stationID string) error {
	sh := s.shardFor(stationID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.states[stationID]; !ok {
		return ErrNotFound
	}
	delete(sh.states, stationID)
	metrics.UpdateStationsTracked(int(s.count.Add(-1)))
	return nil
}

func (s *ShardedStore) trackNew() {
	metrics.UpdateStationsTracked(int(s.count.Add(1)))
}
