// Package service wires the station store, intake queue and worker pool
// behind the operations used by the transports.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/okian/fwi/internal/adapters/mq/queue"
	"github.com/okian/fwi/internal/adapters/mq/worker"
	"github.com/okian/fwi/internal/adapters/repository"
	"github.com/okian/fwi/internal/domain/dedupe"
	"github.com/okian/fwi/internal/domain/fwi"
	"github.com/okian/fwi/internal/domain/model"
	"github.com/okian/fwi/pkg/logger"
	"github.com/okian/fwi/pkg/metrics"
)

// Error kinds used in metrics labels.
const (
	kindInvalidInput  = "invalid_input"
	kindNumericDomain = "numeric_domain"
	kindOutOfOrder    = "out_of_order"
	kindDayGap        = "day_gap"
	kindInternal      = "internal"
)

// Service implements the operations behind the HTTP, MQTT and CLI surfaces.
type Service struct {
	mu sync.RWMutex

	store   *repository.ShardedStore
	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	pool    *worker.Pool
	calc    *fwi.Calculator

	workerCount int
	queueSize   int
	dedupeSize  int
	shardCount  int
	allowGaps   bool
	startCodes  fwi.Codes
	calcOpts    []fwi.Option
	publisher   worker.Publisher
	clock       clockwork.Clock

	started   bool
	startedAt time.Time
	cancel    context.CancelFunc

	logger logger.Logger
}

// New constructs a Service. Calculations and station queries work right away;
// Submit needs Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   10_000,
		dedupeSize:  100_000,
		shardCount:  16,
		startCodes:  fwi.DefaultStartCodes,
		clock:       clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.calc = fwi.NewCalculator(s.calcOpts...)
	s.store = repository.NewShardedStore(
		repository.WithShardCount(s.shardCount),
		repository.WithAllowGaps(s.allowGaps),
		repository.WithStartCodes(s.startCodes),
		repository.WithClock(s.clock),
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start creates the queue and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.queue = queue.NewInMemoryQueue(
		queue.WithCapacity(s.queueSize),
		queue.WithClock(s.clock),
	)
	poolOpts := []worker.Option{
		worker.WithLogger(s.logger.Named("workers")),
		worker.WithErrorHandler(s.forget),
	}
	if s.publisher != nil {
		poolOpts = append(poolOpts, worker.WithPublisher(s.publisher))
	}
	s.pool = worker.NewPool(s.workerCount, s.queue, s, poolOpts...)

	// Workers outlive the request context that started the service.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool.Start(runCtx)

	s.started = true
	s.startedAt = s.clock.Now()
	s.logger.Info(ctx, "fire weather service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.Int("shards", s.shardCount),
		logger.Bool("allow_gaps", s.allowGaps),
		logger.String("rain_correction", s.calc.RainCorrection().String()),
		logger.Bool("dc_floor", s.calc.FloorsDroughtCode()),
	)
	return nil
}

// Stop stops intake and waits for queued observations to be applied until
// ctx is done.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping fire weather service", logger.Int("queued", s.queue.Len(ctx)))

	err := s.pool.Shutdown(ctx)
	s.cancel()
	s.started = false
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "fire weather service stopped")
	return nil
}

// Submit queues obs for asynchronous application. It reports duplicate when
// the same station-day was already accepted. A missing ID is derived from
// the station and date.
func (s *Service) Submit(ctx context.Context, obs model.Observation) (duplicate bool, err error) { //nolint:gocritic // hugeParam: observations travel by value
	obs, err = normalize(obs)
	if err != nil {
		metrics.RecordObservationRejected(kindInvalidInput)
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return false, ErrNotStarted
	}

	if s.deduper.SeenAndRecord(ctx, obs.StationID, obs.ID) {
		metrics.RecordObservationDuplicate()
		s.logger.Debug(ctx, "duplicate observation", logger.String("id", obs.ID), logger.String("station", obs.StationID))
		return true, nil
	}

	if err := s.queue.Enqueue(ctx, obs); err != nil {
		s.deduper.Unrecord(ctx, obs.ID)
		metrics.RecordObservationRejected("backpressure")
		if errors.Is(err, queue.ErrFull) {
			return false, ErrBackpressure
		}
		return false, err
	}
	metrics.RecordObservationReceived()
	return false, nil
}

func normalize(obs model.Observation) (model.Observation, error) { //nolint:gocritic // hugeParam: observations travel by value
	obs.StationID = strings.TrimSpace(obs.StationID)
	if obs.StationID == "" {
		return obs, fmt.Errorf("%w: missing station id", ErrInvalidObservation)
	}
	if obs.Date.IsZero() {
		return obs, fmt.Errorf("%w: missing date", ErrInvalidObservation)
	}
	obs.Date = model.Day(obs.Date)
	obs.Weather.Month = obs.Date.Month()
	if err := obs.Weather.Validate(); err != nil {
		return obs, err
	}
	if obs.ID == "" {
		obs.ID = model.ObservationID(obs.StationID, obs.Date)
	}
	return obs, nil
}

// forget lets a failed observation be submitted again once corrected.
func (s *Service) forget(obs model.Observation, _ error) { //nolint:gocritic // hugeParam: observations travel by value
	s.deduper.Unrecord(context.Background(), obs.ID)
}

// Advance applies obs synchronously. Workers call it for queued
// observations.
func (s *Service) Advance(ctx context.Context, obs model.Observation) (model.StationState, error) { //nolint:gocritic // hugeParam: observations travel by value
	obs, err := normalize(obs)
	if err != nil {
		metrics.RecordObservationRejected(kindInvalidInput)
		return model.StationState{}, err
	}

	start := s.clock.Now()
	st, err := s.store.Advance(ctx, obs, func(prev fwi.Codes) (fwi.Result, error) {
		return s.calc.Calculate(obs.Weather, prev)
	})
	metrics.RecordCalculationLatency(float64(s.clock.Since(start).Microseconds()) / 1000)
	if err != nil {
		kind := errorKind(err)
		switch kind {
		case kindOutOfOrder, kindDayGap:
			metrics.RecordObservationRejected(kind)
		default:
			metrics.RecordCalculationError(kind)
		}
		return st, err
	}

	metrics.RecordCalculation("observation")
	metrics.RecordFWIValue(st.Indices.FWI, string(st.Class))
	s.logger.Debug(ctx, "day applied",
		logger.String("station", st.StationID),
		logger.String("date", st.LastDate.Format(model.DateLayout)),
		logger.Float64("fwi", st.Indices.FWI),
		logger.String("class", string(st.Class)),
	)
	return st, nil
}

// Calculate evaluates one day without touching station state.
func (s *Service) Calculate(_ context.Context, w fwi.Weather, prev fwi.Codes) (fwi.Result, error) {
	start := s.clock.Now()
	res, err := s.calc.Calculate(w, prev)
	metrics.RecordCalculationLatency(float64(s.clock.Since(start).Microseconds()) / 1000)
	if err != nil {
		metrics.RecordCalculationError(errorKind(err))
		return fwi.Result{}, err
	}
	metrics.RecordCalculation("calculate")
	metrics.RecordFWIValue(res.FWI, string(res.Class))
	return res, nil
}

// Series evaluates consecutive days from start without touching station state.
func (s *Service) Series(ctx context.Context, start fwi.Codes, days []fwi.Weather) ([]fwi.Result, error) {
	out, err := s.calc.Series(ctx, start, days)
	if err != nil {
		metrics.RecordCalculationError(errorKind(err))
	}
	for _, r := range out {
		metrics.RecordCalculation("series")
		metrics.RecordFWIValue(r.FWI, string(r.Class))
	}
	return out, err
}

// Station returns the state of one station.
func (s *Service) Station(ctx context.Context, stationID string) (model.StationState, error) {
	return s.store.Get(ctx, stationID)
}

// Stations returns every tracked station ordered by id.
func (s *Service) Stations(ctx context.Context) []model.StationState {
	return s.store.List(ctx)
}

// SeedStation sets the carried codes of a station as of date. The station's
// remembered observation ids are dropped so its days can be replayed.
func (s *Service) SeedStation(ctx context.Context, stationID string, codes fwi.Codes, date time.Time) (model.StationState, error) {
	st, err := s.store.Seed(ctx, strings.TrimSpace(stationID), codes, date)
	if err != nil {
		return st, err
	}
	forgotten := s.deduper.ForgetGroup(ctx, st.StationID)
	s.logger.Info(ctx, "station seeded",
		logger.String("station", st.StationID),
		logger.Any("codes", codes),
		logger.Int("forgotten_ids", forgotten),
	)
	return st, nil
}

// DeleteStation forgets a station and the observation ids submitted for it.
func (s *Service) DeleteStation(ctx context.Context, stationID string) error {
	stationID = strings.TrimSpace(stationID)
	if err := s.store.Delete(ctx, stationID); err != nil {
		return err
	}
	forgotten := s.deduper.ForgetGroup(ctx, stationID)
	s.logger.Info(ctx, "station deleted",
		logger.String("station", stationID),
		logger.Int("forgotten_ids", forgotten),
	)
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":          s.started,
		"workerCount":      s.workerCount,
		"queueSize":        s.queueSize,
		"dedupeSize":       s.dedupeSize,
		"dedupeEntries":    s.deduper.Size(),
		"stations":         s.store.Count(ctx),
		"allowGaps":        s.allowGaps,
		"rainCorrection":   s.calc.RainCorrection().String(),
		"droughtCodeFloor": s.calc.FloorsDroughtCode(),
	}
	if s.started {
		ps := s.pool.Stats()
		stats["queueLength"] = s.queue.Len(ctx)
		stats["processed"] = ps.Processed
		stats["failed"] = ps.Failed
		stats["uptimeSeconds"] = int64(s.clock.Since(s.startedAt).Seconds())
	}
	return stats
}

// errorKind classifies an error for metrics labels and API codes.
func errorKind(err error) string {
	switch {
	case errors.Is(err, fwi.ErrInvalidInput), errors.Is(err, ErrInvalidObservation):
		return kindInvalidInput
	case errors.Is(err, fwi.ErrNumericDomain):
		return kindNumericDomain
	case errors.Is(err, repository.ErrOutOfOrder):
		return kindOutOfOrder
	case errors.Is(err, repository.ErrDayGap):
		return kindDayGap
	default:
		return kindInternal
	}
}
