// Package worker applies queued observations to station state.
//
// A single dispatcher reads the queue and routes every observation to the
// worker owning its station, so days of one station are applied in the order
// they were queued while different stations proceed in parallel.
package worker

import (
	"context"
	"fmt"
	"hash/fnv"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/fwi/internal/adapters/mq/queue"
	"github.com/okian/fwi/internal/domain/model"
	"github.com/okian/fwi/pkg/logger"
	"github.com/okian/fwi/pkg/metrics"
)

const defaultInboxSize = 64

// Advancer applies one observation to its station.
type Advancer interface {
	Advance(ctx context.Context, obs model.Observation) (model.StationState, error)
}

// Publisher announces a station's new state.
type Publisher interface {
	Publish(ctx context.Context, st model.StationState) error
}

// Queue defines how the pool receives observations.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Item
}

// Stats is a point-in-time view of pool activity.
type Stats struct {
	Workers   int   `json:"workers"`
	Active    int64 `json:"active"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// InMemoryWorker processes the observations routed to it.
type InMemoryWorker struct {
	pool   *Pool
	inbox  chan queue.Item
	logger logger.Logger
}

// Run processes the inbox until it is closed or ctx is canceled.
func (w *InMemoryWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case it, ok := <-w.inbox:
			if !ok {
				return
			}
			w.process(ctx, it.Observation)
		}
	}
}

func (w *InMemoryWorker) process(ctx context.Context, obs model.Observation) { //nolint:gocritic // hugeParam: observations travel by value
	p := w.pool
	metrics.UpdateWorkerActiveCount(int(p.active.Add(1)))
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
		metrics.UpdateWorkerActiveCount(int(p.active.Add(-1)))
	}()

	st, err := p.advancer.Advance(ctx, obs)
	if err != nil {
		p.failed.Add(1)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "advance")
		w.logger.Warn(ctx, "observation not applied",
			logger.String("station", obs.StationID),
			logger.String("date", obs.Date.Format(model.DateLayout)),
			logger.Error(err),
		)
		if p.onError != nil {
			p.onError(obs, err)
		}
		return
	}
	p.processed.Add(1)

	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, st); err != nil {
		metrics.RecordErrorByComponent("worker", "publish")
		w.logger.Error(ctx, "publish failed",
			logger.String("station", st.StationID),
			logger.Error(err),
		)
	}
}

// Pool manages the dispatcher and its workers.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	advancer  Advancer
	publisher Publisher
	onError   func(model.Observation, error)
	inboxSize int
	logger    logger.Logger

	active    atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64

	started    atomic.Bool
	dispatched chan struct{}
	wg         sync.WaitGroup
}

// NewPool creates a pool of workerCount workers. workerCount < 1 uses one
// worker per CPU.
func NewPool(workerCount int, q Queue, advancer Advancer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		queue:      q,
		advancer:   advancer,
		inboxSize:  defaultInboxSize,
		logger:     logger.Get().Named("worker-pool"),
		dispatched: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.workers = make([]*InMemoryWorker, workerCount)
	for i := range p.workers {
		p.workers[i] = &InMemoryWorker{
			pool:   p,
			inbox:  make(chan queue.Item, p.inboxSize),
			logger: p.logger.Named("worker-" + strconv.Itoa(i)),
		}
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	return p
}

// Start launches the dispatcher and the workers. It returns immediately.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *InMemoryWorker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
	go p.dispatch(ctx)
}

func (p *Pool) dispatch(ctx context.Context) {
	defer func() {
		for _, w := range p.workers {
			close(w.inbox)
		}
		close(p.dispatched)
	}()

	for it := range p.queue.Dequeue(ctx) {
		w := p.workers[Partition(it.Observation.StationID, len(p.workers))]
		select {
		case w.inbox <- it:
		case <-ctx.Done():
			return
		}
	}
}

// Partition maps a station onto one of n workers.
func Partition(stationID string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(stationID))
	return int(h.Sum32() % uint32(n))
}

// Shutdown closes the queue if it can be closed and waits until every queued
// observation has been processed or ctx is done.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	if !p.started.Load() {
		return nil
	}

	done := make(chan struct{})
	go func() {
		<-p.dispatched
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "worker pool shutdown timed out")
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}

// Stats returns current pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   len(p.workers),
		Active:    p.active.Load(),
		Processed: p.processed.Load(),
		Failed:    p.failed.Load(),
	}
}
