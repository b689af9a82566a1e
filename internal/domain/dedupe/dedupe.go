// Package dedupe tracks observation IDs so a replayed reading is applied once.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

const defaultMaxSize = 50000

// Deduper records seen observation IDs. Each id belongs to a group, the
// station it was reported for, so a station's ids can be dropped together.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it under
	// group if not. Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, group, id string) bool

	// Unrecord forgets id so the observation can be submitted again, e.g.
	// after it was rejected by queue backpressure.
	Unrecord(ctx context.Context, id string)

	// ForgetGroup forgets every id recorded under group and returns how
	// many were dropped.
	ForgetGroup(ctx context.Context, group string) int

	Size() int64
}

type entry struct {
	group string
	id    string
}

// inMemoryDeduper keeps at most maxSize ids and evicts the oldest first.
// maxSize <= 0 keeps every id.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	groups  map[string]map[string]struct{}
	order   *list.List
	maxSize int
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.groups = make(map[string]map[string]struct{})
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, group, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.remove(d.order.Front())
	}
	d.seen[id] = d.order.PushBack(entry{group: group, id: id})
	ids, ok := d.groups[group]
	if !ok {
		ids = make(map[string]struct{})
		d.groups[group] = ids
	}
	ids[id] = struct{}{}
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[id]; ok {
		d.remove(el)
	}
}

func (d *inMemoryDeduper) ForgetGroup(_ context.Context, group string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids := d.groups[group]
	n := len(ids)
	for id := range ids {
		if el, ok := d.seen[id]; ok {
			d.order.Remove(el)
			delete(d.seen, id)
		}
	}
	delete(d.groups, group)
	return n
}

// remove drops el from every index. Callers hold mu.
func (d *inMemoryDeduper) remove(el *list.Element) {
	e := d.order.Remove(el).(entry)
	delete(d.seen, e.id)
	if ids, ok := d.groups[e.group]; ok {
		delete(ids, e.id)
		if len(ids) == 0 {
			delete(d.groups, e.group)
		}
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}
