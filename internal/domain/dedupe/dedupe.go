// Package dedupe tracks update ids so a retried submission is applied once.
package dedupe

import (
	"context"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

// Deduper records seen update IDs for at-most-once application.
type Deduper interface {
	// SeenAndRecord reports whether id was already seen and records it if not.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so the same update can be submitted again, e.g.
	// after the queue refused it.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

const defaultMaxSize = 50000

// inMemoryDeduper keeps ids in a set. When bounded, the oldest id is evicted
// first once maxSize is reached.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    mapset.Set[string]
	order   []string // insertion order, only tracked when bounded
	maxSize int      // <= 0 means unbounded
}

// NewInMemoryDeduper creates a deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = mapset.NewThreadUnsafeSet[string]()
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.seen.Contains(id) {
		return true
	}
	if d.maxSize > 0 {
		for d.seen.Cardinality() >= d.maxSize && len(d.order) > 0 {
			d.seen.Remove(d.order[0])
			d.order = d.order[1:]
		}
		d.order = append(d.order, id)
	}
	d.seen.Add(id)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.seen.Contains(id) {
		return
	}
	d.seen.Remove(id)
	if d.maxSize > 0 {
		for i, v := range d.order {
			if v == id {
				d.order = append(d.order[:i], d.order[i+1:]...)
				break
			}
		}
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.seen.Cardinality())
}
