// Package cache holds search results keyed by namespace and canonical
// signature, bounded by a per-namespace TTL and LRU capacity.
package cache

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ErrEmptyNamespace is returned when a write names no namespace.
	ErrEmptyNamespace = errors.New("cache: namespace is required")
	// ErrEmptySignature is returned when a write names no signature.
	ErrEmptySignature = errors.New("cache: signature is required")
	// ErrCapacityViolation is the panic value raised if an insert would
	// exceed capacity. Eviction runs before every insert, so this indicates a bug.
	ErrCapacityViolation = errors.New("cache: capacity exceeded without eviction")
)

// Entry is one cached payload.
type Entry[V any] struct {
	Namespace string
	Signature string
	Payload   V
	StoredAt  time.Time
	TTL       time.Duration
}

// ExpiresAt returns the instant the entry stops being live.
func (e Entry[V]) ExpiresAt() time.Time { return e.StoredAt.Add(e.TTL) }

func (e *Entry[V]) live(now time.Time) bool { return now.Sub(e.StoredAt) < e.TTL }

type space[V any] struct {
	cfg   NamespaceConfig
	items map[string]*list.Element
	lru   *list.List // front = most recently used
	epoch uint64
}

// Engine is a namespaced TTL+LRU cache. All operations take one mutex, so a
// store or invalidate is indivisible relative to concurrent lookups.
type Engine[V any] struct {
	mu      sync.Mutex
	cfg     Config
	spaces  map[string]*space[V]
	now     func() time.Time
	counter *prometheus.CounterVec
	gauge   *prometheus.GaugeVec
}

type options struct {
	now     func() time.Time
	counter *prometheus.CounterVec
	gauge   *prometheus.GaugeVec
}

// Option configures an Engine.
type Option func(*options)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithCounter records cache outcomes on a counter vec with labels
// "namespace" and "result".
func WithCounter(c *prometheus.CounterVec) Option {
	return func(o *options) { o.counter = c }
}

// WithGauge publishes the entry count of every namespace on a gauge vec
// with label "namespace" after each Sweep.
func WithGauge(g *prometheus.GaugeVec) Option {
	return func(o *options) { o.gauge = g }
}

// New creates an Engine.
func New[V any](cfg Config, opts ...Option) (*Engine[V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cache config: %w", err)
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine[V]{
		cfg:     cfg,
		spaces:  make(map[string]*space[V]),
		now:     o.now,
		counter: o.counter,
		gauge:   o.gauge,
	}, nil
}

// Lookup returns the live payload stored under (ns, sig). An expired entry
// is removed and reported as a miss.
func (e *Engine[V]) Lookup(ns, sig string) (V, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var zero V
	sp, ok := e.spaces[ns]
	if !ok {
		e.inc(ns, "miss")
		return zero, false
	}
	el, ok := sp.items[sig]
	if !ok {
		e.inc(ns, "miss")
		return zero, false
	}
	ent := el.Value.(*Entry[V])
	if !ent.live(e.now()) {
		e.remove(sp, el)
		e.inc(ns, "expired")
		e.inc(ns, "miss")
		return zero, false
	}
	sp.lru.MoveToFront(el)
	e.inc(ns, "hit")
	return ent.Payload, true
}

// Peek returns the live entry under (ns, sig) without touching recency.
func (e *Engine[V]) Peek(ns, sig string) (Entry[V], bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sp, ok := e.spaces[ns]
	if !ok {
		return Entry[V]{}, false
	}
	el, ok := sp.items[sig]
	if !ok {
		return Entry[V]{}, false
	}
	ent := el.Value.(*Entry[V])
	if !ent.live(e.now()) {
		return Entry[V]{}, false
	}
	return *ent, true
}

// Store inserts or overwrites the payload under (ns, sig). A ttl <= 0 uses
// the namespace default. When the namespace is full, expired entries are
// dropped first, then the least recently used live entry.
func (e *Engine[V]) Store(ns, sig string, payload V, ttl time.Duration) error {
	if err := checkKey(ns, sig); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.store(e.space(ns), ns, sig, payload, ttl)
	return nil
}

// Epoch returns the invalidation counter of ns. Pass it to StoreIfCurrent
// to drop writes that raced an invalidation.
func (e *Engine[V]) Epoch(ns string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if sp, ok := e.spaces[ns]; ok {
		return sp.epoch
	}
	return 0
}

// StoreIfCurrent stores like Store, but only if ns has not been invalidated
// since epoch was read. It reports whether the payload was stored.
func (e *Engine[V]) StoreIfCurrent(ns, sig string, payload V, ttl time.Duration, epoch uint64) (bool, error) {
	if err := checkKey(ns, sig); err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	sp := e.space(ns)
	if sp.epoch != epoch {
		e.inc(ns, "stale")
		return false, nil
	}
	e.store(sp, ns, sig, payload, ttl)
	return true, nil
}

// Invalidate removes the given signatures from ns, or every entry of ns
// when none are given. It returns the number of entries removed.
func (e *Engine[V]) Invalidate(ns string, sigs ...string) int {
	if ns == "" {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	sp := e.space(ns)
	sp.epoch++

	removed := 0
	if len(sigs) == 0 {
		removed = len(sp.items)
		sp.items = make(map[string]*list.Element)
		sp.lru.Init()
	} else {
		for _, sig := range sigs {
			if el, ok := sp.items[sig]; ok {
				e.remove(sp, el)
				removed++
			}
		}
	}
	e.add(ns, "invalidated", removed)
	return removed
}

// Sweep removes expired entries from every namespace and returns how many
// were removed.
func (e *Engine[V]) Sweep() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	removed := 0
	for ns, sp := range e.spaces {
		n := e.purgeExpired(sp, now)
		e.add(ns, "expired", n)
		removed += n
		if e.gauge != nil {
			e.gauge.WithLabelValues(ns).Set(float64(len(sp.items)))
		}
	}
	return removed
}

// RunJanitor calls Sweep every interval until ctx is done.
func (e *Engine[V]) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Sweep()
		}
	}
}

// Len returns the number of entries physically held for ns, live or not.
func (e *Engine[V]) Len(ns string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if sp, ok := e.spaces[ns]; ok {
		return len(sp.items)
	}
	return 0
}

// Config returns the effective bounds for ns.
func (e *Engine[V]) Config(ns string) NamespaceConfig {
	return e.cfg.For(ns)
}

func (e *Engine[V]) space(ns string) *space[V] {
	sp, ok := e.spaces[ns]
	if !ok {
		sp = &space[V]{
			cfg:   e.cfg.For(ns),
			items: make(map[string]*list.Element),
			lru:   list.New(),
		}
		e.spaces[ns] = sp
	}
	return sp
}

func (e *Engine[V]) store(sp *space[V], ns, sig string, payload V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = sp.cfg.TTL
	}
	now := e.now()

	if el, ok := sp.items[sig]; ok {
		ent := el.Value.(*Entry[V])
		ent.Payload = payload
		ent.StoredAt = now
		ent.TTL = ttl
		sp.lru.MoveToFront(el)
		e.inc(ns, "stored")
		return
	}

	if len(sp.items) >= sp.cfg.Capacity {
		e.add(ns, "expired", e.purgeExpired(sp, now))
	}
	for len(sp.items) >= sp.cfg.Capacity && sp.lru.Len() > 0 {
		e.remove(sp, sp.lru.Back())
		e.inc(ns, "evicted")
	}
	if len(sp.items) >= sp.cfg.Capacity {
		panic(fmt.Errorf("%w: namespace %q holds %d of %d", ErrCapacityViolation, ns, len(sp.items), sp.cfg.Capacity))
	}

	ent := &Entry[V]{Namespace: ns, Signature: sig, Payload: payload, StoredAt: now, TTL: ttl}
	sp.items[sig] = sp.lru.PushFront(ent)
	e.inc(ns, "stored")
}

func (e *Engine[V]) purgeExpired(sp *space[V], now time.Time) int {
	removed := 0
	for el := sp.lru.Back(); el != nil; {
		prev := el.Prev()
		if !el.Value.(*Entry[V]).live(now) {
			e.remove(sp, el)
			removed++
		}
		el = prev
	}
	return removed
}

func (e *Engine[V]) remove(sp *space[V], el *list.Element) {
	ent := sp.lru.Remove(el).(*Entry[V])
	delete(sp.items, ent.Signature)
}

func (e *Engine[V]) inc(ns, result string) {
	if e.counter != nil {
		e.counter.WithLabelValues(ns, result).Inc()
	}
}

func (e *Engine[V]) add(ns, result string, n int) {
	if e.counter != nil && n > 0 {
		e.counter.WithLabelValues(ns, result).Add(float64(n))
	}
}

func checkKey(ns, sig string) error {
	if ns == "" {
		return ErrEmptyNamespace
	}
	if sig == "" {
		return ErrEmptySignature
	}
	return nil
}
