package cache

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yndnr/storefront-go/internal/telemetry/logger"
	"github.com/yndnr/storefront-go/internal/telemetry/metric"
	"github.com/yndnr/storefront-go/pkg/cmap"
)

// Lookup results, used as the metric label.
const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupStale = "stale"
)

// Loader produces the value for a key.
type Loader func(ctx context.Context) (any, error)

// Options control one Fetch.
type Options struct {
	// StaleTime is how long fetched data is served without reloading.
	// Zero means always reload.
	StaleTime time.Duration
	// Retry is the number of extra attempts after a failed load.
	Retry int
	// RetryDelay is the pause before the first retry; it grows linearly.
	RetryDelay time.Duration
	// ShouldRetry filters retryable errors. Nil retries every error.
	ShouldRetry func(error) bool
}

type entry struct {
	key Key
	uid uint64

	mu          sync.Mutex
	data        any
	hasData     bool
	fetchedAt   time.Time
	invalidated bool
	gen         uint64 // bumped by every invalidation
	dataSeq     uint64 // issue sequence of the data currently held
	removed     bool
}

func (e *entry) fresh(now time.Time, staleTime time.Duration) bool {
	return e.hasData && !e.invalidated && now.Sub(e.fetchedAt) < staleTime
}

// Cache is a concurrent query cache. The zero value is not usable; call New.
type Cache struct {
	entries *cmap.Map[string, *entry]
	group   singleflight.Group

	epoch atomic.Uint64 // bumped by Reset
	seq   atomic.Uint64 // issue order of fetches, Sets and entry creation

	now     func() time.Time
	metrics *metric.Registry
	logger  logger.Logger

	subs
}

// Option configures a Cache.
type Option func(*Cache)

// WithMetrics records lookups and invalidations in reg.
func WithMetrics(reg *metric.Registry) Option {
	return func(c *Cache) { c.metrics = reg }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: cmap.New[string, *entry](),
		now:     time.Now,
		logger:  logger.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "cache")
	return c
}

// Read returns the data held for key, stale or not.
func (c *Cache) Read(key Key) (any, bool) {
	e, ok := c.entries.Get(key.id())
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hasData {
		return nil, false
	}
	return e.data, true
}

// Fetch returns fresh data for key, running load when the entry is missing,
// stale or invalidated. Concurrent fetches of the same entry share one load.
// The result is returned to the caller even when it is too old to be stored.
func (c *Cache) Fetch(ctx context.Context, key Key, load Loader, opts Options) (any, error) {
	k := key.id()
	e, _ := c.entries.GetOrCreate(k, func() *entry {
		return &entry{key: NewKey(key...), uid: c.seq.Add(1)}
	})

	e.mu.Lock()
	if e.fresh(c.now(), opts.StaleTime) {
		data := e.data
		e.mu.Unlock()
		c.metrics.IncCacheLookup(LookupHit)
		return data, nil
	}
	gen := e.gen
	result := LookupMiss
	if e.hasData {
		result = LookupStale
	}
	e.mu.Unlock()
	c.metrics.IncCacheLookup(result)

	epoch := c.epoch.Load()
	flight := k + "#" + strconv.FormatUint(e.uid, 10) + "#" + strconv.FormatUint(gen, 10) + "#" + strconv.FormatUint(epoch, 10)

	ch := c.group.DoChan(flight, func() (any, error) {
		seq := c.seq.Add(1)
		data, err := c.load(context.WithoutCancel(ctx), load, opts)
		if err != nil {
			c.dropPlaceholder(k, e)
			return nil, err
		}
		if c.commit(e, gen, epoch, seq, data) {
			c.publish(Event{Kind: EventUpdated, Key: e.key})
		}
		return data, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) load(ctx context.Context, load Loader, opts Options) (any, error) {
	for attempt := 0; ; attempt++ {
		data, err := load(ctx)
		if err == nil {
			return data, nil
		}
		if attempt >= opts.Retry || (opts.ShouldRetry != nil && !opts.ShouldRetry(err)) {
			return nil, err
		}

		c.logger.Debug("retrying load", "attempt", attempt+1, "error", err)
		if opts.RetryDelay > 0 {
			t := time.NewTimer(opts.RetryDelay * time.Duration(attempt+1))
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			}
		}
	}
}

// commit stores data unless the entry was overtaken since the fetch was
// issued.
func (c *Cache) commit(e *entry, gen, epoch, seq uint64, data any) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.removed, e.gen != gen, c.epoch.Load() != epoch, seq <= e.dataSeq:
		c.logger.Debug("discarding overtaken fetch", "key", e.key.String())
		return false
	}

	e.data = data
	e.hasData = true
	e.fetchedAt = c.now()
	e.invalidated = false
	e.dataSeq = seq
	return true
}

// dropPlaceholder removes an entry created by a fetch that produced nothing.
func (c *Cache) dropPlaceholder(k string, e *entry) {
	e.mu.Lock()
	empty := !e.hasData
	e.mu.Unlock()
	if empty && c.entries.CompareAndDelete(k, func(v *entry) bool { return v == e }) {
		e.mu.Lock()
		e.removed = true
		e.mu.Unlock()
	}
}

// Set stores data for key as freshly fetched. Fetches issued before Set
// cannot overwrite it.
func (c *Cache) Set(key Key, data any) {
	e, _ := c.entries.GetOrCreate(key.id(), func() *entry {
		return &entry{key: NewKey(key...), uid: c.seq.Add(1)}
	})

	e.mu.Lock()
	e.data = data
	e.hasData = true
	e.fetchedAt = c.now()
	e.invalidated = false
	e.dataSeq = c.seq.Add(1)
	e.mu.Unlock()

	c.publish(Event{Kind: EventUpdated, Key: e.key})
}

// Invalidate marks every entry under prefix stale and returns how many
// were marked. Data stays readable until the next Fetch replaces it; loads
// in flight for those entries will not be stored.
func (c *Cache) Invalidate(prefix Key) int {
	matched := c.match(func(k Key) bool { return k.HasPrefix(prefix) })
	for _, e := range matched {
		e.mu.Lock()
		e.invalidated = true
		e.gen++
		e.mu.Unlock()
	}

	c.metrics.AddInvalidations("invalidate", len(matched))
	c.logger.Debug("invalidated", "prefix", prefix.String(), "entries", len(matched))
	c.publish(Event{Kind: EventInvalidated, Key: prefix, Count: len(matched)})
	return len(matched)
}

// Remove drops the entry for key.
func (c *Cache) Remove(key Key) bool {
	e, ok := c.entries.Pop(key.id())
	if !ok {
		return false
	}
	c.retire(e)

	c.metrics.AddInvalidations("remove", 1)
	c.publish(Event{Kind: EventRemoved, Key: key, Count: 1})
	return true
}

// RemovePrefix drops every entry under prefix.
func (c *Cache) RemovePrefix(prefix Key) int {
	n := c.removeWhere(func(k Key) bool { return k.HasPrefix(prefix) })
	c.publish(Event{Kind: EventRemoved, Key: prefix, Count: n})
	return n
}

// RemoveSegment drops every entry whose key contains seg, typically the
// session segment of a token that is no longer valid.
func (c *Cache) RemoveSegment(seg string) int {
	if seg == "" {
		return 0
	}
	n := c.removeWhere(func(k Key) bool { return k.Contains(seg) })
	c.publish(Event{Kind: EventRemoved, Key: Key{seg}, Count: n})
	return n
}

// Reset drops everything. Loads in flight when Reset is called are not
// stored.
func (c *Cache) Reset() {
	c.epoch.Add(1)
	n := c.removeWhere(func(Key) bool { return true })

	c.logger.Debug("cache reset", "entries", n)
	c.publish(Event{Kind: EventReset, Count: n})
}

// Len returns the number of entries holding data.
func (c *Cache) Len() int {
	n := 0
	c.entries.Range(func(_ string, e *entry) bool {
		e.mu.Lock()
		if e.hasData {
			n++
		}
		e.mu.Unlock()
		return true
	})
	return n
}

// Keys returns the keys of entries holding data.
func (c *Cache) Keys() []Key {
	var out []Key
	for _, e := range c.match(func(Key) bool { return true }) {
		e.mu.Lock()
		if e.hasData {
			out = append(out, NewKey(e.key...))
		}
		e.mu.Unlock()
	}
	return out
}

// match collects entries whose key satisfies fn. Entry locks are not held
// while the map is being walked.
func (c *Cache) match(fn func(Key) bool) []*entry {
	var out []*entry
	c.entries.Range(func(_ string, e *entry) bool {
		if fn(e.key) {
			out = append(out, e)
		}
		return true
	})
	return out
}

func (c *Cache) removeWhere(fn func(Key) bool) int {
	n := 0
	for _, e := range c.match(fn) {
		if c.entries.CompareAndDelete(e.key.id(), func(v *entry) bool { return v == e }) {
			c.retire(e)
			n++
		}
	}
	c.metrics.AddInvalidations("remove", n)
	return n
}

func (c *Cache) retire(e *entry) {
	e.mu.Lock()
	e.removed = true
	e.gen++
	e.mu.Unlock()
}

// ReadAs is Read with a type assertion. A value of another type is a miss.
func ReadAs[T any](c *Cache, key Key) (T, bool) {
	var zero T
	v, ok := c.Read(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// FetchAs is Fetch with a typed loader.
func FetchAs[T any](ctx context.Context, c *Cache, key Key, load func(ctx context.Context) (T, error), opts Options) (T, error) {
	var zero T
	v, err := c.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return load(ctx)
	}, opts)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, nil
	}
	return t, nil
}
