package cache

import "sync"

// EventKind says what happened to the cache.
type EventKind int

const (
	EventUpdated EventKind = iota + 1
	EventInvalidated
	EventRemoved
	EventReset
)

func (k EventKind) String() string {
	switch k {
	case EventUpdated:
		return "updated"
	case EventInvalidated:
		return "invalidated"
	case EventRemoved:
		return "removed"
	case EventReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Event describes one change. Key is the entry key for EventUpdated and the
// prefix or segment otherwise. Count is the number of entries affected.
type Event struct {
	Kind  EventKind
	Key   Key
	Count int
}

type subs struct {
	mu        sync.RWMutex
	listeners map[int]func(Event)
	next      int
}

// Subscribe registers fn for every subsequent change and returns a function
// that removes it. fn runs synchronously on the goroutine that changed the
// cache and must not block.
func (c *Cache) Subscribe(fn func(Event)) func() {
	c.subs.mu.Lock()
	defer c.subs.mu.Unlock()
	if c.subs.listeners == nil {
		c.subs.listeners = make(map[int]func(Event))
	}
	id := c.subs.next
	c.subs.next++
	c.subs.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subs.mu.Lock()
			delete(c.subs.listeners, id)
			c.subs.mu.Unlock()
		})
	}
}

func (c *Cache) publish(ev Event) {
	c.subs.mu.RLock()
	fns := make([]func(Event), 0, len(c.subs.listeners))
	for _, fn := range c.subs.listeners {
		fns = append(fns, fn)
	}
	c.subs.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
