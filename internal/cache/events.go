package cache

import "tasksync/internal/service"

// EventKind identifies a cache change.
type EventKind int

const (
	// EventReset means the whole cache was replaced; re-render under Filter.
	EventReset EventKind = iota
	EventInserted
	EventRemoved
	EventStatusChanged
	EventTitleChanged
	// EventReordered means positions in the Status partition were rewritten.
	EventReordered
)

func (k EventKind) String() string {
	switch k {
	case EventReset:
		return "reset"
	case EventInserted:
		return "inserted"
	case EventRemoved:
		return "removed"
	case EventStatusChanged:
		return "status-changed"
	case EventTitleChanged:
		return "title-changed"
	case EventReordered:
		return "reordered"
	}
	return "unknown"
}

// Event is delivered to subscribers after a mutation is applied.
type Event struct {
	Kind   EventKind
	ID     string
	Status service.Status
	Filter Filter
}

// Subscribe registers fn for change notifications. Callbacks run
// synchronously on the mutating goroutine, after the cache lock is released.
func (c *Cache) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.subMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Cache) publish(ev Event) {
	c.subMu.Lock()
	fns := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
