// Package cache holds the local mirror of the remote task collection.
//
// The Cache is a mapping from task ID to task. Ordered views are derived on
// demand by filtering on status and sorting by position, with the placement
// overlay of recent status transitions layered on top. Only the engine
// package mutates a Cache; presentation code receives a Reader.
package cache

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"tasksync/internal/service"
)

// ErrDuplicateID is returned by Insert when the ID is already cached.
var ErrDuplicateID = errors.New("task already cached")

// ErrStaleOrder is returned by ApplyOrder when the given order does not cover
// exactly the tasks currently in the partition.
var ErrStaleOrder = errors.New("order does not match partition")

// Lane is where a task sits in its partition's ordered view.
type Lane int

const (
	// LaneHead places a task before the position-sorted tasks, most recent first.
	LaneHead Lane = iota - 1
	// LanePositional orders a task by its position field.
	LanePositional
	// LaneTail places a task after the position-sorted tasks, oldest first.
	LaneTail
)

// Filter selects the partitions shown by a view.
type Filter string

const (
	FilterAll  Filter = "all"
	FilterTodo Filter = "todo"
	FilterDone Filter = "done"
)

// ParseFilter parses a filter name. An empty string means FilterAll.
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterTodo, FilterDone:
		return Filter(s), nil
	}
	return "", fmt.Errorf("invalid filter: %q", s)
}

// Reader is the read-only capability handed to presentation code.
type Reader interface {
	Get(id string) (service.Task, bool)
	Partition(status service.Status) []service.Task
	View(filter Filter) []service.Task
	Counts() (todo, done int)
	Len() int
	Subscribe(fn func(Event)) (unsubscribe func())
}

type entry struct {
	task service.Task
	lane Lane
	seq  uint64
}

// Cache is the process-wide task mirror. It is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	seq     uint64

	subMu  sync.Mutex
	subs   map[int]func(Event)
	nextID int
}

var _ Reader = (*Cache)(nil)

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		subs:    make(map[int]func(Event)),
	}
}

// ReplaceAll discards every cached task and loads tasks in their place.
// Subscribers receive a Reset event carrying filter.
func (c *Cache) ReplaceAll(tasks []service.Task, filter Filter) {
	c.mu.Lock()
	c.entries = make(map[string]*entry, len(tasks))
	for _, t := range tasks {
		c.entries[t.ID] = &entry{task: t}
	}
	c.mu.Unlock()

	c.publish(Event{Kind: EventReset, Filter: filter})
}

// Insert adds a newly created task. The remote store appends new tasks, so
// the task joins the tail lane and sorts after every task already in its
// partition whatever its position field says.
func (c *Cache) Insert(t service.Task) error {
	c.mu.Lock()
	if _, ok := c.entries[t.ID]; ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateID, t.ID)
	}
	c.seq++
	c.entries[t.ID] = &entry{task: t, lane: LaneTail, seq: c.seq}
	c.mu.Unlock()

	c.publish(Event{Kind: EventInserted, ID: t.ID, Status: t.Status})
	return nil
}

// RemoveByID deletes a task and closes the gap it leaves among the
// positional tasks of its partition. It reports whether the task was cached.
func (c *Cache) RemoveByID(id string) bool {
	c.mu.Lock()
	e, ok := c.entries[id]
	if ok {
		delete(c.entries, id)
		c.compactLocked(e.task.Status)
	}
	c.mu.Unlock()

	if ok {
		// e is unreachable from the map now, so reading it unlocked is safe.
		c.publish(Event{Kind: EventRemoved, ID: id, Status: e.task.Status})
	}
	return ok
}

// SetStatus changes a task's status and places it in lane of the destination
// partition. The position field is left untouched.
func (c *Cache) SetStatus(id string, status service.Status, lane Lane) bool {
	c.mu.Lock()
	e, ok := c.entries[id]
	if ok {
		c.seq++
		e.task.Status = status
		e.lane = lane
		e.seq = c.seq
	}
	c.mu.Unlock()

	if ok {
		c.publish(Event{Kind: EventStatusChanged, ID: id, Status: status})
	}
	return ok
}

// SetTitle changes a task's title.
func (c *Cache) SetTitle(id, title string) bool {
	c.mu.Lock()
	var status service.Status
	e, ok := c.entries[id]
	if ok {
		e.task.Title = title
		status = e.task.Status
	}
	c.mu.Unlock()

	if ok {
		c.publish(Event{Kind: EventTitleChanged, ID: id, Status: status})
	}
	return ok
}

// ApplyOrder writes dense positions 0..N-1 into the partition following ids
// and clears the placement overlay of that partition. ids must name exactly
// the tasks currently in the partition.
func (c *Cache) ApplyOrder(status service.Status, ids []string) error {
	c.mu.Lock()
	n := 0
	for _, e := range c.entries {
		if e.task.Status == status {
			n++
		}
	}
	if n != len(ids) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s has %d tasks, order has %d", ErrStaleOrder, status, n, len(ids))
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		e, ok := c.entries[id]
		if !ok || e.task.Status != status || seen[id] {
			c.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrStaleOrder, id)
		}
		seen[id] = true
	}
	for i, id := range ids {
		e := c.entries[id]
		e.task.Position = i
		e.lane = LanePositional
		e.seq = 0
	}
	c.mu.Unlock()

	c.publish(Event{Kind: EventReordered, Status: status})
	return nil
}

// Get returns a copy of the cached task.
func (c *Cache) Get(id string) (service.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok {
		return service.Task{}, false
	}
	return e.task, true
}

// Partition returns the ordered view of one status partition.
func (c *Cache) Partition(status service.Status) []service.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.partitionLocked(status)
}

// View returns the tasks shown under filter: the todo partition followed by
// the done partition for FilterAll, or a single partition.
func (c *Cache) View(filter Filter) []service.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch filter {
	case FilterTodo:
		return c.partitionLocked(service.StatusTodo)
	case FilterDone:
		return c.partitionLocked(service.StatusDone)
	}
	var all []service.Task
	for _, st := range service.Statuses {
		all = append(all, c.partitionLocked(st)...)
	}
	return all
}

// Counts returns the number of todo and done tasks.
func (c *Cache) Counts() (todo, done int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.entries {
		if e.task.Status == service.StatusDone {
			done++
		} else {
			todo++
		}
	}
	return todo, done
}

// Len returns the number of cached tasks.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// compactLocked renumbers the positional lane of a partition to 0..N-1 in
// its current order. Overlay lanes keep their placement.
func (c *Cache) compactLocked(status service.Status) {
	var es []*entry
	for _, e := range c.entries {
		if e.task.Status == status && e.lane == LanePositional {
			es = append(es, e)
		}
	}
	sort.Slice(es, func(i, j int) bool {
		if es[i].task.Position != es[j].task.Position {
			return es[i].task.Position < es[j].task.Position
		}
		return es[i].task.ID < es[j].task.ID
	})
	for i, e := range es {
		e.task.Position = i
	}
}

func (c *Cache) partitionLocked(status service.Status) []service.Task {
	var es []*entry
	for _, e := range c.entries {
		if e.task.Status == status {
			es = append(es, e)
		}
	}
	sort.Slice(es, func(i, j int) bool {
		a, b := es[i], es[j]
		if a.lane != b.lane {
			return a.lane < b.lane
		}
		switch a.lane {
		case LaneHead:
			return a.seq > b.seq
		case LaneTail:
			return a.seq < b.seq
		}
		if a.task.Position != b.task.Position {
			return a.task.Position < b.task.Position
		}
		return a.task.ID < b.task.ID
	})

	out := make([]service.Task, len(es))
	for i, e := range es {
		out[i] = e.task
	}
	return out
}
