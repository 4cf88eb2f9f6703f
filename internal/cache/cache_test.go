package cache_test

import (
	"errors"
	"reflect"
	"testing"

	"tasksync/internal/cache"
	"tasksync/internal/service"
)

func task(id string, status service.Status, pos int) service.Task {
	return service.Task{ID: id, Title: id, Status: status, Position: pos}
}

func ids(tasks []service.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func seeded() *cache.Cache {
	c := cache.New()
	c.ReplaceAll([]service.Task{
		task("c", service.StatusTodo, 2),
		task("a", service.StatusTodo, 0),
		task("b", service.StatusTodo, 1),
		task("y", service.StatusDone, 1),
		task("x", service.StatusDone, 0),
	}, cache.FilterAll)
	return c
}

func TestPartition_SortsByPosition(t *testing.T) {
	c := seeded()

	if got, want := ids(c.Partition(service.StatusTodo)), []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("todo partition = %v, want %v", got, want)
	}
	if got, want := ids(c.Partition(service.StatusDone)), []string{"x", "y"}; !reflect.DeepEqual(got, want) {
		t.Errorf("done partition = %v, want %v", got, want)
	}
}

func TestView_Filters(t *testing.T) {
	c := seeded()

	tests := []struct {
		filter cache.Filter
		want   []string
	}{
		{cache.FilterAll, []string{"a", "b", "c", "x", "y"}},
		{cache.FilterTodo, []string{"a", "b", "c"}},
		{cache.FilterDone, []string{"x", "y"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			if got := ids(c.View(tt.filter)); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("View(%s) = %v, want %v", tt.filter, got, tt.want)
			}
		})
	}
}

func TestParseFilter(t *testing.T) {
	for _, s := range []string{"", "all", "todo", "done"} {
		if _, err := cache.ParseFilter(s); err != nil {
			t.Errorf("ParseFilter(%q) error: %v", s, err)
		}
	}
	if _, err := cache.ParseFilter("later"); err == nil {
		t.Error("expected error for unknown filter")
	}
}

func TestCounts(t *testing.T) {
	c := seeded()
	todo, done := c.Counts()
	if todo != 3 || done != 2 {
		t.Errorf("Counts() = %d, %d, want 3, 2", todo, done)
	}
}

func TestInsert_Duplicate(t *testing.T) {
	c := seeded()
	err := c.Insert(task("a", service.StatusTodo, 3))
	if !errors.Is(err, cache.ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}
}

func TestInsert_LeavesPositionsUntouched(t *testing.T) {
	c := seeded()
	if err := c.Insert(task("d", service.StatusTodo, 3)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	for i, tk := range c.Partition(service.StatusTodo) {
		if tk.Position != i {
			t.Errorf("%s position = %d, want %d", tk.ID, tk.Position, i)
		}
	}
}

func TestRemoveByID(t *testing.T) {
	c := seeded()
	if !c.RemoveByID("b") {
		t.Fatal("RemoveByID(b) = false")
	}
	if c.RemoveByID("b") {
		t.Error("second RemoveByID(b) = true")
	}
	if _, ok := c.Get("b"); ok {
		t.Error("b still cached")
	}
	for _, f := range []cache.Filter{cache.FilterAll, cache.FilterTodo, cache.FilterDone} {
		for _, id := range ids(c.View(f)) {
			if id == "b" {
				t.Errorf("b still in %s view", f)
			}
		}
	}
}

func TestRemoveByID_ClosesGap(t *testing.T) {
	c := seeded()
	c.RemoveByID("a")

	if got, want := ids(c.Partition(service.StatusTodo)), []string{"b", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("todo partition = %v, want %v", got, want)
	}
	for i, tk := range c.Partition(service.StatusTodo) {
		if tk.Position != i {
			t.Errorf("%s position = %d, want %d", tk.ID, tk.Position, i)
		}
	}
}

func TestRemoveByID_KeepsOverlay(t *testing.T) {
	c := seeded()
	c.SetStatus("a", service.StatusDone, cache.LaneHead)
	c.RemoveByID("x")

	if got, want := ids(c.Partition(service.StatusDone)), []string{"a", "y"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("done partition = %v, want %v", got, want)
	}
	if tk, _ := c.Get("y"); tk.Position != 0 {
		t.Errorf("y position = %d, want 0", tk.Position)
	}
	if tk, _ := c.Get("a"); tk.Position != 0 {
		t.Errorf("a position = %d, want 0", tk.Position)
	}
}

func TestInsert_SortsAfterCollidingPosition(t *testing.T) {
	c := seeded()
	// "a" left todo, so the store hands the next task position 2 while c
	// still holds it locally.
	c.SetStatus("a", service.StatusDone, cache.LaneHead)
	if err := c.Insert(task("0new", service.StatusTodo, 2)); err != nil {
		t.Fatal(err)
	}
	if err := c.Insert(task("00newer", service.StatusTodo, 3)); err != nil {
		t.Fatal(err)
	}

	if got, want := ids(c.Partition(service.StatusTodo)), []string{"b", "c", "0new", "00newer"}; !reflect.DeepEqual(got, want) {
		t.Errorf("todo partition = %v, want %v", got, want)
	}
}

func TestSetStatus_PlacementLanes(t *testing.T) {
	c := seeded()

	// Completed tasks show first, most recent first.
	c.SetStatus("a", service.StatusDone, cache.LaneHead)
	c.SetStatus("b", service.StatusDone, cache.LaneHead)
	if got, want := ids(c.Partition(service.StatusDone)), []string{"b", "a", "x", "y"}; !reflect.DeepEqual(got, want) {
		t.Errorf("done partition = %v, want %v", got, want)
	}

	// Reopened tasks show last, oldest first.
	c.SetStatus("y", service.StatusTodo, cache.LaneTail)
	c.SetStatus("x", service.StatusTodo, cache.LaneTail)
	if got, want := ids(c.Partition(service.StatusTodo)), []string{"c", "y", "x"}; !reflect.DeepEqual(got, want) {
		t.Errorf("todo partition = %v, want %v", got, want)
	}
}

func TestSetStatus_KeepsPosition(t *testing.T) {
	c := seeded()
	c.SetStatus("b", service.StatusDone, cache.LaneHead)
	got, _ := c.Get("b")
	if got.Position != 1 {
		t.Errorf("position = %d, want 1", got.Position)
	}
}

func TestApplyOrder(t *testing.T) {
	c := seeded()
	c.SetStatus("x", service.StatusTodo, cache.LaneTail)

	if err := c.ApplyOrder(service.StatusTodo, []string{"x", "c", "a", "b"}); err != nil {
		t.Fatalf("ApplyOrder: %v", err)
	}
	part := c.Partition(service.StatusTodo)
	if got, want := ids(part), []string{"x", "c", "a", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	for i, tk := range part {
		if tk.Position != i {
			t.Errorf("%s position = %d, want %d", tk.ID, tk.Position, i)
		}
	}
}

func TestApplyOrder_Stale(t *testing.T) {
	tests := []struct {
		name  string
		order []string
	}{
		{"missing task", []string{"a", "b"}},
		{"extra task", []string{"a", "b", "c", "x"}},
		{"unknown task", []string{"a", "b", "zz"}},
		{"duplicate", []string{"a", "a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := seeded()
			err := c.ApplyOrder(service.StatusTodo, tt.order)
			if !errors.Is(err, cache.ErrStaleOrder) {
				t.Errorf("expected ErrStaleOrder, got %v", err)
			}
			if got, want := ids(c.Partition(service.StatusTodo)), []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
				t.Errorf("partition changed to %v", got)
			}
		})
	}
}

func TestReplaceAll_ClearsOverlay(t *testing.T) {
	c := seeded()
	c.SetStatus("c", service.StatusDone, cache.LaneHead)
	c.ReplaceAll([]service.Task{
		task("x", service.StatusDone, 0),
		task("c", service.StatusDone, 1),
	}, cache.FilterDone)

	if got, want := ids(c.Partition(service.StatusDone)), []string{"x", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("done partition = %v, want %v", got, want)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestSubscribe(t *testing.T) {
	c := cache.New()
	var got []cache.Event
	unsubscribe := c.Subscribe(func(ev cache.Event) { got = append(got, ev) })

	c.ReplaceAll([]service.Task{task("a", service.StatusTodo, 0)}, cache.FilterTodo)
	_ = c.Insert(task("b", service.StatusTodo, 1))
	c.SetTitle("a", "renamed")
	c.SetStatus("a", service.StatusDone, cache.LaneHead)
	_ = c.ApplyOrder(service.StatusTodo, []string{"b"})
	c.RemoveByID("b")
	c.RemoveByID("missing")

	unsubscribe()
	c.RemoveByID("a")

	want := []cache.Event{
		{Kind: cache.EventReset, Filter: cache.FilterTodo},
		{Kind: cache.EventInserted, ID: "b", Status: service.StatusTodo},
		{Kind: cache.EventTitleChanged, ID: "a", Status: service.StatusTodo},
		{Kind: cache.EventStatusChanged, ID: "a", Status: service.StatusDone},
		{Kind: cache.EventReordered, Status: service.StatusTodo},
		{Kind: cache.EventRemoved, ID: "b", Status: service.StatusTodo},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("events =\n%v\nwant\n%v", got, want)
	}
}
