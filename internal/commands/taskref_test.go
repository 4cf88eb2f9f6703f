package commands

import (
	"errors"
	"testing"

	"tasksync/internal/cache"
	"tasksync/internal/service"
)

func TestParseTaskRef(t *testing.T) {
	tests := []struct {
		args []string
		want TaskRef
	}{
		{[]string{"5"}, TaskRef{Status: service.StatusTodo, Num: 5, Args: 1}},
		{[]string{"t1"}, TaskRef{Status: service.StatusTodo, Num: 1, Args: 1}},
		{[]string{"d12"}, TaskRef{Status: service.StatusDone, Num: 12, Args: 1}},
		{[]string{"t", "3", "rest"}, TaskRef{Status: service.StatusTodo, Num: 3, Args: 2}},
		{[]string{"d", "2"}, TaskRef{Status: service.StatusDone, Num: 2, Args: 2}},
		{[]string{"4", "title"}, TaskRef{Status: service.StatusTodo, Num: 4, Args: 1}},
	}
	for _, tt := range tests {
		got, err := ParseTaskRef(tt.args)
		if err != nil {
			t.Errorf("ParseTaskRef(%q): unexpected error: %v", tt.args, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTaskRef(%q) = %+v, want %+v", tt.args, got, tt.want)
		}
	}
}

func TestParseTaskRef_Errors(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{}, "task reference required"},
		{[]string{"d"}, "task reference required"},
		{[]string{"a1"}, "invalid task reference: a1"},
		{[]string{"T1"}, "invalid task reference: T1"},
		{[]string{"t1x"}, "invalid task reference: t1x"},
		{[]string{"t", "x"}, "invalid task reference: t"},
		{[]string{"-1"}, "invalid task reference: -1"},
		{[]string{"٣"}, "invalid task reference: ٣"},
	}
	for _, tt := range tests {
		_, err := ParseTaskRef(tt.args)
		if err == nil {
			t.Errorf("ParseTaskRef(%q): expected error", tt.args)
			continue
		}
		if err.Error() != tt.want {
			t.Errorf("ParseTaskRef(%q) error = %q, want %q", tt.args, err.Error(), tt.want)
		}
		var ue usageError
		if !errors.As(err, &ue) {
			t.Errorf("ParseTaskRef(%q) error is not a usage error", tt.args)
		}
	}
}

func TestResolveTaskRef(t *testing.T) {
	c := cache.New()
	c.ReplaceAll([]service.Task{
		{ID: "a", Status: service.StatusTodo, Position: 0},
		{ID: "b", Status: service.StatusTodo, Position: 1},
		{ID: "x", Status: service.StatusDone, Position: 0},
	}, cache.FilterAll)

	task, idx, err := ResolveTaskRef(c, TaskRef{Status: service.StatusTodo, Num: 2})
	if err != nil || task.ID != "b" || idx != 1 {
		t.Errorf("t2 = %s, %d, %v", task.ID, idx, err)
	}
	task, idx, err = ResolveTaskRef(c, TaskRef{Status: service.StatusDone, Num: 1})
	if err != nil || task.ID != "x" || idx != 0 {
		t.Errorf("d1 = %s, %d, %v", task.ID, idx, err)
	}

	for _, ref := range []TaskRef{{Status: service.StatusTodo, Num: 0}, {Status: service.StatusDone, Num: 2}} {
		if _, _, err := ResolveTaskRef(c, ref); err == nil {
			t.Errorf("%s: expected out of range error", ref)
		}
	}
}
