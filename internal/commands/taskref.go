package commands

import (
	"fmt"
	"strconv"
	"unicode"

	"tasksync/internal/cache"
	"tasksync/internal/output"
	"tasksync/internal/service"
)

// usageError is a mistake on the command line. It maps to exitcode.UserError.
type usageError string

func (e usageError) Error() string { return string(e) }

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired error = usageError("task reference required")

// TaskRef represents a parsed task reference.
type TaskRef struct {
	Status service.Status
	Num    int // 1-based position in the partition
	Args   int // number of arguments consumed
}

// ParseTaskRef parses a task reference from the front of args.
//
//	3, t3, "t 3"  third todo task
//	d2, "d 2"     second done task
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 {
		return TaskRef{}, ErrTaskRefRequired
	}
	first := args[0]

	if isAllDigits(first) {
		return numRef(service.StatusTodo, first, 1)
	}

	st, ok := statusPrefix(first)
	if !ok {
		return TaskRef{}, invalidRef(first)
	}
	if len(first) > 1 {
		if !isAllDigits(first[1:]) {
			return TaskRef{}, invalidRef(first)
		}
		return numRef(st, first[1:], 1)
	}

	if len(args) < 2 {
		return TaskRef{}, ErrTaskRefRequired
	}
	if !isAllDigits(args[1]) {
		return TaskRef{}, invalidRef(first)
	}
	return numRef(st, args[1], 2)
}

func numRef(st service.Status, digits string, consumed int) (TaskRef, error) {
	n, err := strconv.Atoi(digits)
	if err != nil {
		return TaskRef{}, invalidRef(digits)
	}
	return TaskRef{Status: st, Num: n, Args: consumed}, nil
}

func invalidRef(s string) error {
	return usageError(fmt.Sprintf("invalid task reference: %s", s))
}

func statusPrefix(s string) (service.Status, bool) {
	switch s[0] {
	case 't':
		return service.StatusTodo, true
	case 'd':
		return service.StatusDone, true
	}
	return "", false
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// String formats the reference the way the board shows it.
func (r TaskRef) String() string {
	return output.Ref(r.Status, r.Num-1)
}

// ResolveTaskRef finds the referenced task in the cached partition and
// returns it with its 0-based index.
func ResolveTaskRef(r cache.Reader, ref TaskRef) (service.Task, int, error) {
	part := r.Partition(ref.Status)
	if ref.Num < 1 || ref.Num > len(part) {
		return service.Task{}, 0, usageError(fmt.Sprintf("task number out of range: %s", ref))
	}
	return part[ref.Num-1], ref.Num - 1, nil
}
