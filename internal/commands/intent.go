package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"tasksync/internal/cache"
	"tasksync/internal/config"
	"tasksync/internal/engine"
	"tasksync/internal/exitcode"
)

// buildIntent turns a verb and its arguments into an engine intent. Task
// references are resolved against r.
func buildIntent(verb string, args []string, r cache.Reader) (engine.Intent, error) {
	switch verb {
	case "add":
		title := strings.Join(args, " ")
		if strings.TrimSpace(title) == "" {
			return nil, engine.ErrEmptyTitle
		}
		return engine.CreateTask{Title: title}, nil

	case "rm", "toggle":
		ref, rest, err := parseRef(args)
		if err != nil {
			return nil, err
		}
		if len(rest) > 0 {
			return nil, usageError("unexpected argument: " + rest[0])
		}
		t, _, err := ResolveTaskRef(r, ref)
		if err != nil {
			return nil, err
		}
		if verb == "rm" {
			return engine.DeleteTask{ID: t.ID}, nil
		}
		return engine.ToggleStatus{ID: t.ID}, nil

	case "rename":
		ref, rest, err := parseRef(args)
		if err != nil {
			return nil, err
		}
		title := strings.Join(rest, " ")
		if strings.TrimSpace(title) == "" {
			return nil, engine.ErrEmptyTitle
		}
		t, _, err := ResolveTaskRef(r, ref)
		if err != nil {
			return nil, err
		}
		return engine.RenameTask{ID: t.ID, Title: title}, nil

	case "move":
		ref, rest, err := parseRef(args)
		if err != nil {
			return nil, err
		}
		if len(rest) != 1 {
			return nil, usageError("target position required")
		}
		t, idx, err := ResolveTaskRef(r, ref)
		if err != nil {
			return nil, err
		}
		to, err := strconv.Atoi(rest[0])
		if err != nil || to < 1 || to > len(r.Partition(ref.Status)) {
			return nil, usageError(fmt.Sprintf("position out of range: %s", rest[0]))
		}
		return engine.MoveTask{ID: t.ID, OldIndex: idx, NewIndex: to - 1}, nil
	}
	return nil, usageError("unknown command: " + verb)
}

func parseRef(args []string) (TaskRef, []string, error) {
	ref, err := ParseTaskRef(args)
	if err != nil {
		return TaskRef{}, nil, err
	}
	return ref, args[ref.Args:], nil
}

// runIntent is the shared implementation of the one-shot mutating commands:
// load the board, resolve the arguments against it, dispatch.
func runIntent(ctx context.Context, cfg *config.Config, sess *Session, verb string, args []string, out, errOut io.Writer) int {
	eng := sess.Engine
	if verb != "add" {
		if len(args) == 0 {
			return report(errOut, ErrTaskRefRequired)
		}
		if err := eng.Load(ctx, cache.FilterAll); err != nil {
			return report(errOut, err)
		}
	}

	in, err := buildIntent(verb, args, eng.Cache())
	if err != nil {
		return report(errOut, err)
	}
	if err := eng.Dispatch(ctx, in); err != nil {
		return report(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
