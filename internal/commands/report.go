package commands

import (
	"errors"
	"fmt"
	"io"

	"tasksync/internal/engine"
	"tasksync/internal/exitcode"
	"tasksync/internal/service"
)

// report prints err and returns the exit code for it. Auth failures win over
// desync: a resync that hit a revoked token still needs a new token first.
func report(errOut io.Writer, err error) int {
	var ue usageError
	switch {
	case errors.As(err, &ue):
		fmt.Fprintf(errOut, "error: %s\n", ue)
		return exitcode.UserError
	case errors.Is(err, engine.ErrEmptyTitle):
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	case errors.Is(err, service.ErrNoCredentials), errors.Is(err, service.ErrUnauthorized):
		fmt.Fprintf(errOut, "error: auth error: %v\n", err)
		return exitcode.AuthError
	case errors.Is(err, engine.ErrDesync):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.Desync
	default:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}
}
