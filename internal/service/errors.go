package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Failure classes of a remote call. A *RemoteError always wraps exactly one.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrRejected     = errors.New("rejected by remote store")
	ErrTimeout      = errors.New("request timed out")
	ErrTransport    = errors.New("transport failure")
	ErrDecode       = errors.New("unparsable response")
)

// ErrNoCredentials is the precondition failure of a backend constructed
// without a credential. No remote call is attempted.
var ErrNoCredentials = errors.New("no credentials configured")

// RemoteError is the typed failure returned by every Service operation.
type RemoteError struct {
	Op   string // list, create, remove, patch, reposition
	ID   string // task ID, empty for list and create
	Code int    // HTTP status, 0 when no response was received
	Err  error
}

func (e *RemoteError) Error() string {
	msg := e.Op
	if e.ID != "" {
		msg += " " + e.ID
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s: %d: %v", msg, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Wrap classifies err and returns it as a *RemoteError for op.
// A nil err yields nil; an existing *RemoteError is returned unchanged.
func Wrap(op, id string, err error) error {
	if err == nil {
		return nil
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return re
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &RemoteError{Op: op, ID: id, Code: gerr.Code, Err: fmt.Errorf("%w: %s", classify(gerr.Code), message(gerr))}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &RemoteError{Op: op, ID: id, Err: ErrTimeout}
	}
	if errors.Is(err, ErrDecode) {
		return &RemoteError{Op: op, ID: id, Err: err}
	}
	return &RemoteError{Op: op, ID: id, Err: fmt.Errorf("%w: %w", ErrTransport, err)}
}

func classify(code int) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		return ErrRejected
	}
}

func message(gerr *googleapi.Error) string {
	if gerr.Message != "" {
		return gerr.Message
	}
	if gerr.Body != "" {
		return gerr.Body
	}
	return http.StatusText(gerr.Code)
}
