package progress

import (
	"fmt"

	"github.com/pkg/errors"
)

// Reason tells why an update attempt did not succeed.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonVersionConflict
	ReasonNotFound
	ReasonError
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "success"
	case ReasonVersionConflict:
		return "version_conflict"
	case ReasonNotFound:
		return "not_found"
	default:
		return "error"
	}
}

// Result is the outcome of an update attempt.
// Only ReasonVersionConflict is worth retrying; NotFound and Error are terminal.
type Result struct {
	Progress Progress // the updated record on success; the live record on conflict
	Reason   Reason

	// version conflict diagnostics
	Expected int
	Found    int
	Field    Field // set when a CompareAndSwap field changed

	ID    string
	Cause error // set for ReasonError
}

func (res Result) OK() bool { return res.Reason == ReasonNone }

func (res Result) Retryable() bool { return res.Reason == ReasonVersionConflict }

// Err returns nil on success, ErrNotFound, a *ConflictError or the wrapped failure cause.
func (res Result) Err() error {
	switch res.Reason {
	case ReasonNone:
		return nil
	case ReasonNotFound:
		return errors.WithStack(ErrNotFound)
	case ReasonVersionConflict:
		return &ConflictError{ID: res.ID, Expected: res.Expected, Found: res.Found, Field: res.Field}
	default:
		if res.Cause == nil {
			return errors.New("progress update failed")
		}
		return res.Cause
	}
}

// ConflictError reports a record that changed since the caller read it.
type ConflictError struct {
	ID       string
	Expected int
	Found    int
	Field    Field
}

func (err *ConflictError) Error() string {
	if err.Field != "" {
		return fmt.Sprintf("progress %s: field %s changed", err.ID, err.Field)
	}
	return fmt.Sprintf("progress %s: version conflict: expected %d, found %d", err.ID, err.Expected, err.Found)
}

func IsConflict(err error) bool {
	_, ok := errors.Cause(err).(*ConflictError)
	return ok
}

func success(prog Progress) Result {
	return Result{Progress: prog, Reason: ReasonNone, ID: prog.ID}
}

func notFound(id string) Result {
	return Result{Reason: ReasonNotFound, ID: id}
}

func conflict(live Progress, expected int) Result {
	return Result{Progress: live, Reason: ReasonVersionConflict, ID: live.ID, Expected: expected, Found: live.Version}
}

func failure(id string, err error) Result {
	return Result{Reason: ReasonError, ID: id, Cause: err}
}
