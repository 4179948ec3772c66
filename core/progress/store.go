package progress

import (
	"context"
	"errors"
)

var (
	// errors
	ErrNotFound = errors.New("progress not found")
	ErrExists   = errors.New("progress already exists for this user, course and item")
	// ErrVersionChanged is returned by Store.Patch when the stored version is not the expected one.
	ErrVersionChanged = errors.New("progress version changed")
)

// Store is the document store holding Progress records.
// Each call is applied atomically on its own; Patch is the only call composing a read with a write.
type Store interface {
	// Get returns ErrNotFound if no record has this id.
	Get(ctx context.Context, id string) (Progress, error)
	// Patch applies the set fields of `patch` only if the stored version is still `expectedVersion`,
	// in the same atomic step. It returns ErrVersionChanged otherwise. Use Service to mutate records.
	Patch(ctx context.Context, id string, expectedVersion int, patch Patch) error
	// Insert stores a new record and returns its id. It returns ErrExists if the identity is taken.
	Insert(ctx context.Context, prog Progress) (string, error)
	// FindByIdentity returns ErrNotFound if no record has this identity.
	FindByIdentity(ctx context.Context, ident Identity) (Progress, error)
	QueryByCourse(ctx context.Context, userID, courseID string) ([]Progress, error)
}
