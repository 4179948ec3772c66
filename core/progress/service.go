package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-learn/core"
)

const (
	DefaultMaxRetries  = 3
	DefaultBaseBackoff = 10 * time.Millisecond
)

type (
	// AttemptFunc performs one compare-and-swap try.
	AttemptFunc func(ctx context.Context) Result

	// UpdaterFunc computes the update to apply from the current state of a record.
	// It must be pure: it is called again with the fresh record on every retry.
	UpdaterFunc func(current Progress) Patch

	Options struct {
		// MaxRetries defaults to DefaultMaxRetries when 0; a negative value disables retries.
		MaxRetries  int
		BaseBackoff time.Duration
		Now         func() time.Time // mockable
	}

	// Service implements optimistic concurrency control of Progress records over a Store
	// that has no native compare-and-swap: every write is admitted only if the version read
	// by the writer is still the stored one.
	Service struct {
		store  Store
		logger core.Logger
		opts   Options
		sleep  func(ctx context.Context, d time.Duration) error // mockable
	}
)

func NewService(store Store, logger core.Logger, opts Options) *Service {
	switch {
	case opts.MaxRetries == 0:
		opts.MaxRetries = DefaultMaxRetries
	case opts.MaxRetries < 0:
		opts.MaxRetries = 0
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = DefaultBaseBackoff
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:  store,
		logger: logger,
		opts:   opts,
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CheckVersion reports whether `prog` exists and is still at `expectedVersion`.
func CheckVersion(prog *Progress, expectedVersion int) bool {
	if prog == nil {
		return false
	}
	return prog.Version == expectedVersion
}

// NextVersion returns the version to store on the next successful write.
func NextVersion(currentVersion int) int {
	return currentVersion + 1
}

// Create inserts a new record at version 1.
func (svc *Service) Create(ctx context.Context, validate *validator.Validate, np NewProgress) (Progress, error) {
	if err := np.Validate(validate); err != nil {
		return Progress{}, err
	}

	now := svc.opts.Now().UTC()
	prog := Progress{
		UserID:    np.UserID,
		CourseID:  np.CourseID,
		ItemID:    np.ItemID,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := svc.store.Insert(ctx, prog)
	if err != nil {
		if errors.Cause(err) == ErrExists {
			return Progress{}, core.NewValidationError(err, core.FieldError{Field: "item_id", Error: err.Error()})
		}
		return Progress{}, errors.Wrap(err, "inserting progress")
	}
	prog.ID = id
	return prog, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Progress, error) {
	return svc.store.Get(ctx, id)
}

func (svc *Service) Find(ctx context.Context, ident Identity) (Progress, error) {
	return svc.store.FindByIdentity(ctx, ident)
}

func (svc *Service) QueryByCourse(ctx context.Context, userID, courseID string) ([]Progress, error) {
	return svc.store.QueryByCourse(ctx, userID, courseID)
}

func (svc *Service) readFailure(id string, err error) Result {
	if errors.Cause(err) == ErrNotFound {
		return notFound(id)
	}
	svc.logger.Error(fmt.Sprintf("reading progress %s", id), err)
	return failure(id, errors.Wrap(err, "reading progress"))
}

// AttemptUpdate applies `patch` and bumps the version of the record `id`,
// only if its stored version is still `expectedVersion`.
// The store re-checks the version in the write itself, so concurrent writers never both commit.
func (svc *Service) AttemptUpdate(ctx context.Context, id string, expectedVersion int, patch Patch) Result {
	current, err := svc.store.Get(ctx, id)
	if err != nil {
		return svc.readFailure(id, err)
	}
	if !CheckVersion(&current, expectedVersion) {
		return svc.conflict(current, expectedVersion)
	}

	next := NextVersion(current.Version)
	now := svc.opts.Now().UTC()
	patch.Version = &next
	patch.UpdatedAt = &now
	if err = svc.store.Patch(ctx, id, expectedVersion, patch); err != nil {
		switch errors.Cause(err) {
		case ErrVersionChanged:
			// lost the race between our read and our write
			live, err := svc.store.Get(ctx, id)
			if err != nil {
				return svc.readFailure(id, err)
			}
			return svc.conflict(live, expectedVersion)
		case ErrNotFound:
			return notFound(id)
		}
		svc.logger.Error(fmt.Sprintf("patching progress %s", id), err)
		return failure(id, errors.Wrap(err, "patching progress"))
	}
	return success(patch.Apply(current))
}

func (svc *Service) conflict(live Progress, expectedVersion int) Result {
	svc.logger.Debug(fmt.Sprintf("progress %s: version conflict: expected %d, found %d", live.ID, expectedVersion, live.Version))
	return conflict(live, expectedVersion)
}

// WithRetry calls `attempt` until it does not end in a version conflict, at most maxRetries+1 times.
// Conflicts are retried after an exponential backoff (BaseBackoff * 2^attempt), cut short if ctx is done.
// maxRetries defaults to Options.MaxRetries.
func (svc *Service) WithRetry(ctx context.Context, attempt AttemptFunc, maxRetries ...int) Result {
	retries := svc.opts.MaxRetries
	if len(maxRetries) > 0 && maxRetries[0] >= 0 {
		retries = maxRetries[0]
	}

	var res Result
	for i := 0; i <= retries; i++ {
		res = attempt(ctx)
		if !res.Retryable() {
			return res
		}
		if i < retries {
			if err := svc.sleep(ctx, svc.opts.BaseBackoff*time.Duration(1<<uint(i))); err != nil {
				return failure(res.ID, errors.Wrap(err, "waiting to retry progress update"))
			}
		}
	}

	svc.logger.Warn(fmt.Sprintf("progress %s: giving up after %d retries: expected %d, found %d", res.ID, retries, res.Expected, res.Found))
	return res
}

// SafeUpdate updates the record of `ident` with the patch computed by `updater`,
// re-reading the record and recomputing the patch on every retry. It never creates a record.
func (svc *Service) SafeUpdate(ctx context.Context, ident Identity, updater UpdaterFunc) Result {
	first, err := svc.store.FindByIdentity(ctx, ident)
	if err != nil {
		return svc.readFailure("", err)
	}

	var tries int
	return svc.WithRetry(ctx, func(ctx context.Context) Result {
		current := first
		if tries > 0 {
			if current, err = svc.store.FindByIdentity(ctx, ident); err != nil {
				return svc.readFailure(first.ID, err)
			}
		}
		tries++
		return svc.AttemptUpdate(ctx, current.ID, current.Version, updater(current))
	})
}

// CompareAndSwap sets `field` of the record `id` to `newValue`, only if it still equals `expected`.
// A changed field is reported as a version conflict with Result.Field set.
func (svc *Service) CompareAndSwap(ctx context.Context, id string, field Field, expected, newValue Value) Result {
	acc, err := accessorFor(field, expected, newValue)
	if err != nil {
		return failure(id, err)
	}

	current, err := svc.store.Get(ctx, id)
	if err != nil {
		return svc.readFailure(id, err)
	}
	if live := acc.get(current); !live.Equal(expected) {
		svc.logger.Debug(fmt.Sprintf("progress %s: %s changed: expected %s, found %s", id, field, expected, live))
		res := conflict(current, current.Version)
		res.Field = field
		return res
	}

	var patch Patch
	acc.set(&patch, newValue)
	return svc.AttemptUpdate(ctx, id, current.Version, patch)
}
