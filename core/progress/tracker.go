package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-learn/core"
	"github.com/trezcool/masomo-learn/core/cache"
	"github.com/trezcool/masomo-learn/core/certificate"
)

const summaryNamespace = "course_progress"

var (
	// errors
	ErrCourseIncomplete = errors.New("course is not completed")
)

// Cache is the read-through cache holding course summaries.
type Cache interface {
	GetOrCompute(ctx context.Context, key string, fn cache.ComputeFunc, ttl ...time.Duration) (interface{}, error)
	InvalidateUser(userID string) int
}

var _ Cache = (*cache.Cache)(nil)

// Tracker records learners' progress through Service and keeps the cached course summaries
// consistent: a user's summaries are dropped after each successful write of one of their records.
type Tracker struct {
	svc      *Service
	cache    Cache
	signer   *certificate.Signer
	validate *validator.Validate
	logger   core.Logger
}

func NewTracker(svc *Service, cache Cache, signer *certificate.Signer, validate *validator.Validate, logger core.Logger) *Tracker {
	return &Tracker{
		svc:      svc,
		cache:    cache,
		signer:   signer,
		validate: validate,
		logger:   logger,
	}
}

func (t *Tracker) Create(ctx context.Context, np NewProgress) (Progress, error) {
	prog, err := t.svc.Create(ctx, t.validate, np)
	if err != nil {
		return Progress{}, err
	}
	t.invalidate(prog.UserID)
	return prog, nil
}

// Get returns the record `id` if it belongs to `userID`.
func (t *Tracker) Get(ctx context.Context, userID, id string) (Progress, error) {
	prog, err := t.svc.Get(ctx, id)
	if err != nil {
		return Progress{}, err
	}
	if prog.UserID != userID {
		return Progress{}, errors.WithStack(ErrNotFound)
	}
	return prog, nil
}

// SubmitAttempt merges `att` into the user's record of the item, retrying on concurrent writes.
func (t *Tracker) SubmitAttempt(ctx context.Context, userID string, att Attempt) (Progress, error) {
	if err := att.Validate(t.validate); err != nil {
		return Progress{}, err
	}
	at := att.At
	if at.IsZero() {
		at = t.svc.opts.Now()
	}
	at = at.UTC()

	ident := Identity{UserID: userID, CourseID: att.CourseID, ItemID: att.ItemID}
	res := t.svc.SafeUpdate(ctx, ident, func(current Progress) Patch {
		score, passed, completed, lastAt := att.Score, att.Passed, att.Completed, at
		merged := MergeProgressUpdates(PatchOf(current), Patch{
			BestScore: &score,
			Passed:    &passed,
			Completed: &completed,
		})
		attempts := Sum(current.Attempts, 1)
		lastAt = Latest(current.LastAttemptAt, lastAt, current.LastAttemptAt, lastAt)
		merged.Attempts = &attempts
		merged.LastAttemptAt = &lastAt
		return merged
	})
	if !res.OK() {
		return Progress{}, res.Err()
	}
	t.invalidate(userID)
	return res.Progress, nil
}

// Update applies `patch` to the record `id` of `userID` if it is still at `expectedVersion`.
// It is not retried: a conflict is returned to the caller who must re-read the record.
func (t *Tracker) Update(ctx context.Context, userID, id string, expectedVersion int, patch Patch) (Progress, error) {
	if err := patch.Validate(t.validate); err != nil {
		return Progress{}, err
	}
	if _, err := t.Get(ctx, userID, id); err != nil {
		return Progress{}, err
	}

	res := t.svc.AttemptUpdate(ctx, id, expectedVersion, patch)
	if !res.OK() {
		return Progress{}, res.Err()
	}
	t.invalidate(userID)
	return res.Progress, nil
}

// CompareAndSwap sets `field` of the record `id` of `userID` to `newValue` if it still equals `expected`.
func (t *Tracker) CompareAndSwap(ctx context.Context, userID, id string, field Field, expected, newValue Value) (Progress, error) {
	if _, err := t.Get(ctx, userID, id); err != nil {
		return Progress{}, err
	}

	res := t.svc.CompareAndSwap(ctx, id, field, expected, newValue)
	if !res.OK() {
		return Progress{}, res.Err()
	}
	t.invalidate(userID)
	return res.Progress, nil
}

// CourseSummary returns the user's progress summary for the course, read through the cache.
func (t *Tracker) CourseSummary(ctx context.Context, userID, courseID string, totalItems int) (Summary, error) {
	key := cache.Key(summaryNamespace, courseID, userID)
	val, err := t.cache.GetOrCompute(ctx, key, func(ctx context.Context) (interface{}, error) {
		records, err := t.svc.QueryByCourse(ctx, userID, courseID)
		if err != nil {
			return nil, errors.Wrap(err, "querying course progress")
		}
		return summarize(userID, courseID, records), nil
	})
	if err != nil {
		return Summary{}, err
	}
	sum, ok := val.(Summary)
	if !ok {
		return Summary{}, errors.Errorf("unexpected cached value for %s: %T", key, val)
	}
	return sum.WithTotal(totalItems), nil
}

// IssueCertificate issues a completion certificate once every item of the course is completed.
func (t *Tracker) IssueCertificate(ctx context.Context, userID, courseID string, totalItems int) (certificate.Certificate, string, error) {
	if totalItems <= 0 {
		return certificate.Certificate{}, "", core.NewValidationError(nil, core.FieldError{Field: "total_items", Error: "total_items must be greater than 0"})
	}
	sum, err := t.CourseSummary(ctx, userID, courseID, totalItems)
	if err != nil {
		return certificate.Certificate{}, "", err
	}
	if !sum.IsComplete() {
		msg := fmt.Sprintf("%d of %d items completed", sum.Completed, totalItems)
		return certificate.Certificate{}, "", core.NewValidationError(errors.Wrap(ErrCourseIncomplete, msg), core.FieldError{Field: "course_id", Error: msg})
	}

	cert := t.signer.Issue(userID, courseID, sum.AverageBestScore)
	token, err := t.signer.Token(cert)
	if err != nil {
		return certificate.Certificate{}, "", errors.Wrap(err, "signing certificate")
	}
	t.logger.Info(fmt.Sprintf("certificate %s issued to %s for course %s", cert.ID, userID, courseID))
	return cert, token, nil
}

func (t *Tracker) invalidate(userID string) {
	if n := t.cache.InvalidateUser(userID); n > 0 {
		t.logger.Debug(fmt.Sprintf("dropped %d cached summaries of %s", n, userID))
	}
}
