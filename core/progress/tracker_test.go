package progress_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-learn/core"
	"github.com/trezcool/masomo-learn/core/cache"
	"github.com/trezcool/masomo-learn/core/certificate"
	"github.com/trezcool/masomo-learn/core/progress"
)

type trackerTest struct {
	*serviceTest
	cache   *cache.Cache
	signer  *certificate.Signer
	tracker *progress.Tracker
}

func newTrackerTest(t *testing.T) *trackerTest {
	st := newServiceTest(t)
	c, err := cache.New(cache.Options{TTL: time.Minute, MaxSize: 100})
	require.NoError(t, err)
	signer, err := certificate.NewSigner("secret")
	require.NoError(t, err)
	return &trackerTest{
		serviceTest: st,
		cache:       c,
		signer:      signer,
		tracker:     progress.NewTracker(st.svc, c, signer, newValidator(), st.logger),
	}
}

func (tt *trackerTest) create(t *testing.T, userID, courseID, itemID string) progress.Progress {
	prog, err := tt.tracker.Create(context.Background(), progress.NewProgress{
		Identity: progress.Identity{UserID: userID, CourseID: courseID, ItemID: itemID},
	})
	require.NoError(t, err)
	return prog
}

func TestTracker_SubmitAttempt(t *testing.T) {
	tt := newTrackerTest(t)
	ctx := context.Background()
	tt.create(t, "U1", "C1", "I1")

	t1 := time.Date(2021, time.March, 1, 12, 0, 0, 0, time.UTC)
	prog, err := tt.tracker.SubmitAttempt(ctx, "U1", progress.Attempt{CourseID: "C1", ItemID: "I1", Score: 90, Passed: true, At: t1})
	require.NoError(t, err)
	assert.Equal(t, 90.0, prog.BestScore)
	assert.True(t, prog.Passed)
	assert.False(t, prog.Completed)
	assert.Equal(t, 1, prog.Attempts)
	assert.Equal(t, 2, prog.Version)
	assert.Equal(t, t1, prog.LastAttemptAt)

	// a worse, older attempt keeps the achievements
	prog, err = tt.tracker.SubmitAttempt(ctx, "U1", progress.Attempt{CourseID: "C1", ItemID: "I1", Score: 40, Completed: true, At: t1.Add(-time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, 90.0, prog.BestScore)
	assert.True(t, prog.Passed)
	assert.True(t, prog.Completed)
	assert.Equal(t, 2, prog.Attempts)
	assert.Equal(t, t1, prog.LastAttemptAt)

	_, err = tt.tracker.SubmitAttempt(ctx, "U1", progress.Attempt{CourseID: "C1", ItemID: "unknown", Score: 40})
	assert.Equal(t, progress.ErrNotFound, errors.Cause(err))

	_, err = tt.tracker.SubmitAttempt(ctx, "U1", progress.Attempt{CourseID: "C1", ItemID: "I1", Score: 140})
	assert.Error(t, err)
}

func TestTracker_Update(t *testing.T) {
	tt := newTrackerTest(t)
	ctx := context.Background()
	prog := tt.create(t, "U1", "C1", "I1")

	done := true
	updated, err := tt.tracker.Update(ctx, "U1", prog.ID, 1, progress.Patch{Completed: &done})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, 2, updated.Version)

	_, err = tt.tracker.Update(ctx, "U1", prog.ID, 1, progress.Patch{Completed: &done})
	assert.True(t, progress.IsConflict(err))

	_, err = tt.tracker.Update(ctx, "U2", prog.ID, 2, progress.Patch{Completed: &done})
	assert.Equal(t, progress.ErrNotFound, errors.Cause(err), "records of other users are not found")

	bad := -1.0
	_, err = tt.tracker.Update(ctx, "U1", prog.ID, 2, progress.Patch{BestScore: &bad})
	assert.Error(t, err)
}

func TestTracker_CourseSummary(t *testing.T) {
	tt := newTrackerTest(t)
	ctx := context.Background()
	tt.create(t, "U1", "C1", "I1")
	tt.create(t, "U1", "C1", "I2")
	tt.create(t, "U2", "C1", "I1")

	sum, err := tt.tracker.CourseSummary(ctx, "U1", "C1", 4)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Items)
	assert.Equal(t, 0, sum.Completed)
	assert.Equal(t, 0.0, sum.Percent)

	key := cache.Key("course_progress", "C1", "U1")
	_, ok := tt.cache.Get(key)
	require.True(t, ok, "summary must be cached")

	_, err = tt.tracker.CourseSummary(ctx, "U2", "C1", 4)
	require.NoError(t, err)

	_, err = tt.tracker.SubmitAttempt(ctx, "U1", progress.Attempt{CourseID: "C1", ItemID: "I1", Score: 100, Passed: true, Completed: true})
	require.NoError(t, err)
	_, ok = tt.cache.Get(key)
	assert.False(t, ok, "a write must drop the user's cached summaries")
	_, ok = tt.cache.Get(cache.Key("course_progress", "C1", "U2"))
	assert.True(t, ok, "other users' summaries are kept")

	sum, err = tt.tracker.CourseSummary(ctx, "U1", "C1", 4)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Completed)
	assert.Equal(t, 1, sum.Passed)
	assert.Equal(t, 1, sum.Attempts)
	assert.Equal(t, 50.0, sum.AverageBestScore)
	assert.Equal(t, 25.0, sum.Percent)
}

func TestTracker_IssueCertificate(t *testing.T) {
	tt := newTrackerTest(t)
	ctx := context.Background()
	tt.create(t, "U1", "C1", "I1")
	tt.create(t, "U1", "C1", "I2")

	_, _, err := tt.tracker.IssueCertificate(ctx, "U1", "C1", 0)
	assert.IsType(t, &core.ValidationError{}, err)

	_, _, err = tt.tracker.IssueCertificate(ctx, "U1", "C1", 2)
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, progress.ErrCourseIncomplete, errors.Cause(verr.Err))

	for _, item := range []string{"I1", "I2"} {
		_, err = tt.tracker.SubmitAttempt(ctx, "U1", progress.Attempt{CourseID: "C1", ItemID: item, Score: 80, Passed: true, Completed: true})
		require.NoError(t, err)
	}

	cert, token, err := tt.tracker.IssueCertificate(ctx, "U1", "C1", 2)
	require.NoError(t, err)
	assert.Equal(t, "U1", cert.UserID)
	assert.Equal(t, "C1", cert.CourseID)
	assert.Equal(t, 80.0, cert.Score)

	verified, err := tt.signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, cert, verified)
}

func TestSummary_WithTotal(t *testing.T) {
	records := []progress.Progress{
		{BestScore: 100, Completed: true, Passed: true, Attempts: 2},
		{BestScore: 50, Completed: true, Attempts: 1},
		{BestScore: 0},
	}
	sum := progress.Summarize("U1", "C1", records)
	assert.Equal(t, 3, sum.Items)
	assert.Equal(t, 2, sum.Completed)
	assert.Equal(t, 1, sum.Passed)
	assert.Equal(t, 3, sum.Attempts)
	assert.Equal(t, 50.0, sum.AverageBestScore)

	assert.Equal(t, 50.0, sum.WithTotal(4).Percent)
	assert.False(t, sum.WithTotal(4).IsComplete())
	assert.Equal(t, 100.0, sum.WithTotal(1).Percent, "percent is capped")
	assert.True(t, sum.WithTotal(2).IsComplete())
	assert.Equal(t, 0.0, sum.WithTotal(0).Percent)
	assert.False(t, sum.WithTotal(0).IsComplete())
}

func TestTracker_CompareAndSwap(t *testing.T) {
	tt := newTrackerTest(t)
	ctx := context.Background()
	prog := tt.create(t, "U1", "C1", "I1")

	_, err := tt.tracker.CourseSummary(ctx, "U1", "C1", 1)
	require.NoError(t, err)

	updated, err := tt.tracker.CompareAndSwap(ctx, "U1", prog.ID, progress.FieldCompleted, progress.Flag(false), progress.Flag(true))
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, 2, updated.Version)
	_, ok := tt.cache.Get(cache.Key("course_progress", "C1", "U1"))
	assert.False(t, ok, "a swap must drop the user's cached summaries")

	_, err = tt.tracker.CompareAndSwap(ctx, "U1", prog.ID, progress.FieldCompleted, progress.Flag(false), progress.Flag(true))
	require.True(t, progress.IsConflict(err))
	assert.Contains(t, err.Error(), "field completed changed")

	_, err = tt.tracker.CompareAndSwap(ctx, "U2", prog.ID, progress.FieldCompleted, progress.Flag(true), progress.Flag(false))
	assert.Equal(t, progress.ErrNotFound, errors.Cause(err))
}

func TestTracker_CourseSummary_foreignCachedValue(t *testing.T) {
	tt := newTrackerTest(t)
	tt.create(t, "U1", "C1", "I1")
	tt.cache.Set(cache.Key("course_progress", "C1", "U1"), "not a summary")

	_, err := tt.tracker.CourseSummary(context.Background(), "U1", "C1", 1)
	assert.Error(t, err)
}
