// Package sqlxdb is the Postgres document store.
package sqlxdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-learn/core"
	"github.com/trezcool/masomo-learn/core/progress"
)

const (
	progressColumns = "id, user_id, course_id, item_id, version, best_score, passed, completed, attempts, last_attempt_at, created_at, updated_at"

	uniqueViolation = "23505"

	// database/sql does not export this one
	errDBClosedMsg = "sql: database is closed"
)

type progressStore struct {
	db *sqlx.DB
}

var _ progress.Store = (*progressStore)(nil) // interface compliance check

func NewProgressStore(db *sqlx.DB) progress.Store {
	return &progressStore{db: db}
}

func (store *progressStore) get(ctx context.Context, where string, args ...interface{}) (progress.Progress, error) {
	var prog progress.Progress
	q := fmt.Sprintf("SELECT %s FROM progress WHERE %s", progressColumns, where)
	if err := store.db.GetContext(ctx, &prog, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return progress.Progress{}, errors.WithStack(progress.ErrNotFound)
		}
		return progress.Progress{}, wrapErr(err, "selecting progress")
	}
	return utc(prog), nil
}

func (store *progressStore) Get(ctx context.Context, id string) (progress.Progress, error) {
	if _, err := uuid.Parse(id); err != nil {
		return progress.Progress{}, errors.WithStack(progress.ErrNotFound)
	}
	return store.get(ctx, "id = $1", id)
}

// Patch is a single UPDATE guarded by the expected version, so the check and the write are atomic.
func (store *progressStore) Patch(ctx context.Context, id string, expectedVersion int, patch progress.Patch) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.WithStack(progress.ErrNotFound)
	}
	sets, args := patchClauses(patch)
	if len(sets) == 0 {
		prog, err := store.Get(ctx, id)
		if err != nil {
			return err
		}
		if prog.Version != expectedVersion {
			return errors.WithStack(progress.ErrVersionChanged)
		}
		return nil
	}

	args = append(args, id, expectedVersion)
	q := fmt.Sprintf("UPDATE progress SET %s WHERE id = $%d AND version = $%d", strings.Join(sets, ", "), len(args)-1, len(args))
	res, err := store.db.ExecContext(ctx, q, args...)
	if err != nil {
		return wrapErr(err, "updating progress")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr(err, "updating progress")
	}
	if n == 0 {
		// either gone or moved on: tell which
		if _, err = store.Get(ctx, id); err != nil {
			return err
		}
		return errors.WithStack(progress.ErrVersionChanged)
	}
	return nil
}

func patchClauses(patch progress.Patch) ([]string, []interface{}) {
	var (
		sets []string
		args []interface{}
	)
	add := func(col string, val interface{}) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.BestScore != nil {
		add("best_score", *patch.BestScore)
	}
	if patch.Passed != nil {
		add("passed", *patch.Passed)
	}
	if patch.Completed != nil {
		add("completed", *patch.Completed)
	}
	if patch.Attempts != nil {
		add("attempts", *patch.Attempts)
	}
	if patch.LastAttemptAt != nil {
		add("last_attempt_at", patch.LastAttemptAt.UTC())
	}
	if patch.Version != nil {
		add("version", *patch.Version)
	}
	if patch.UpdatedAt != nil {
		add("updated_at", patch.UpdatedAt.UTC())
	}
	return sets, args
}

func (store *progressStore) Insert(ctx context.Context, prog progress.Progress) (string, error) {
	prog.ID = uuid.New().String()
	prog = utc(prog)

	q := fmt.Sprintf(`INSERT INTO progress (%s)
		VALUES (:id, :user_id, :course_id, :item_id, :version, :best_score, :passed, :completed, :attempts, :last_attempt_at, :created_at, :updated_at)`,
		progressColumns)
	if _, err := store.db.NamedExecContext(ctx, q, prog); err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return "", errors.WithStack(progress.ErrExists)
		}
		return "", wrapErr(err, "inserting progress")
	}
	return prog.ID, nil
}

func (store *progressStore) FindByIdentity(ctx context.Context, ident progress.Identity) (progress.Progress, error) {
	return store.get(ctx, "user_id = $1 AND course_id = $2 AND item_id = $3", ident.UserID, ident.CourseID, ident.ItemID)
}

func (store *progressStore) QueryByCourse(ctx context.Context, userID, courseID string) ([]progress.Progress, error) {
	var records []progress.Progress
	q := fmt.Sprintf("SELECT %s FROM progress WHERE user_id = $1 AND course_id = $2 ORDER BY item_id", progressColumns)
	if err := store.db.SelectContext(ctx, &records, q, userID, courseID); err != nil {
		return nil, wrapErr(err, "selecting course progress")
	}
	for i := range records {
		records[i] = utc(records[i])
	}
	return records, nil
}

// wrapErr turns the errors of a connection pool that is gone for good into shutdown errors.
func wrapErr(err error, msg string) error {
	if errors.Is(err, sql.ErrConnDone) || err.Error() == errDBClosedMsg {
		return core.NewShutdownError(fmt.Sprintf("%s: %v", msg, err))
	}
	return errors.Wrap(err, msg)
}

func utc(prog progress.Progress) progress.Progress {
	prog.LastAttemptAt = prog.LastAttemptAt.UTC()
	prog.CreatedAt = prog.CreatedAt.UTC()
	prog.UpdatedAt = prog.UpdatedAt.UTC()
	return prog
}
