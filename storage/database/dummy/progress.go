package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-learn/core/progress"
)

type progressStore struct {
	db *progressTable
}

var _ progress.Store = (*progressStore)(nil) // interface compliance check

func NewProgressStore(db *DB) progress.Store {
	return &progressStore{db: db.progress}
}

func (store *progressStore) Get(_ context.Context, id string) (progress.Progress, error) {
	store.db.RLock()
	defer store.db.RUnlock()

	if prog, ok := store.db.table[id]; ok {
		return *prog, nil
	}
	return progress.Progress{}, errors.WithStack(progress.ErrNotFound)
}

func (store *progressStore) Patch(_ context.Context, id string, expectedVersion int, patch progress.Patch) error {
	store.db.Lock()
	defer store.db.Unlock()

	prog, ok := store.db.table[id]
	if !ok {
		return errors.WithStack(progress.ErrNotFound)
	}
	if prog.Version != expectedVersion {
		return errors.WithStack(progress.ErrVersionChanged)
	}
	updated := patch.Apply(*prog)
	store.db.table[id] = &updated
	return nil
}

func (store *progressStore) Insert(_ context.Context, prog progress.Progress) (string, error) {
	store.db.Lock()
	defer store.db.Unlock()

	ident := prog.Identity()
	for _, p := range store.db.table {
		if p.Identity() == ident {
			return "", errors.WithStack(progress.ErrExists)
		}
	}

	prog.ID = uuid.New().String()
	store.db.table[prog.ID] = &prog
	return prog.ID, nil
}

func (store *progressStore) FindByIdentity(_ context.Context, ident progress.Identity) (progress.Progress, error) {
	store.db.RLock()
	defer store.db.RUnlock()

	for _, p := range store.db.table {
		if p.Identity() == ident {
			return *p, nil
		}
	}
	return progress.Progress{}, errors.WithStack(progress.ErrNotFound)
}

func (store *progressStore) QueryByCourse(_ context.Context, userID, courseID string) ([]progress.Progress, error) {
	store.db.RLock()
	defer store.db.RUnlock()

	var records []progress.Progress
	for _, p := range store.db.table {
		if p.UserID == userID && p.CourseID == courseID {
			records = append(records, *p)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ItemID < records[j].ItemID })
	return records, nil
}
