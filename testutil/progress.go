package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/masomo-learn/core/progress"
)

// CreateProgress inserts a new record of `ident` at version 1.
func CreateProgress(t *testing.T, store progress.Store, ident progress.Identity, createdAt ...time.Time) progress.Progress {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	prog := progress.Progress{
		UserID:    ident.UserID,
		CourseID:  ident.CourseID,
		ItemID:    ident.ItemID,
		Version:   1,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	id, err := store.Insert(context.Background(), prog)
	if err != nil {
		t.Fatalf("CreateProgress() failed: %v", err)
	}
	prog.ID = id
	return prog
}
