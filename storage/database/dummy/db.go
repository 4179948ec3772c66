// Package dummydb is an in-memory document store, used for tests and the "memory" database engine.
package dummydb

import (
	"sync"

	"github.com/trezcool/masomo-learn/core/progress"
)

type (
	DB struct {
		progress *progressTable
	}

	progressTable struct {
		sync.RWMutex
		table map[string]*progress.Progress
	}
)

func Open() (*DB, error) {
	db := &DB{
		progress: &progressTable{table: make(map[string]*progress.Progress)},
	}
	return db, nil
}
