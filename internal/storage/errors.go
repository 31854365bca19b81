package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound signals that no database exists yet; callers create a fresh
// one with NewDatabase.
var ErrNotFound = errors.New("feed database not found")

// CorruptStateError means the persisted database exists but cannot be
// parsed. The file is left untouched for inspection.
type CorruptStateError struct {
	Path string
	Err  error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("corrupt feed database %s: %v", e.Path, e.Err)
}

func (e *CorruptStateError) Unwrap() error { return e.Err }

// PersistenceError wraps any failure to write the database. The previous
// snapshot on disk is guaranteed to be intact when this is returned.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
