// Package storage persists the feed database as a single JSON snapshot.
// Saves go through a temp file and an atomic rename, so readers never see a
// partial write and a crash mid-save leaves the previous snapshot intact.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the location of the persisted database.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted database. It returns ErrNotFound on first use
// and CorruptStateError when the file exists but cannot be parsed.
func (s *Store) Load() (*Database, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Op: "reading", Path: s.path, Err: err}
	}

	db := NewDatabase()
	if err := json.Unmarshal(data, db); err != nil {
		return nil, &CorruptStateError{Path: s.path, Err: err}
	}
	if db.Version > DatabaseVersion {
		return nil, &CorruptStateError{
			Path: s.path,
			Err:  fmt.Errorf("unsupported database version %d", db.Version),
		}
	}
	if db.States == nil {
		db.States = make(map[string]*FeedState)
	}
	// Older files may omit per-state maps; normalize so callers can record
	// entries without checking.
	for name, st := range db.States {
		if st == nil {
			db.States[name] = NewFeedState()
			continue
		}
		if st.Seen == nil {
			st.Seen = make(map[string]*SeenEntry)
		}
	}
	return db, nil
}

// Save writes the full serialized snapshot to a temp file in the same
// directory and renames it over the previous one. On any failure the
// previous file is untouched.
func (s *Store) Save(db *Database) error {
	data, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "encoding", Path: s.path, Err: err}
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return &PersistenceError{Op: "creating directory for", Path: s.path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return &PersistenceError{Op: "creating temp file for", Path: s.path, Err: err}
	}
	defer func() {
		// No-op after a successful rename.
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		return &PersistenceError{Op: "writing", Path: s.path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return &PersistenceError{Op: "syncing", Path: s.path, Err: err}
	}
	if err := tmp.Chmod(0o600); err != nil {
		return &PersistenceError{Op: "setting permissions on", Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &PersistenceError{Op: "closing", Path: s.path, Err: err}
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return &PersistenceError{Op: "replacing", Path: s.path, Err: err}
	}
	return nil
}
