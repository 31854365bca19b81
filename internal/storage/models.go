package storage

import (
	"encoding/json"
	"time"
)

// DatabaseVersion is the current on-disk format version.
const DatabaseVersion = 1

// FeedConfig describes one configured feed. The registry owns these; the
// zero-value override fields mean "inherit from the global options".
type FeedConfig struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Paused bool   `json:"paused,omitempty"`

	// Per-feed overrides.
	Target    string `json:"target,omitempty"`
	From      string `json:"from,omitempty"`
	TrustGUID *bool  `json:"trust_guid,omitempty"`
	TrustLink *bool  `json:"trust_link,omitempty"`

	extra map[string]json.RawMessage
}

// Active reports whether the feed should be processed during a run.
func (f *FeedConfig) Active() bool {
	return !f.Paused
}

// SeenEntry records one previously observed entry, keyed in FeedState.Seen
// by its identity token.
type SeenEntry struct {
	FirstSeen   time.Time `json:"first_seen"`
	Fingerprint string    `json:"fingerprint,omitempty"`
}

// FeedState holds the dynamic data for one feed: the seen-entry set plus
// fetch bookkeeping. Reset clears it wholesale.
type FeedState struct {
	Seen         map[string]*SeenEntry `json:"seen"`
	ETag         string                `json:"etag,omitempty"`
	LastModified string                `json:"last_modified,omitempty"`
	LastFetch    time.Time             `json:"last_fetch"`
	LastError    string                `json:"last_error,omitempty"`

	extra map[string]json.RawMessage
}

// NewFeedState returns an empty state ready for recording entries.
func NewFeedState() *FeedState {
	return &FeedState{Seen: make(map[string]*SeenEntry)}
}

// Database aggregates the feed registry and the per-feed states. It is
// persisted as a single atomic unit by Store.
type Database struct {
	Version       int                   `json:"version"`
	DefaultTarget string                `json:"default_target,omitempty"`
	Feeds         []*FeedConfig         `json:"feeds"`
	States        map[string]*FeedState `json:"states"`

	extra map[string]json.RawMessage
}

// NewDatabase returns an empty database at the current format version.
func NewDatabase() *Database {
	return &Database{
		Version: DatabaseVersion,
		States:  make(map[string]*FeedState),
	}
}

// Feed returns the config registered under name, or nil.
func (db *Database) Feed(name string) *FeedConfig {
	for _, f := range db.Feeds {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// State returns the feed's state, creating an empty one on first access.
// The name must belong to a registered feed.
func (db *Database) State(name string) *FeedState {
	if db.States == nil {
		db.States = make(map[string]*FeedState)
	}
	st, ok := db.States[name]
	if !ok {
		st = NewFeedState()
		db.States[name] = st
	}
	return st
}

// PruneStates drops states that no longer correspond to a registered feed.
func (db *Database) PruneStates() {
	for name := range db.States {
		if db.Feed(name) == nil {
			delete(db.States, name)
		}
	}
}
