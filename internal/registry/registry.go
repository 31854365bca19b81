// Package registry manages the ordered collection of configured feeds
// inside the database: adding, removing, pausing and resetting them, plus
// OPML import and export.
package registry

import (
	"fmt"
	"regexp"

	"github.com/samber/lo"

	"feedmail/internal/storage"
	"feedmail/internal/validation"
)

var nameRegexp = regexp.MustCompile(`^[\w.-]+$`)

type Registry struct {
	db *storage.Database
}

func New(db *storage.Database) *Registry {
	return &Registry{db: db}
}

// Add registers a new feed. An empty name is auto-generated from the next
// free feed-N slot. The URL is validated and normalized first.
func (r *Registry) Add(name, url, target string) (*storage.FeedConfig, error) {
	normalized, err := validation.NormalizeFeedURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid feed URL: %w", err)
	}

	if name == "" {
		name = r.nextName()
	}
	if !nameRegexp.MatchString(name) {
		return nil, &InvalidNameError{Name: name}
	}
	if r.db.Feed(name) != nil {
		return nil, &DuplicateFeedError{Name: name}
	}

	cfg := &storage.FeedConfig{
		Name:   name,
		URL:    normalized,
		Target: target,
	}
	r.db.Feeds = append(r.db.Feeds, cfg)
	return cfg, nil
}

// Delete removes a feed and prunes its state.
func (r *Registry) Delete(name string) error {
	if r.db.Feed(name) == nil {
		return &UnknownFeedError{Name: name}
	}
	r.db.Feeds = lo.Reject(r.db.Feeds, func(f *storage.FeedConfig, _ int) bool {
		return f.Name == name
	})
	r.db.PruneStates()
	return nil
}

// Pause disables fetching for a feed; its configuration and state are kept.
func (r *Registry) Pause(name string) error {
	return r.setPaused(name, true)
}

// Unpause re-enables fetching for a feed.
func (r *Registry) Unpause(name string) error {
	return r.setPaused(name, false)
}

func (r *Registry) setPaused(name string, paused bool) error {
	cfg := r.db.Feed(name)
	if cfg == nil {
		return &UnknownFeedError{Name: name}
	}
	cfg.Paused = paused
	return nil
}

// Reset forgets a feed's dynamic state (seen entries, caching metadata) so
// its entries will be treated as fresh on the next run. The configuration
// stays registered.
func (r *Registry) Reset(name string) error {
	if r.db.Feed(name) == nil {
		return &UnknownFeedError{Name: name}
	}
	r.db.States[name] = storage.NewFeedState()
	return nil
}

// SetDefaultTarget updates the database-wide delivery address used by feeds
// without a per-feed target.
func (r *Registry) SetDefaultTarget(address string) {
	r.db.DefaultTarget = address
}

// List returns the configured feeds in registration order.
func (r *Registry) List() []*storage.FeedConfig {
	return append([]*storage.FeedConfig(nil), r.db.Feeds...)
}

// Active returns the feeds that are not paused, in registration order.
func (r *Registry) Active() []*storage.FeedConfig {
	return lo.Filter(r.db.Feeds, func(f *storage.FeedConfig, _ int) bool {
		return f.Active()
	})
}

func (r *Registry) nextName() string {
	for i := 0; ; i++ {
		name := fmt.Sprintf("feed-%d", i)
		if r.db.Feed(name) == nil {
			return name
		}
	}
}
