// Package runner orchestrates a run: fetch each enabled feed, diff against
// the stored state, dispatch notifications for new and changed entries, and
// persist the database at the end.
//
// Feeds are processed strictly one at a time. A fetch or dispatch failure
// is recorded on the feed and never blocks the other feeds; only store and
// config level errors abort the run.
package runner

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"feedmail/internal/config"
	"feedmail/internal/feed"
	"feedmail/internal/hooks"
	"feedmail/internal/mail"
	"feedmail/internal/registry"
	"feedmail/internal/storage"
)

// Fetcher is the feed-fetching collaborator.
type Fetcher interface {
	Fetch(ctx context.Context, cfg *storage.FeedConfig, state *storage.FeedState) (*feed.FetchResult, error)
}

type Runner struct {
	store   *storage.Store
	fetcher Fetcher
	mailer  mail.Mailer
	hooks   *hooks.Registry
	opts    *config.Options
}

func New(store *storage.Store, fetcher Fetcher, mailer mail.Mailer, hookReg *hooks.Registry, opts *config.Options) *Runner {
	return &Runner{
		store:   store,
		fetcher: fetcher,
		mailer:  mailer,
		hooks:   hookReg,
		opts:    opts,
	}
}

// Params selects what a run does. NoSend records identities without
// dispatching anything, which initializes a feed without a flood of mail.
// Feeds limits the run to the named feeds; empty means all.
type Params struct {
	NoSend bool
	Feeds  []string
}

// Report summarizes a completed run.
type Report struct {
	Fetched int
	New     int
	Changed int
	Sent    int
	Failed  []string
}

// Run processes the selected feeds sequentially and persists the database
// once at the end (or after every feed when save_every_feed is set). The
// database is saved even when the run is cut short, so identities recorded
// for already-dispatched notifications are never lost silently.
func (r *Runner) Run(ctx context.Context, db *storage.Database, params Params) (*Report, error) {
	feeds, err := r.selectFeeds(db, params.Feeds)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	var fatal error
	for _, cfg := range feeds {
		if ctx.Err() != nil {
			fatal = ctx.Err()
			break
		}
		if err := r.processFeed(ctx, db, cfg, params, report); err != nil {
			fatal = err
			break
		}
		if r.opts.Run.SaveEveryFeed {
			if err := r.store.Save(db); err != nil {
				return report, err
			}
		}
	}

	if err := r.store.Save(db); err != nil {
		return report, err
	}
	return report, fatal
}

func (r *Runner) selectFeeds(db *storage.Database, names []string) ([]*storage.FeedConfig, error) {
	if len(names) == 0 {
		return registry.New(db).Active(), nil
	}
	var feeds []*storage.FeedConfig
	selected := make(map[string]bool, len(names))
	for _, name := range names {
		if selected[name] {
			continue
		}
		selected[name] = true
		cfg := db.Feed(name)
		if cfg == nil {
			return nil, &registry.UnknownFeedError{Name: name}
		}
		if cfg.Active() {
			feeds = append(feeds, cfg)
		}
	}
	return feeds, nil
}

// processFeed runs the fetch-diff-notify-update cycle for one feed. Only
// errors that must abort the whole run are returned; per-feed failures are
// recorded on the feed's state.
func (r *Runner) processFeed(ctx context.Context, db *storage.Database, cfg *storage.FeedConfig, params Params, report *Report) error {
	log := logrus.WithField("feed", cfg.Name)
	state := db.State(cfg.Name)
	resolved := r.opts.ForFeed(cfg, db.DefaultTarget)

	result, err := r.fetcher.Fetch(ctx, cfg, state)
	if err != nil {
		log.WithError(err).Warn("fetch failed, skipping feed")
		state.LastError = err.Error()
		report.Failed = append(report.Failed, cfg.Name)
		return nil
	}
	report.Fetched++

	if result.NotModified {
		log.Debug("not modified")
		state.LastFetch = time.Now()
		state.LastError = ""
		return nil
	}

	entries, dropped, err := r.applyHook(resolved.PostProcess, result.Entries)
	if err != nil {
		log.WithError(err).Warn("post-process hook failed, skipping feed")
		state.LastError = err.Error()
		report.Failed = append(report.Failed, cfg.Name)
		return nil
	}

	policy := feed.PolicyFor(resolved.TrustGUID, resolved.TrustLink)
	diff := feed.Diff(state, entries, policy, r.opts.Run.NotifyOnChange)
	// Entries first seen without content get their fingerprint backfilled
	// once content appears, so later edits are still detectable.
	for _, c := range diff.Unchanged {
		if seen, ok := state.Seen[c.Identity]; ok && seen.Fingerprint == "" && c.Fingerprint != "" {
			seen.Fingerprint = c.Fingerprint
		}
	}
	report.New += len(diff.New)
	report.Changed += len(diff.Changed)
	log.WithFields(logrus.Fields{
		"new":       len(diff.New),
		"changed":   len(diff.Changed),
		"unchanged": len(diff.Unchanged),
	}).Info("diffed feed")

	notifiable := make(map[*feed.Entry]feed.Classified, len(diff.New)+len(diff.Changed))
	for _, c := range diff.New {
		notifiable[c.Entry] = c
	}
	for _, c := range diff.Changed {
		notifiable[c.Entry] = c
	}

	var dispatchFailed bool
	for _, entry := range entries {
		c, ok := notifiable[entry]
		if !ok {
			continue
		}
		if params.NoSend || dropped[entry] {
			markSeen(state, c)
			continue
		}

		msg := mail.Compose(entry, mail.ComposeOptions{
			FeedName:          cfg.Name,
			FeedURL:           cfg.URL,
			Identity:          c.Identity,
			Resolved:          resolved,
			ForceFrom:         r.opts.Mail.ForceFrom,
			UsePublisherEmail: r.opts.Mail.UsePublisherEmail,
			PublisherName:     result.PublisherName,
			PublisherEmail:    result.PublisherEmail,
			DateHeader:        r.opts.Mail.DateHeader,
		})
		if err := r.mailer.Send(ctx, msg); err != nil {
			// The entry stays unseen so the next run retries it.
			if r.opts.Run.FatalDispatch {
				return err
			}
			log.WithError(err).Warn("dispatch failed")
			state.LastError = err.Error()
			dispatchFailed = true
			continue
		}
		report.Sent++
		markSeen(state, c)
	}

	if result.PermanentURL != "" && result.PermanentURL != cfg.URL {
		log.WithField("url", result.PermanentURL).Info("feed moved permanently, updating URL")
		cfg.URL = result.PermanentURL
	}
	state.ETag = result.ETag
	state.LastModified = result.LastModified
	state.LastFetch = time.Now()
	if !dispatchFailed {
		state.LastError = ""
	} else {
		report.Failed = append(report.Failed, cfg.Name)
	}
	return nil
}

// applyHook runs the configured transform over the entries. A nil result
// drops the entry: it is still recorded as seen, but never notified.
func (r *Runner) applyHook(name string, entries []*feed.Entry) ([]*feed.Entry, map[*feed.Entry]bool, error) {
	dropped := make(map[*feed.Entry]bool)
	if name == "" {
		return entries, dropped, nil
	}
	out := make([]*feed.Entry, 0, len(entries))
	for _, entry := range entries {
		transformed, err := r.hooks.Apply(name, entry)
		if err != nil {
			return nil, nil, err
		}
		if transformed == nil {
			dropped[entry] = true
			out = append(out, entry)
			continue
		}
		out = append(out, transformed)
	}
	return out, dropped, nil
}

// markSeen records an entry's identity, keeping the original first-seen
// time when the entry was already known (a changed entry updates its
// fingerprint in place).
func markSeen(state *storage.FeedState, c feed.Classified) {
	if existing, ok := state.Seen[c.Identity]; ok {
		existing.Fingerprint = c.Fingerprint
		return
	}
	state.Seen[c.Identity] = &storage.SeenEntry{
		FirstSeen:   time.Now().UTC(),
		Fingerprint: c.Fingerprint,
	}
}
