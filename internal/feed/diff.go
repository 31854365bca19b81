package feed

import (
	"feedmail/internal/storage"
)

// Classified pairs an entry with the identity and fingerprint computed for
// it during a diff, so callers can record them without recomputing.
type Classified struct {
	Entry       *Entry
	Identity    string
	Fingerprint string
}

// Result is the outcome of diffing one fetch against the stored state.
// Each slice preserves feed-delivery order.
type Result struct {
	New       []Classified
	Changed   []Classified
	Unchanged []Classified
}

// Diff classifies fetched entries against the feed's stored state. An
// identity absent from the state is New. When trackChanges is set, a known
// identity whose content fingerprint moved is Changed. Everything else is
// Unchanged. The result is a pure function of its inputs.
func Diff(state *storage.FeedState, entries []*Entry, policy TrustPolicy, trackChanges bool) Result {
	var res Result
	// Tracks identities already classified within this fetch, so a feed
	// that repeats an entry doesn't produce two notifications for it.
	local := make(map[string]bool, len(entries))
	for _, e := range entries {
		c := Classified{
			Entry:       e,
			Identity:    Identify(e, policy),
			Fingerprint: Fingerprint(e),
		}
		if local[c.Identity] {
			res.Unchanged = append(res.Unchanged, c)
			continue
		}
		local[c.Identity] = true
		seen, ok := state.Seen[c.Identity]
		switch {
		case !ok:
			res.New = append(res.New, c)
		case trackChanges && seen.Fingerprint != "" && c.Fingerprint != "" && seen.Fingerprint != c.Fingerprint:
			res.Changed = append(res.Changed, c)
		default:
			res.Unchanged = append(res.Unchanged, c)
		}
	}
	return res
}
