// Package hooks implements the post-processing capability table: named
// entry transforms registered at startup and selected per feed through the
// post_process option. No dynamic resolution happens at dispatch time.
package hooks

import (
	"fmt"
	"sort"

	"feedmail/internal/feed"
)

// Transform rewrites an entry before it is mailed. Returning a nil entry
// drops it: no notification is sent and the entry is still marked seen.
type Transform interface {
	Name() string
	Apply(entry *feed.Entry) (*feed.Entry, error)
}

// Registry maps configured keys to transforms.
type Registry struct {
	transforms map[string]Transform
}

func NewRegistry() *Registry {
	return &Registry{transforms: make(map[string]Transform)}
}

// DefaultRegistry returns a registry with the built-in transforms.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(StripTracking{})
	return r
}

// Register adds a transform under its name, replacing any previous one.
func (r *Registry) Register(t Transform) {
	r.transforms[t.Name()] = t
}

// Apply runs the named transform on the entry. An unknown name is an
// error: a feed configured with a missing hook should fail loudly, not
// silently skip the rewrite.
func (r *Registry) Apply(name string, entry *feed.Entry) (*feed.Entry, error) {
	t, ok := r.transforms[name]
	if !ok {
		return nil, fmt.Errorf("unknown post_process hook %q", name)
	}
	return t.Apply(entry)
}

// Names lists the registered transform keys, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.transforms))
	for name := range r.transforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
