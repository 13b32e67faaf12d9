package registry

import (
	"sync"

	"github.com/pytivogo/bridge/internal/config"
)

// ShareRegistry is the mutable mapping from share name to its configuration,
// mutated only via Reset (spec §3: "mutated only via a Reset control
// command").
type ShareRegistry struct {
	mu     sync.RWMutex
	shares map[string]config.Share
	order  []string
}

// NewShareRegistry builds a registry from the initial configured shares.
func NewShareRegistry(shares []config.Share) *ShareRegistry {
	r := &ShareRegistry{shares: make(map[string]config.Share, len(shares))}
	r.Reset(shares)
	return r
}

// Reset atomically replaces every share (NewShareRegistry calls this on the
// startup path).
func (r *ShareRegistry) Reset(shares []config.Share) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shares = make(map[string]config.Share, len(shares))
	r.order = make([]string, 0, len(shares))
	for _, s := range shares {
		r.shares[s.Name] = s
		r.order = append(r.order, s.Name)
	}
}

// Get looks up a share by name.
func (r *ShareRegistry) Get(name string) (config.Share, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.shares[name]
	return s, ok
}

// All returns every share in configured order.
func (r *ShareRegistry) All() []config.Share {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]config.Share, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.shares[name])
	}
	return out
}

// Containers returns shares whose content type is an enumerable container
// (video/music/photos), used by the root-container listing (spec §4.3).
func (r *ShareRegistry) Containers() []config.Share {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]config.Share, 0, len(r.order))
	for _, name := range r.order {
		s := r.shares[name]
		if s.ContentType() != "" {
			out = append(out, s)
		}
	}
	return out
}
