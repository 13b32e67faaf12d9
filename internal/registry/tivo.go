// Package registry holds the two process-wide mutable maps described in
// spec.md §3: the TiVo registry (TSN -> device info) and the Share registry
// (name -> content root). Each is guarded by its own mutex, following the
// "acquire in the order queues -> statuses -> tivos" discipline spec.md §9
// calls for; the Share registry has no cross-registry dependency so it
// carries its own independent lock.
package registry

import "sync"

// TiVo is a device discovered via zeroconf or first HTTP contact.
type TiVo struct {
	TSN        string
	Address    string
	Port       int
	Name       string
	Protocol   string // "https"
	Properties map[string]string
}

// TiVoRegistry maps TSN -> TiVo. A TSN, once inserted, never changes
// (spec §3 invariant); later writes only fill in blank fields.
type TiVoRegistry struct {
	mu    sync.RWMutex
	tivos map[string]TiVo
}

// NewTiVoRegistry creates an empty registry.
func NewTiVoRegistry() *TiVoRegistry {
	return &TiVoRegistry{tivos: make(map[string]TiVo)}
}

// Upsert inserts a new TiVo, or augments an existing entry's blank fields
// (address/name) without ever overwriting a TSN or previously-populated
// value (spec §3: "augmented on first HTTP contact (address/name filled if
// absent)").
func (r *TiVoRegistry) Upsert(t TiVo) TiVo {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.tivos[t.TSN]
	if !ok {
		if t.Properties == nil {
			t.Properties = map[string]string{}
		}
		r.tivos[t.TSN] = t
		return t
	}
	if existing.Address == "" {
		existing.Address = t.Address
	}
	if existing.Name == "" {
		existing.Name = t.Name
	}
	if existing.Port == 0 {
		existing.Port = t.Port
	}
	if existing.Protocol == "" {
		existing.Protocol = t.Protocol
	}
	for k, v := range t.Properties {
		if _, has := existing.Properties[k]; !has {
			if existing.Properties == nil {
				existing.Properties = map[string]string{}
			}
			existing.Properties[k] = v
		}
	}
	r.tivos[t.TSN] = existing
	return existing
}

// Get returns the TiVo for tsn, if known.
func (r *TiVoRegistry) Get(tsn string) (TiVo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tivos[tsn]
	return t, ok
}

// ByAddress finds a TiVo by its last-known IP address.
func (r *TiVoRegistry) ByAddress(addr string) (TiVo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tivos {
		if t.Address == addr {
			return t, true
		}
	}
	return TiVo{}, false
}

// All returns a snapshot of every known TiVo.
func (r *TiVoRegistry) All() []TiVo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TiVo, 0, len(r.tivos))
	for _, t := range r.tivos {
		out = append(out, t)
	}
	return out
}
