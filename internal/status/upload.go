// Package status implements the combined upload/download status registry
// of spec.md §4.6: "uploads (tivoName -> path -> UploadStatus) and
// downloads (url -> DownloadJob)", with the periodic 24h TTL sweep over
// upload entries. Grounded on the teacher's TTL-map cache
// (ManuGH-xg2g/internal/cache/cache.go), generalized from a single flat map
// to the two-level tivoName/path map the protocol needs.
package status

import (
	"sync"
	"time"

	"github.com/pytivogo/bridge/internal/metrics"
	"github.com/pytivogo/bridge/internal/upload"
)

// UploadRegistry implements upload.Registry, keyed by (tivoName, path).
type UploadRegistry struct {
	mu      sync.Mutex
	byTivo  map[string]map[string]*upload.Status
	nowFunc func() time.Time
}

// NewUploadRegistry builds an empty UploadRegistry.
func NewUploadRegistry() *UploadRegistry {
	return &UploadRegistry{byTivo: map[string]map[string]*upload.Status{}, nowFunc: time.Now}
}

// Get returns the status recorded for (tivoName, path), if any.
func (r *UploadRegistry) Get(tivoName, path string) (*upload.Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byPath, ok := r.byTivo[tivoName]
	if !ok {
		return nil, false
	}
	s, ok := byPath[path]
	return s, ok
}

// Put records s for (tivoName, path). Per spec.md §4.6, a sweep of expired
// entries runs "before each upload setup" — Put is that setup point.
func (r *UploadRegistry) Put(tivoName, path string, s *upload.Status) {
	r.sweepLocked(r.nowFunc())

	r.mu.Lock()
	defer r.mu.Unlock()
	byPath, ok := r.byTivo[tivoName]
	if !ok {
		byPath = map[string]*upload.Status{}
		r.byTivo[tivoName] = byPath
	}
	byPath[path] = s
}

// Sweep removes upload entries whose End+24h < now, per spec.md §4.6.
func (r *UploadRegistry) Sweep(now time.Time) int {
	return r.sweepLocked(now)
}

func (r *UploadRegistry) sweepLocked(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for tivoName, byPath := range r.byTivo {
		for path, s := range byPath {
			if s.Expired(now) {
				delete(byPath, path)
				evicted++
			}
		}
		if len(byPath) == 0 {
			delete(r.byTivo, tivoName)
		}
	}
	if evicted > 0 {
		metrics.StatusSweepEvictedTotal.Add(float64(evicted))
	}
	return evicted
}

// All returns a flattened snapshot, used by the HTTP status JSON endpoint.
func (r *UploadRegistry) All() []*upload.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*upload.Status, 0)
	for _, byPath := range r.byTivo {
		for _, s := range byPath {
			out = append(out, s)
		}
	}
	return out
}
