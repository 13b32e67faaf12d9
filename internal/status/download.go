package status

import (
	"sync"

	"github.com/pytivogo/bridge/internal/togo"
)

// DownloadRegistry is the "downloads (url -> DownloadJob)" half of spec.md
// §4.6's combined status registry. Unlike uploads, download jobs have no
// TTL sweep: they are removed explicitly by the Unqueue command, or left in
// place as history until the process restarts.
type DownloadRegistry struct {
	mu   sync.Mutex
	jobs map[string]*togo.DownloadJob
}

// NewDownloadRegistry builds an empty DownloadRegistry.
func NewDownloadRegistry() *DownloadRegistry {
	return &DownloadRegistry{jobs: map[string]*togo.DownloadJob{}}
}

// Put records job under its own URL.
func (r *DownloadRegistry) Put(job *togo.DownloadJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.URL] = job
}

// Get returns the job enqueued for url, if any.
func (r *DownloadRegistry) Get(url string) (*togo.DownloadJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[url]
	return j, ok
}

// Remove drops url's job from the registry, used by Unqueue.
func (r *DownloadRegistry) Remove(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, url)
}

// All returns a snapshot of every tracked job, for the GetTransferStatus and
// GetActiveTransferCount status endpoints and the ToGo stop command.
func (r *DownloadRegistry) All() []*togo.DownloadJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*togo.DownloadJob, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j)
	}
	return out
}
