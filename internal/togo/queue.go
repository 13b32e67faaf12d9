package togo

import (
	"context"
	"sync"

	"github.com/pytivogo/bridge/internal/log"
	"github.com/pytivogo/bridge/internal/metrics"
	"github.com/pytivogo/bridge/internal/sleepinhibit"
)

// Runner executes one DownloadJob to completion; Manager supplies a
// production Runner backed by Worker.Run, tests a fake.
type Runner interface {
	RunOne(ctx context.Context, job *DownloadJob)
}

// Manager holds the per-TiVo FIFO queues and spawns exactly one worker
// goroutine per TiVo IP, replacing the original's global
// dict-of-lists-plus-ad-hoc-thread-spawn with a map from TiVo key to a
// goroutine-owned slice guarded by a mutex (spec.md §9 design notes).
type Manager struct {
	mu      sync.Mutex
	queues  map[string][]*DownloadJob
	cancel  map[string]context.CancelFunc
	runner  Runner
	inhibit sleepinhibit.Inhibitor
}

// NewManager builds an empty Manager that runs jobs with runner.
func NewManager(runner Runner, inhibit sleepinhibit.Inhibitor) *Manager {
	if inhibit == nil {
		inhibit = sleepinhibit.NoOp{}
	}
	return &Manager{
		queues:  map[string][]*DownloadJob{},
		cancel:  map[string]context.CancelFunc{},
		runner:  runner,
		inhibit: inhibit,
	}
}

// Enqueue appends job to tivoIP's queue, spawning a worker if this is the
// first job for that TiVo (spec.md §4.5 "Enqueue API" step 1).
func (m *Manager) Enqueue(ctx context.Context, tivoIP string, job *DownloadJob) {
	m.mu.Lock()
	_, exists := m.queues[tivoIP]
	m.queues[tivoIP] = append(m.queues[tivoIP], job)
	metrics.DownloadsEnqueuedTotal.Inc()

	var workerCtx context.Context
	if !exists {
		var cancel context.CancelFunc
		workerCtx, cancel = context.WithCancel(ctx)
		m.cancel[tivoIP] = cancel
	}
	m.mu.Unlock()

	if !exists {
		m.inhibit.Inhibit(true)
		metrics.DownloadsActiveWorkers.Inc()
		go m.runWorker(workerCtx, tivoIP)
	}
}

// runWorker implements spec.md §4.5's worker loop: pop the head job, run
// it, pop it off, repeat until the queue is empty, then tear the queue
// down and release sleep-inhibition if no TiVo has any queue left.
func (m *Manager) runWorker(ctx context.Context, tivoIP string) {
	logger := log.WithComponent("togo")
	defer metrics.DownloadsActiveWorkers.Dec()

	for {
		m.mu.Lock()
		q := m.queues[tivoIP]
		if len(q) == 0 {
			delete(m.queues, tivoIP)
			delete(m.cancel, tivoIP)
			remaining := len(m.queues)
			m.mu.Unlock()
			if remaining == 0 {
				m.inhibit.Inhibit(false)
			}
			return
		}
		job := q[0]
		m.mu.Unlock()

		m.runner.RunOne(ctx, job)

		m.mu.Lock()
		q = m.queues[tivoIP]
		if len(q) > 0 && q[0] == job {
			m.queues[tivoIP] = q[1:]
		}
		m.mu.Unlock()

		outcome := "success"
		if job.ErrMessage() != "" {
			outcome = "error"
		} else if job.State() == StateCancelled {
			outcome = "cancelled"
		}
		metrics.DownloadsCompletedTotal.WithLabelValues(outcome).Inc()
		logger.Info().Str("event", "togo.job_complete").Str("url", job.URL).Str("outcome", outcome).Msg("ToGo job finished")
	}
}

// Reinsert puts job back at queue position 1 (immediately after the
// currently-running head) so the same worker retries it next, per spec.md
// §4.5 "Retry mechanics".
func (m *Manager) Reinsert(tivoIP string, job *DownloadJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queues[tivoIP]
	if len(q) == 0 {
		m.queues[tivoIP] = []*DownloadJob{job}
		return
	}
	rest := append([]*DownloadJob{job}, q[1:]...)
	m.queues[tivoIP] = append(q[:1], rest...)
}

// UnqueueAll cancels every running worker and clears all queues (spec.md
// §4.5 "UnqueueAll cancels all running and clears all queues").
func (m *Manager) UnqueueAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for tivoIP, cancel := range m.cancel {
		cancel()
		for _, job := range m.queues[tivoIP] {
			job.Cancel()
		}
		delete(m.cancel, tivoIP)
	}
	m.queues = map[string][]*DownloadJob{}
}

// Unqueue removes url from tivoIP's queue if it is not yet running; if it
// is running, mark it not-running so the worker's read loop exits on its
// next block (spec.md original Unqueue semantics).
func (m *Manager) Unqueue(tivoIP, url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queues[tivoIP]
	for i, job := range q {
		if job.URL != url {
			continue
		}
		if job.IsRunning() {
			job.StopRunning()
			return
		}
		m.queues[tivoIP] = append(q[:i], q[i+1:]...)
		return
	}
}

// QueueLen reports the current queue length for tivoIP, for tests.
func (m *Manager) QueueLen(tivoIP string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queues[tivoIP])
}
