package togo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingRunner struct {
	mu  sync.Mutex
	ran []string
	// block holds RunOne until the test releases it, to exercise Unqueue
	// while a job is running.
	block chan struct{}
}

func (r *recordingRunner) RunOne(ctx context.Context, job *DownloadJob) {
	job.setRunning()
	r.mu.Lock()
	r.ran = append(r.ran, job.URL)
	r.mu.Unlock()
	if r.block != nil {
		<-r.block
	}
	job.finish("")
}

func waitForQueueLen(t *testing.T, m *Manager, tivoIP string, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if m.QueueLen(tivoIP) == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("queue length for %s never reached %d, still %d", tivoIP, want, m.QueueLen(tivoIP))
}

func TestManagerEnqueueRunsJobsInOrder(t *testing.T) {
	runner := &recordingRunner{}
	m := NewManager(runner, nil)

	j1 := NewDownloadJob("http://tivo/a", "10.0.0.5", false, false, false)
	j2 := NewDownloadJob("http://tivo/b", "10.0.0.5", false, false, false)
	m.Enqueue(context.Background(), "10.0.0.5", j1)
	m.Enqueue(context.Background(), "10.0.0.5", j2)

	waitForQueueLen(t, m, "10.0.0.5", 0)

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Equal(t, []string{"http://tivo/a", "http://tivo/b"}, runner.ran)
}

func TestManagerUnqueueRemovesNotYetRunningJob(t *testing.T) {
	runner := &recordingRunner{block: make(chan struct{})}
	m := NewManager(runner, nil)

	j1 := NewDownloadJob("http://tivo/a", "10.0.0.5", false, false, false)
	j2 := NewDownloadJob("http://tivo/b", "10.0.0.5", false, false, false)
	m.Enqueue(context.Background(), "10.0.0.5", j1)
	m.Enqueue(context.Background(), "10.0.0.5", j2)

	waitForQueueLen(t, m, "10.0.0.5", 2)
	m.Unqueue("10.0.0.5", "http://tivo/b")
	assert.Equal(t, 1, m.QueueLen("10.0.0.5"))

	close(runner.block)
	waitForQueueLen(t, m, "10.0.0.5", 0)
}

func TestManagerUnqueueStopsRunningJobWithoutCancelling(t *testing.T) {
	runner := &recordingRunner{}
	m := NewManager(runner, nil)
	j1 := NewDownloadJob("http://tivo/a", "10.0.0.5", false, false, false)

	m.mu.Lock()
	m.queues["10.0.0.5"] = []*DownloadJob{j1}
	m.mu.Unlock()
	j1.setRunning()

	m.Unqueue("10.0.0.5", "http://tivo/a")
	assert.False(t, j1.IsRunning())
	assert.NotEqual(t, StateCancelled, j1.State())
}

func TestManagerUnqueueAllCancelsEverything(t *testing.T) {
	runner := &recordingRunner{block: make(chan struct{})}
	m := NewManager(runner, nil)
	j1 := NewDownloadJob("http://tivo/a", "10.0.0.5", false, false, false)
	m.Enqueue(context.Background(), "10.0.0.5", j1)
	for deadline := time.Now().Add(time.Second); !j1.IsRunning() && time.Now().Before(deadline); {
		time.Sleep(time.Millisecond)
	}

	j2 := NewDownloadJob("http://tivo/b", "10.0.0.5", false, false, false)
	m.mu.Lock()
	m.queues["10.0.0.5"] = []*DownloadJob{j2}
	m.mu.Unlock()

	m.UnqueueAll()
	assert.Equal(t, StateCancelled, j2.State())
	assert.Equal(t, 0, m.QueueLen("10.0.0.5"))
	close(runner.block)
}

func TestManagerReinsertPutsJobAtPositionOne(t *testing.T) {
	m := NewManager(&recordingRunner{}, nil)
	head := NewDownloadJob("http://tivo/head", "10.0.0.5", false, false, false)
	tail := NewDownloadJob("http://tivo/tail", "10.0.0.5", false, false, false)
	m.mu.Lock()
	m.queues["10.0.0.5"] = []*DownloadJob{head, tail}
	m.mu.Unlock()

	retry := NewDownloadJob("http://tivo/retry", "10.0.0.5", false, false, false)
	m.Reinsert("10.0.0.5", retry)

	m.mu.Lock()
	q := m.queues["10.0.0.5"]
	m.mu.Unlock()
	assert.Equal(t, []*DownloadJob{head, retry, tail}, q)
}
