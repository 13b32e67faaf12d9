package togo

import (
	"sync"

	"github.com/pytivogo/bridge/internal/config"
)

// JobState is the DownloadJob state machine of spec.md §4.7:
//
//	queued -> running -> (finished | error | cancelled)
//	running -> retrying -> queued   (on TS sync loss with retries remaining)
type JobState string

const (
	StateQueued    JobState = "queued"
	StateRunning   JobState = "running"
	StateRetrying  JobState = "retrying"
	StateFinished  JobState = "finished"
	StateError     JobState = "error"
	StateCancelled JobState = "cancelled"
)

// DownloadJob is one enqueued ToGo pull, keyed by its source URL.
type DownloadJob struct {
	mu sync.Mutex

	URL      string
	TivoIP   string
	Decode   bool
	Save     bool
	TSFormat bool

	state    JobState
	running  bool
	queued   bool
	finished bool
	errMsg   string
	retry    int
	rate     float64
	size     int64
	tsErrors int

	// best-of-N state carried across a resetForRetry/Reinsert cycle so the
	// next RunOne attempt knows the winning attempt so far (spec.md §4.5
	// "TS error policy", togo_ts_error_mode=best).
	hasBest        bool
	bestErrorCount int
	bestFile       string

	OutputFile string
}

// NewDownloadJob builds a queued job for rawURL with the flags parsed from
// the enqueue request (spec.md §4.5 "Enqueue API").
func NewDownloadJob(rawURL, tivoIP string, decode, save, tsFormat bool) *DownloadJob {
	return &DownloadJob{
		URL:      rawURL,
		TivoIP:   tivoIP,
		Decode:   decode,
		Save:     save,
		TSFormat: tsFormat,
		state:    StateQueued,
		queued:   true,
	}
}

// JobSnapshot is a value copy of a DownloadJob's mutable state, safe to
// hand to a status JSON endpoint without the caller holding any lock.
type JobSnapshot struct {
	URL          string
	TivoIP       string
	State        JobState
	Running      bool
	Queued       bool
	Finished     bool
	Error        string
	Retry        int
	Rate         float64
	Size         int64
	TSErrorCount int
	OutputFile   string
}

// Snapshot returns a consistent read of job's current state.
func (j *DownloadJob) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobSnapshot{
		URL: j.URL, TivoIP: j.TivoIP, State: j.state, Running: j.running,
		Queued: j.queued, Finished: j.finished, Error: j.errMsg, Retry: j.retry,
		Rate: j.rate, Size: j.size, TSErrorCount: j.tsErrors, OutputFile: j.OutputFile,
	}
}

// State reports the job's current state.
func (j *DownloadJob) State() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// ErrMessage reports the job's recorded error message, if any.
func (j *DownloadJob) ErrMessage() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.errMsg
}

// RetryCount reports the current retry count.
func (j *DownloadJob) RetryCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.retry
}

// Size reports cumulative bytes written so far.
func (j *DownloadJob) Size() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.size
}

// IsRunning reports whether the worker's read loop should keep going.
func (j *DownloadJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (j *DownloadJob) setRunning() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.running = true
	j.queued = false
	j.state = StateRunning
}

func (j *DownloadJob) setSize(n int64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.size = n
}

func (j *DownloadJob) setRate(r float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.rate = r
}

func (j *DownloadJob) addTSErrors(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.tsErrors += n
}

func (j *DownloadJob) tsErrorCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.tsErrors
}

func (j *DownloadJob) resetForRetry() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.rate = 0
	j.size = 0
	j.tsErrors = 0
	j.queued = true
	j.running = false
	j.retry++
	j.state = StateRetrying
}

func (j *DownloadJob) finish(errMsg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.running = false
	j.errMsg = errMsg
	if errMsg == "" {
		j.finished = true
		j.state = StateFinished
	} else {
		j.state = StateError
	}
}

// Cancel stops the job: the worker's next block write observes IsRunning
// false and exits its read loop (spec.md §4.5 "Cancellation").
func (j *DownloadJob) Cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.running = false
	j.state = StateCancelled
}

// StopRunning flips the job to not-running without marking it Cancelled,
// for the plain Unqueue-while-running case (spec.md original Unqueue
// semantics, distinct from an explicit Cancel).
func (j *DownloadJob) StopRunning() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.running = false
}

// tsCapable reports whether tsn is a TS-capable TiVo generation, used to
// decide whether to append &Format=video/x-tivo-mpeg-ts (spec.md §4.5
// step 4).
func tsCapable(tsn string) bool {
	return config.IsTSCapableTSN(tsn)
}
