package upload

import "time"

// Status is the per-(tivo,path) upload progress record spec.md §4.6
// describes embedded in the status registry's uploads map. Rate and
// cumulative size counters are refreshed at >=1s intervals by the serving
// loop, following the teacher's periodic-sample style used for its own
// transfer-progress metrics.
type Status struct {
	TivoName string
	Path     string

	Offset     int64
	Size       int64
	RateBps    float64
	Error      string
	Active     bool
	StartedAt  time.Time
	EndedAt    time.Time
	lastSample time.Time
	sampleSize int64
}

// Sample records bytesWritten total-so-far at now, updating RateBps at most
// once per second (the ">=1s intervals" cadence from spec.md §4.6).
func (s *Status) Sample(now time.Time, bytesWritten int64) {
	if s.lastSample.IsZero() {
		s.lastSample = now
		s.sampleSize = bytesWritten
		return
	}
	elapsed := now.Sub(s.lastSample)
	if elapsed < time.Second {
		return
	}
	s.RateBps = float64(bytesWritten-s.sampleSize) / elapsed.Seconds()
	s.lastSample = now
	s.sampleSize = bytesWritten
}

// Expired reports whether s should be swept per spec.md §4.6:
// "removes upload entries whose end + 24h < now".
func (s *Status) Expired(now time.Time) bool {
	return !s.EndedAt.IsZero() && s.EndedAt.Add(24*time.Hour).Before(now)
}
