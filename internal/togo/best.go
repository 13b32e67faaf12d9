package togo

import (
	"fmt"
	"path/filepath"
	"strings"
)

// BestOfNState tracks the "best" attempt so far in togo_ts_error_mode=best
// (spec.md §4.5 "TS error policy").
type BestOfNState struct {
	HasBest        bool
	BestErrorCount int
	BestFile       string
}

// Decide implements the Open Question resolution spec.md §9 records:
// bestErrorCount==0 is "no prior best", so the first completed attempt is
// always kept regardless of its own error count. A later attempt replaces
// the best only if it has strictly fewer sync-loss errors.
func (s *BestOfNState) Decide(attemptFile string, errorCount int) (keepNew bool) {
	if !s.HasBest {
		return true
	}
	return errorCount < s.BestErrorCount
}

// Record updates the state after an attempt is kept as the new best.
func (s *BestOfNState) Record(attemptFile string, errorCount int) {
	s.HasBest = true
	s.BestErrorCount = errorCount
	s.BestFile = attemptFile
}

// RenameBestOfN renames path to encode the sync-loss error count and retry
// index for operator diagnosis, per spec.md §4.5 "Completion": "rename the
// output to encode the error-count and retry index in the filename",
// and §8 scenario 5's literal form " (^3_0)" (errorCount=3, retryIndex=0).
func RenameBestOfN(path string, errorCount, retryIndex int) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%s (^%d_%d)%s", stem, errorCount, retryIndex, ext)
}

// RejectMessage is the fixed abort diagnostic for togo_ts_error_mode=reject
// (spec.md §4.5).
const RejectMessage = "Transport stream error detected"
