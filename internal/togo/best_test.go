package togo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestBestOfNScenario5 reproduces end-to-end scenario 5 literally:
// attempt 1 (3 sync losses) is kept as best; attempt 2 (5 sync losses) is
// worse and aborts, final output is attempt 1 renamed to "(^3_0)".
func TestBestOfNScenario5(t *testing.T) {
	var state BestOfNState

	keep1 := state.Decide("/togo/show (attempt0).ts", 3)
	assert.True(t, keep1, "first completed attempt is always kept")
	state.Record("/togo/show (attempt0).ts", 3)

	keep2 := state.Decide("/togo/show (attempt1).ts", 5)
	assert.False(t, keep2, "5 losses is worse than the recorded best of 3")

	final := RenameBestOfN(state.BestFile, state.BestErrorCount, 0)
	assert.Equal(t, "/togo/show (attempt0) (^3_0).ts", final)
}

func TestBestOfNFirstAttemptAlwaysKeptEvenWithErrors(t *testing.T) {
	var state BestOfNState
	assert.True(t, state.Decide("/x.ts", 100), "bestErrorCount=0 means no prior best, per the Open Question decision")
}

func TestBestOfNBetterAttemptReplaces(t *testing.T) {
	var state BestOfNState
	state.Record("/attempt0.ts", 10)
	assert.True(t, state.Decide("/attempt1.ts", 2))
}

func TestRenameBestOfNPreservesExtension(t *testing.T) {
	got := RenameBestOfN("/togo/Show - 2023-04-01.ts", 2, 1)
	assert.Equal(t, "/togo/Show - 2023-04-01 (^2_1).ts", got)
}
