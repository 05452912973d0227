// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package scheduler

// RuntimeSample is one completed job's timing, appended to State's log
// on every step. Only Elapsed is ever read by the scheduler (to obey
// the runtime>=0 precondition); the rest is advisory metadata the
// runner package may attach for a future per-commit runtime model that
// nothing in this repository consumes yet.
type RuntimeSample struct {
	Elapsed  float64
	PeakRSS  uint64
	CPUTicks uint64
}

// Runners is the fixed-capacity runner assignment: commits[r] is the
// commit index runner r is testing, startTimes[r] the wall-clock at
// which that assignment began. Total is fixed for the lifetime of a
// bisection; the filled length may be smaller when the uncertain slice
// is small.
type Runners struct {
	Commits    []int
	StartTimes []float64
	Total      int
}

// State is the full scheduler state: commit sequence, runner
// assignment, the advisory runtime log, and whether bookend checking
// is enabled for this bisection. It is owned single-threadedly; Step
// consumes one State and produces a new one, never mutating its input.
type State struct {
	Commits       []Commit
	Runners       Runners
	RuntimeLog    []RuntimeSample
	CheckBookends bool
}

// Init builds the starting State for a freshly loaded commit sequence,
// seeding the first round of runners via InitialAlloc.
func Init(hashes []string, total int, checkBookends bool) State {
	commits := make([]Commit, len(hashes))
	for i, h := range hashes {
		commits[i] = Commit{Hash: h, Status: Unknown}
	}

	runnerCommits := InitialAlloc(len(hashes), total, checkBookends)
	startTimes := make([]float64, len(runnerCommits))

	return State{
		Commits: commits,
		Runners: Runners{
			Commits:    runnerCommits,
			StartTimes: startTimes,
			Total:      total,
		},
		CheckBookends: checkBookends,
	}
}

// Done reports whether the uncertain slice is empty: no further testing
// is possible or necessary.
func (s State) Done() bool {
	_, slice := Range(s.Commits)
	return len(slice) == 0
}
