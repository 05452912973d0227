// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package scheduler

// Step applies one completion event to state and returns the new
// state together with the two sets an external driver must act on:
// invalidated (kill these handles) and newly scheduled (start these).
//
// The completed index is not reported separately: while a runner still
// holds it, Invalidate places it in invalidated along with every other
// runner the result has made redundant.
//
// Step never mutates state; it builds a fresh State from it. This is
// the full contract described in spec §4.5 — range selection,
// invalidation, allocation, and the fatal assertions that catch a
// misbehaving Allocator before it corrupts the bisection.
func Step(state State, alloc Allocator, status Status, index int, runtime, wallClock float64) (newState State, invalidated []int, newlyScheduled []int) {
	if runtime < 0 {
		fault("runtime is negative: %v", runtime)
	}
	if wallClock < 0 {
		fault("wall clock is negative: %v", wallClock)
	}

	commits := make([]Commit, len(state.Commits))
	copy(commits, state.Commits)
	commits[index].Status = status

	stillValid, invalidated := Invalidate(state.Runners.Commits, index, status)

	sliceStart, slice := Range(commits)

	newlyScheduled = alloc.Alloc(state.Runners.Total, stillValid, sliceStart, slice, state.CheckBookends)

	sliceEnd := sliceStart + len(slice)
	for _, idx := range newlyScheduled {
		if idx < sliceStart || idx >= sliceEnd {
			fault("allocator scheduled out-of-range commit %d; uncertain slice is [%d, %d)", idx, sliceStart, sliceEnd)
		}
	}

	runnerCommits := make([]int, 0, len(stillValid)+len(newlyScheduled))
	runnerCommits = append(runnerCommits, stillValid...)
	runnerCommits = append(runnerCommits, newlyScheduled...)

	if len(runnerCommits) > state.Runners.Total {
		fault("allocator over-subscribed capacity: %d runners scheduled, max %d", len(runnerCommits), state.Runners.Total)
	}

	if len(runnerCommits) == 0 && len(slice) != 0 {
		fault("scheduler stalled: %d commits remain uncertain but no runners are scheduled", len(slice))
	}

	// Surviving runners keep the start time of their assignment; only
	// newly scheduled runners are stamped with wallClock.
	prevStart := make(map[int]float64, len(state.Runners.Commits))
	for i, c := range state.Runners.Commits {
		prevStart[c] = state.Runners.StartTimes[i]
	}
	startTimes := make([]float64, len(runnerCommits))
	for i, c := range runnerCommits {
		startTimes[i] = wallClock
		if i < len(stillValid) {
			startTimes[i] = prevStart[c]
		}
	}

	newState = State{
		Commits: commits,
		Runners: Runners{
			Commits:    runnerCommits,
			StartTimes: startTimes,
			Total:      state.Runners.Total,
		},
		RuntimeLog:    append(append([]RuntimeSample{}, state.RuntimeLog...), RuntimeSample{Elapsed: runtime}),
		CheckBookends: state.CheckBookends,
	}

	return newState, invalidated, newlyScheduled
}
