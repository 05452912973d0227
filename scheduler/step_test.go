// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStepNarrowsOnGood(t *testing.T) {
	state := Init([]string{"a", "b", "c", "d"}, 4, false)
	before := state

	state, invalidated, scheduled := Step(state, BasicAllocator{}, Good, 1, 1.0, 1.0)

	require.ElementsMatch(t, []int{0, 1}, invalidated)
	require.Empty(t, scheduled, "nothing left to schedule with all 4 runners already covering the range")

	startBefore, sliceBefore := Range(before.Commits)
	startAfter, sliceAfter := Range(state.Commits)
	require.Greater(t, startAfter, startBefore)
	require.Less(t, len(sliceAfter), len(sliceBefore))
}

func TestStepCompletionDrainsSlice(t *testing.T) {
	// Two commits, one runner, bookends checked: the initial allocation
	// pins the upper bookend (index 1) first, per spec §4.4.
	state := Init([]string{"a", "b"}, 1, true)
	require.Equal(t, []int{1}, state.Runners.Commits)

	state, _, scheduled := Step(state, BasicAllocator{}, Bad, 1, 1.0, 1.0)
	require.Equal(t, []int{0}, scheduled)
	require.False(t, state.Done())

	state, _, _ = Step(state, BasicAllocator{}, Good, 0, 1.0, 2.0)
	require.True(t, state.Done())
}

func TestStepPanicsOnNegativeRuntime(t *testing.T) {
	state := Init([]string{"a", "b"}, 1, true)
	require.Panics(t, func() {
		Step(state, BasicAllocator{}, Good, 0, -1.0, 1.0)
	})
}

func TestStepAppendsRuntimeSample(t *testing.T) {
	state := Init([]string{"a", "b", "c"}, 2, false)
	state, _, _ = Step(state, BasicAllocator{}, Skip, state.Runners.Commits[0], 42.0, 1.0)
	require.Len(t, state.RuntimeLog, 1)
	require.Equal(t, 42.0, state.RuntimeLog[0].Elapsed)
}
