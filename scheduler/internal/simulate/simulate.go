// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package simulate reproduces the benchmark methodology from the
// original implementation's tests/alloc_bencher: a synthetic bisection
// is run entirely in memory against ground-truth ("this is the actual
// first bad commit") statuses, advancing the scheduler step by step and
// always picking whichever in-flight runner would finish first. It
// exists to exercise scheduler.Step under realistic multi-runner
// contention without spawning a single process.
//
// Note on reproducibility: the original benchmarks compare against
// literal expected totals produced by Rust's rand/rand_distr crates.
// Those PRNG algorithms have no Go equivalent that produces bit-identical
// output, so this package's seeded run is deterministic within Go (same
// seed always produces the same run) but is not expected to reproduce
// the original's numeric literals — see scheduler/internal/simulate's
// tests, which assert structural properties (termination, Basic
// dominating Dumb, more runners never needing more steps) rather than
// the original's exact totals.
package simulate

import (
	"math"
	"math/rand"

	"github.com/hashicorp/biasect/scheduler"
)

// Result is the outcome of one simulated bisection run.
type Result struct {
	Steps          int
	AccumulatedRun float64
}

// commitRuntimes draws one runtime sample per commit from N(mean,
// stddev), each seeded independently off the commit's own index so the
// per-commit runtime is stable across allocator choice — exactly the
// property the original's generate_runtime_for_commits relies on to
// make Dumb vs Basic comparisons apples-to-apples.
func commitRuntimes(n int, mean, stddev float64) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		r := rand.New(rand.NewSource(int64(i)))
		t := mean + stddev*r.NormFloat64()
		if t <= 0 {
			t = 0.001
		}
		out[i] = t
	}
	return out
}

// Run executes `iters` independent bisections with a random
// ground-truth "first bad" commit per iteration (seeded by iteration
// number), summing total step count and total elapsed simulated time.
func Run(alloc scheduler.Allocator, commitCount, runners int, mean, stddev float64, iters int, checkBookends bool) Result {
	var total Result

	for seed := 0; seed < iters; seed++ {
		hashes := make([]string, commitCount)
		for i := range hashes {
			hashes[i] = string(rune('0' + i%10))
		}
		runtimes := commitRuntimes(commitCount, mean, stddev)

		r := rand.New(rand.NewSource(int64(seed)))
		firstBad := r.Intn(commitCount - 1)

		truth := make([]scheduler.Status, commitCount)
		for i := range truth {
			if i <= firstBad {
				truth[i] = scheduler.Good
			} else {
				truth[i] = scheduler.Bad
			}
		}

		state := scheduler.Init(hashes, runners, checkBookends)

		steps := 0
		var elapsed float64
		for {
			steps++
			idx, finishAt := nextCompletion(state, runtimes)
			elapsed = finishAt

			state, _, _ = scheduler.Step(state, alloc, truth[idx], idx, runtimes[idx], finishAt)

			if state.Done() {
				break
			}
		}

		total.Steps += steps
		total.AccumulatedRun += elapsed
	}

	return total
}

// nextCompletion finds which live runner finishes first: the one whose
// start_time + commit_runtime is minimal, mirroring the original's
// get_next_result.
func nextCompletion(state scheduler.State, runtimes []float64) (idx int, finishAt float64) {
	best := math.Inf(1)
	for i, commit := range state.Runners.Commits {
		finish := state.Runners.StartTimes[i] + runtimes[commit]
		if finish < best {
			best = finish
			idx = commit
		}
	}
	return idx, best
}
