// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package command

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/biasect/config"
	"github.com/hashicorp/biasect/render"
	"github.com/hashicorp/biasect/runner"
	"github.com/hashicorp/biasect/scheduler"
	"github.com/hashicorp/biasect/telemetry"
	"github.com/hashicorp/biasect/vcs"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/posener/complete"
	"golang.org/x/sync/errgroup"
)

// pollInterval is how often the main loop checks for completions; a
// driver policy, not part of the scheduler's contract (spec.md §5).
const pollInterval = 1 * time.Second

// RunCommand drives a full parallel bisection: it owns the
// poll-kill-start loop and is the only piece of this repository that
// calls scheduler.Step against a live clock. runner.Driver only ever
// touches processes it was explicitly told to start or kill.
type RunCommand struct {
	Meta
}

// AutocompleteFlags lets shell completion offer a directory predictor
// for -C, the two strategy names for -allocator, and nothing fancier
// than plain values for the rest.
func (c *RunCommand) AutocompleteFlags() complete.Flags {
	return complete.Flags{
		"-C":         complete.PredictDirs("*"),
		"-j":         complete.PredictAnything,
		"-allocator": complete.PredictSet("dumb", "basic"),
		"-r":         complete.PredictNothing,
		"-v":         complete.PredictNothing,
		"-metrics":   complete.PredictNothing,
	}
}

func (c *RunCommand) AutocompleteArgs() complete.Predictor {
	return complete.PredictAnything
}

func (c *RunCommand) Name() string     { return "run" }
func (c *RunCommand) Synopsis() string { return "Run a parallel git bisection" }
func (c *RunCommand) Help() string {
	return strings.TrimSpace(`
Usage: biasect run [options] "<script>"

  Runs the bisection currently in progress (as set up by `) +
		" `git bisect start`/`good`/`bad`) " + strings.TrimSpace(`
  with N parallel workers, each evaluating <script> inside its own
  scratch worktree.

Options:

  -j=N        Number of parallel workers (default 1, or from .biasect.hcl)
  -r          Reckless mode: skip bookend checking
  -C=path     Path to the repository (default ".")
  -allocator  Allocation strategy: "dumb" or "basic" (default "basic")
  -v          Verbose (debug) logging
  -metrics    Dump end-of-run Prometheus metrics to stdout
`)
}

func (c *RunCommand) Run(args []string) int {
	var jobs int
	var reckless, verbose, metricsOn bool
	var repoPath, allocatorName string

	fs := c.FlagSet("run")
	fs.IntVar(&jobs, "j", 0, "")
	fs.BoolVar(&reckless, "r", false, "")
	fs.StringVar(&repoPath, "C", "", "")
	fs.StringVar(&allocatorName, "allocator", "", "")
	fs.BoolVar(&verbose, "v", false, "")
	fs.BoolVar(&metricsOn, "metrics", false, "")
	if err := fs.Parse(args); err != nil {
		c.Ui.Error(c.Help())
		return 1
	}

	if fs.NArg() != 1 {
		c.Ui.Error("exactly one positional argument (the script) is required")
		c.Ui.Error(c.Help())
		return 1
	}
	script := fs.Arg(0)

	flagNames := map[string]string{
		"j": "jobs", "r": "reckless", "C": "repo_path", "allocator": "allocator",
	}
	cliCfg := config.Config{Jobs: jobs, Reckless: reckless, RepoPath: repoPath, Allocator: allocatorName}
	if repoPath == "" {
		repoPath = "."
	}
	cfg, err := config.Load(repoPath, cliCfg, flagsVisited(fs, flagNames))
	if err != nil {
		c.Ui.Error(fmt.Sprintf("loading config: %s", err))
		return 1
	}

	level := hclog.LevelFromString(cfg.LogLevel)
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	if verbose {
		level = hclog.Debug
	}
	logger := hclog.New(&hclog.LoggerOptions{Name: "biasect", Level: level, JSONFormat: cfg.LogJSON})

	var alloc scheduler.Allocator
	switch cfg.Allocator {
	case "dumb":
		alloc = scheduler.DumbAllocator{}
	default:
		alloc = scheduler.BasicAllocator{}
	}

	return c.run(logger, cfg, alloc, script, metricsOn)
}

// run is the recoverable body of Run: a scheduler.Fault panicking out
// of scheduler.Step is caught here and reported as a clean diagnostic
// instead of a raw stack trace, the only place in the repository that
// recovers one.
func (c *RunCommand) run(logger hclog.Logger, cfg config.Config, alloc scheduler.Allocator, script string, metricsOn bool) (code int) {
	defer func() {
		if r := recover(); r != nil {
			if f, ok := r.(scheduler.Fault); ok {
				c.Ui.Error(fmt.Sprintf("internal invariant violation: %s", f.Error()))
				code = 1
				return
			}
			panic(r)
		}
	}()

	ctx := context.Background()
	git := vcs.New(cfg.RepoPath, logger)
	hashes, err := git.Commits(ctx)
	if err != nil {
		c.Ui.Error(fmt.Sprintf("listing commits: %s", err))
		return 1
	}

	drv := runner.New(cfg.RepoPath, script, logger)
	metrics := telemetry.New()
	start := time.Now()

	state := scheduler.Init(hashes, cfg.Jobs, !cfg.Reckless)
	if err := startAll(ctx, drv, hashes, state.Runners.Commits); err != nil {
		c.Ui.Error(fmt.Sprintf("starting workers: %s", err))
		return 1
	}
	metrics.ObserveRunnerCount(len(state.Runners.Commits))

	for !state.Done() {
		time.Sleep(pollInterval)
		completions := drv.Poll()

		for _, comp := range completions {
			metrics.RecordCompletion(comp.Status)

			if violation, msg := boundsViolation(comp.Index, len(hashes), comp.Status); violation {
				c.Ui.Error(render.BoundsViolation(hashes[comp.Index], vcs.ReproducerScript(cfg.RepoPath, script, hashes[comp.Index])))
				c.Ui.Error(msg)
				_ = drv.Shutdown()
				return 1
			}

			if err := git.Report(ctx, comp.Status, hashes[comp.Index]); err != nil {
				logger.Warn("failed to report result to git bisect", "index", comp.Index, "error", err)
			}

			newState, invalidated, newlyScheduled := scheduler.Step(state, alloc, comp.Status, comp.Index,
				comp.Sample.Elapsed, time.Since(start).Seconds())
			state = newState

			if err := killAll(drv, invalidated); err != nil {
				c.Ui.Error(fmt.Sprintf("killing invalidated workers: %s", err))
				return 1
			}
			if err := startAll(ctx, drv, hashes, newlyScheduled); err != nil {
				c.Ui.Error(fmt.Sprintf("starting workers: %s", err))
				return 1
			}
			metrics.ObserveRunnerCount(len(state.Runners.Commits))

			c.Ui.Output(render.Strip(state.Commits, state.Runners.Commits, true))
		}
	}

	badHash := firstBad(state.Commits, hashes)
	c.Ui.Output(render.Summary(badHash, time.Since(start), accumulated(state.RuntimeLog)))

	if metricsOn {
		c.Ui.Output("") // visual separator before the raw metrics dump
		var buf strings.Builder
		if err := metrics.Dump(&buf); err != nil {
			c.Ui.Warn(fmt.Sprintf("dumping metrics: %s", err))
		} else {
			c.Ui.Output(buf.String())
		}
	}

	return 0
}

// boundsViolation implements spec.md §4.6.4 / §7: the anchor good
// commit reporting Bad, or the anchor bad commit reporting Good,
// means the operator's declared bounds were wrong.
func boundsViolation(index, commitCount int, status scheduler.Status) (bool, string) {
	if index == 0 && status == scheduler.Bad {
		return true, "the anchor good commit (index 0) reported bad"
	}
	if index == commitCount-1 && status == scheduler.Good {
		return true, "the anchor bad commit reported good"
	}
	return false, ""
}

func firstBad(commits []scheduler.Commit, hashes []string) string {
	for i, c := range commits {
		if c.Status == scheduler.Bad {
			return hashes[i]
		}
	}
	return "unknown"
}

func accumulated(log []scheduler.RuntimeSample) float64 {
	var total float64
	for _, s := range log {
		total += s.Elapsed
	}
	return total
}

// startAll fans starting out across an errgroup so one hung worker
// doesn't stall starting its siblings (spec.md §5).
func startAll(ctx context.Context, drv *runner.Driver, hashes []string, indices []int) error {
	var g errgroup.Group
	for _, idx := range indices {
		idx := idx
		g.Go(func() error {
			_, err := drv.Start(ctx, idx, hashes[idx])
			return err
		})
	}
	return g.Wait()
}

// killAll runs every kill concurrently and aggregates every failure
// rather than reporting only the first: when tearing down a batch, an
// operator needs to know about all of them, not just whichever kill's
// goroutine happened to return first (spec.md §7).
func killAll(drv *runner.Driver, indices []int) error {
	var (
		mu     sync.Mutex
		result *multierror.Error
		wg     sync.WaitGroup
	)
	for _, idx := range indices {
		idx := idx
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := drv.Kill(idx); err != nil {
				mu.Lock()
				result = multierror.Append(result, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return result.ErrorOrNil()
}
