// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package runner is the worker driver: it owns OS processes, keyed by
// commit index, the way client/allocrunner owns task processes keyed by
// allocation ID. It never sees a scheduler.State — only the narrow
// contract scheduler/step.go expects from it: start an index, kill an
// index, report a completion.
package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/armon/circbuf"
	"github.com/hashicorp/biasect/scheduler"
	"github.com/hashicorp/go-hclog"
	uuid "github.com/hashicorp/go-uuid"
	"github.com/mitchellh/go-ps"
)

// outputCap bounds how much of a script's stdout/stderr we retain for
// the reproducer message; scripts that spew gigabytes must not be
// allowed to exhaust memory just because they eventually fail.
const outputCap = 64 * 1024

// killGrace is how long Kill waits after SIGTERM before escalating to
// SIGKILL.
const killGrace = 3 * time.Second

// Handle is one live worker: a child process running the bisection
// script inside a scratch worktree.
type Handle struct {
	ID        string // opaque, for correlating log lines across start/poll/kill
	Index     int
	Commit    string
	Dir       string
	StartedAt time.Time

	cmd      *exec.Cmd
	output   *circbuf.Buffer
	done     chan struct{}
	exitCode int
}

// tryWait is the non-blocking analogue of the original's Child::try_wait:
// cmd.Wait() is run once in a background goroutine from Start, and
// tryWait merely checks whether it has finished yet.
func (h *Handle) tryWait() (exited bool, exitCode int) {
	select {
	case <-h.done:
		return true, h.exitCode
	default:
		return false, 0
	}
}

// Output returns the tail of the script's combined stdout/stderr,
// bounded to outputCap bytes.
func (h *Handle) Output() string {
	if h.output == nil {
		return ""
	}
	return string(h.output.Bytes())
}

// Completion is what Poll reports for a handle whose process exited.
type Completion struct {
	Index    int
	Status   scheduler.Status
	Sample   scheduler.RuntimeSample
	Output   string
}

// Driver spawns, polls, and kills scratch-worktree child processes.
type Driver struct {
	RepoPath string
	Script   string
	Logger   hclog.Logger

	mu       sync.Mutex
	handles  map[int]*Handle
}

func New(repoPath, script string, logger hclog.Logger) *Driver {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Driver{
		RepoPath: repoPath,
		Script:   script,
		Logger:   logger.Named("runner"),
		handles:  make(map[int]*Handle),
	}
}

// Start checks out commit into a fresh scratch worktree and runs the
// script there via `sh -c`, chaining the worktree checkout and the
// script in one shell invocation so a single process owns both and a
// Kill cleanly tears down both.
func (d *Driver) Start(ctx context.Context, index int, commit string) (*Handle, error) {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return nil, fmt.Errorf("generating worker id: %w", err)
	}

	dir, err := os.MkdirTemp("", "biasect.*")
	if err != nil {
		return nil, fmt.Errorf("creating scratch worktree dir: %w", err)
	}

	buf, err := circbuf.NewBuffer(outputCap)
	if err != nil {
		return nil, fmt.Errorf("allocating output buffer: %w", err)
	}

	script := fmt.Sprintf("git -C %s worktree add %s %s --detach && %s",
		shellQuote(d.RepoPath), shellQuote(dir), shellQuote(commit), d.Script)

	cmd := exec.CommandContext(ctx, "sh", "-c", script)
	cmd.Dir = dir
	cmd.Stdout = buf
	cmd.Stderr = buf

	d.Logger.Debug("starting worker", "worker_id", id, "index", index, "commit", commit, "dir", dir)
	if err := cmd.Start(); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("spawning script for commit %s: %w", commit, err)
	}

	h := &Handle{
		ID:        id,
		Index:     index,
		Commit:    commit,
		Dir:       dir,
		StartedAt: time.Now(),
		cmd:       cmd,
		output:    buf,
		done:      make(chan struct{}),
	}

	go func() {
		err := cmd.Wait()
		h.exitCode = exitCodeFromError(cmd, err)
		close(h.done)
	}()

	d.mu.Lock()
	d.handles[index] = h
	d.mu.Unlock()

	return h, nil
}

// exitCodeFromError recovers the numeric exit code from the error
// cmd.Wait returns, including the signal-termination case (e.g. a
// command killed by SIGKILL reports a non-zero code here too, the same
// way the original maps ExitStatusExt::signal() onto Bad).
func exitCodeFromError(cmd *exec.Cmd, err error) int {
	if err == nil {
		return 0
	}
	if cmd.ProcessState != nil {
		if code := cmd.ProcessState.ExitCode(); code >= 0 {
			return code
		}
	}
	return 1
}

// Poll performs one non-blocking pass over every live handle and
// returns every one whose process has exited since the last call.
// Mirrors the original's try_wait loop: the caller is expected to call
// this repeatedly, sleeping between passes.
func (d *Driver) Poll() []Completion {
	d.mu.Lock()
	handles := make([]*Handle, 0, len(d.handles))
	for _, h := range d.handles {
		handles = append(handles, h)
	}
	d.mu.Unlock()

	var completions []Completion
	for _, h := range handles {
		exited, exitCode := h.tryWait()
		if !exited {
			continue
		}

		d.mu.Lock()
		delete(d.handles, h.Index)
		d.mu.Unlock()

		status := exitCodeToStatus(exitCode)
		elapsed := time.Since(h.StartedAt).Seconds()

		d.Logger.Debug("worker completed", "worker_id", h.ID, "index", h.Index, "exit_code", exitCode, "status", status)
		os.RemoveAll(h.Dir)

		completions = append(completions, Completion{
			Index:  h.Index,
			Status: status,
			Sample: scheduler.RuntimeSample{Elapsed: elapsed},
			Output: h.Output(),
		})
	}
	return completions
}

// Kill terminates the handle at index, escalating from SIGTERM to
// SIGKILL after killGrace, and removes its scratch directory. A kill
// that cannot confirm the process has died is a driver-level fatal
// error per spec §7 — the caller should treat it as unrecoverable.
func (d *Driver) Kill(index int) error {
	d.mu.Lock()
	h, ok := d.handles[index]
	if ok {
		delete(d.handles, index)
	}
	d.mu.Unlock()
	if !ok {
		return nil
	}

	if h.cmd.Process == nil {
		os.RemoveAll(h.Dir)
		return nil
	}

	pid := h.cmd.Process.Pid
	d.Logger.Debug("killing worker", "worker_id", h.ID, "index", index, "pid", pid)

	_ = h.cmd.Process.Signal(syscall.SIGTERM)

	deadline := time.Now().Add(killGrace)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			os.RemoveAll(h.Dir)
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}

	if err := h.cmd.Process.Kill(); err != nil && processAlive(pid) {
		return fmt.Errorf("failed to kill runner for commit %s (pid %d): %w", h.Commit, pid, err)
	}

	os.RemoveAll(h.Dir)
	return nil
}

// Shutdown kills the remaining live handles one by one, stopping at and
// returning the first kill that fails.
func (d *Driver) Shutdown() error {
	d.mu.Lock()
	indices := make([]int, 0, len(d.handles))
	for idx := range d.handles {
		indices = append(indices, idx)
	}
	d.mu.Unlock()

	for _, idx := range indices {
		if err := d.Kill(idx); err != nil {
			return err
		}
	}
	return nil
}

func processAlive(pid int) bool {
	proc, err := ps.FindProcess(pid)
	return err == nil && proc != nil
}

func exitCodeToStatus(code int) scheduler.Status {
	switch code {
	case 0:
		return scheduler.Good
	case 124:
		return scheduler.Skip
	default:
		return scheduler.Bad
	}
}

func shellQuote(s string) string {
	return "'" + filepath.Clean(s) + "'"
}
