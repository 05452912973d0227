// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package vcs is the scheduler's only collaborator that knows git
// exists. It shells out to enumerate the commit range under
// suspicion, to create and prune scratch worktrees, and to report
// results back to `git bisect`. None of this is part of the
// scheduler's contract; scheduler.State only ever sees opaque hash
// strings and integer indices.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/hashicorp/biasect/scheduler"
	"github.com/hashicorp/go-hclog"
)

// Git shells out to the `git` binary rooted at RepoPath.
type Git struct {
	RepoPath string
	Logger   hclog.Logger
}

func New(repoPath string, logger hclog.Logger) *Git {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Git{RepoPath: repoPath, Logger: logger.Named("vcs")}
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	g.Logger.Debug("running git", "args", args)
	cmd := exec.CommandContext(ctx, "git", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.String(), nil
}

// Commits returns the ordered commit hashes spanning the bisection,
// oldest first, with the anchor-good commit prepended — exactly the
// list the scheduler indexes 0..C over.
func (g *Git) Commits(ctx context.Context) ([]string, error) {
	out, err := g.run(ctx, "-C", g.RepoPath, "bisect", "visualize", "--oneline", "--reverse")
	if err != nil {
		return nil, fmt.Errorf("listing bisection range: %w", err)
	}

	var hashes []string
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return nil, fmt.Errorf("could not parse commit hash from line %q", line)
		}
		hashes = append(hashes, fields[0])
	}
	if len(hashes) == 0 {
		return nil, fmt.Errorf("no hashes in bisection range; did you set the bounds with `git bisect good` and `git bisect bad`?")
	}

	goodOut, err := g.run(ctx, "-C", g.RepoPath, "log", "--oneline", "-n", "1", hashes[0]+"^")
	if err != nil {
		return nil, fmt.Errorf("resolving anchor-good commit: %w", err)
	}
	goodFields := strings.Fields(strings.TrimSpace(goodOut))
	if len(goodFields) == 0 {
		return nil, fmt.Errorf("could not parse anchor-good commit from %q", goodOut)
	}

	return append([]string{goodFields[0]}, hashes...), nil
}

// AddWorktree checks out commit into a fresh, detached worktree at dir.
func (g *Git) AddWorktree(ctx context.Context, dir, commit string) error {
	_, err := g.run(ctx, "-C", g.RepoPath, "worktree", "add", dir, commit, "--detach")
	return err
}

// PruneWorktrees removes administrative data for worktrees whose
// directories have since been deleted.
func (g *Git) PruneWorktrees(ctx context.Context) error {
	_, err := g.run(ctx, "-C", g.RepoPath, "worktree", "prune")
	return err
}

// Report tells `git bisect` the verdict for hash.
func (g *Git) Report(ctx context.Context, status scheduler.Status, hash string) error {
	var action string
	switch status {
	case scheduler.Good:
		action = "good"
	case scheduler.Bad:
		action = "bad"
	case scheduler.Skip:
		action = "skip"
	default:
		return fmt.Errorf("cannot report unknown status to git bisect for %s", hash)
	}
	_, err := g.run(ctx, "-C", g.RepoPath, "bisect", action, hash)
	return err
}

// ReproducerScript renders the exact shell commands an operator can run
// by hand to reproduce a bounds-violation failure at commit.
func ReproducerScript(repoPath, command, commit string) string {
	return fmt.Sprintf(
		"export TESTDIR=$(mktemp -d -t biasect.XXXXXX)\n"+
			"echo $TESTDIR\n"+
			"cd $TESTDIR\n"+
			"git -C %s worktree add $TESTDIR %s --detach\n"+
			"%s\n"+
			"echo $?\n",
		repoPath, commit, command,
	)
}
