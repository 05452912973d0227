// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/biasect/render"
	"github.com/hashicorp/biasect/scheduler"
	"github.com/hashicorp/biasect/vcs"
	"github.com/hashicorp/go-hclog"
	"github.com/posener/complete"
)

// NextCommand prints a single-runner allocation preview: which commit
// a lone worker would test next, without starting anything or talking
// to the worker driver at all.
type NextCommand struct {
	Meta
}

func (c *NextCommand) AutocompleteFlags() complete.Flags {
	return complete.Flags{
		"-C": complete.PredictDirs("*"),
		"-c": complete.PredictNothing,
	}
}

func (c *NextCommand) AutocompleteArgs() complete.Predictor {
	return complete.PredictNothing
}

func (c *NextCommand) Name() string     { return "next" }
func (c *NextCommand) Synopsis() string { return "Preview the next commit a single runner would test" }
func (c *NextCommand) Help() string {
	return strings.TrimSpace(`
Usage: biasect next [options]

  Computes and prints the commit a single worker would be assigned
  next, given the bisection currently in progress. Starts nothing.

Options:

  -c       Enable bookend checking (mirrors run's default; -r disables it there)
  -C=path  Path to the repository (default ".")
`)
}

func (c *NextCommand) Run(args []string) int {
	var checkBookends bool
	var repoPath string

	fs := c.FlagSet("next")
	fs.BoolVar(&checkBookends, "c", false, "")
	fs.StringVar(&repoPath, "C", ".", "")
	if err := fs.Parse(args); err != nil {
		c.Ui.Error(c.Help())
		return 1
	}

	ctx := context.Background()
	git := vcs.New(repoPath, hclog.NewNullLogger())
	hashes, err := git.Commits(ctx)
	if err != nil {
		c.Ui.Error(fmt.Sprintf("listing commits: %s", err))
		return 1
	}

	state := scheduler.Init(hashes, 1, checkBookends)
	if len(state.Runners.Commits) == 0 {
		c.Ui.Output("bisection already complete; nothing to run next")
		return 0
	}

	next := state.Runners.Commits[0]
	c.Ui.Output(fmt.Sprintf("next: %s (index %d)", hashes[next], next))
	c.Ui.Output(render.Strip(state.Commits, state.Runners.Commits, true))
	return 0
}
