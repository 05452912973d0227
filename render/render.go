// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package render draws the live commit strip and the final verdict
// line. Grounded in the original's visualize.rs, generalized onto
// colorstring for the per-commit glyphs and fatih/color for the
// one-line summary, the way nomad's own CLI splits "structured table"
// rendering from "plain highlighted line" rendering.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/hashicorp/biasect/scheduler"
	"github.com/mitchellh/colorstring"
)

// Strip renders one glyph per commit: G/B/S/. for Good/Bad/Skip/Unknown,
// with R overriding the glyph at any index currently held by a runner.
// colorize selects colorstring-colored glyphs; when it is false the
// bare glyphs are written with no color codes. Strip does not detect
// whether its destination is a terminal.
func Strip(commits []scheduler.Commit, runnerCommits []int, colorize bool) string {
	held := make(map[int]bool, len(runnerCommits))
	for _, idx := range runnerCommits {
		held[idx] = true
	}

	var b strings.Builder
	for i, c := range commits {
		glyph, tag := glyphFor(c.Status)
		if held[i] {
			glyph, tag = "R", "[cyan]"
		}
		if colorize {
			b.WriteString(colorstring.Color(tag + glyph + "[reset]"))
		} else {
			b.WriteString(glyph)
		}
	}
	return b.String()
}

func glyphFor(s scheduler.Status) (glyph, tag string) {
	switch s {
	case scheduler.Good:
		return "G", "[green]"
	case scheduler.Bad:
		return "B", "[red]"
	case scheduler.Skip:
		return "S", "[yellow]"
	default:
		return ".", "[reset]"
	}
}

// Summary renders the final one-line verdict once the bisection
// completes: the offending commit hash, the wall-clock elapsed time,
// and the sum of every runner's reported runtime (useful to gauge how
// much parallelism actually bought you).
func Summary(badHash string, elapsed time.Duration, accumulatedRunnerSeconds float64) string {
	return color.New(color.FgRed, color.Bold).Sprintf("first bad commit: %s", badHash) +
		color.New(color.FgHiBlack).Sprintf(" (%s elapsed, %s runner-seconds accumulated)",
			elapsed.Round(time.Second), humanize.Comma(int64(accumulatedRunnerSeconds)))
}

// BoundsViolation renders the operator-facing diagnostic for a bounds
// violation: the anchor commit that disagreed with the declared
// bounds, and the reproducer script that lets the operator re-run the
// failing check by hand.
func BoundsViolation(hash string, reproducer string) string {
	return color.New(color.FgYellow, color.Bold).Sprintf("bounds violation at %s\n", hash) +
		fmt.Sprintf("the declared good/bad anchors disagree with this result. Reproduce with:\n\n%s", reproducer)
}
