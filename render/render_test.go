// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package render

import (
	"testing"
	"time"

	"github.com/hashicorp/biasect/scheduler"
	"github.com/stretchr/testify/require"
)

func TestStripPlain(t *testing.T) {
	commits := []scheduler.Commit{
		{Status: scheduler.Good},
		{Status: scheduler.Unknown},
		{Status: scheduler.Skip},
		{Status: scheduler.Unknown},
		{Status: scheduler.Bad},
	}
	require.Equal(t, "G.S.B", Strip(commits, nil, false))
}

func TestStripMarksHeldRunners(t *testing.T) {
	commits := []scheduler.Commit{
		{Status: scheduler.Good},
		{Status: scheduler.Unknown},
		{Status: scheduler.Unknown},
		{Status: scheduler.Bad},
	}
	require.Equal(t, "GRRB", Strip(commits, []int{1, 2}, false))
}

func TestSummaryMentionsHash(t *testing.T) {
	out := Summary("deadbeef", 90*time.Second, 450)
	require.Contains(t, out, "deadbeef")
}

func TestBoundsViolationIncludesReproducer(t *testing.T) {
	out := BoundsViolation("abc123", "echo reproduce")
	require.Contains(t, out, "abc123")
	require.Contains(t, out, "echo reproduce")
}
