// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package vcs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReproducerScriptIncludesRepoCommitAndCommand(t *testing.T) {
	script := ReproducerScript("/repo", "make test", "deadbeef")
	require.True(t, strings.Contains(script, "/repo"))
	require.True(t, strings.Contains(script, "deadbeef"))
	require.True(t, strings.Contains(script, "make test"))
	require.True(t, strings.Contains(script, "git -C /repo worktree add $TESTDIR deadbeef --detach"))
}
