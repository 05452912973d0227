// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package command

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mitchellh/cli"
	"github.com/stretchr/testify/require"
)

var (
	_ cli.Command = (*RunCommand)(nil)
	_ cli.Command = (*NextCommand)(nil)
)

func gitRun(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=biasect-test", "GIT_AUTHOR_EMAIL=biasect@example.com",
		"GIT_COMMITTER_NAME=biasect-test", "GIT_COMMITTER_EMAIL=biasect@example.com",
	)
	require.NoError(t, cmd.Run())
}

// newBisectingRepo builds a three-commit repo with `git bisect`
// already started, bad at HEAD and good at the root commit.
func newBisectingRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available on PATH")
	}

	dir := t.TempDir()
	gitRun(t, dir, "init", "-q")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte{byte('0' + i)}, 0o644))
		gitRun(t, dir, "add", "f")
		gitRun(t, dir, "commit", "-q", "-m", "commit")
	}

	out, err := exec.Command("git", "-C", dir, "log", "--format=%H", "--reverse").Output()
	require.NoError(t, err)
	hashes := strings.Fields(string(out))
	require.Len(t, hashes, 3)

	gitRun(t, dir, "bisect", "start")
	gitRun(t, dir, "bisect", "bad", hashes[2])
	gitRun(t, dir, "bisect", "good", hashes[0])

	return dir
}

func TestNextCommandPrintsMiddleCommit(t *testing.T) {
	dir := newBisectingRepo(t)

	ui := cli.NewMockUi()
	cmd := &NextCommand{Meta{Ui: ui}}
	code := cmd.Run([]string{"-C", dir})
	require.Equal(t, 0, code)
	require.Contains(t, ui.OutputWriter.String(), "next:")
	require.Contains(t, ui.OutputWriter.String(), "(index 1)")
}
