// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package testlog bridges hclog output into testing.T so a failing
// test's logs show up inlined in `go test -v` output instead of being
// swallowed or printed out of order on a separate stream.
package testlog

import (
	"testing"

	"github.com/hashicorp/go-hclog"
)

// writer adapts testing.T.Log to io.Writer, trimming the trailing
// newline hclog always appends since t.Log adds its own.
type writer struct{ t *testing.T }

func (w writer) Write(p []byte) (int, error) {
	w.t.Helper()
	n := len(p)
	if n > 0 && p[n-1] == '\n' {
		p = p[:n-1]
	}
	w.t.Log(string(p))
	return n, nil
}

// HCLogger returns a debug-level logger whose output is routed through
// t.Log.
func HCLogger(t *testing.T) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "test",
		Level:  hclog.Debug,
		Output: writer{t: t},
	})
}
