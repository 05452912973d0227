// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package command holds the cli.Command implementations biasect's
// entrypoint registers: run and next. Grounded in nomad's command
// package skeleton (a shared Meta embedded by every command, flag
// parsing via the stdlib flag.FlagSet, completion predictors attached
// separately), trimmed to the two subcommands this tool actually has.
package command

import (
	"flag"

	"github.com/mitchellh/cli"
)

// Meta is embedded by every command: just enough shared plumbing
// (output, color) to keep each command's Run method focused on its
// own flags.
type Meta struct {
	Ui cli.Ui
}

// FlagSet returns a FlagSet configured the way every biasect command
// wants it: usage errors go through the command's own Help rather than
// flag's default stderr dump.
func (m *Meta) FlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {}
	return fs
}

// flagsVisited returns the set of flag names the operator actually
// passed, keyed the same way config.Config's merge expects.
func flagsVisited(fs *flag.FlagSet, names map[string]string) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		if key, ok := names[f.Name]; ok {
			set[key] = true
		}
	})
	return set
}
