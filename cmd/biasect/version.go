// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package main

// version is overridden at build time via -ldflags, the same way
// nomad's own cmd entrypoint stamps its release version.
var version = "dev"
