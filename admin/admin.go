// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

// Package admin runs the operator facing HTTP server: prometheus metrics,
// liveness checks and pprof profiles. It's meant to be bound on a port
// which isn't exposed publicly.
package admin

import (
	"runtime"
)

// Init configures runtime profiling rates for the block and mutex
// profiles if they're enabled.
func Init() {
	if pprofProfileEnabled("block", true) {
		runtime.SetBlockProfileRate(1)
	}
	if pprofProfileEnabled("mutex", true) {
		runtime.SetMutexProfileFraction(1)
	}
}
