// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package harness runs one or more tsearch stressor instances side by side
// and reports what they did.
//
// Each instance runs in its own goroutine with its own random source, key
// buffer, and tree. The instances share only the bogo-op count (so that a
// MaxOps limit applies to the run as a whole), the run state registry, and the
// failure sink.
package harness

import (
	"context"
	"time"

	"github.com/NVIDIA/treestress/tsearch"
)

const (
	DefaultInstances = 1
	MaxInstances     = 4096
)

// Config describes a run. It is normally filled in by ParseConfMap().
type Config struct {
	Instances uint32        // number of concurrent instances; 0 means one per CPU
	MaxOps    uint64        // stop once this many bogo-ops have completed in total; 0 means no limit
	Timeout   time.Duration // stop after this long; 0 means no limit
	Seed      uint64        // base of every instance's seed; 0 means vary run to run
	Stressor  tsearch.Config
}

// InstanceReport is the outcome of one instance.
type InstanceReport struct {
	Name     string
	Seed     uint64
	Cycles   uint64
	Failures uint64
	Err      error
}

// Report is the outcome of a run.
type Report struct {
	BogoOps   uint64
	Failures  uint64
	Duration  time.Duration
	Instances []InstanceReport
}

// Run starts config.Instances instances and waits for all of them to stop.
//
// Instances stop once ctx is done, config.Timeout elapses, or config.MaxOps
// bogo-ops have been completed. Each finishes the cycle it is in (skipping
// the rest of its lookups) before stopping, so MaxOps may be overshot by up to
// one cycle per instance.
//
// The first instance to fail (by running out of memory) stops the others and
// its error is returned. The Report covers every instance either way.
func Run(ctx context.Context, config Config) (report Report, err error) {
	report, err = run(ctx, config)
	return
}

// States returns the current run state of every instance of the most recent
// (or current) run, keyed by instance name.
func States() (states map[string]tsearch.ProcState) {
	states = procStates()
	return
}

// FailureCounts returns the number of verification failures reported by each
// instance of the most recent (or current) run, keyed by instance name.
func FailureCounts() (failureCounts map[string]uint64) {
	failureCounts = failureCountsDump()
	return
}
