// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package tsearch is the tree search stressor.
//
// Each cycle of Run() populates a tree with references to every element of a
// freshly regenerated key buffer, looks every element up again, and then
// deletes every element. A cycle completed in full is one bogo-op.
//
// Verification failures (elements that cannot be found, or that are found
// with the wrong value) are reported and counted but never stop the run. The
// only errors Run() returns are failures to allocate the key buffer or a tree
// node, both of which end the run.
package tsearch

import (
	"github.com/NVIDIA/treestress/keygen"
)

// Config selects the stressor's workload.
type Config struct {
	Size     uint64 // number of keys (N), in [keygen.MinSize, keygen.MaxSize]
	Method   string // treemethod name
	Verify   bool   // check every lookup and delete
	MaxNodes int    // node allocation budget; 0 means unbounded
}

// ProcState is the run state an instance publishes through its Harness.
type ProcState int

const (
	StateInit ProcState = iota
	StateRun
	StateDeinit
	StateExit
)

func (state ProcState) String() string {
	switch state {
	case StateInit:
		return "init"
	case StateRun:
		return "run"
	case StateDeinit:
		return "deinit"
	case StateExit:
		return "exit"
	default:
		return "unknown"
	}
}

// Phase names the part of a cycle a Diagnostic came from.
type Phase int

const (
	PhasePopulate Phase = iota
	PhaseLookup
	PhaseDrain
)

func (phase Phase) String() string {
	switch phase {
	case PhasePopulate:
		return "populate"
	case PhaseLookup:
		return "lookup"
	case PhaseDrain:
		return "drain"
	default:
		return "unknown"
	}
}

// Harness is what a running stressor needs from whatever launched it.
type Harness interface {
	// KeepStressing is asked once after each cycle; false ends the run.
	KeepStressing() bool

	// KeepStressingFlag is asked before each lookup; false skips the rest of
	// the lookup phase (the drain phase always runs to completion).
	KeepStressingFlag() bool

	// IncCounter records one completed cycle.
	IncCounter()

	SetProcState(state ProcState)
}

// Reporter receives each verification failure as it happens.
type Reporter interface {
	Fail(instance string, format string, args ...interface{})
}

// Diagnostic is one verification failure.
type Diagnostic struct {
	Cycle   uint64 // zero based
	Phase   Phase
	Index   int // key buffer index
	Message string
}

// MaxRetainedDiagnostics bounds Result.Diagnostics; Result.Failures keeps counting.
const MaxRetainedDiagnostics = 1024

// Result describes a (possibly partial) run.
type Result struct {
	Cycles      uint64       // completed cycles (bogo-ops)
	Failures    uint64       // verification failures
	Diagnostics []Diagnostic // the first MaxRetainedDiagnostics failures
}

// Run stresses one tree until harness.KeepStressing() returns false.
//
// Keys are drawn from source. name identifies the instance in logs,
// diagnostics, and its bucketstats group ("tsearch", name); it must not be
// shared by concurrent runs.
//
// On a node allocation failure the keys inserted so far are deleted again and
// the blunder.NodeAllocError is returned along with the Result so far.
func Run(name string, config Config, source keygen.Source16, harness Harness, reporter Reporter) (result Result, err error) {
	result, err = run(name, config, source, harness, reporter)
	return
}
