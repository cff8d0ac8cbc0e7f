// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package stats provides process-wide named counters.
//
// Counters are identified by a *string so that callers can pass one of the
// package-level name variables below (avoiding a string copy per increment).
package stats

// Stat names used by the stressor
var (
	TsearchCycles          = "tsearch.cycles"
	TsearchFailures        = "tsearch.failures"
	TsearchAllocFailures   = "tsearch.alloc_failures"
	TsearchInstancesRun    = "tsearch.instances"
	HarnessFailuresLogged  = "harness.failures_logged"
	HarnessFailuresDropped = "harness.failures_dropped"
)

// Dump returns a map of all accumulated stats since process start (or the last Reset()).
//
//   Key   is a string containing the name of the stat
//   Value is the accumulation of all increments for the stat
func Dump() (statMap map[string]uint64) {
	statMap = dump()
	return
}

// IncrementOperations adds one to the named stat.
func IncrementOperations(statName *string) {
	incrementOperationsBy(statName, 1)
}

// IncrementOperationsBy adds incBy to the named stat.
func IncrementOperationsBy(statName *string, incBy uint64) {
	incrementOperationsBy(statName, incBy)
}

// Get returns the current value of the named stat (0 if never incremented).
func Get(statName *string) uint64 {
	return get(statName)
}

// Reset forgets all stats.
func Reset() {
	reset()
}
