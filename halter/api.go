// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package halter provides labelled trip points used to inject allocation
// failures into the stressor.
//
// A trip point is armed with a count; the count'th subsequent Trigger() of that
// label returns true (once) and the trip point disarms itself. Callers treat a
// true return exactly as they would an allocation failure.
package halter

import (
	"fmt"
	"sort"
	"sync/atomic"
)

// Note 1: Following const block and HaltLabelStrings should be kept in sync
// Note 2: HaltLabelStrings are used verbatim in [Halter]Arm values

const (
	apiTestHaltLabel1 = iota
	apiTestHaltLabel2
	KeygenAllocKeys
	BstreeAllocNode
	TreemethodAllocNode
)

var (
	HaltLabelStrings = []string{
		"halter.testHaltLabel1",
		"halter.testHaltLabel2",
		"keygen.allocKeys",
		"bstree.allocNode",
		"treemethod.allocNode",
	}
)

// Arm sets up a trip on the haltAfterCount'd call to Trigger()
func Arm(haltLabelString string, haltAfterCount uint32) (err error) {
	globals.Lock()
	defer globals.Unlock()

	haltLabel, ok := globals.triggerNamesToNumbers[haltLabelString]
	if !ok {
		err = fmt.Errorf("halter.Arm(haltLabelString='%v',) - label unknown", haltLabelString)
		return
	}
	if 0 == haltAfterCount {
		err = fmt.Errorf("halter.Arm(haltLabel==%v,) called with haltAfterCount==0", haltLabelString)
		return
	}

	globals.armedTriggers[haltLabel] = haltAfterCount
	atomic.StoreInt32(&globals.armedCount, int32(len(globals.armedTriggers)))

	err = nil
	return
}

// Disarm removes a previously armed trigger via a call to Arm()
func Disarm(haltLabelString string) (err error) {
	globals.Lock()
	defer globals.Unlock()

	haltLabel, ok := globals.triggerNamesToNumbers[haltLabelString]
	if !ok {
		err = fmt.Errorf("halter.Disarm(haltLabelString='%v') - label unknown", haltLabelString)
		return
	}

	delete(globals.armedTriggers, haltLabel)
	atomic.StoreInt32(&globals.armedCount, int32(len(globals.armedTriggers)))

	err = nil
	return
}

// DisarmAll removes every armed trigger
func DisarmAll() {
	globals.Lock()
	globals.armedTriggers = make(map[uint32]uint32)
	atomic.StoreInt32(&globals.armedCount, 0)
	globals.Unlock()
}

// Trigger decrements the haltAfterCount if armed and, should it reach 0, disarms
// the label and returns true
func Trigger(haltLabel uint32) (tripped bool) {
	if 0 == atomic.LoadInt32(&globals.armedCount) {
		return false
	}

	globals.Lock()
	defer globals.Unlock()

	numTriggersRemaining, armed := globals.armedTriggers[haltLabel]
	if !armed {
		return false
	}

	numTriggersRemaining--
	if 0 == numTriggersRemaining {
		delete(globals.armedTriggers, haltLabel)
		atomic.StoreInt32(&globals.armedCount, int32(len(globals.armedTriggers)))
		return true
	}

	globals.armedTriggers[haltLabel] = numTriggersRemaining
	return false
}

// Dump returns a map of currently armed triggers and their remaining trigger count
func Dump() (armedTriggers map[string]uint32) {
	globals.Lock()
	defer globals.Unlock()

	armedTriggers = make(map[string]uint32)
	for k, v := range globals.armedTriggers {
		armedTriggers[globals.triggerNumbersToNames[k]] = v
	}
	return
}

// List returns a sorted slice of available triggers
func List() (availableTriggers []string) {
	globals.Lock()
	defer globals.Unlock()

	availableTriggers = make([]string, 0, len(globals.triggerNumbersToNames))
	for k := range globals.triggerNamesToNumbers {
		availableTriggers = append(availableTriggers, k)
	}
	sort.Strings(availableTriggers)
	return
}
