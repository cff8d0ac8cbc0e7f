// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package stats

import (
	"sync"
	"sync/atomic"

	"github.com/cornelk/hashmap"

	"github.com/NVIDIA/treestress/conf"
	"github.com/NVIDIA/treestress/transitions"
)

type globalsStruct struct {
	sync.RWMutex //                                     Write-held only while statFullMap is being replaced
	statFullMap  *hashmap.Map[string, *uint64] //       Key is stat name, Value points to the accumulated increments
}

var globals globalsStruct

func init() {
	globals.statFullMap = hashmap.New[string, *uint64]()

	transitions.Register("stats", &globals)
}

// Up starts each run with all counters at zero
func (dummy *globalsStruct) Up(confMap conf.ConfMap) (err error) {
	reset()
	err = nil
	return
}

func (dummy *globalsStruct) SignaledStart(confMap conf.ConfMap) (err error) {
	return nil
}

func (dummy *globalsStruct) SignaledFinish(confMap conf.ConfMap) (err error) {
	return nil
}

// Down leaves the counters intact so they may still be Dump()'d after shutdown
func (dummy *globalsStruct) Down(confMap conf.ConfMap) (err error) {
	err = nil
	return
}

func incrementOperationsBy(statName *string, incBy uint64) {
	globals.RLock()
	counter, ok := globals.statFullMap.Get(*statName)
	if !ok {
		counter, _ = globals.statFullMap.GetOrInsert(*statName, new(uint64))
	}
	atomic.AddUint64(counter, incBy)
	globals.RUnlock()
}

func get(statName *string) (value uint64) {
	globals.RLock()
	counter, ok := globals.statFullMap.Get(*statName)
	if ok {
		value = atomic.LoadUint64(counter)
	}
	globals.RUnlock()
	return
}

func dump() (statMap map[string]uint64) {
	globals.RLock()
	statMap = make(map[string]uint64, globals.statFullMap.Len())
	globals.statFullMap.Range(func(statName string, counter *uint64) bool {
		statMap[statName] = atomic.LoadUint64(counter)
		return true
	})
	globals.RUnlock()
	return
}

func reset() {
	globals.Lock()
	globals.statFullMap = hashmap.New[string, *uint64]()
	globals.Unlock()
}
