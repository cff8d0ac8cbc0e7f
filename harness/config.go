// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package harness

import (
	"sync"

	"github.com/alphadose/haxmap"
	"github.com/cornelk/hashmap"
	"golang.org/x/time/rate"

	"github.com/NVIDIA/treestress/blunder"
	"github.com/NVIDIA/treestress/conf"
	"github.com/NVIDIA/treestress/logger"
	"github.com/NVIDIA/treestress/transitions"
	"github.com/NVIDIA/treestress/tsearch"
)

const (
	confSection = "TreeStress"

	defaultFailureLogRate  = 10 // failures logged per second once the burst is spent
	defaultFailureLogBurst = 100
)

type globalsStruct struct {
	sync.Mutex                                           // Serializes Up() and Run() setup against each other
	failureLogRate  rate.Limit                           //
	failureLogBurst int                                  //
	procStates      *haxmap.Map[string, tsearch.ProcState] // Key is instance name
	failureCounts   *hashmap.Map[string, *uint64]        // Key is instance name; Value updated atomically
	failureLimiter  *rate.Limiter                        // Gates logging (not counting) of failures
}

var globals globalsStruct

func init() {
	globals.failureLogRate = rate.Limit(defaultFailureLogRate)
	globals.failureLogBurst = defaultFailureLogBurst
	resetRegistries()

	transitions.Register("harness", &globals)
}

// resetRegistries must be called with globals locked (or from init())
func resetRegistries() {
	globals.procStates = haxmap.New[string, tsearch.ProcState]()
	globals.failureCounts = hashmap.New[string, *uint64]()
	globals.failureLimiter = rate.NewLimiter(globals.failureLogRate, globals.failureLogBurst)
}

// ParseConfMap fills a Config from the [TreeStress] section of confMap.
//
//   Instances - concurrent instances (default 1; 0 means one per CPU; at most 4096)
//   MaxOps    - bogo-op limit across all instances (default 0, unlimited)
//   Timeout   - duration limit, e.g. "30s" (default 0, unlimited)
//   Seed      - base seed (default 0, vary run to run)
//
// plus the options read by tsearch.ParseConfMap().
func ParseConfMap(confMap conf.ConfMap) (config Config, err error) {
	config.Instances = DefaultInstances
	if confMap.HasOption(confSection, "Instances") {
		config.Instances, err = confMap.FetchOptionValueUint32(confSection, "Instances")
		if nil != err {
			err = blunder.AddError(err, blunder.InvalidArgError)
			return
		}
		if config.Instances > MaxInstances {
			err = blunder.NewError(blunder.OutOfRangeError, "[%s]Instances %d must be at most %d", confSection, config.Instances, MaxInstances)
			return
		}
	}

	if confMap.HasOption(confSection, "MaxOps") {
		config.MaxOps, err = confMap.FetchOptionValueUint64(confSection, "MaxOps")
		if nil != err {
			err = blunder.AddError(err, blunder.InvalidArgError)
			return
		}
	}

	if confMap.HasOption(confSection, "Timeout") {
		config.Timeout, err = confMap.FetchOptionValueDuration(confSection, "Timeout")
		if nil != err {
			err = blunder.AddError(err, blunder.InvalidArgError)
			return
		}
	}

	if confMap.HasOption(confSection, "Seed") {
		config.Seed, err = confMap.FetchOptionValueUint64(confSection, "Seed")
		if nil != err {
			err = blunder.AddError(err, blunder.InvalidArgError)
			return
		}
	}

	config.Stressor, err = tsearch.ParseConfMap(confMap, confSection)
	return
}

// Up reads [TreeStress]FailureLogRate (failures logged per second, 0 meaning
// every failure is logged) and [TreeStress]FailureLogBurst
func (dummy *globalsStruct) Up(confMap conf.ConfMap) (err error) {
	var (
		failureLogBurst uint32
		failureLogRate  uint32
	)

	failureLogRate = defaultFailureLogRate
	if confMap.HasOption(confSection, "FailureLogRate") {
		failureLogRate, err = confMap.FetchOptionValueUint32(confSection, "FailureLogRate")
		if nil != err {
			return
		}
	}

	failureLogBurst = defaultFailureLogBurst
	if confMap.HasOption(confSection, "FailureLogBurst") {
		failureLogBurst, err = confMap.FetchOptionValueUint32(confSection, "FailureLogBurst")
		if nil != err {
			return
		}
	}

	globals.Lock()
	if 0 == failureLogRate {
		globals.failureLogRate = rate.Inf
	} else {
		globals.failureLogRate = rate.Limit(failureLogRate)
	}
	globals.failureLogBurst = int(failureLogBurst)
	resetRegistries()
	globals.Unlock()

	logger.Infof("harness failure logging limited to %d/sec after a burst of %d", failureLogRate, failureLogBurst)

	err = nil
	return
}

func (dummy *globalsStruct) SignaledStart(confMap conf.ConfMap) (err error) {
	return nil
}

func (dummy *globalsStruct) SignaledFinish(confMap conf.ConfMap) (err error) {
	return nil
}

// Down leaves the registries intact so that a finished run can still be inspected
func (dummy *globalsStruct) Down(confMap conf.ConfMap) (err error) {
	err = nil
	return
}
