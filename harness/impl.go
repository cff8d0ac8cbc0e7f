// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package harness

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/NVIDIA/treestress/blunder"
	"github.com/NVIDIA/treestress/logger"
	"github.com/NVIDIA/treestress/mwc"
	"github.com/NVIDIA/treestress/stats"
	"github.com/NVIDIA/treestress/tsearch"
	"github.com/NVIDIA/treestress/utils"
)

const stressorName = "tsearch"

// runStruct is the state shared by the instances of one run
type runStruct struct {
	maxOps  uint64
	bogoOps uint64      // updated atomically
	stop    atomic.Bool // set once the run's context is done
}

// instanceStruct is the tsearch.Harness handed to one instance
type instanceStruct struct {
	name string
	run  *runStruct
}

// failureSinkStruct is the tsearch.Reporter shared by every instance of a run
type failureSinkStruct struct {
	limiter *rate.Limiter
}

func run(ctx context.Context, config Config) (report Report, err error) {
	var (
		cancel    context.CancelFunc
		group     *errgroup.Group
		groupCtx  context.Context
		instances uint32
		r         *runStruct
		sink      *failureSinkStruct
		stopwatch *utils.Stopwatch
	)

	instances = config.Instances
	if 0 == instances {
		instances = uint32(runtime.NumCPU())
	}
	if instances > MaxInstances {
		err = blunder.NewError(blunder.OutOfRangeError, "%d instances requested, at most %d allowed", instances, MaxInstances)
		return
	}

	globals.Lock()
	resetRegistries()
	sink = &failureSinkStruct{limiter: globals.failureLimiter}
	globals.Unlock()

	if 0 == config.Timeout {
		ctx, cancel = context.WithCancel(ctx)
	} else {
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
	}
	defer cancel()

	r = &runStruct{maxOps: config.MaxOps}

	group, groupCtx = errgroup.WithContext(ctx)

	// The stressor polls its harness per key, far too often to consult the
	// context directly.
	go func() {
		<-groupCtx.Done()
		r.stop.Store(true)
	}()

	report.Instances = make([]InstanceReport, instances)

	logger.Infof("harness starting %d %s instance(s)", instances, stressorName)

	stopwatch = utils.NewStopwatch()

	for n := uint32(0); n < instances; n++ {
		instanceReport := &report.Instances[n]
		instanceReport.Name = fmt.Sprintf("%s.%d", stressorName, n)
		instanceReport.Seed = mwc.SeedFor(stressorName, n, config.Seed)

		instance := &instanceStruct{
			name: instanceReport.Name,
			run:  r,
		}

		instance.SetProcState(tsearch.StateInit)

		group.Go(func() (instanceErr error) {
			var result tsearch.Result

			result, instanceErr = tsearch.Run(instance.name, config.Stressor, mwc.New(instanceReport.Seed), instance, sink)

			instance.SetProcState(tsearch.StateExit)

			instanceReport.Cycles = result.Cycles
			instanceReport.Failures = result.Failures
			instanceReport.Err = instanceErr

			if nil != instanceErr {
				logger.InstanceErrorf(instance.name, "stopped after %d cycle(s): %v", result.Cycles, instanceErr)
			}
			return
		})
	}

	err = group.Wait()

	report.Duration = stopwatch.Stop()
	report.BogoOps = atomic.LoadUint64(&r.bogoOps)
	for _, instanceReport := range report.Instances {
		report.Failures += instanceReport.Failures
	}

	logger.Infof("harness completed %d bogo-op(s) in %s (%.2f bogo-ops/sec) with %d failure(s)",
		report.BogoOps, report.Duration, utils.OpsPerSecond(report.BogoOps, report.Duration), report.Failures)

	return
}

func (instance *instanceStruct) KeepStressing() bool {
	if instance.run.stop.Load() {
		return false
	}
	if 0 == instance.run.maxOps {
		return true
	}
	return atomic.LoadUint64(&instance.run.bogoOps) < instance.run.maxOps
}

func (instance *instanceStruct) KeepStressingFlag() bool {
	return !instance.run.stop.Load()
}

func (instance *instanceStruct) IncCounter() {
	atomic.AddUint64(&instance.run.bogoOps, 1)
}

func (instance *instanceStruct) SetProcState(state tsearch.ProcState) {
	globals.procStates.Set(instance.name, state)
}

// Fail counts every failure but logs only as many as the limiter allows
func (sink *failureSinkStruct) Fail(instance string, format string, args ...interface{}) {
	failureCount, _ := globals.failureCounts.GetOrInsert(instance, new(uint64))
	atomic.AddUint64(failureCount, 1)

	if sink.limiter.Allow() {
		logger.InstanceErrorf(instance, format, args...)
		stats.IncrementOperations(&stats.HarnessFailuresLogged)
	} else {
		stats.IncrementOperations(&stats.HarnessFailuresDropped)
	}
}

func procStates() (states map[string]tsearch.ProcState) {
	globals.Lock()
	registry := globals.procStates
	globals.Unlock()

	states = make(map[string]tsearch.ProcState, int(registry.Len()))
	registry.ForEach(func(name string, state tsearch.ProcState) bool {
		states[name] = state
		return true
	})
	return
}

func failureCountsDump() (failureCounts map[string]uint64) {
	globals.Lock()
	registry := globals.failureCounts
	globals.Unlock()

	failureCounts = make(map[string]uint64, registry.Len())
	registry.Range(func(name string, failureCount *uint64) bool {
		failureCounts[name] = atomic.LoadUint64(failureCount)
		return true
	})
	return
}
