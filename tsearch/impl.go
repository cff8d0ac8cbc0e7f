// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package tsearch

import (
	"fmt"

	"github.com/NVIDIA/treestress/blunder"
	"github.com/NVIDIA/treestress/bstree"
	"github.com/NVIDIA/treestress/bucketstats"
	"github.com/NVIDIA/treestress/keygen"
	"github.com/NVIDIA/treestress/logger"
	"github.com/NVIDIA/treestress/stats"
	"github.com/NVIDIA/treestress/treemethod"
	"github.com/NVIDIA/treestress/utils"
)

// treeNew is replaced by tests needing a misbehaving tree
var treeNew = treemethod.New

type runStatsStruct struct {
	PopulateUsec bucketstats.BucketLog2Round // bucketized by time
	LookupUsec   bucketstats.BucketLog2Round // bucketized by time
	DrainUsec    bucketstats.BucketLog2Round // bucketized by time
	Cycles       bucketstats.Total
	Failures     bucketstats.Total
}

type runStruct struct {
	name     string
	config   Config
	keys     []int32
	tree     treemethod.Tree
	harness  Harness
	reporter Reporter
	result   Result
	stats    runStatsStruct
}

func run(name string, config Config, source keygen.Source16, harness Harness, reporter Reporter) (result Result, err error) {
	var (
		stopwatch *utils.Stopwatch
		r         *runStruct
	)

	r = &runStruct{
		name:     name,
		config:   config,
		harness:  harness,
		reporter: reporter,
	}

	if (config.Size < keygen.MinSize) || (config.Size > keygen.MaxSize) {
		err = blunder.NewError(blunder.OutOfRangeError, "%s: size %d must be in [%d,%d]", name, config.Size, keygen.MinSize, keygen.MaxSize)
		return
	}

	r.tree, err = treeNew(config.Method, bstree.CompareInt32, config.MaxNodes)
	if nil != err {
		return
	}

	r.keys, err = keygen.Make(int(config.Size), source)
	if nil != err {
		logger.InstanceErrorf(name, "key buffer allocation failed, out of memory: %v", err)
		return
	}

	bucketstats.Register("tsearch", name, &r.stats)
	defer bucketstats.UnRegister("tsearch", name)

	stats.IncrementOperations(&stats.TsearchInstancesRun)

	harness.SetProcState(StateRun)

	stopwatch = utils.NewStopwatch()

	for {
		stopwatch.Restart()
		err = r.populate(source)
		stopwatch.Stop()
		r.stats.PopulateUsec.Add(uint64(stopwatch.ElapsedUs()))
		if nil != err {
			break
		}

		stopwatch.Restart()
		r.lookup()
		stopwatch.Stop()
		r.stats.LookupUsec.Add(uint64(stopwatch.ElapsedUs()))

		stopwatch.Restart()
		r.drain()
		stopwatch.Stop()
		r.stats.DrainUsec.Add(uint64(stopwatch.ElapsedUs()))

		harness.IncCounter()
		r.result.Cycles++
		r.stats.Cycles.Increment()
		stats.IncrementOperations(&stats.TsearchCycles)

		if !harness.KeepStressing() {
			break
		}
	}

	harness.SetProcState(StateDeinit)

	r.keys = nil

	result = r.result
	return
}

// fail records one verification failure
func (r *runStruct) fail(phase Phase, index int, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)

	r.result.Failures++
	if len(r.result.Diagnostics) < MaxRetainedDiagnostics {
		r.result.Diagnostics = append(r.result.Diagnostics, Diagnostic{
			Cycle:   r.result.Cycles,
			Phase:   phase,
			Index:   index,
			Message: message,
		})
	}
	r.stats.Failures.Increment()
	stats.IncrementOperations(&stats.TsearchFailures)

	r.reporter.Fail(r.name, "%s", message)
}

// populate regenerates each key and inserts a reference to it. Should a node
// allocation fail, the keys inserted so far are removed again and the error
// returned.
func (r *runStruct) populate(source keygen.Source16) (err error) {
	for i := range r.keys {
		r.keys[i] = keygen.Key(i, source.Uint16())
		err = r.tree.Insert(&r.keys[i])
		if nil != err {
			logger.InstanceErrorf(r.name, "cannot allocate new tree node: %v", err)
			stats.IncrementOperations(&stats.TsearchAllocFailures)
			for j := 0; j < i; j++ {
				r.tree.Delete(&r.keys[j])
			}
			return
		}
	}

	err = nil
	return
}

func (r *runStruct) lookup() {
	for i := 0; r.harness.KeepStressingFlag() && (i < len(r.keys)); i++ {
		found, ok := r.tree.Find(&r.keys[i])
		if !r.config.Verify {
			continue
		}
		if !ok {
			r.fail(PhaseLookup, i, "element %d could not be found", i)
		} else if *found != r.keys[i] {
			r.fail(PhaseLookup, i, "element %d found %d, expecting %d", i, uint32(*found), uint32(r.keys[i]))
		}
	}
}

func (r *runStruct) drain() {
	for i := range r.keys {
		ok := r.tree.Delete(&r.keys[i])
		if r.config.Verify && !ok {
			r.fail(PhaseDrain, i, "element %d could not be found", i)
		}
	}

	// Only a broken tree can hold keys now; start the next cycle empty regardless
	if 0 != r.tree.Len() {
		if r.config.Verify {
			r.fail(PhaseDrain, len(r.keys), "%d elements left in tree after drain", r.tree.Len())
		}
		r.tree.Reset()
	}
}
