// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package tsearch

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/treestress/blunder"
	"github.com/NVIDIA/treestress/bucketstats"
	"github.com/NVIDIA/treestress/conf"
	"github.com/NVIDIA/treestress/halter"
	"github.com/NVIDIA/treestress/keygen"
	"github.com/NVIDIA/treestress/mwc"
	"github.com/NVIDIA/treestress/treemethod"
)

// testHarnessStruct permits exactly cycles cycles
type testHarnessStruct struct {
	cycles       uint64
	counter      uint64
	keepCalls    uint64
	skipLookups  bool
	states       []ProcState
	lenAtEachAsk []int
	tree         *treemethod.Tree
}

func (harness *testHarnessStruct) KeepStressing() bool {
	harness.keepCalls++
	if nil != harness.tree {
		harness.lenAtEachAsk = append(harness.lenAtEachAsk, (*harness.tree).Len())
	}
	return harness.counter < harness.cycles
}

func (harness *testHarnessStruct) KeepStressingFlag() bool {
	return !harness.skipLookups
}

func (harness *testHarnessStruct) IncCounter() {
	harness.counter++
}

func (harness *testHarnessStruct) SetProcState(state ProcState) {
	harness.states = append(harness.states, state)
}

type testReporterStruct struct {
	messages []string
}

func (reporter *testReporterStruct) Fail(instance string, format string, args ...interface{}) {
	reporter.messages = append(reporter.messages, instance+": "+fmt.Sprintf(format, args...))
}

// testCaptureTree makes Run() build its tree through treemethod.New() while
// remembering the tree (optionally wrapped) in *captured
func testCaptureTree(t *testing.T, captured *treemethod.Tree, wrap func(treemethod.Tree) treemethod.Tree) {
	treeNew = func(method string, compare treemethod.Compare, maxNodes int) (tree treemethod.Tree, err error) {
		tree, err = treemethod.New(method, compare, maxNodes)
		if (nil == err) && (nil != wrap) {
			tree = wrap(tree)
		}
		*captured = tree
		return
	}
	t.Cleanup(func() { treeNew = treemethod.New })
}

// testFaultyTreeStruct misbehaves for chosen key buffer indices (the low
// keygen.SizeShift bits of each key)
type testFaultyTreeStruct struct {
	treemethod.Tree
	lostOnFind  int
	wrongOnFind int
	stuck       int
	wrong       int32
}

func testIndex(key *int32) int {
	return int(uint32(*key) & (keygen.MaxSize - 1))
}

func (tree *testFaultyTreeStruct) Find(key *int32) (found *int32, ok bool) {
	switch testIndex(key) {
	case tree.lostOnFind:
		return nil, false
	case tree.wrongOnFind:
		tree.wrong = *key ^ (1 << keygen.SizeShift)
		return &tree.wrong, true
	default:
		return tree.Tree.Find(key)
	}
}

func (tree *testFaultyTreeStruct) Delete(key *int32) (ok bool) {
	if tree.stuck == testIndex(key) {
		return false
	}
	return tree.Tree.Delete(key)
}

func TestCycleAccounting(t *testing.T) {
	for _, method := range treemethod.Methods() {
		t.Run(method, func(t *testing.T) {
			var tree treemethod.Tree

			assert := assert.New(t)

			testCaptureTree(t, &tree, nil)

			harness := &testHarnessStruct{cycles: 3, tree: &tree}
			reporter := &testReporterStruct{}
			config := Config{Size: keygen.MinSize, Method: method, Verify: true}

			result, err := Run("tsearch.accounting", config, mwc.New(1), harness, reporter)
			require.NoError(t, err)

			assert.Equal(uint64(3), result.Cycles)
			assert.Equal(uint64(3), harness.counter)
			assert.Equal(uint64(3), harness.keepCalls, "asked once after each cycle")
			assert.Equal([]int{0, 0, 0}, harness.lenAtEachAsk, "tree empty between cycles")
			assert.Equal([]ProcState{StateRun, StateDeinit}, harness.states)
			assert.Equal(uint64(0), result.Failures)
			assert.Empty(result.Diagnostics)
			assert.Empty(reporter.messages)
			assert.Equal(0, tree.Len())
		})
	}
}

func TestSingleCycleWhenHarnessSaysStop(t *testing.T) {
	harness := &testHarnessStruct{cycles: 0}

	result, err := Run("tsearch.once", Config{Size: keygen.MinSize, Method: treemethod.DefaultMethod}, mwc.New(1), harness, &testReporterStruct{})
	require.NoError(t, err)

	// the continuation check follows the cycle, so at least one always runs
	assert.Equal(t, uint64(1), result.Cycles)
}

func TestDiagnostics(t *testing.T) {
	var tree treemethod.Tree

	assert := assert.New(t)

	testCaptureTree(t, &tree, func(inner treemethod.Tree) treemethod.Tree {
		return &testFaultyTreeStruct{Tree: inner, lostOnFind: 5, wrongOnFind: 7, stuck: 9}
	})

	harness := &testHarnessStruct{cycles: 2}
	reporter := &testReporterStruct{}
	config := Config{Size: keygen.MinSize, Method: treemethod.DefaultMethod, Verify: true}

	result, err := Run("tsearch.diagnostics", config, mwc.New(2), harness, reporter)
	require.NoError(t, err, "verification failures are never fatal")

	assert.Equal(uint64(2), result.Cycles)
	assert.Equal(uint64(8), result.Failures)
	require.Len(t, result.Diagnostics, 8)
	require.Len(t, reporter.messages, 8)

	assert.Equal(Diagnostic{Cycle: 0, Phase: PhaseLookup, Index: 5, Message: "element 5 could not be found"}, result.Diagnostics[0])
	assert.Equal(PhaseLookup, result.Diagnostics[1].Phase)
	assert.Equal(7, result.Diagnostics[1].Index)
	assert.Regexp(`^element 7 found \d+, expecting \d+$`, result.Diagnostics[1].Message)
	assert.Equal(Diagnostic{Cycle: 0, Phase: PhaseDrain, Index: 9, Message: "element 9 could not be found"}, result.Diagnostics[2])
	assert.Equal(Diagnostic{Cycle: 0, Phase: PhaseDrain, Index: keygen.MinSize, Message: "1 elements left in tree after drain"}, result.Diagnostics[3])
	assert.Equal(uint64(1), result.Diagnostics[4].Cycle)

	assert.Equal("tsearch.diagnostics: element 5 could not be found", reporter.messages[0])
	assert.Equal(0, tree.Len(), "leftovers are discarded")
}

func TestDiagnosticsNeedVerify(t *testing.T) {
	var tree treemethod.Tree

	testCaptureTree(t, &tree, func(inner treemethod.Tree) treemethod.Tree {
		return &testFaultyTreeStruct{Tree: inner, lostOnFind: 5, wrongOnFind: 7, stuck: 9}
	})

	reporter := &testReporterStruct{}
	result, err := Run("tsearch.noverify", Config{Size: keygen.MinSize, Method: treemethod.DefaultMethod}, mwc.New(2), &testHarnessStruct{cycles: 2}, reporter)
	require.NoError(t, err)

	assert.Equal(t, uint64(2), result.Cycles)
	assert.Equal(t, uint64(0), result.Failures)
	assert.Empty(t, reporter.messages)
}

func TestLookupCancellation(t *testing.T) {
	var tree treemethod.Tree

	assert := assert.New(t)

	testCaptureTree(t, &tree, func(inner treemethod.Tree) treemethod.Tree {
		return &testFaultyTreeStruct{Tree: inner, lostOnFind: 5, wrongOnFind: 7, stuck: -1}
	})

	harness := &testHarnessStruct{cycles: 1, skipLookups: true}
	result, err := Run("tsearch.cancel", Config{Size: keygen.MinSize, Method: treemethod.DefaultMethod, Verify: true}, mwc.New(3), harness, &testReporterStruct{})
	require.NoError(t, err)

	assert.Equal(uint64(1), result.Cycles)
	assert.Equal(uint64(0), result.Failures, "no lookups were made")
	assert.Equal(0, tree.Len(), "drain always completes")
}

func TestNodeAllocFailure(t *testing.T) {
	for _, method := range treemethod.Methods() {
		t.Run(method, func(t *testing.T) {
			var tree treemethod.Tree

			assert := assert.New(t)

			testCaptureTree(t, &tree, nil)

			harness := &testHarnessStruct{cycles: 5}
			config := Config{Size: keygen.MinSize, Method: method, MaxNodes: 100}

			result, err := Run("tsearch.nodealloc", config, mwc.New(4), harness, &testReporterStruct{})
			assert.True(blunder.Is(err, blunder.NodeAllocError), "%v", err)
			assert.Equal(uint64(0), result.Cycles)
			assert.Equal(uint64(0), harness.counter)
			assert.Equal([]ProcState{StateRun, StateDeinit}, harness.states)
			assert.Equal(0, tree.Len(), "partial population is cleaned up")
			assert.Equal("", bucketstats.SprintStats(bucketstats.StatFormatHumanReadable, "tsearch", "tsearch.nodealloc"))
		})
	}
}

func TestNodeAllocFailureLaterCycle(t *testing.T) {
	var tree treemethod.Tree

	assert := assert.New(t)

	testCaptureTree(t, &tree, nil)

	// the first cycle allocates MinSize nodes; the second fails part way
	require.NoError(t, halter.Arm(halter.HaltLabelStrings[halter.BstreeAllocNode], keygen.MinSize+10))
	defer halter.DisarmAll()

	harness := &testHarnessStruct{cycles: 5}
	result, err := Run("tsearch.later", Config{Size: keygen.MinSize, Method: treemethod.MethodTsearch}, mwc.New(5), harness, &testReporterStruct{})
	assert.True(blunder.Is(err, blunder.NodeAllocError))
	assert.Equal(uint64(1), result.Cycles)
	assert.Equal(uint64(1), harness.counter)
	assert.Equal(0, tree.Len())
}

func TestKeyBufferAllocFailure(t *testing.T) {
	assert := assert.New(t)

	require.NoError(t, halter.Arm(halter.HaltLabelStrings[halter.KeygenAllocKeys], 1))
	defer halter.DisarmAll()

	harness := &testHarnessStruct{cycles: 5}
	result, err := Run("tsearch.keyalloc", Config{Size: keygen.MinSize, Method: treemethod.DefaultMethod}, mwc.New(6), harness, &testReporterStruct{})
	assert.True(blunder.Is(err, blunder.KeyBufferAllocError))
	assert.Equal(uint64(0), result.Cycles)
	assert.Empty(harness.states, "the loop never started")
}

func TestRunRejectsBadConfig(t *testing.T) {
	assert := assert.New(t)

	_, err := Run("tsearch.bad", Config{Size: 10, Method: treemethod.DefaultMethod}, mwc.New(7), &testHarnessStruct{}, &testReporterStruct{})
	assert.True(blunder.Is(err, blunder.OutOfRangeError))

	_, err = Run("tsearch.bad", Config{Size: keygen.MinSize, Method: "splay"}, mwc.New(7), &testHarnessStruct{}, &testReporterStruct{})
	assert.True(blunder.Is(err, blunder.UnknownMethodError))
}

func TestParseConfMap(t *testing.T) {
	testCases := []struct {
		confStrings []string
		expected    Config
		errValue    blunder.StressError
	}{
		{[]string{}, Config{Size: keygen.DefaultSize, Method: "tsearch"}, blunder.SuccessError},
		{[]string{"TreeStress.Maximize=true"}, Config{Size: keygen.MaxSize, Method: "tsearch"}, blunder.SuccessError},
		{[]string{"TreeStress.Minimize=true"}, Config{Size: keygen.MinSize, Method: "tsearch"}, blunder.SuccessError},
		{[]string{"TreeStress.Maximize=true", "TreeStress.Minimize=true"}, Config{Size: keygen.MinSize, Method: "tsearch"}, blunder.SuccessError},
		{[]string{"TreeStress.Size=2048", "TreeStress.Maximize=true"}, Config{Size: 2048, Method: "tsearch"}, blunder.SuccessError},
		{[]string{"TreeStress.Size=4194304", "TreeStress.Method=btree", "TreeStress.Verify=true", "TreeStress.MaxNodes=5000"},
			Config{Size: keygen.MaxSize, Method: "btree", Verify: true, MaxNodes: 5000}, blunder.SuccessError},
		{[]string{"TreeStress.Size=1023"}, Config{}, blunder.OutOfRangeError},
		{[]string{"TreeStress.Size=4194305"}, Config{}, blunder.OutOfRangeError},
		{[]string{"TreeStress.Size=lots"}, Config{}, blunder.InvalidArgError},
		{[]string{"TreeStress.Method=splay"}, Config{}, blunder.UnknownMethodError},
		{[]string{"TreeStress.Verify=perhaps"}, Config{}, blunder.InvalidArgError},
		{[]string{"TreeStress.MaxNodes=-1"}, Config{}, blunder.OutOfRangeError},
	}

	for _, testCase := range testCases {
		confMap, err := conf.MakeConfMapFromStrings(testCase.confStrings)
		require.NoError(t, err)

		config, err := ParseConfMap(confMap, "TreeStress")
		if blunder.SuccessError == testCase.errValue {
			assert.NoError(t, err, "%v", testCase.confStrings)
			assert.Equal(t, testCase.expected, config, "%v", testCase.confStrings)
		} else {
			assert.True(t, blunder.Is(err, testCase.errValue), "%v: %v", testCase.confStrings, err)
		}
	}
}

func TestStateStrings(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("run", StateRun.String())
	assert.Equal("exit", StateExit.String())
	assert.Equal("unknown", ProcState(99).String())
	assert.Equal("drain", PhaseDrain.String())
}

func BenchmarkRun(b *testing.B) {
	harness := &testHarnessStruct{cycles: uint64(b.N)}
	result, err := Run("tsearch.bench", Config{Size: keygen.DefaultSize, Method: treemethod.DefaultMethod}, mwc.New(1), harness, &testReporterStruct{})
	if nil != err {
		b.Fatal(err)
	}
	b.ReportMetric(float64(result.Cycles)/b.Elapsed().Seconds(), "bogo-ops/s")
}
