// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package statslogger

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/treestress/conf"
	"github.com/NVIDIA/treestress/logger"
	"github.com/NVIDIA/treestress/stats"
	"github.com/NVIDIA/treestress/transitions"
)

func TestParseConfMap(t *testing.T) {
	assert := assert.New(t)

	testCases := []struct {
		confStrings []string
		expected    time.Duration
	}{
		{[]string{}, defaultStatsLogPeriod},
		{[]string{"StatsLogger.Period=0s"}, 0},
		{[]string{"StatsLogger.Period=3s"}, 3 * time.Second},
		{[]string{"StatsLogger.Period=10ms"}, defaultStatsLogPeriod},
		{[]string{"StatsLogger.Period=soon"}, defaultStatsLogPeriod},
	}

	for _, testCase := range testCases {
		confMap, err := conf.MakeConfMapFromStrings(testCase.confStrings)
		require.NoError(t, err)

		err = parseConfMap(confMap)
		assert.NoError(err)
		assert.Equal(testCase.expected, globals.statsLogPeriod, "%v", testCase.confStrings)
	}
}

func TestSimpleStats(t *testing.T) {
	var sp SimpleStats

	assert := assert.New(t)

	sp.Clear()
	assert.Equal(int64(0), sp.Mean())

	for _, sample := range []int64{7, 3, 11} {
		sp.Sample(sample)
	}
	assert.Equal(int64(3), sp.Min())
	assert.Equal(int64(11), sp.Max())
	assert.Equal(int64(7), sp.Mean())
	assert.Equal(int64(21), sp.Total())
	assert.Equal(int64(3), sp.Samples())
}

func TestFormatStatsMap(t *testing.T) {
	assert.Equal(t, "a=1 b=22 c=0", formatStatsMap(map[string]uint64{"c": 0, "a": 1, "b": 22}))
	assert.Equal(t, "", formatStatsMap(map[string]uint64{}))
}

func TestStatsLogger(t *testing.T) {
	var logTarget logger.LogTarget

	assert := assert.New(t)

	confMap, err := conf.MakeConfMapFromStrings([]string{
		"Logging.LogToConsole=false",
		"StatsLogger.Period=1s",
	})
	require.NoError(t, err)

	err = transitions.Up(confMap)
	require.NoError(t, err)

	logTarget.Init(50)
	logger.AddLogTarget(logTarget)

	require.True(t, globals.running)

	stats.IncrementOperationsBy(&stats.TsearchCycles, 42)

	time.Sleep(1500 * time.Millisecond)

	err = transitions.Down(confMap)
	require.NoError(t, err)
	assert.False(globals.running)

	logTarget.LogBuf.Lock()
	defer logTarget.LogBuf.Unlock()

	found := false
	for _, entry := range logTarget.LogBuf.LogEntries {
		if strings.Contains(entry, "Stats (total):") && strings.Contains(entry, "tsearch.cycles=42") {
			found = true
		}
	}
	assert.True(found, "expected a periodic stats line, got %v", logTarget.LogBuf.LogEntries)
}

func TestStatsLoggerDisabled(t *testing.T) {
	confMap, err := conf.MakeConfMapFromStrings([]string{
		"Logging.LogToConsole=false",
		"StatsLogger.Period=0",
	})
	require.NoError(t, err)

	err = transitions.Up(confMap)
	require.NoError(t, err)
	assert.False(t, globals.running)

	err = transitions.Down(confMap)
	require.NoError(t, err)
}
