// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package statslogger periodically writes the stats and bucketstats counters
// of a running stressor to the log.
package statslogger

import (
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/NVIDIA/treestress/bucketstats"
	"github.com/NVIDIA/treestress/conf"
	"github.com/NVIDIA/treestress/logger"
	"github.com/NVIDIA/treestress/stats"
	"github.com/NVIDIA/treestress/transitions"
)

const (
	defaultStatsLogPeriod = 10 * time.Second
	minStatsLogPeriod     = time.Second
	sampleCyclesPeriod    = time.Second
)

type globalsStruct struct {
	sampleChan     <-chan time.Time // time to sample the bogo-op rate
	logChan        <-chan time.Time // time to log statistics
	stopChan       chan bool        // time to shutdown and go home
	doneChan       chan bool        // shutdown complete
	statsLogPeriod time.Duration    // time between statistics logging
	running        bool             // statsLogger() goroutine is active
	sampleTicker   *time.Ticker     // ticker for sampleChan (if any)
	logTicker      *time.Ticker     // ticker for logChan (if any)
}

var globals globalsStruct

func init() {
	transitions.Register("statslogger", &globals)
}

func parseConfMap(confMap conf.ConfMap) (err error) {
	if !confMap.HasOption("StatsLogger", "Period") {
		globals.statsLogPeriod = defaultStatsLogPeriod
		err = nil
		return
	}

	globals.statsLogPeriod, err = confMap.FetchOptionValueDuration("StatsLogger", "Period")
	if nil != err {
		logger.Warnf("config variable 'StatsLogger.Period' defaulting to '%v': %v", defaultStatsLogPeriod, err)
		globals.statsLogPeriod = defaultStatsLogPeriod
	}

	// statsLogPeriod must be >= 1 sec, except 0 means disabled
	if globals.statsLogPeriod < minStatsLogPeriod && globals.statsLogPeriod != 0 {
		logger.Warnf("config variable 'StatsLogger.Period' value is non-zero and less than %v; defaulting to '%v'",
			minStatsLogPeriod, defaultStatsLogPeriod)
		globals.statsLogPeriod = defaultStatsLogPeriod
	}

	err = nil
	return
}

func start() {
	if 0 == globals.statsLogPeriod {
		return
	}

	// sample the bogo-op rate once per second
	globals.sampleTicker = time.NewTicker(sampleCyclesPeriod)
	globals.sampleChan = globals.sampleTicker.C

	// record statistics in the log periodically
	globals.logTicker = time.NewTicker(globals.statsLogPeriod)
	globals.logChan = globals.logTicker.C

	globals.stopChan = make(chan bool)
	globals.doneChan = make(chan bool)
	globals.running = true

	go statsLogger()
}

func stop() {
	if !globals.running {
		return
	}

	globals.stopChan <- true
	_ = <-globals.doneChan

	globals.sampleTicker.Stop()
	globals.logTicker.Stop()
	globals.running = false
}

// Up initializes the package and must successfully return before any API
// functions are invoked
func (dummy *globalsStruct) Up(confMap conf.ConfMap) (err error) {
	err = parseConfMap(confMap)
	if nil != err {
		return
	}

	start()
	return
}

func (dummy *globalsStruct) SignaledStart(confMap conf.ConfMap) (err error) {
	stop()
	err = nil
	return
}

// SignaledFinish picks up a changed [StatsLogger]Period
func (dummy *globalsStruct) SignaledFinish(confMap conf.ConfMap) (err error) {
	oldLogPeriod := globals.statsLogPeriod

	err = parseConfMap(confMap)
	if nil != err {
		logger.ErrorfWithError(err, "cannot parse confMap")
		return
	}

	if globals.statsLogPeriod != oldLogPeriod {
		logger.Infof("statslogger log period changing from %v to %v", oldLogPeriod, globals.statsLogPeriod)
	}

	start()
	return
}

func (dummy *globalsStruct) Down(confMap conf.ConfMap) (err error) {
	stop()

	// err is already nil
	return
}

// the statsLogger samples the bogo-op rate every sampleChan tick and then logs
// a batch of statistics, including the bogo-op rate samples, every logChan tick
// ("StatsLogger.Period" in the conf file).
func statsLogger() {
	var (
		cyclesPerSecond SimpleStats
		lastCycles      uint64
		oldStatsMap     map[string]uint64
		newStatsMap     map[string]uint64
		memStats        runtime.MemStats
	)

	cyclesPerSecond.Clear()
	lastCycles = stats.Get(&stats.TsearchCycles)

	oldStatsMap = stats.Dump()

mainloop:
	for stopRequest := false; !stopRequest; {
		select {
		case <-globals.stopChan:
			// print final stats and then exit
			stopRequest = true

		case <-globals.sampleChan:
			cycles := stats.Get(&stats.TsearchCycles)
			cyclesPerSecond.Sample(int64(cycles - lastCycles))
			lastCycles = cycles
			continue mainloop

		case <-globals.logChan:
			// fall through to do the logging
		}

		newStatsMap = stats.Dump()

		// memstats "stops the world"
		runtime.ReadMemStats(&memStats)

		deltaStatsMap := make(map[string]uint64, len(newStatsMap))
		for key, newValue := range newStatsMap {
			deltaStatsMap[key] = newValue - oldStatsMap[key]
		}

		logStats(&cyclesPerSecond, &memStats, newStatsMap, deltaStatsMap)

		oldStatsMap = newStatsMap
		cyclesPerSecond.Clear()
	}

	globals.doneChan <- true
}

// Write interesting statistics to the log in a semi-human readable format
func logStats(cyclesPerSecond *SimpleStats, memStats *runtime.MemStats, totalStatsMap map[string]uint64, deltaStatsMap map[string]uint64) {
	if 0 != cyclesPerSecond.Samples() {
		logger.Infof("Bogo-ops/sec: min=%d mean=%d max=%d (%d samples)",
			cyclesPerSecond.Min(), cyclesPerSecond.Mean(), cyclesPerSecond.Max(), cyclesPerSecond.Samples())
	}

	logger.Infof("Memory in Kibyte: HeapInuse=%d HeapIdle=%d Sys=%d Cumulative TotalAlloc=%d  NumGC=%d",
		int64(memStats.HeapInuse)/1024, int64(memStats.HeapIdle)/1024,
		int64(memStats.Sys)/1024, int64(memStats.TotalAlloc)/1024, memStats.NumGC)

	logger.Infof("Stats (total): %s", formatStatsMap(totalStatsMap))
	logger.Infof("Stats (delta): %s", formatStatsMap(deltaStatsMap))

	for _, line := range strings.Split(bucketstats.SprintStats(bucketstats.StatFormatHumanReadable, "*", "*"), "\n") {
		if "" != line {
			logger.Infof("%s", line)
		}
	}
}

func formatStatsMap(statsMap map[string]uint64) string {
	var (
		builder strings.Builder
		keys    []string
	)

	keys = make([]string, 0, len(statsMap))
	for key := range statsMap {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for i, key := range keys {
		if 0 != i {
			builder.WriteByte(' ')
		}
		builder.WriteString(key)
		builder.WriteByte('=')
		builder.WriteString(strconv.FormatUint(statsMap[key], 10))
	}

	return builder.String()
}
