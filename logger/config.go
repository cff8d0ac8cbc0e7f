// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/NVIDIA/treestress/conf"
)

var logFile *os.File = nil

// multiWriter fans each log entry out to every writer
type multiWriter struct {
	sync.Mutex
	writers []io.Writer
}

var globalMultiWriter = &multiWriter{}

func (mw *multiWriter) addWriter(writer io.Writer) {
	mw.Lock()
	mw.writers = append(mw.writers, writer)
	mw.Unlock()
}

func (mw *multiWriter) Write(p []byte) (n int, err error) {
	mw.Lock()
	defer mw.Unlock()

	for _, writer := range mw.writers {
		n, err = writer.Write(p)
		if nil != err {
			return
		}
	}

	n = len(p)
	err = nil
	return
}

func (mw *multiWriter) clear() {
	mw.Lock()
	mw.writers = nil
	mw.Unlock()
}

func addLogTarget(writer io.Writer) {
	globalMultiWriter.addWriter(writer)
}

func (target LogTarget) write(p []byte) (n int, err error) {
	buf := target.LogBuf

	buf.Lock()
	defer buf.Unlock()

	buf.TotalEntries++
	if 0 < len(buf.LogEntries) {
		copy(buf.LogEntries[1:], buf.LogEntries[:len(buf.LogEntries)-1])
		buf.LogEntries[0] = strings.TrimRight(string(p), "\n")
	}

	return len(p), nil
}

// Up configures logrus from the [Logging] section of confMap
//
// Logging.LogFilePath       - append log entries to this file (default: none)
// Logging.LogToConsole      - also (or, lacking a LogFilePath, only) log to os.Stderr
// Logging.TraceLevelLogging - packages whose Tracef() calls are emitted, or "none"
// Logging.DebugLevelLogging - packages whose DebugfID() calls are emitted, or "none"
func Up(confMap conf.ConfMap) (err error) {
	log.SetFormatter(&log.TextFormatter{DisableColors: true})

	globalMultiWriter.clear()

	logFilePath, _ := confMap.FetchOptionValueString("Logging", "LogFilePath")
	if "" != logFilePath {
		logFile, err = os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if nil != err {
			log.Errorf("couldn't open log file: %v", err)
			return
		}
		globalMultiWriter.addWriter(logFile)
	}

	logToConsole, fetchErr := confMap.FetchOptionValueBool("Logging", "LogToConsole")
	if nil != fetchErr {
		// Without a log file, the console remains the default destination
		logToConsole = ("" == logFilePath)
	}
	if logToConsole {
		globalMultiWriter.addWriter(os.Stderr)
	}

	log.SetOutput(globalMultiWriter)

	// We always enable max logging in logrus and decide in this package whether to log
	log.SetLevel(log.DebugLevel)

	resetLoggingLevels()

	traceConfSlice, _ := confMap.FetchOptionValueStringSlice("Logging", "TraceLevelLogging")
	setTraceLoggingLevel(traceConfSlice)

	debugConfSlice, _ := confMap.FetchOptionValueStringSlice("Logging", "DebugLevelLogging")
	setDebugLoggingLevel(debugConfSlice)

	err = nil
	return
}

// Down closes the log file (if any) and returns logrus to its default of os.Stderr
func Down(confMap conf.ConfMap) (err error) {
	log.SetOutput(os.Stderr)
	globalMultiWriter.clear()

	if nil != logFile {
		err = logFile.Close()
		logFile = nil
	}

	resetLoggingLevels()

	return
}
