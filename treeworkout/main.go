package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	"github.com/NVIDIA/treestress/blunder"
	"github.com/NVIDIA/treestress/conf"
	"github.com/NVIDIA/treestress/harness"
	"github.com/NVIDIA/treestress/logger"
	"github.com/NVIDIA/treestress/transitions"
	"github.com/NVIDIA/treestress/treemethod"
	"github.com/NVIDIA/treestress/utils"

	// Registered with transitions for their Up()/Down() side effects
	_ "github.com/NVIDIA/treestress/halter"
	_ "github.com/NVIDIA/treestress/statslogger"
)

const (
	exitOK          = 0
	exitUsage       = 1
	exitVerifyFail  = 2
	exitOutOfMemory = 3
)

func usage(file *os.File) {
	fmt.Fprintf(file, "Usage:\n")
	fmt.Fprintf(file, "    %v conf-file [section.option=value]*\n", os.Args[0])
	fmt.Fprintf(file, "  where:\n")
	fmt.Fprintf(file, "    conf-file               input to conf.MakeConfMapFromFile()\n")
	fmt.Fprintf(file, "    [section.option=value]* optional input to conf.UpdateFromStrings()\n")
	fmt.Fprintf(file, "\n")
	fmt.Fprintf(file, "Note: [TreeStress]Method selects one of %v\n", treemethod.Methods())
	fmt.Fprintf(file, "      SIGINT or SIGTERM ends the run after the current cycle\n")
	fmt.Fprintf(file, "      SIGHUP re-reads conf-file (logging, statslogger, and halter settings)\n")
}

func main() {
	os.Exit(workout())
}

func workout() (exitCode int) {
	var (
		cancel         context.CancelFunc
		config         harness.Config
		confMap        conf.ConfMap
		ctx            context.Context
		err            error
		report         harness.Report
		signalChan     chan os.Signal
		signalReceived os.Signal
		workoutDone    chan struct{}
	)

	// Parse arguments

	if 2 > len(os.Args) {
		usage(os.Stderr)
		exitCode = exitUsage
		return
	}

	confMap, err = loadConfMap(os.Args[1], os.Args[2:])
	if nil != err {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		exitCode = exitUsage
		return
	}

	config, err = harness.ParseConfMap(confMap)
	if nil != err {
		fmt.Fprintf(os.Stderr, "harness.ParseConfMap() failed: %v\n", err)
		exitCode = exitUsage
		return
	}

	// Note: signalChan is buffered so no signal arriving before we block on it is lost

	signalChan = make(chan os.Signal, 16)
	signal.Notify(signalChan, unix.SIGHUP, unix.SIGINT, unix.SIGTERM)
	defer signal.Stop(signalChan)

	// Start up needed packages

	err = transitions.Up(confMap)
	if nil != err {
		fmt.Fprintf(os.Stderr, "transitions.Up() failed: %v\n", err)
		exitCode = exitUsage
		return
	}
	defer func() {
		downErr := transitions.Down(confMap)
		if nil != downErr {
			fmt.Fprintf(os.Stderr, "transitions.Down() failed: %v\n", downErr)
			if exitOK == exitCode {
				exitCode = exitUsage
			}
		}
	}()

	logger.Infof("treeworkout is starting up (PID %d) with %d instance(s) of %s", os.Getpid(), config.Instances, config.Stressor.Method)

	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	workoutDone = make(chan struct{})

	go func() {
		report, err = harness.Run(ctx, config)
		close(workoutDone)
	}()

	// Await completion - reloading conf-file each SIGHUP - stopping early otherwise

	for waiting := true; waiting; {
		select {
		case <-workoutDone:
			waiting = false
		case signalReceived = <-signalChan:
			logger.Infof("Received signal: '%v'", signalReceived)
			if unix.SIGHUP != signalReceived {
				cancel()
				continue
			}
			newConfMap, reloadErr := loadConfMap(os.Args[1], os.Args[2:])
			if nil != reloadErr {
				logger.ErrorfWithError(reloadErr, "failed to reload config; keeping the current one")
				continue
			}
			reloadErr = transitions.Signaled(newConfMap)
			if nil != reloadErr {
				logger.ErrorfWithError(reloadErr, "transitions.Signaled() failed")
				continue
			}
			confMap = newConfMap
		}
	}

	printReport(report)

	switch {
	case blunder.Is(err, blunder.OutOfMemoryError):
		fmt.Fprintf(os.Stderr, "out of memory: %v\n", err)
		exitCode = exitOutOfMemory
	case nil != err:
		fmt.Fprintf(os.Stderr, "harness.Run() failed: %v\n", err)
		exitCode = exitUsage
	case 0 != report.Failures:
		exitCode = exitVerifyFail
	default:
		exitCode = exitOK
	}

	return
}

func loadConfMap(confFilePath string, confStrings []string) (confMap conf.ConfMap, err error) {
	confMap, err = conf.MakeConfMapFromFile(confFilePath)
	if nil != err {
		err = fmt.Errorf("conf.MakeConfMapFromFile(\"%v\") failed: %v", confFilePath, err)
		return
	}

	err = confMap.UpdateFromStrings(confStrings)
	if nil != err {
		err = fmt.Errorf("confMap.UpdateFromStrings(%#v) failed: %v", confStrings, err)
	}
	return
}

func printReport(report harness.Report) {
	fmt.Printf("bogo-ops:        %d\n", report.BogoOps)
	fmt.Printf("elapsed:         %s\n", report.Duration)
	fmt.Printf("bogo-ops/sec:    %.2f\n", utils.OpsPerSecond(report.BogoOps, report.Duration))
	fmt.Printf("failures:        %d\n", report.Failures)

	for _, instance := range report.Instances {
		fmt.Printf("  %-12s cycles %-10d failures %-8d seed 0x%016X", instance.Name, instance.Cycles, instance.Failures, instance.Seed)
		if nil != instance.Err {
			fmt.Printf(" error: %v", instance.Err)
		}
		fmt.Printf("\n")
	}
}
