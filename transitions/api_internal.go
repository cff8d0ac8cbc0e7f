// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package transitions

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/NVIDIA/treestress/conf"
	"github.com/NVIDIA/treestress/logger"
)

type loggerCallbacksInterfaceStruct struct {
}

var loggerCallbacksInterface loggerCallbacksInterfaceStruct

type registrationItemStruct struct {
	packageName string
	callbacks   Callbacks
	up          bool
}

type globalsStruct struct {
	sync.Mutex       //                                    Protects insertions during init() as well as the up flags
	registrationList *list.List
	registrationSet  map[string]*registrationItemStruct // Key: registrationItemStruct.packageName
}

var globals globalsStruct

func init() {
	globals.Lock()
	globals.registrationList = list.New()
	globals.registrationSet = make(map[string]*registrationItemStruct)
	globals.Unlock()

	Register("logger", &loggerCallbacksInterface)
}

func register(packageName string, callbacks Callbacks) {
	var (
		alreadyRegisted  bool
		registrationItem *registrationItemStruct
	)

	globals.Lock()
	_, alreadyRegisted = globals.registrationSet[packageName]
	if alreadyRegisted {
		globals.Unlock()
		logger.Fatalf("transitions.Register(%s,) called twice", packageName)
		return
	}
	registrationItem = &registrationItemStruct{packageName: packageName, callbacks: callbacks}
	_ = globals.registrationList.PushBack(registrationItem)
	globals.registrationSet[packageName] = registrationItem
	globals.Unlock()
}

func registeredPackages() (packageNames []string) {
	globals.Lock()
	packageNames = packageNamesLocked()
	globals.Unlock()
	return
}

func up(confMap conf.ConfMap) (err error) {
	var (
		registrationItem        *registrationItemStruct
		registrationListElement *list.Element
	)

	globals.Lock()
	defer globals.Unlock()

	defer func() {
		if nil == err {
			logger.Infof("transitions.Up() returning successfully")
		} else {
			// On the relatively good likelihood that at least logger.Up() worked...
			logger.Errorf("transitions.Up() returning with failure: %v", err)
		}
	}()

	// Issue Callbacks.Up() calls from Front() to Back() of globals.registrationList

	registrationListElement = globals.registrationList.Front()

	for nil != registrationListElement {
		registrationItem = registrationListElement.Value.(*registrationItemStruct)
		if !registrationItem.up {
			logger.Tracef("transitions.Up() calling %s.Up()", registrationItem.packageName)
			err = registrationItem.callbacks.Up(confMap)
			if nil != err {
				logger.Errorf("transitions.Up() call to %s.Up() failed: %v", registrationItem.packageName, err)
				err = fmt.Errorf("%s.Up() failed: %v", registrationItem.packageName, err)
				unwind(confMap, registrationListElement.Prev())
				return
			}
			registrationItem.up = true
		}
		registrationListElement = registrationListElement.Next()
	}

	logger.Infof("Transitions Package Registration List: %v", packageNamesLocked())

	// Issue Callbacks.SignaledFinish() calls from Front() to Back() of globals.registrationList

	registrationListElement = globals.registrationList.Front()

	for nil != registrationListElement {
		registrationItem = registrationListElement.Value.(*registrationItemStruct)
		logger.Tracef("transitions.Up() calling %s.SignaledFinish()", registrationItem.packageName)
		err = registrationItem.callbacks.SignaledFinish(confMap)
		if nil != err {
			logger.Errorf("transitions.Up() call to %s.SignaledFinish() failed: %v", registrationItem.packageName, err)
			err = fmt.Errorf("%s.SignaledFinish() failed: %v", registrationItem.packageName, err)
			unwind(confMap, globals.registrationList.Back())
			return
		}
		registrationListElement = registrationListElement.Next()
	}

	return
}

// unwind issues Down() from registrationListElement back to Front(), skipping
// any package not currently up. Failures are logged but do not stop the unwind.
func unwind(confMap conf.ConfMap, registrationListElement *list.Element) {
	for nil != registrationListElement {
		registrationItem := registrationListElement.Value.(*registrationItemStruct)
		if registrationItem.up {
			logger.Tracef("transitions.Up() unwinding %s.Down()", registrationItem.packageName)
			downErr := registrationItem.callbacks.Down(confMap)
			if nil != downErr {
				logger.Errorf("transitions.Up() unwinding call to %s.Down() failed: %v", registrationItem.packageName, downErr)
			}
			registrationItem.up = false
		}
		registrationListElement = registrationListElement.Prev()
	}
}

func packageNamesLocked() (packageNames []string) {
	packageNames = make([]string, 0, globals.registrationList.Len())

	for registrationListElement := globals.registrationList.Front(); nil != registrationListElement; registrationListElement = registrationListElement.Next() {
		packageNames = append(packageNames, registrationListElement.Value.(*registrationItemStruct).packageName)
	}

	return
}

func signaled(confMap conf.ConfMap) (err error) {
	var (
		registrationItem        *registrationItemStruct
		registrationListElement *list.Element
	)

	globals.Lock()
	defer globals.Unlock()

	logger.Infof("transitions.Signaled() called")
	defer func() {
		if nil != err {
			logger.Errorf("transitions.Signaled() returning with failure: %v", err)
		}
	}()

	// Issue Callbacks.SignaledStart() calls from Back() to Front() of globals.registrationList

	registrationListElement = globals.registrationList.Back()

	for nil != registrationListElement {
		registrationItem = registrationListElement.Value.(*registrationItemStruct)
		logger.Tracef("transitions.Signaled() calling %s.SignaledStart()", registrationItem.packageName)
		err = registrationItem.callbacks.SignaledStart(confMap)
		if nil != err {
			logger.Errorf("transitions.Signaled() call to %s.SignaledStart() failed: %v", registrationItem.packageName, err)
			err = fmt.Errorf("%s.SignaledStart() failed: %v", registrationItem.packageName, err)
			return
		}
		registrationListElement = registrationListElement.Prev()
	}

	// Issue Callbacks.SignaledFinish() calls from Front() to Back() of globals.registrationList

	registrationListElement = globals.registrationList.Front()

	for nil != registrationListElement {
		registrationItem = registrationListElement.Value.(*registrationItemStruct)
		logger.Tracef("transitions.Signaled() calling %s.SignaledFinish()", registrationItem.packageName)
		err = registrationItem.callbacks.SignaledFinish(confMap)
		if nil != err {
			logger.Errorf("transitions.Signaled() call to %s.SignaledFinish() failed: %v", registrationItem.packageName, err)
			err = fmt.Errorf("%s.SignaledFinish() failed: %v", registrationItem.packageName, err)
			return
		}
		registrationListElement = registrationListElement.Next()
	}

	return
}

func down(confMap conf.ConfMap) (err error) {
	var (
		registrationItem        *registrationItemStruct
		registrationListElement *list.Element
	)

	globals.Lock()
	defer globals.Unlock()

	logger.Infof("transitions.Down() called")
	defer func() {
		if nil != err {
			// On the relatively good likelihood that the failure occurred before calling logger.Down()...
			logger.Errorf("transitions.Down() returning with failure: %v", err)
		}
	}()

	// Issue Callbacks.SignaledStart() calls from Back() to Front() of globals.registrationList

	registrationListElement = globals.registrationList.Back()

	for nil != registrationListElement {
		registrationItem = registrationListElement.Value.(*registrationItemStruct)
		if registrationItem.up {
			logger.Tracef("transitions.Down() calling %s.SignaledStart()", registrationItem.packageName)
			err = registrationItem.callbacks.SignaledStart(confMap)
			if nil != err {
				logger.Errorf("transitions.Down() call to %s.SignaledStart() failed: %v", registrationItem.packageName, err)
				err = fmt.Errorf("%s.SignaledStart() failed: %v", registrationItem.packageName, err)
				return
			}
		}
		registrationListElement = registrationListElement.Prev()
	}

	// Issue Callbacks.Down() calls from Back() to Front() of globals.registrationList

	registrationListElement = globals.registrationList.Back()

	for nil != registrationListElement {
		registrationItem = registrationListElement.Value.(*registrationItemStruct)
		if registrationItem.up {
			logger.Tracef("transitions.Down() calling %s.Down()", registrationItem.packageName)
			err = registrationItem.callbacks.Down(confMap)
			if nil != err {
				logger.Errorf("transitions.Down() call to %s.Down() failed: %v", registrationItem.packageName, err)
				err = fmt.Errorf("%s.Down() failed: %v", registrationItem.packageName, err)
				return
			}
			registrationItem.up = false
		}
		registrationListElement = registrationListElement.Prev()
	}

	return
}

func (loggerCallbacksInterface *loggerCallbacksInterfaceStruct) Up(confMap conf.ConfMap) (err error) {
	return logger.Up(confMap)
}

func (loggerCallbacksInterface *loggerCallbacksInterfaceStruct) SignaledStart(confMap conf.ConfMap) (err error) {
	return nil
}

func (loggerCallbacksInterface *loggerCallbacksInterfaceStruct) SignaledFinish(confMap conf.ConfMap) (err error) {
	return nil
}

func (loggerCallbacksInterface *loggerCallbacksInterfaceStruct) Down(confMap conf.ConfMap) (err error) {
	return logger.Down(confMap)
}
