// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package halter

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/NVIDIA/treestress/conf"
	"github.com/NVIDIA/treestress/logger"
	"github.com/NVIDIA/treestress/transitions"
)

type globalsStruct struct {
	sync.Mutex
	armedCount            int32             // atomic copy of len(armedTriggers) for Trigger()'s fast path
	armedTriggers         map[uint32]uint32 // key: haltLabel; value: haltAfterCount (remaining)
	triggerNamesToNumbers map[string]uint32
	triggerNumbersToNames map[uint32]string
}

var globals globalsStruct

func init() {
	globals.armedTriggers = make(map[uint32]uint32)
	globals.triggerNamesToNumbers = make(map[string]uint32)
	globals.triggerNumbersToNames = make(map[uint32]string)
	for i, s := range HaltLabelStrings {
		globals.triggerNamesToNumbers[s] = uint32(i)
		globals.triggerNumbersToNames[uint32(i)] = s
	}

	transitions.Register("halter", &globals)
}

// Up arms each trigger listed in [Halter]Arm, formatted as <label>:<count>
func (dummy *globalsStruct) Up(confMap conf.ConfMap) (err error) {
	armList, fetchErr := confMap.FetchOptionValueStringSlice("Halter", "Arm")
	if nil != fetchErr {
		// [Halter]Arm is optional
		err = nil
		return
	}

	for _, armString := range armList {
		err = armFromString(armString)
		if nil != err {
			DisarmAll()
			return
		}
		logger.Infof("halter armed %s", armString)
	}

	err = nil
	return
}

func (dummy *globalsStruct) SignaledStart(confMap conf.ConfMap) (err error) {
	return nil
}

func (dummy *globalsStruct) SignaledFinish(confMap conf.ConfMap) (err error) {
	return nil
}

func (dummy *globalsStruct) Down(confMap conf.ConfMap) (err error) {
	DisarmAll()
	err = nil
	return
}

func armFromString(armString string) (err error) {
	labelAndCount := strings.SplitN(armString, ":", 2)
	if 2 != len(labelAndCount) {
		err = fmt.Errorf("[Halter]Arm value \"%s\" must be of the form <label>:<count>", armString)
		return
	}

	haltAfterCount, err := strconv.ParseUint(labelAndCount[1], 10, 32)
	if nil != err {
		err = fmt.Errorf("[Halter]Arm value \"%s\" count invalid: %v", armString, err)
		return
	}

	err = Arm(labelAndCount[0], uint32(haltAfterCount))
	return
}
