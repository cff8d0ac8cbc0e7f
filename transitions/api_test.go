// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package transitions

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/treestress/conf"
)

type testCallbacksInterfaceStruct struct {
	name string
}

var (
	testCallLog []string
	testFailUp  string

	testCallbacksA = &testCallbacksInterfaceStruct{name: "testA"}
	testCallbacksB = &testCallbacksInterfaceStruct{name: "testB"}
	testCallbacksC = &testCallbacksInterfaceStruct{name: "testC"}
)

func init() {
	Register(testCallbacksA.name, testCallbacksA)
	Register(testCallbacksB.name, testCallbacksB)
	Register(testCallbacksC.name, testCallbacksC)
}

func (testCallbacksInterface *testCallbacksInterfaceStruct) Up(confMap conf.ConfMap) (err error) {
	if testCallbacksInterface.name == testFailUp {
		err = fmt.Errorf("%s.Up() injected failure", testCallbacksInterface.name)
		return
	}
	testCallLog = append(testCallLog, testCallbacksInterface.name+".Up")
	return nil
}

func (testCallbacksInterface *testCallbacksInterfaceStruct) SignaledStart(confMap conf.ConfMap) (err error) {
	testCallLog = append(testCallLog, testCallbacksInterface.name+".SignaledStart")
	return nil
}

func (testCallbacksInterface *testCallbacksInterfaceStruct) SignaledFinish(confMap conf.ConfMap) (err error) {
	testCallLog = append(testCallLog, testCallbacksInterface.name+".SignaledFinish")
	return nil
}

func (testCallbacksInterface *testCallbacksInterfaceStruct) Down(confMap conf.ConfMap) (err error) {
	testCallLog = append(testCallLog, testCallbacksInterface.name+".Down")
	return nil
}

func testConfMap(t *testing.T) conf.ConfMap {
	confMap, err := conf.MakeConfMapFromStrings([]string{
		"Logging.LogFilePath=/dev/null",
		"Logging.LogToConsole=false",
	})
	require.NoError(t, err)
	return confMap
}

func TestRegistrationOrder(t *testing.T) {
	assert.Equal(t, []string{"logger", "testA", "testB", "testC"}, RegisteredPackages())
}

func TestUpSignaledDown(t *testing.T) {
	assert := assert.New(t)

	confMap := testConfMap(t)

	testCallLog = nil
	testFailUp = ""

	err := Up(confMap)
	require.NoError(t, err)
	assert.Equal([]string{
		"testA.Up", "testB.Up", "testC.Up",
		"testA.SignaledFinish", "testB.SignaledFinish", "testC.SignaledFinish",
	}, testCallLog)

	testCallLog = nil
	err = Signaled(confMap)
	assert.NoError(err)
	assert.Equal([]string{
		"testC.SignaledStart", "testB.SignaledStart", "testA.SignaledStart",
		"testA.SignaledFinish", "testB.SignaledFinish", "testC.SignaledFinish",
	}, testCallLog)

	testCallLog = nil
	err = Down(confMap)
	assert.NoError(err)
	assert.Equal([]string{
		"testC.SignaledStart", "testB.SignaledStart", "testA.SignaledStart",
		"testC.Down", "testB.Down", "testA.Down",
	}, testCallLog)
}

func TestUpUnwindsOnFailure(t *testing.T) {
	assert := assert.New(t)

	confMap := testConfMap(t)

	testCallLog = nil
	testFailUp = "testC"
	defer func() { testFailUp = "" }()

	err := Up(confMap)
	assert.Error(err)
	assert.Contains(err.Error(), "testC.Up() failed")
	assert.Equal([]string{"testA.Up", "testB.Up", "testB.Down", "testA.Down"}, testCallLog)

	// Nothing is left up, so Down() has nothing to call
	testCallLog = nil
	err = Down(confMap)
	assert.NoError(err)
	assert.Empty(testCallLog)
}
