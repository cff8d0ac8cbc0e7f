// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testGetFuncPackageFromHere() (fn string, pkg string, gid uint64) {
	return GetFuncPackage(0)
}

func TestGetFuncPackage(t *testing.T) {
	assert := assert.New(t)

	fn, pkg, gid := testGetFuncPackageFromHere()
	assert.Equal("testGetFuncPackageFromHere", fn)
	assert.Equal("utils", pkg)
	assert.NotZero(gid)

	assert.Equal("utils.TestGetFuncPackage", GetFnName())
}

func TestStopwatch(t *testing.T) {
	assert := assert.New(t)

	sw := NewStopwatch()
	assert.True(sw.IsRunning)
	time.Sleep(2 * time.Millisecond)

	elapsed := sw.Stop()
	assert.False(sw.IsRunning)
	assert.True(elapsed >= 2*time.Millisecond)
	assert.Equal(elapsed, sw.Elapsed(), "a stopped Stopwatch must not advance")
	assert.Equal(elapsed, sw.Stop(), "stopping twice keeps the first reading")

	sw.Restart()
	assert.True(sw.IsRunning)
	assert.True(sw.Elapsed() < elapsed+time.Second)
	assert.NotEmpty(sw.ElapsedString())
}

func TestOpsPerSecond(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(float64(0), OpsPerSecond(100, 0))
	assert.Equal(float64(50), OpsPerSecond(100, 2*time.Second))
}
