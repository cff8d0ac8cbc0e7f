// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package blunder

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestValues(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(int(unix.ENOMEM), OutOfMemoryError.Value())
	assert.Equal(int(unix.ENOENT), NotFoundError.Value())
	assert.Equal(int(unix.EINVAL), InvalidArgError.Value())
	assert.Equal(int(unix.ERANGE), OutOfRangeError.Value())
	assert.Equal(int(unix.ETIMEDOUT), TimedOut.Value())
	assert.Equal(1000, CorruptTreeError.Value())
	assert.Equal(1001, VerifyFailedError.Value())

	assert.Equal("OutOfMemoryError", NodeAllocError.String())
	assert.Equal("CorruptTreeError", CorruptTreeError.String())
	assert.Equal("StressError(4242)", StressError(4242).String())
}

func TestDefaultErrno(t *testing.T) {
	assert := assert.New(t)

	var err error

	assert.Equal(successErrno, Errno(err))
	assert.True(IsSuccess(err))
	assert.False(IsNotSuccess(err))
	assert.Equal("", ErrorString(err))

	err = fmt.Errorf("plain error")
	assert.Equal(failureErrno, Errno(err), "an error without a value should report failureErrno")
	assert.False(IsSuccess(err))
	assert.Equal("plain error", ErrorString(err))
}

func TestNewError(t *testing.T) {
	assert := assert.New(t)

	err := NewError(OutOfMemoryError, "node %d could not be allocated", 7)
	assert.NotNil(err)
	assert.Equal(int(unix.ENOMEM), Errno(err))
	assert.True(Is(err, OutOfMemoryError))
	assert.True(Is(err, NodeAllocError), "aliases share an errno")
	assert.True(IsNot(err, NotFoundError))
	assert.True(IsNotSuccess(err))
	assert.Equal("node 7 could not be allocated. Error Value: OutOfMemoryError", ErrorString(err))

	file, line := Location(err)
	assert.Contains(file, "api_test.go")
	assert.NotZero(line)
	assert.Contains(SourceLine(err), "api_test.go")
	assert.NotEmpty(Stacktrace(err))
	assert.Contains(Details(err), "node 7 could not be allocated")
}

func TestAddError(t *testing.T) {
	assert := assert.New(t)

	err := AddError(nil, CorruptTreeError)
	assert.True(Is(err, CorruptTreeError), "AddError(nil,) must still yield a non-nil error")

	err = AddError(fmt.Errorf("lookup failed"), NotFoundError)
	assert.True(Is(err, NotFoundError))
	assert.Equal("lookup failed", err.Error())

	err = AddError(err, InvalidArgError)
	assert.True(Is(err, InvalidArgError), "the later value replaces the earlier one")
	assert.True(IsNot(err, NotFoundError))
}
