// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package blunder provides error-handling wrappers
//
// These wrappers allow callers to attach an errno-style value (and a stack
// trace) to regular Go errors while still conforming to the Go error interface.
//
// This package is currently implemented on top of the ansel1/merry package:
//   https://github.com/ansel1/merry
//
// The stressor distinguishes two tiers of trouble. Resource exhaustion
// (OutOfMemoryError) is returned as an error and ends the run. Verification
// mismatches are never errors; they are narrative diagnostics handed to a
// reporter. Everything in this package serves the first tier plus the
// configuration and validation failures around it.
package blunder

import (
	"fmt"

	"github.com/ansel1/merry"
	"golang.org/x/sys/unix"

	"github.com/NVIDIA/treestress/logger"
)

// StressError values are stored under the "errno" key of a merry error.
//
// Where there is a clear mapping, the linux/POSIX errno (as provided by
// golang.org/x/sys/unix) is used. Stressor-specific conditions start at 1000.
type StressError int

const (
	NotFoundError       StressError = StressError(int(unix.ENOENT))    // No such element
	OutOfMemoryError    StressError = StressError(int(unix.ENOMEM))    // Out of memory
	InvalidArgError     StressError = StressError(int(unix.EINVAL))    // Invalid argument
	OutOfRangeError     StressError = StressError(int(unix.ERANGE))    // Value outside its permitted range
	NotImplementedError StressError = StressError(int(unix.ENOSYS))    // Function not implemented
	TimedOut            StressError = StressError(int(unix.ETIMEDOUT)) // Run exceeded its time budget
	Canceled            StressError = StressError(int(unix.ECANCELED)) // Run canceled before it started
)

// Errors that map to constants already defined above
const (
	KeyBufferAllocError StressError = OutOfMemoryError
	NodeAllocError      StressError = OutOfMemoryError
	UnknownMethodError  StressError = InvalidArgError
	UnknownLabelError   StressError = InvalidArgError
)

// SuccessError is the value of a nil error
const SuccessError StressError = 0

const ( // reset iota to 0
	// Errors that are specific to the stressor
	CorruptTreeError StressError = 1000 + iota
	VerifyFailedError
)

// Default errno values for success and failure
const successErrno = 0
const failureErrno = -1

// Value returns the int value for the specified StressError constant
func (errValue StressError) Value() int {
	return int(errValue)
}

func (errValue StressError) String() string {
	switch errValue {
	case SuccessError:
		return "SuccessError"
	case NotFoundError:
		return "NotFoundError"
	case OutOfMemoryError:
		return "OutOfMemoryError"
	case InvalidArgError:
		return "InvalidArgError"
	case OutOfRangeError:
		return "OutOfRangeError"
	case NotImplementedError:
		return "NotImplementedError"
	case TimedOut:
		return "TimedOut"
	case Canceled:
		return "Canceled"
	case CorruptTreeError:
		return "CorruptTreeError"
	case VerifyFailedError:
		return "VerifyFailedError"
	}
	return fmt.Sprintf("StressError(%d)", int(errValue))
}

// NewError creates a new merry/blunder.StressError-annotated error using the given
// format string and arguments.
func NewError(errValue StressError, format string, a ...interface{}) error {
	return merry.WrapSkipping(fmt.Errorf(format, a...), 1).WithValue("errno", int(errValue))
}

// AddError is used to add StressError detail to a Go error.
//
// NOTE: merry replaces any previously attached value; a replacement of one
//       real errno by another is logged to help catch unintentional ones.
func AddError(e error, errValue StressError) error {
	if e == nil {
		// The caller obviously intends this to be a non-nil error.
		return merry.New("regular error").WithValue("errno", int(errValue))
	}

	prevValue := Errno(e)
	if prevValue != successErrno && prevValue != failureErrno && prevValue != int(errValue) {
		logger.Warnf("replacing error value %v with value %v for error %v", prevValue, int(errValue), e)
	}

	return merry.WrapSkipping(e, 1).WithValue("errno", int(errValue))
}

// Errno extracts errno from the error, if it was previously wrapped.
// Otherwise a default value is returned.
func Errno(e error) int {
	if e == nil {
		return successErrno
	}

	var errno = failureErrno
	tmp := merry.Value(e, "errno")
	if tmp != nil {
		errno = tmp.(int)
	}

	return errno
}

// ErrorString returns the error string with the errno value (if any) appended
func ErrorString(e error) string {
	if e == nil {
		return ""
	}

	errPlusVal := e.Error()

	tmp := merry.Value(e, "errno")
	if tmp != nil {
		errPlusVal = fmt.Sprintf("%s. Error Value: %v", errPlusVal, StressError(tmp.(int)))
	}

	return errPlusVal
}

// Is checks if an error matches a particular StressError
//
// NOTE: Because the value of the underlying errno is used to do this check, one cannot
//       use this API to distinguish between StressErrors that share an errno value
//       (e.g. NodeAllocError and KeyBufferAllocError).
func Is(e error, theError StressError) bool {
	return Errno(e) == theError.Value()
}

// IsNot checks if an error is NOT a particular StressError
func IsNot(e error, theError StressError) bool {
	return Errno(e) != theError.Value()
}

// IsSuccess checks if an error is the success StressError
func IsSuccess(e error) bool {
	return Errno(e) == successErrno
}

// IsNotSuccess checks if an error is NOT the success StressError
func IsNotSuccess(e error) bool {
	return Errno(e) != successErrno
}

// Location returns the file and line number of the code that generated the error.
// Returns zero values if e has no stacktrace.
func Location(e error) (file string, line int) {
	file, line = merry.Location(e)
	return
}

// SourceLine returns the string representation of Location's result
func SourceLine(e error) string {
	return merry.SourceLine(e)
}

// Details wraps merry.Details, which returns all error details including stacktrace in a string.
func Details(e error) string {
	return merry.Details(e)
}

// Stacktrace wraps merry.Stacktrace, which returns error stacktrace (if set) in a string.
func Stacktrace(e error) string {
	return merry.Stacktrace(e)
}
