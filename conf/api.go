// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package conf loads the .conf files (and command-line overrides) that drive
// treeworkout and the packages it brings up.
//
// A ConfMap is accessed via confMap[sectionName][optionName][optionValueIndex]
// or via the FetchOptionValue*() methods below.
//
// A .conf file looks like:
//
//   [TreeStress]
//   Instances : 4
//   Method    = tsearch             # trailing comment
//   Verify    : true                ; also a trailing comment
//
//   .include ./logging.conf
//
// A command-line override looks like:
//
//   TreeStress.Size=1048576
//   Logging.TraceLevelLogging=tsearch, harness
package conf

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

type ConfMapOption []string
type ConfMapSection map[string]ConfMapOption
type ConfMap map[string]ConfMapSection

// MakeConfMap returns a newly created empty ConfMap
func MakeConfMap() (confMap ConfMap) {
	confMap = make(ConfMap)
	return
}

// MakeConfMapFromFile returns a newly created ConfMap loaded with the contents of the confFilePath-specified file
func MakeConfMapFromFile(confFilePath string) (confMap ConfMap, err error) {
	confMap = MakeConfMap()
	err = confMap.UpdateFromFile(confFilePath)
	return
}

// MakeConfMapFromStrings returns a newly created ConfMap loaded with the contents specified in confStrings
func MakeConfMapFromStrings(confStrings []string) (confMap ConfMap, err error) {
	confMap = MakeConfMap()
	err = confMap.UpdateFromStrings(confStrings)
	if nil != err {
		err = fmt.Errorf("Error building confMap from conf strings: %v", err)
	}
	return
}

// UpdateFromString modifies a pre-existing ConfMap based on an update
// specified in confString (e.g., from an extra command-line argument)
func (confMap ConfMap) UpdateFromString(confString string) (err error) {
	var (
		optionName   string
		optionValues []string
		sectionName  string
	)

	sectionName, optionName, optionValues, err = parseConfString(confString)
	if nil != err {
		return
	}

	confMap.set(sectionName, optionName, optionValues)

	err = nil
	return
}

// UpdateFromStrings modifies a pre-existing ConfMap based on an update
// specified in confStrings (e.g., from extra command-line arguments)
func (confMap ConfMap) UpdateFromStrings(confStrings []string) (err error) {
	for _, confString := range confStrings {
		err = confMap.UpdateFromString(confString)
		if nil != err {
			return
		}
	}
	err = nil
	return
}

// UpdateFromFile modifies a pre-existing ConfMap based on updates specified in confFilePath
//
// A confFilePath of "-" reads from os.Stdin.
func (confMap ConfMap) UpdateFromFile(confFilePath string) (err error) {
	err = confMap.updateFromFile(confFilePath, 0)
	return
}

// HasOption reports whether [sectionName]optionName is present (with or without values)
func (confMap ConfMap) HasOption(sectionName string, optionName string) bool {
	section, ok := confMap[sectionName]
	if !ok {
		return false
	}
	_, ok = section[optionName]
	return ok
}

// VerifyOptionValueIsEmpty returns an error if [sectionName]optionName's string value is not empty
func (confMap ConfMap) VerifyOptionValueIsEmpty(sectionName string, optionName string) (err error) {
	option, err := confMap.FetchOptionValueStringSlice(sectionName, optionName)
	if nil != err {
		return
	}

	if 0 != len(option) {
		err = fmt.Errorf("[%v]%v must have no value", sectionName, optionName)
		return
	}

	err = nil
	return
}

// FetchOptionValueStringSlice returns [sectionName]optionName's string values as a []string
func (confMap ConfMap) FetchOptionValueStringSlice(sectionName string, optionName string) (optionValue []string, err error) {
	optionValue = []string{}

	section, ok := confMap[sectionName]
	if !ok {
		err = fmt.Errorf("[%v] missing", sectionName)
		return
	}

	option, ok := section[optionName]
	if !ok {
		err = fmt.Errorf("[%v]%v missing", sectionName, optionName)
		return
	}

	optionValue = option

	err = nil
	return
}

// FetchOptionValueString returns [sectionName]optionName's single string value
func (confMap ConfMap) FetchOptionValueString(sectionName string, optionName string) (optionValue string, err error) {
	optionValueSlice, err := confMap.FetchOptionValueStringSlice(sectionName, optionName)
	if nil != err {
		return
	}

	if 1 != len(optionValueSlice) {
		err = fmt.Errorf("[%v]%v must be single-valued", sectionName, optionName)
		return
	}

	optionValue = optionValueSlice[0]

	err = nil
	return
}

// FetchOptionValueBool returns [sectionName]optionName's single string value converted to a bool
func (confMap ConfMap) FetchOptionValueBool(sectionName string, optionName string) (optionValue bool, err error) {
	optionValueString, err := confMap.FetchOptionValueString(sectionName, optionName)
	if nil != err {
		return
	}

	switch strings.ToLower(optionValueString) {
	case "yes", "on", "true":
		optionValue = true
	case "no", "off", "false":
		optionValue = false
	default:
		err = fmt.Errorf("Couldn't interpret %q as boolean (expected one of 'true'/'false'/'yes'/'no'/'on'/'off')", optionValueString)
		return
	}

	err = nil
	return
}

// FetchOptionValueUint32 returns [sectionName]optionName's single string value converted to a uint32
func (confMap ConfMap) FetchOptionValueUint32(sectionName string, optionName string) (optionValue uint32, err error) {
	optionValueUint64, err := confMap.fetchOptionValueUint(sectionName, optionName, 32)
	if nil != err {
		return
	}

	optionValue = uint32(optionValueUint64)
	return
}

// FetchOptionValueUint64 returns [sectionName]optionName's single string value converted to a uint64
func (confMap ConfMap) FetchOptionValueUint64(sectionName string, optionName string) (optionValue uint64, err error) {
	optionValue, err = confMap.fetchOptionValueUint(sectionName, optionName, 64)
	return
}

// FetchOptionValueInt returns [sectionName]optionName's single string value converted to an int
func (confMap ConfMap) FetchOptionValueInt(sectionName string, optionName string) (optionValue int, err error) {
	optionValueString, err := confMap.FetchOptionValueString(sectionName, optionName)
	if nil != err {
		return
	}

	optionValueInt64, strconvErr := strconv.ParseInt(optionValueString, 0, strconv.IntSize)
	if nil != strconvErr {
		err = fmt.Errorf("[%v]%v strconv.ParseInt() error: %v", sectionName, optionName, strconvErr)
		return
	}

	optionValue = int(optionValueInt64)

	err = nil
	return
}

// FetchOptionValueDuration returns [sectionName]optionName's single string value converted to a time.Duration
func (confMap ConfMap) FetchOptionValueDuration(sectionName string, optionName string) (optionValue time.Duration, err error) {
	optionValueString, err := confMap.FetchOptionValueString(sectionName, optionName)
	if nil != err {
		return
	}

	optionValue, err = time.ParseDuration(optionValueString)
	if nil != err {
		err = fmt.Errorf("[%v]%v time.ParseDuration() error: %v", sectionName, optionName, err)
		return
	}

	if 0 > optionValue {
		err = fmt.Errorf("[%v]%v is negative", sectionName, optionName)
		return
	}

	err = nil
	return
}

// Dump renders the ConfMap in .conf file form with sections and options sorted by name
func (confMap ConfMap) Dump() (confFileContents string) {
	var (
		optionNameMaxLen int
		optionNames      []string
		sectionNames     []string
		sb               strings.Builder
	)

	sectionNames = make([]string, 0, len(confMap))
	for sectionName := range confMap {
		sectionNames = append(sectionNames, sectionName)
	}
	sort.Strings(sectionNames)

	for sectionIndex, sectionName := range sectionNames {
		if 0 < sectionIndex {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "[%s]\n", sectionName)

		section := confMap[sectionName]
		optionNames = optionNames[:0]
		optionNameMaxLen = 0
		for optionName := range section {
			optionNames = append(optionNames, optionName)
			if len(optionName) > optionNameMaxLen {
				optionNameMaxLen = len(optionName)
			}
		}
		sort.Strings(optionNames)

		for _, optionName := range optionNames {
			fmt.Fprintf(&sb, "%-*s :", optionNameMaxLen, optionName)
			for optionIndex, optionValue := range section[optionName] {
				if 0 < optionIndex {
					sb.WriteByte(',')
				}
				sb.WriteByte(' ')
				sb.WriteString(optionValue)
			}
			sb.WriteByte('\n')
		}
	}

	confFileContents = sb.String()
	return
}
