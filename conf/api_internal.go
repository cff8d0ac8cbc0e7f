// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package conf

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// .include nesting beyond this is assumed to be a cycle
const maxIncludeDepth = 16

// RegEx components used below:

const assignment = "([ \t]*[=:][ \t]*)"
const dot = "(\\.)"
const leftBracket = "(\\[)"
const rightBracket = "(\\])"
const sectionName = "([0-9A-Za-z_\\-/:\\.]+)"
const separator = "([ \t]+|([ \t]*,[ \t]*))"
const token = "(([0-9A-Za-z_\\*\\-/:\\.\\[\\]]+)\\$?)"
const whiteSpace = "([ \t]+)"

var (
	stringRE                           = regexp.MustCompile("\\A" + token + dot + token + assignment + "(" + token + "(" + separator + token + ")*)?\\z")
	sectionNameOptionNameSeparatorRE   = regexp.MustCompile(dot)
	sectionHeaderLineRE                = regexp.MustCompile("\\A" + leftBracket + token + rightBracket + "\\z")
	sectionNameRE                      = regexp.MustCompile(sectionName)
	optionLineRE                       = regexp.MustCompile("\\A" + token + assignment + "(" + token + "(" + separator + token + ")*)?\\z")
	optionNameOptionValuesSeparatorRE  = regexp.MustCompile(assignment)
	optionValueSeparatorRE             = regexp.MustCompile(separator)
	includeLineRE                      = regexp.MustCompile("\\A\\.include" + whiteSpace + token + "\\z")
	includeFilePathSeparatorRE         = regexp.MustCompile(whiteSpace)
)

func parseConfString(confString string) (sectionName string, optionName string, optionValues []string, err error) {
	confStringTrimmed := strings.Trim(confString, " \t")

	if 0 == len(confStringTrimmed) {
		err = fmt.Errorf("trimmed confString: \"%v\" was found to be empty", confString)
		return
	}

	if !stringRE.MatchString(confStringTrimmed) {
		err = fmt.Errorf("malformed confString: \"%v\"", confString)
		return
	}

	sectionNameOptionPayload := sectionNameOptionNameSeparatorRE.Split(confStringTrimmed, 2)

	sectionName = sectionNameOptionPayload[0]
	optionName, optionValues = splitOptionLine(sectionNameOptionPayload[1])

	err = nil
	return
}

// splitOptionLine handles "<option_name> = <value_1>, <value_2> <value_3>"
func splitOptionLine(optionLine string) (optionName string, optionValues []string) {
	optionNameOptionValues := optionNameOptionValuesSeparatorRE.Split(optionLine, 2)

	optionName = optionNameOptionValues[0]
	optionValues = optionValueSeparatorRE.Split(optionNameOptionValues[1], -1)

	if (1 == len(optionValues)) && ("" == optionValues[0]) {
		optionValues = []string{}
	}

	return
}

func (confMap ConfMap) set(sectionName string, optionName string, optionValues []string) {
	section, found := confMap[sectionName]
	if !found {
		section = make(ConfMapSection)
		confMap[sectionName] = section
	}

	section[optionName] = optionValues
}

func (confMap ConfMap) updateFromFile(confFilePath string, includeDepth int) (err error) {
	var (
		confFileBytes      []byte
		currentLine        string
		currentLineNumber  int
		currentSectionName string
		optionName         string
		optionValues       []string
		scanner            *bufio.Scanner
	)

	if maxIncludeDepth < includeDepth {
		err = fmt.Errorf("file %v exceeds .include depth of %v", confFilePath, maxIncludeDepth)
		return
	}

	if "-" == confFilePath {
		confFileBytes, err = io.ReadAll(os.Stdin)
	} else {
		confFileBytes, err = os.ReadFile(confFilePath)
	}
	if nil != err {
		return
	}

	if (0 < len(confFileBytes)) && ('\n' != confFileBytes[len(confFileBytes)-1]) {
		err = fmt.Errorf("file %v did not end in a '\\n' character", confFilePath)
		return
	}

	scanner = bufio.NewScanner(bytes.NewReader(confFileBytes))

	for scanner.Scan() {
		currentLineNumber++

		currentLine = strings.SplitN(scanner.Text(), ";", 2)[0]
		currentLine = strings.SplitN(currentLine, "#", 2)[0]
		currentLine = strings.Trim(currentLine, " \t\r")

		if 0 == len(currentLine) {
			continue
		}

		if includeLineRE.MatchString(currentLine) {
			nestedConfFilePath := includeFilePathSeparatorRE.Split(currentLine, 2)[1]

			if !filepath.IsAbs(nestedConfFilePath) && ("-" != confFilePath) {
				absConfFilePath, absErr := filepath.Abs(confFilePath)
				if nil != absErr {
					err = absErr
					return
				}
				nestedConfFilePath = filepath.Join(filepath.Dir(absConfFilePath), nestedConfFilePath)
			}

			err = confMap.updateFromFile(nestedConfFilePath, includeDepth+1)
			if nil != err {
				return
			}

			currentSectionName = ""
			continue
		}

		if sectionHeaderLineRE.MatchString(currentLine) {
			currentSectionName = sectionNameRE.FindString(currentLine)
			continue
		}

		if "" == currentSectionName {
			err = fmt.Errorf("file %v line %v: option outside of any Section", confFilePath, currentLineNumber)
			return
		}

		if !optionLineRE.MatchString(currentLine) {
			err = fmt.Errorf("file %v line %v: malformed line '%v'", confFilePath, currentLineNumber, currentLine)
			return
		}

		optionName, optionValues = splitOptionLine(currentLine)

		confMap.set(currentSectionName, optionName, optionValues)
	}

	err = scanner.Err()
	return
}

func (confMap ConfMap) fetchOptionValueUint(sectionName string, optionName string, bitSize int) (optionValue uint64, err error) {
	optionValueString, err := confMap.FetchOptionValueString(sectionName, optionName)
	if nil != err {
		return
	}

	optionValue, strconvErr := strconv.ParseUint(optionValueString, 0, bitSize)
	if nil != strconvErr {
		err = fmt.Errorf("[%v]%v strconv.ParseUint() error: %v", sectionName, optionName, strconvErr)
		return
	}

	err = nil
	return
}
