// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package bucketstats

import (
	"fmt"
	"math"
	"math/bits"
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"
)

const (
	log2RoundMaxBucket = 65
	log2RoundMinBucket = 10
)

var (
	pkgNameToGroupName map[string]map[string]interface{}
	statsNameMapLock   sync.Mutex
)

var (
	totalType           = reflect.TypeOf(Total{})
	averageType         = reflect.TypeOf(Average{})
	bucketLog2RoundType = reflect.TypeOf(BucketLog2Round{})
)

func isStatType(fieldAsType reflect.Type) bool {
	return (fieldAsType == totalType) || (fieldAsType == averageType) || (fieldAsType == bucketLog2RoundType)
}

func verifyStatsStruct(statsGroupName string, statsStruct interface{}) {
	if reflect.TypeOf(statsStruct).Kind() != reflect.Ptr ||
		reflect.ValueOf(statsStruct).Elem().Type().Kind() != reflect.Struct {
		panic(fmt.Sprintf("statsStruct for statistics group '%s' is (%s), should be (*struct)",
			statsGroupName, reflect.TypeOf(statsStruct)))
	}
}

// register a set of statistics, where the statistics are one or more fields in
// the passed structure.
func register(pkgName string, statsGroupName string, statsStruct interface{}) {
	if pkgName == "" && statsGroupName == "" {
		panic("statistics group must have non-empty pkgName or statsGroupName")
	}

	verifyStatsStruct(statsGroupName, statsStruct)

	structAsValue := reflect.ValueOf(statsStruct).Elem()
	structAsType := structAsValue.Type()

	// find all the statistics fields and init them;
	// assign them a name if they don't have one;
	// verify each name is only used once
	names := make(map[string]struct{})

	for i := 0; i < structAsType.NumField(); i++ {
		fieldName := structAsType.Field(i).Name
		fieldAsValue := structAsValue.Field(i)

		if !isStatType(structAsType.Field(i).Type) {
			continue
		}

		if !fieldAsValue.CanSet() {
			panic(fmt.Sprintf("statistics group '%s' field %s must be exported to be usable by bucketstats",
				statsGroupName, fieldName))
		}

		statNameValue := fieldAsValue.FieldByName("Name")
		if statNameValue.String() == "" {
			statNameValue.SetString(fieldName)
		} else {
			statNameValue.SetString(scrubName(statNameValue.String()))
		}
		if _, ok := names[statNameValue.String()]; ok {
			panic(fmt.Sprintf("stats '%s' field %s Name '%s' is already in use",
				statsGroupName, fieldName, statNameValue))
		}
		names[statNameValue.String()] = struct{}{}

		if v, ok := fieldAsValue.Addr().Interface().(*BucketLog2Round); ok {
			if v.NBucket == 0 || v.NBucket > log2RoundMaxBucket {
				v.NBucket = log2RoundMaxBucket
			} else if v.NBucket < log2RoundMinBucket {
				v.NBucket = log2RoundMinBucket
			}
		}
	}

	statsGroupName = scrubName(statsGroupName)
	pkgName = scrubName(pkgName)

	statsNameMapLock.Lock()
	defer statsNameMapLock.Unlock()

	if pkgNameToGroupName == nil {
		pkgNameToGroupName = make(map[string]map[string]interface{})
	}
	if pkgNameToGroupName[pkgName] == nil {
		pkgNameToGroupName[pkgName] = make(map[string]interface{})
	}

	if pkgNameToGroupName[pkgName][statsGroupName] != nil {
		panic(fmt.Sprintf("pkgName '%s' with statsGroupName '%s' is already registered",
			pkgName, statsGroupName))
	}
	pkgNameToGroupName[pkgName][statsGroupName] = statsStruct
}

func unRegister(pkgName string, statsGroupName string) {
	pkgName = scrubName(pkgName)
	statsGroupName = scrubName(statsGroupName)

	statsNameMapLock.Lock()
	defer statsNameMapLock.Unlock()

	// silently ignore a group that isn't registered
	if pkgNameToGroupName[pkgName] != nil {
		delete(pkgNameToGroupName[pkgName], statsGroupName)

		if len(pkgNameToGroupName[pkgName]) == 0 {
			delete(pkgNameToGroupName, pkgName)
		}
	}
}

func sortedKeys(m map[string]map[string]interface{}) (keys []string) {
	keys = make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return
}

// sprintStats returns the selected group(s) of statistics as a string. Groups
// not registered are silently skipped.
func sprintStats(stringFmt StatStringFormat, pkgName string, statsGroupName string) (statValues string) {
	statsNameMapLock.Lock()
	defer statsNameMapLock.Unlock()

	var pkgNames []string
	if pkgName == "*" {
		pkgNames = sortedKeys(pkgNameToGroupName)
	} else {
		pkgNames = []string{scrubName(pkgName)}
	}

	for _, pkg := range pkgNames {
		var groupNames []string
		if statsGroupName == "*" {
			groupNames = make([]string, 0, len(pkgNameToGroupName[pkg]))
			for group := range pkgNameToGroupName[pkg] {
				groupNames = append(groupNames, group)
			}
			sort.Strings(groupNames)
		} else {
			groupNames = []string{scrubName(statsGroupName)}
		}

		for _, group := range groupNames {
			statsStruct, ok := pkgNameToGroupName[pkg][group]
			if !ok {
				continue
			}
			statValues += sprintStatsStruct(stringFmt, pkg, group, statsStruct)
		}
	}
	return
}

func sprintStatsStruct(stringFmt StatStringFormat, pkgName string, statsGroupName string,
	statsStruct interface{}) (statValues string) {

	verifyStatsStruct(statsGroupName, statsStruct)

	structAsValue := reflect.ValueOf(statsStruct).Elem()
	structAsType := structAsValue.Type()

	for i := 0; i < structAsType.NumField(); i++ {
		if !isStatType(structAsType.Field(i).Type) {
			continue
		}
		statValues += structAsValue.Field(i).Addr().Interface().(Totaler).Sprint(stringFmt, pkgName, statsGroupName)
	}
	return
}

// statisticName constructs a fully qualified statistic name in the specified format.
func statisticName(stringFmt StatStringFormat, pkgName string, statsGroupName string, fieldName string) string {
	switch stringFmt {
	case StatFormatHumanReadable:
		switch {
		case pkgName == "":
			return statsGroupName + "." + fieldName
		case statsGroupName == "":
			return pkgName + "." + fieldName
		default:
			return pkgName + "." + statsGroupName + "." + fieldName
		}
	}

	return fmt.Sprintf("pkg: '%s' Stats Group '%s' field '%s': Unknown StatStringFormat: '%v'\n",
		pkgName, statsGroupName, fieldName, stringFmt)
}

func (this *Total) sprint(stringFmt StatStringFormat, pkgName string, statsGroupName string) string {
	statName := statisticName(stringFmt, pkgName, statsGroupName, this.Name)

	switch stringFmt {
	case StatFormatHumanReadable:
		return fmt.Sprintf("%s total:%d\n", statName, this.TotalGet())
	}

	return fmt.Sprintf("statName '%s': Unknown StatStringFormat: '%v'\n", statName, stringFmt)
}

func (this *Average) sprint(stringFmt StatStringFormat, pkgName string, statsGroupName string) string {
	statName := statisticName(stringFmt, pkgName, statsGroupName, this.Name)

	switch stringFmt {
	case StatFormatHumanReadable:
		return fmt.Sprintf("%s total:%d count:%d avg:%d\n",
			statName, this.TotalGet(), this.CountGet(), this.AverageGet())
	}

	return fmt.Sprintf("statName '%s': Unknown StatStringFormat: '%v'\n", statName, stringFmt)
}

// log2RoundIdx returns round(log2(value)) + 1, with 0 mapped to bucket 0.
//
// round(log2(v)) is floor(log2(v)) + 1 exactly when v >= 2^floor(log2(v)) * sqrt(2),
// i.e. when v*v >= 2^(2*floor(log2(v)) + 1); the squaring is done in 128 bits.
func log2RoundIdx(value uint64) uint {
	if 0 == value {
		return 0
	}

	floorLog2 := uint(bits.Len64(value)) - 1

	hi, lo := bits.Mul64(value, value)
	thresholdShift := 2*floorLog2 + 1
	var roundUp bool
	if thresholdShift >= 64 {
		roundUp = hi >= (uint64(1) << (thresholdShift - 64))
	} else {
		roundUp = (0 != hi) || (lo >= (uint64(1) << thresholdShift))
	}

	if roundUp {
		return floorLog2 + 2
	}
	return floorLog2 + 1
}

// log2RoundRange returns the smallest and largest values that map to bucket idx
func log2RoundRange(idx uint) (rangeLow uint64, rangeHigh uint64) {
	switch idx {
	case 0:
		return 0, 0
	case 1:
		return 1, 1
	}

	// bucket idx holds [ceil(2^(idx-1.5)), ceil(2^(idx-0.5)) - 1]
	rangeLow = uint64(math.Ceil(math.Pow(2, float64(idx)-1.5)))
	for (rangeLow > 1) && (log2RoundIdx(rangeLow-1) == idx) {
		rangeLow--
	}
	for log2RoundIdx(rangeLow) < idx {
		rangeLow++
	}

	if idx >= log2RoundMaxBucket-1 {
		rangeHigh = math.MaxUint64
		return
	}
	nextLow, _ := log2RoundRange(idx + 1)
	rangeHigh = nextLow - 1
	return
}

// bucketDistMake builds the canonical distribution for a bucketized statistic.
// The last bucket's range is stretched to cover every value folded into it.
func bucketDistMake(nBucket uint, statBuckets []uint32) []BucketInfo {
	bucketInfo := make([]BucketInfo, nBucket)

	for i := uint(0); i < nBucket; i++ {
		bucketInfo[i].Count = uint64(atomic.LoadUint32(&statBuckets[i]))
		bucketInfo[i].RangeLow, bucketInfo[i].RangeHigh = log2RoundRange(i)
		if 0 < i {
			bucketInfo[i].NominalVal = uint64(1) << (i - 1)
		}
	}

	bucketInfo[nBucket-1].RangeHigh = math.MaxUint64

	for i := range bucketInfo {
		low, high := bucketInfo[i].RangeLow, bucketInfo[i].RangeHigh
		bucketInfo[i].MeanVal = low/2 + high/2 + (low & high & 0x1)
	}

	return bucketInfo
}

// bucketName returns the "name" of a bucket: its nominal value below 1024, "2^x" above
func bucketName(bucket BucketInfo, idx int) string {
	if bucket.NominalVal < 1024 {
		return fmt.Sprintf("%d", bucket.NominalVal)
	}
	return fmt.Sprintf("2^%d", idx-1)
}

func bucketSprint(stringFmt StatStringFormat, pkgName string, statsGroupName string, fieldName string,
	total uint64, bucketInfo []BucketInfo) string {

	var (
		count    uint64
		lastIdx  int
		mean     uint64
		statName string
	)

	for idx, bucket := range bucketInfo {
		count += bucket.Count
		if 0 < bucket.Count {
			lastIdx = idx
		}
	}
	if 0 < count {
		mean = total / count
	}

	statName = statisticName(stringFmt, pkgName, statsGroupName, fieldName)

	switch stringFmt {
	case StatFormatHumanReadable:
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s total:%d count:%d avg:%d", statName, total, count, mean)
		if 0 < count {
			for idx := 0; idx <= lastIdx; idx++ {
				fmt.Fprintf(&sb, " %s:%d", bucketName(bucketInfo[idx], idx), bucketInfo[idx].Count)
			}
		}
		sb.WriteByte('\n')
		return sb.String()
	}

	return fmt.Sprintf("StatisticName '%s': Unknown StatStringFormat: '%v'\n", statName, stringFmt)
}

// scrubName replaces illegal characters in names with underbar (`_`)
//
// Names should include only printable characters that are not whitespace.
// Also disallow splat ('*') (wildcard for SprintStats()), sharp ('#') (used
// for comments in output) and colon (':') (delimiter in "key:value" output).
func scrubName(name string) string {
	replaceChar := func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return '_'
		case !unicode.IsPrint(r):
			return '_'
		case r == '*':
			return '_'
		case r == ':':
			return '_'
		case r == '#':
			return '_'
		}
		return r
	}

	return strings.Map(replaceChar, name)
}
