// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package bucketstats

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// a structure containing all of the bucketstats statistics types and other
// fields; useful for testing
type allStatTypes struct {
	MyName   string // not a statistic
	bar      int    // also not a statistic
	Total1   Total
	Average1 Average
	Bucket1  BucketLog2Round
}

// verify that all of the bucketstats statistics types satisfy the appropriate
// interface (this is really a compile time test; it fails if they don't)
func TestBucketStatsInterfaces(t *testing.T) {
	var (
		_ Totaler  = &Total{}
		_ Averager = &Average{}
		_ Bucketer = &BucketLog2Round{}
	)
}

func TestLog2RoundIdx(t *testing.T) {
	assert := assert.New(t)

	expected := map[uint64]uint{
		0: 0, 1: 1, 2: 2, 3: 3, 5: 3, 6: 4, 11: 4, 12: 5, 22: 5, 23: 6,
		1024: 11, 1448: 11, 1449: 12,
		math.MaxUint64: 65,
	}
	for value, idx := range expected {
		assert.Equal(idx, log2RoundIdx(value), "log2RoundIdx(%d)", value)
	}

	// every bucket's range must be contiguous with the next and map back to the bucket
	for idx := uint(1); idx < log2RoundMaxBucket-1; idx++ {
		low, high := log2RoundRange(idx)
		nextLow, _ := log2RoundRange(idx + 1)
		assert.Equal(high+1, nextLow, "bucket %d", idx)
		assert.Equal(idx, log2RoundIdx(low), "bucket %d low", idx)
		assert.Equal(idx, log2RoundIdx(high), "bucket %d high", idx)
	}
}

func TestRegister(t *testing.T) {
	assert := assert.New(t)

	myStats := allStatTypes{
		Total1:  Total{Name: "my total"},
		Bucket1: BucketLog2Round{NBucket: 3},
	}
	Register("main", "myStats", &myStats)
	defer UnRegister("main", "myStats")

	assert.Equal("my_total", myStats.Total1.Name, "names are scrubbed")
	assert.Equal("Average1", myStats.Average1.Name, "unnamed stats take the field name")
	assert.Equal("Bucket1", myStats.Bucket1.Name)
	assert.Equal(uint(log2RoundMinBucket), myStats.Bucket1.NBucket, "NBucket is raised to the minimum")

	assert.Panics(func() { Register("main", "myStats", &myStats) }, "duplicate registration")
	assert.Panics(func() { Register("", "", &myStats) }, "empty names")
	assert.Panics(func() { Register("main", "notPtr", myStats) }, "not a pointer to a struct")

	var dupStats struct {
		A Total
		B Total
	}
	dupStats.A.Name = "B"
	assert.Panics(func() { Register("main", "dupStats", &dupStats) }, "duplicate statistic names")
}

func TestStats(t *testing.T) {
	assert := assert.New(t)

	var myStats allStatTypes
	Register("tsearch", "tsearch.0", &myStats)
	defer UnRegister("tsearch", "tsearch.0")

	myStats.Total1.Increment()
	myStats.Total1.Add(9)
	assert.Equal(uint64(10), myStats.Total1.TotalGet())

	assert.Equal(uint64(0), myStats.Average1.AverageGet(), "empty average must not divide by zero")
	myStats.Average1.Add(2)
	myStats.Average1.Add(4)
	assert.Equal(uint64(2), myStats.Average1.CountGet())
	assert.Equal(uint64(6), myStats.Average1.TotalGet())
	assert.Equal(uint64(3), myStats.Average1.AverageGet())

	for _, value := range []uint64{0, 1, 3, 4, 5, 1024} {
		myStats.Bucket1.Add(value)
	}
	assert.Equal(uint64(6), myStats.Bucket1.CountGet())
	assert.Equal(uint64(1037), myStats.Bucket1.TotalGet())
	assert.Equal(uint64(172), myStats.Bucket1.AverageGet())

	dist := myStats.Bucket1.DistGet()
	assert.Equal(log2RoundMaxBucket, len(dist))
	assert.Equal(uint64(1), dist[0].Count)
	assert.Equal(uint64(1), dist[1].Count)
	assert.Equal(uint64(3), dist[3].Count)
	assert.Equal(uint64(4), dist[3].NominalVal)
	assert.Equal(uint64(3), dist[3].RangeLow)
	assert.Equal(uint64(5), dist[3].RangeHigh)
	assert.Equal(uint64(1), dist[11].Count)
	assert.Equal(uint64(math.MaxUint64), dist[len(dist)-1].RangeHigh)

	out := SprintStats(StatFormatHumanReadable, "tsearch", "tsearch.0")
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	assert.Equal([]string{
		"tsearch.tsearch.0.Total1 total:10",
		"tsearch.tsearch.0.Average1 total:6 count:2 avg:3",
		"tsearch.tsearch.0.Bucket1 total:1037 count:6 avg:172 0:1 1:1 2:0 4:3 8:0 16:0 32:0 64:0 128:0 256:0 512:0 2^10:1",
	}, lines)

	assert.Equal(out, SprintStats(StatFormatHumanReadable, "*", "*"))
	assert.Equal("", SprintStats(StatFormatHumanReadable, "tsearch", "tsearch.99"), "unregistered groups are skipped")
}

func TestUnregisteredBucket(t *testing.T) {
	var bucket BucketLog2Round

	bucket.Add(math.MaxUint64)
	assert.Equal(t, uint64(1), bucket.CountGet())
	assert.Equal(t, uint64(1), bucket.DistGet()[log2RoundMaxBucket-1].Count)
}
