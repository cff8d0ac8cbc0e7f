// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/NVIDIA/treestress/conf"
)

func TestStatsAPI(t *testing.T) {
	assert := assert.New(t)

	err := globals.Up(conf.MakeConfMap())
	assert.NoError(err)

	assert.Equal(uint64(0), Get(&TsearchCycles))
	assert.Empty(Dump())

	IncrementOperations(&TsearchCycles)
	IncrementOperationsBy(&TsearchFailures, 3)
	IncrementOperationsBy(&TsearchFailures, 2)

	assert.Equal(uint64(1), Get(&TsearchCycles))
	assert.Equal(uint64(5), Get(&TsearchFailures))
	assert.Equal(map[string]uint64{"tsearch.cycles": 1, "tsearch.failures": 5}, Dump())

	err = globals.Down(conf.MakeConfMap())
	assert.NoError(err)
	assert.Equal(uint64(1), Get(&TsearchCycles), "Down() must not discard counters")

	Reset()
	assert.Empty(Dump())
}

func TestStatsConcurrentIncrements(t *testing.T) {
	const (
		goroutines = 16
		increments = 1000
	)

	Reset()

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < increments; j++ {
				IncrementOperations(&TsearchCycles)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(goroutines*increments), Get(&TsearchCycles))
}
