// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package mwc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeterministic(t *testing.T) {
	assert := assert.New(t)

	a := New(12345)
	b := New(12345)
	c := New(54321)

	differs := false
	for i := 0; i < 1000; i++ {
		va := a.Uint32()
		assert.Equal(va, b.Uint32())
		if va != c.Uint32() {
			differs = true
		}
	}
	assert.True(differs, "different seeds must produce different streams")
}

func TestZeroSeed(t *testing.T) {
	assert := assert.New(t)

	zero := New(0)
	assert.Equal(uint32(defaultSeedZ), zero.z)
	assert.Equal(uint32(defaultSeedW), zero.w)

	seen := make(map[uint32]bool)
	for i := 0; i < 100; i++ {
		seen[zero.Uint32()] = true
	}
	assert.Greater(len(seen), 90, "stream must not degenerate")
}

func TestNarrowDraws(t *testing.T) {
	assert := assert.New(t)

	wide := New(7)
	narrow := New(7)

	v32 := wide.Uint32()
	assert.Equal(uint16(v32), narrow.Uint16())
	assert.Equal(uint16(v32>>16), narrow.Uint16())

	v32 = wide.Uint32()
	for shift := 0; shift < 32; shift += 8 {
		assert.Equal(uint8(v32>>shift), narrow.Uint8())
	}

	narrow.Seed(7)
	wide.Seed(7)
	assert.Equal(wide.Uint32(), narrow.Uint32())
}

func TestUint32n(t *testing.T) {
	assert := assert.New(t)

	mwc := New(99)
	assert.Equal(uint32(0), mwc.Uint32n(0))
	for i := 0; i < 10000; i++ {
		assert.Less(mwc.Uint32n(17), uint32(17))
	}
}

func TestSeedFor(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(SeedFor("tsearch", 0, 1), SeedFor("tsearch", 0, 1))
	assert.NotEqual(SeedFor("tsearch", 0, 1), SeedFor("tsearch", 1, 1))
	assert.NotEqual(SeedFor("tsearch", 0, 1), SeedFor("tsearch", 0, 2))
	assert.NotEqual(SeedFor("tsearch", 0, 1), SeedFor("llrb", 0, 1))
}
