// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package keygen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/treestress/blunder"
	"github.com/NVIDIA/treestress/halter"
	"github.com/NVIDIA/treestress/mwc"
)

type constantSource uint16

func (source constantSource) Uint16() uint16 {
	return uint16(source)
}

type countingSource struct {
	draws int
	mwc   *mwc.MWC
}

func (source *countingSource) Uint16() uint16 {
	source.draws++
	return source.mwc.Uint16()
}

func assertDistinct(t *testing.T, keys []int32) {
	seen := make(map[int32]int, len(keys))
	for i, key := range keys {
		if prev, ok := seen[key]; ok {
			t.Fatalf("keys[%d] == keys[%d] == %d", i, prev, key)
		}
		seen[key] = i
	}
}

func TestKey(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(int32(0), Key(0, 0))
	assert.Equal(int32(5), Key(5, 0xf000), "only the low 12 bits of a draw are used")
	assert.Equal(int32(1<<SizeShift)^3, Key(3, 1))
	assert.Equal(int32(-(1<<SizeShift)), Key(0, 0xfff), "the top draw bit lands in the sign bit")
}

func TestUniqueness(t *testing.T) {
	for _, source := range []Source16{constantSource(0), constantSource(0xffff), constantSource(0x0abc), mwc.New(1)} {
		keys, err := Make(MaxSize, source)
		require.NoError(t, err)
		require.Len(t, keys, MaxSize)
		assertDistinct(t, keys)
	}
}

func TestFillRegenerates(t *testing.T) {
	assert := assert.New(t)

	source := &countingSource{mwc: mwc.New(3)}

	keys, err := Make(DefaultSize, source)
	require.NoError(t, err)
	assert.Equal(DefaultSize, source.draws, "one draw per element")

	first := append([]int32(nil), keys...)
	err = Fill(keys, source)
	require.NoError(t, err)
	assert.Equal(2*DefaultSize, source.draws)
	assert.NotEqual(first, keys)
	assertDistinct(t, keys)

	for i := range keys {
		assert.Equal(uint32(i), uint32(keys[i])&(MaxSize-1), "low bits carry the index")
	}
}

func TestMakeErrors(t *testing.T) {
	assert := assert.New(t)

	_, err := Make(0, constantSource(0))
	assert.True(blunder.Is(err, blunder.OutOfRangeError))

	_, err = Make(MaxSize+1, constantSource(0))
	assert.True(blunder.Is(err, blunder.OutOfRangeError))

	err = Fill(make([]int32, MaxSize+1), constantSource(0))
	assert.True(blunder.Is(err, blunder.InvalidArgError))

	err = halter.Arm(halter.HaltLabelStrings[halter.KeygenAllocKeys], 2)
	require.NoError(t, err)

	keys, err := Make(MinSize, constantSource(0))
	assert.NoError(err)
	assert.Len(keys, MinSize)

	keys, err = Make(MinSize, constantSource(0))
	assert.True(blunder.Is(err, blunder.OutOfMemoryError))
	assert.Nil(keys)

	_, err = Make(MinSize, constantSource(0))
	assert.NoError(err, "trip point disarms itself")
}
