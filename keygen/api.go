// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package keygen fills the key buffer used by the tree stressor.
//
// Each key is built from 12 random high bits (taken from a 16-bit draw) placed
// above the low SizeShift bits, XOR'd with the key's index. Since the index is
// smaller than 1<<SizeShift it survives intact in the low bits, so the keys in
// a buffer of at most MaxSize entries are pairwise distinct whatever the random
// source returns.
package keygen

import (
	"github.com/NVIDIA/treestress/blunder"
	"github.com/NVIDIA/treestress/halter"
	"github.com/NVIDIA/treestress/logger"
)

const (
	SizeShift   = 22
	MinSize     = 1024
	MaxSize     = 1 << SizeShift
	DefaultSize = 64 * 1024

	highBitsMask = 0xfff
)

// Source16 supplies the random high bits of each key.
//
// *mwc.MWC satisfies Source16.
type Source16 interface {
	Uint16() uint16
}

// Key returns the key for index i given one 16-bit draw.
func Key(i int, draw uint16) int32 {
	return int32((uint32(draw&highBitsMask) << SizeShift) ^ uint32(i))
}

// Fill regenerates every element of keys, consuming one draw from source per
// element.
func Fill(keys []int32, source Source16) (err error) {
	if len(keys) > MaxSize {
		err = blunder.NewError(blunder.InvalidArgError, "keygen.Fill() given %d keys; at most %d may be distinct", len(keys), MaxSize)
		return
	}

	for i := range keys {
		keys[i] = Key(i, source.Uint16())
	}

	err = nil
	return
}

// Make allocates and fills a key buffer of n elements.
func Make(n int, source Source16) (keys []int32, err error) {
	if (n < 1) || (n > MaxSize) {
		err = blunder.NewError(blunder.OutOfRangeError, "keygen.Make() size %d not in [1,%d]", n, MaxSize)
		return
	}

	if halter.Trigger(halter.KeygenAllocKeys) {
		err = blunder.NewError(blunder.KeyBufferAllocError, "keygen.Make() cannot allocate %d keys, out of memory", n)
		logger.ErrorfWithError(err, "key buffer allocation failed")
		return
	}

	keys = make([]int32, n)

	err = Fill(keys, source)
	return
}
