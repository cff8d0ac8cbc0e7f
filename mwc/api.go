// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package mwc provides a small, fast, seedable multiply-with-carry pseudo-random
// generator. Each stressor instance owns its own *MWC; it is not safe for
// concurrent use.
package mwc

import (
	"encoding/binary"
	"time"

	"github.com/creachadair/cityhash"
)

const (
	defaultSeedZ = 362436069
	defaultSeedW = 521288629
)

// MWC is a Marsaglia multiply-with-carry generator with two 16-bit lanes.
type MWC struct {
	z uint32
	w uint32

	// Uint16() and Uint8() hand out the halves (or quarters) of a single
	// Uint32() draw before drawing again
	saved16     uint32
	saved16Left bool
	saved8      uint32
	saved8Left  int
}

// New returns a generator seeded from seed. A seed of 0 yields the
// well-known default stream.
func New(seed uint64) (mwc *MWC) {
	mwc = &MWC{}
	mwc.Seed(seed)
	return
}

// Seed restarts the generator's stream.
func (mwc *MWC) Seed(seed uint64) {
	mwc.z = uint32(seed >> 32)
	mwc.w = uint32(seed)

	// Neither lane may be zero (or its fixed point) or the stream degenerates
	if 0 == mwc.z || 0x9068ffff == mwc.z {
		mwc.z = defaultSeedZ
	}
	if 0 == mwc.w || 0x464fffff == mwc.w {
		mwc.w = defaultSeedW
	}

	mwc.saved16Left = false
	mwc.saved8Left = 0
}

// Uint32 returns the next 32-bit value in the stream.
func (mwc *MWC) Uint32() uint32 {
	mwc.z = 36969*(mwc.z&65535) + (mwc.z >> 16)
	mwc.w = 18000*(mwc.w&65535) + (mwc.w >> 16)
	return (mwc.z << 16) + mwc.w
}

// Uint16 returns the next 16-bit value.
func (mwc *MWC) Uint16() uint16 {
	if mwc.saved16Left {
		mwc.saved16Left = false
		return uint16(mwc.saved16 >> 16)
	}
	mwc.saved16 = mwc.Uint32()
	mwc.saved16Left = true
	return uint16(mwc.saved16)
}

// Uint8 returns the next 8-bit value.
func (mwc *MWC) Uint8() uint8 {
	if 0 == mwc.saved8Left {
		mwc.saved8 = mwc.Uint32()
		mwc.saved8Left = 4
	}
	mwc.saved8Left--
	value := uint8(mwc.saved8)
	mwc.saved8 >>= 8
	return value
}

// Uint32n returns a value in [0, max). Uint32n(0) returns 0.
func (mwc *MWC) Uint32n(max uint32) uint32 {
	if 0 == max {
		return 0
	}
	return uint32((uint64(mwc.Uint32()) * uint64(max)) >> 32)
}

// SeedFor derives the seed for one named instance from a base seed so that
// instances of the same run draw independent streams.
//
// A base of 0 means the run should not be reproducible; the current time is
// mixed in instead.
func SeedFor(name string, instance uint32, base uint64) (seed uint64) {
	var buf []byte

	if 0 == base {
		base = uint64(time.Now().UnixNano())
	}

	buf = make([]byte, 0, len(name)+4)
	buf = append(buf, name...)
	buf = binary.LittleEndian.AppendUint32(buf, instance)

	seed = cityhash.Hash64WithSeed(buf, base)
	return
}
