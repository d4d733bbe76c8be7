// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bitmap provides a fixed-capacity bitmap used to track free slots
// and frames.
package bitmap

import (
	"fmt"
	"math/bits"
)

// Bitmap tracks a set of small integers in [0, Size()).
//
// The zero value is an empty bitmap with no capacity.
type Bitmap struct {
	// numOnes is the number of ones in the bitmap.
	numOnes uint32

	// size is the capacity requested by New.
	size uint32

	// bitBlock holds the bits, 64 entries per word.
	bitBlock []uint64
}

// New creates a new empty Bitmap able to hold [0, size).
func New(size uint32) Bitmap {
	return Bitmap{
		size:     size,
		bitBlock: make([]uint64, (size+63)/64),
	}
}

// Size returns the capacity of the bitmap.
func (b *Bitmap) Size() uint32 {
	return b.size
}

// Count returns the number of set bits.
func (b *Bitmap) Count() uint32 {
	return b.numOnes
}

// IsEmpty returns true if no bit is set.
func (b *Bitmap) IsEmpty() bool {
	return b.numOnes == 0
}

// IsFull returns true if every bit in [0, Size()) is set.
func (b *Bitmap) IsFull() bool {
	return b.numOnes == b.size
}

// Add sets bit i. It panics if i is out of range.
func (b *Bitmap) Add(i uint32) {
	b.checkRange(i)
	blockNum, mask := i/64, uint64(1)<<(i%64)
	if b.bitBlock[blockNum]&mask == 0 {
		b.bitBlock[blockNum] |= mask
		b.numOnes++
	}
}

// Remove clears bit i. It panics if i is out of range.
func (b *Bitmap) Remove(i uint32) {
	b.checkRange(i)
	blockNum, mask := i/64, uint64(1)<<(i%64)
	if b.bitBlock[blockNum]&mask != 0 {
		b.bitBlock[blockNum] &^= mask
		b.numOnes--
	}
}

// IsSet returns true if bit i is set.
func (b *Bitmap) IsSet(i uint32) bool {
	if i >= b.size {
		return false
	}
	return b.bitBlock[i/64]&(uint64(1)<<(i%64)) != 0
}

// FirstZero returns the first unset bit in [start, Size()). ok is false if
// there is none.
func (b *Bitmap) FirstZero(start uint32) (bit uint32, ok bool) {
	if start >= b.size {
		return 0, false
	}
	i, nbit := int(start/64), start%64
	w := b.bitBlock[i] | ((1 << nbit) - 1)
	for {
		if w != ^uint64(0) {
			r := uint32(bits.TrailingZeros64(^w)) + uint32(i)*64
			if r >= b.size {
				return 0, false
			}
			return r, true
		}
		i++
		if i == len(b.bitBlock) {
			return 0, false
		}
		w = b.bitBlock[i]
	}
}

// FirstOne returns the first set bit in [start, Size()). ok is false if
// there is none.
func (b *Bitmap) FirstOne(start uint32) (bit uint32, ok bool) {
	if start >= b.size {
		return 0, false
	}
	i, nbit := int(start/64), start%64
	w := b.bitBlock[i] &^ ((1 << nbit) - 1)
	for {
		if w != 0 {
			return uint32(bits.TrailingZeros64(w)) + uint32(i)*64, true
		}
		i++
		if i == len(b.bitBlock) {
			return 0, false
		}
		w = b.bitBlock[i]
	}
}

// ForEach calls fn for every set bit in [start, end), in ascending order,
// until fn returns false.
func (b *Bitmap) ForEach(start, end uint32, fn func(i uint32) bool) {
	if end > b.size {
		end = b.size
	}
	for i, ok := b.FirstOne(start); ok && i < end; i, ok = b.FirstOne(i + 1) {
		if !fn(i) {
			return
		}
	}
}

// Reset clears every bit.
func (b *Bitmap) Reset() {
	for i := range b.bitBlock {
		b.bitBlock[i] = 0
	}
	b.numOnes = 0
}

func (b *Bitmap) checkRange(i uint32) {
	if i >= b.size {
		panic(fmt.Sprintf("bitmap index %d out of range [0, %d)", i, b.size))
	}
}
