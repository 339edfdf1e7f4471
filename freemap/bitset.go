// Copyright 2015 Google Inc. All Rights Reserved.
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

package freemap

import (
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bitset"

	"github.com/jacobsa/diskfs/device"
)

// BitsetAllocator is an Allocator backed by a bits-and-blooms/bitset.BitSet,
// one bit per addressable sector. Sector 0 is marked allocated at
// construction time so it is never handed out, per spec.md's reservation
// of the nil sector id.
type BitsetAllocator struct {
	mu       sync.Mutex
	bits     *bitset.BitSet // bit set means "in use"
	capacity uint
}

// NewBitsetAllocator returns an allocator managing sectors [0, capacity).
// Sector 0 is reserved up front.
func NewBitsetAllocator(capacity uint) *BitsetAllocator {
	registerMetrics()

	a := &BitsetAllocator{
		bits:     bitset.New(capacity),
		capacity: capacity,
	}
	a.bits.Set(0)
	return a
}

func (a *BitsetAllocator) Allocate(count int) (device.Sector, error) {
	if count <= 0 {
		return device.Nil, fmt.Errorf("freemap: Allocate: count must be positive, got %d", count)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	first := uint(0)
	found := 0
	for i := uint(1); i < a.capacity; i++ {
		if a.bits.Test(i) {
			found = 0
			continue
		}
		if found == 0 {
			first = i
		}
		found++
		if found == count {
			for j := first; j < first+uint(count); j++ {
				a.bits.Set(j)
			}
			sectorsAllocated.Add(float64(count))
			return device.Sector(first), nil
		}
	}

	allocationFailures.Inc()
	return device.Nil, fmt.Errorf("freemap: Allocate: no %d contiguous free sectors available", count)
}

func (a *BitsetAllocator) Release(first device.Sector, count int) {
	if count <= 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for j := uint(first); j < uint(first)+uint(count); j++ {
		if j == 0 {
			panic("freemap: Release: attempt to release reserved sector 0")
		}
		if !a.bits.Test(j) {
			panic(fmt.Sprintf("freemap: Release: sector %d was not allocated", j))
		}
		a.bits.Clear(j)
	}
	sectorsReleased.Add(float64(count))
}

// Free returns the number of currently-unallocated sectors, for tests and
// diagnostics (scenario 6, "the free-sector allocator reports every sector
// previously attributed to the inode as released").
func (a *BitsetAllocator) Free() uint {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.capacity - a.bits.Count()
}

// MarkAllocated reserves a specific sector without going through the
// linear-scan Allocate path, for callers reconstructing allocator state
// from an existing on-disk pointer tree (diskctl's sessions, or a future
// fsck) rather than allocating something new. Marking an already-reserved
// sector is a no-op.
func (a *BitsetAllocator) MarkAllocated(s device.Sector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bits.Set(uint(s))
}

// IsAllocated reports whether sector s is currently reserved.
func (a *BitsetAllocator) IsAllocated(s device.Sector) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bits.Test(uint(s))
}
