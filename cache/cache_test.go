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

package cache_test

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacobsa/diskfs/cache"
	"github.com/jacobsa/diskfs/device"
)

func fullSectorPayload(b byte) []byte {
	buf := make([]byte, device.SectorSize)
	for i := range buf {
		buf[i] = b
	}
	return buf
}

// A cold read misses, loads the sector from the device exactly once, and a
// subsequent read of the same sector hits without touching the device
// again (spec.md §8 scenario 1).
func TestReadMissThenHit(t *testing.T) {
	dev := device.NewCountingDevice(device.NewMemoryDevice())
	c := cache.New(4, nil)

	want := fullSectorPayload(0x42)
	require.NoError(t, dev.WriteSector(5, want))
	require.EqualValues(t, 1, dev.Writes())

	got := make([]byte, device.SectorSize)
	require.NoError(t, c.Read(dev, 5, got, device.SectorSize, 0))
	assert.Equal(t, want, got)
	assert.EqualValues(t, 1, dev.Reads(), "first Read should fault the sector in from the device")

	got2 := make([]byte, device.SectorSize)
	require.NoError(t, c.Read(dev, 5, got2, device.SectorSize, 0))
	assert.Equal(t, want, got2)
	assert.EqualValues(t, 1, dev.Reads(), "second Read of the same sector should hit in cache")
}

// A partial write that does not cover the whole sector preserves the
// untouched bytes (spec.md §4.1's "read before partial write" rule).
func TestPartialWritePreservesUntouchedBytes(t *testing.T) {
	dev := device.NewMemoryDevice()
	c := cache.New(4, nil)

	original := fullSectorPayload(0xAA)
	require.NoError(t, dev.WriteSector(1, original))

	patch := []byte{0x01, 0x02, 0x03, 0x04}
	require.NoError(t, c.Write(dev, 1, patch, len(patch), 10))

	got := make([]byte, device.SectorSize)
	require.NoError(t, c.Read(dev, 1, got, device.SectorSize, 0))

	want := append([]byte{}, original...)
	copy(want[10:], patch)
	assert.Equal(t, want, got)
}

// A full-sector write (offset 0, length == SectorSize) must not trigger a
// read-before-write, since every byte is about to be overwritten anyway.
func TestFullSectorWriteSkipsPreRead(t *testing.T) {
	dev := device.NewCountingDevice(device.NewMemoryDevice())
	c := cache.New(4, nil)

	payload := fullSectorPayload(0x7E)
	require.NoError(t, c.Write(dev, 3, payload, device.SectorSize, 0))
	assert.EqualValues(t, 0, dev.Reads(), "full-sector overwrite should not read the old contents")

	require.NoError(t, c.Flush(dev))
	assert.EqualValues(t, 1, dev.Writes())
}

// With capacity N=4, writing a fifth distinct sector forces an eviction;
// if the evicted slot was dirty, its contents are written back to the
// device before the slot is reused (spec.md §8 scenario 3).
func TestEvictionWritesBackDirtySlot(t *testing.T) {
	mem := device.NewMemoryDevice()
	c := cache.New(4, nil)

	for s := device.Sector(1); s <= 4; s++ {
		payload := fullSectorPayload(byte(s))
		require.NoError(t, c.Write(mem, s, payload, device.SectorSize, 0))
	}

	// Writing a fifth distinct sector must evict one of the first four.
	payload5 := fullSectorPayload(0x55)
	require.NoError(t, c.Write(mem, 5, payload5, device.SectorSize, 0))

	// All four reference bits were set, so the sweep reset them and took
	// slot 0, which held sector 1: its dirty frame is on disk before any
	// Flush.
	evicted := mem.BypassRead(1)
	assert.Equal(t, fullSectorPayload(1), evicted[:], "evicted sector 1 should have been written back when its slot was reused")

	require.NoError(t, c.Flush(mem))

	evictedFound := false
	for s := device.Sector(1); s <= 4; s++ {
		on := mem.BypassRead(s)
		if bytes.Equal(on[:], fullSectorPayload(byte(s))) {
			evictedFound = true
		}
	}
	assert.True(t, evictedFound, "at least one of the original four sectors should have reached disk, whether via eviction or the final Flush")

	var five [device.SectorSize]byte
	five = mem.BypassRead(5)
	assert.Equal(t, fullSectorPayload(0x55), five[:])
}

// Flush only writes back dirty slots belonging to the requested device,
// and leaves clean slots and other devices alone.
func TestFlushIsPerDeviceAndOnlyDirty(t *testing.T) {
	devA := device.NewMemoryDevice()
	devB := device.NewMemoryDevice()
	c := cache.New(4, nil)

	require.NoError(t, c.Write(devA, 1, fullSectorPayload(0x01), device.SectorSize, 0))
	require.NoError(t, c.Write(devB, 1, fullSectorPayload(0x02), device.SectorSize, 0))

	require.NoError(t, c.Flush(devA))

	assert.Equal(t, fullSectorPayload(0x01), sliceOf(devA.BypassRead(1)))
	assert.Equal(t, fullSectorPayload(0x00), sliceOf(devB.BypassRead(1)), "devB must not have been flushed")
}

func sliceOf(a [device.SectorSize]byte) []byte {
	return a[:]
}

// Concurrent Read/Write calls against disjoint sectors must not corrupt
// the cache's internal bookkeeping (spec.md §5: slots never share a lock,
// and the structural index is only ever touched under its own short
// critical section).
func TestConcurrentAccessDisjointSectors(t *testing.T) {
	mem := device.NewMemoryDevice()
	c := cache.New(8, nil)

	var wg sync.WaitGroup
	for s := device.Sector(1); s <= 32; s++ {
		wg.Add(1)
		go func(s device.Sector) {
			defer wg.Done()
			payload := fullSectorPayload(byte(s))
			require.NoError(t, c.Write(mem, s, payload, device.SectorSize, 0))
			got := make([]byte, device.SectorSize)
			require.NoError(t, c.Read(mem, s, got, device.SectorSize, 0))
			assert.Equal(t, payload, got)
		}(s)
	}
	wg.Wait()

	require.NoError(t, c.Flush(mem))
}

func TestReadWriteRejectOutOfRangeSpans(t *testing.T) {
	mem := device.NewMemoryDevice()
	c := cache.New(2, nil)

	buf := make([]byte, 8)
	assert.Error(t, c.Read(mem, 1, buf, device.SectorSize, 1))
	assert.Error(t, c.Write(mem, 1, buf, -1, 0))
}
