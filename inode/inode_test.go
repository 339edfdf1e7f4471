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

package inode_test

import (
	"sync"
	"testing"

	"github.com/kylelemons/godebug/diff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacobsa/diskfs/cache"
	"github.com/jacobsa/diskfs/device"
	"github.com/jacobsa/diskfs/freemap"
	"github.com/jacobsa/diskfs/inode"
)

type fixture struct {
	dev *device.MemoryDevice
	fm  *freemap.BitsetAllocator
	c   *cache.Cache
	reg *inode.Registry
}

// setup returns a fresh registry over a fresh memory device, with sector 0
// reserved by the allocator (the free-sector convention used throughout
// this module).
func setup(t *testing.T, capacity uint) *fixture {
	t.Helper()
	f := &fixture{
		dev: device.NewMemoryDevice(),
		fm:  freemap.NewBitsetAllocator(capacity),
		c:   cache.New(16, nil),
	}
	f.reg = inode.NewRegistry(f.c, f.fm)
	return f
}

func (f *fixture) createOpen(t *testing.T, length int64) (device.Sector, *inode.Handle) {
	t.Helper()
	sector, err := f.fm.Allocate(1)
	require.NoError(t, err)

	ok, err := f.reg.Create(f.dev, sector, length)
	require.NoError(t, err)
	require.True(t, ok)

	return sector, f.reg.Open(f.dev, sector)
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// P4: a read immediately following a write on the same handle returns
// exactly what was written.
func TestReadAfterWrite(t *testing.T) {
	f := setup(t, 256)
	_, h := f.createOpen(t, 0)

	pattern := []byte("hello, extensible inode")
	n, err := h.WriteAt(pattern, 100)
	require.NoError(t, err)
	assert.Equal(t, len(pattern), n)

	got := make([]byte, len(pattern))
	n, err = h.ReadAt(got, 100)
	require.NoError(t, err)
	assert.Equal(t, len(pattern), n)
	assert.Equal(t, pattern, got)
}

// P5: length never decreases across a sequence of writes.
func TestLengthMonotonic(t *testing.T) {
	f := setup(t, 1024)
	_, h := f.createOpen(t, 0)

	prev := int64(0)
	for _, off := range []int64{0, 50, 10, 1000, 999, 2000} {
		_, err := h.WriteAt([]byte{1, 2, 3}, off)
		require.NoError(t, err)

		length, err := h.Length()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, length, prev)
		prev = length
	}
}

// Scenario 2: a write that starts at exactly the direct/singly-indirect
// boundary forces first use of the indirect region, and reads back
// byte-for-byte.
func TestWriteExtendAcrossIndirectBoundary(t *testing.T) {
	f := setup(t, 1024)
	_, h := f.createOpen(t, 0)

	const boundaryOffset = 124 * device.SectorSize // 63744
	pattern := make([]byte, 4096)
	for i := range pattern {
		pattern[i] = byte(i % 251)
	}

	n, err := h.WriteAt(pattern, boundaryOffset)
	require.NoError(t, err)
	require.Equal(t, len(pattern), n)

	length, err := h.Length()
	require.NoError(t, err)
	assert.EqualValues(t, boundaryOffset+len(pattern), length)
	assert.EqualValues(t, 67840, length)

	require.NoError(t, f.c.Flush(f.dev))

	got := make([]byte, len(pattern))
	_, err = h.ReadAt(got, boundaryOffset)
	require.NoError(t, err)
	if !assert.Equal(t, pattern, got) {
		t.Log(diff.Diff(string(pattern), string(got)))
	}
}

// Scenario 5: the first byte of the doubly-indirect region round-trips,
// and the pointer chain actually goes through two indirect sectors.
func TestDoublyIndirectGrowth(t *testing.T) {
	f := setup(t, 1024)
	sector, h := f.createOpen(t, 0)

	const doublyIndirectOffset = 252 * device.SectorSize // 129024
	_, err := h.WriteAt([]byte{0x99}, doublyIndirectOffset)
	require.NoError(t, err)

	got := make([]byte, 1)
	_, err = h.ReadAt(got, doublyIndirectOffset)
	require.NoError(t, err)
	assert.Equal(t, byte(0x99), got[0])

	require.NoError(t, f.c.Flush(f.dev))

	recordBuf := f.dev.BypassRead(sector)
	doublyIndirectSector := device.Sector(le32(recordBuf[500:504]))
	require.NotEqual(t, device.Nil, doublyIndirectSector)

	outer := f.dev.BypassRead(doublyIndirectSector)
	innerSector := device.Sector(le32(outer[0:4]))
	require.NotEqual(t, device.Nil, innerSector)

	inner := f.dev.BypassRead(innerSector)
	dataSector := device.Sector(le32(inner[0:4]))
	require.NotEqual(t, device.Nil, dataSector)

	data := f.dev.BypassRead(dataSector)
	assert.Equal(t, byte(0x99), data[0])
}

// Scenario 4: two threads hammering single-byte writes at strided offsets
// into the same 512-byte inode never produce a torn byte — every byte on
// disk, after flush, is a value one of the two threads wrote, or the zero
// fill of a byte neither reached.
func TestConcurrentWritersSameSector(t *testing.T) {
	f := setup(t, 64)
	sector, h := f.createOpen(t, device.SectorSize)

	const iterations = 2000
	const valueA = byte(0xAA)
	const valueB = byte(0xBB)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			offset := int64(i % device.SectorSize)
			_, err := h.WriteAt([]byte{valueA}, offset)
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			offset := int64((i*7 + 3) % device.SectorSize)
			_, err := h.WriteAt([]byte{valueB}, offset)
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	require.NoError(t, f.c.Flush(f.dev))

	rec := f.dev.BypassRead(sector)
	dataSector := device.Sector(le32(rec[0:4]))

	onDisk := f.dev.BypassRead(dataSector)
	for _, b := range onDisk {
		assert.True(t, b == valueA || b == valueB || b == 0, "torn or unexpected byte: %#x", b)
	}
}

// Scenario 6: deferred delete. remove() while still open does not release
// anything; the sectors are only released back to the allocator once the
// last (re)opener closes.
func TestDeferredDeleteReleasesOnLastClose(t *testing.T) {
	f := setup(t, 256)
	sector, h := f.createOpen(t, 4096)

	freeBefore := f.fm.Free()

	h2 := f.reg.Reopen(h)
	h.Remove()

	assert.Equal(t, freeBefore, f.fm.Free(), "remove() alone must not release sectors while still open")

	require.NoError(t, f.reg.Close(h))
	assert.Equal(t, freeBefore, f.fm.Free(), "sectors must stay allocated while a reopener still holds the inode")

	require.NoError(t, f.reg.Close(h2))
	assert.False(t, f.fm.IsAllocated(sector), "inode's own sector must be released after the last close")
	assert.Greater(t, f.fm.Free(), freeBefore, "data/indirect sectors must be released after the last close")
}

// Writes beyond FSLimit are rejected outright.
func TestWriteBeyondLimitFails(t *testing.T) {
	f := setup(t, 16)
	_, h := f.createOpen(t, 0)

	_, err := h.WriteAt([]byte{1}, inode.FSLimit+1)
	assert.ErrorIs(t, err, inode.ErrTooLarge)
}

// deny_write_count > 0 forces WriteAt to report zero bytes written
// without side effects.
func TestDenyWriteBlocksWrites(t *testing.T) {
	f := setup(t, 16)
	_, h := f.createOpen(t, 512)

	h.DenyWrite()
	n, err := h.WriteAt([]byte{1, 2, 3}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	h.AllowWrite()
	n, err = h.WriteAt([]byte{1, 2, 3}, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

// A read starting beyond the current length returns a short, empty read
// rather than an error.
func TestReadPastLengthIsShort(t *testing.T) {
	f := setup(t, 16)
	_, h := f.createOpen(t, 10)

	buf := make([]byte, 32)
	n, err := h.ReadAt(buf, 20)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
