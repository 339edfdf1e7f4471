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

package freemap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacobsa/diskfs/device"
	"github.com/jacobsa/diskfs/freemap"
)

func TestSectorZeroIsReservedAtConstruction(t *testing.T) {
	a := freemap.NewBitsetAllocator(16)
	assert.True(t, a.IsAllocated(device.Nil))
}

func TestAllocateNeverReturnsSectorZero(t *testing.T) {
	a := freemap.NewBitsetAllocator(4)
	for i := 0; i < 3; i++ {
		s, err := a.Allocate(1)
		require.NoError(t, err)
		assert.NotEqual(t, device.Nil, s)
	}
}

func TestAllocateFindsContiguousRun(t *testing.T) {
	a := freemap.NewBitsetAllocator(16)

	first, err := a.Allocate(1)
	require.NoError(t, err)

	run, err := a.Allocate(4)
	require.NoError(t, err)
	assert.NotEqual(t, first, run)

	for i := device.Sector(0); i < 4; i++ {
		assert.True(t, a.IsAllocated(run+i))
	}
}

func TestAllocateFailsWhenExhausted(t *testing.T) {
	a := freemap.NewBitsetAllocator(4)

	_, err := a.Allocate(3) // sectors 1,2,3; sector 0 reserved
	require.NoError(t, err)

	_, err = a.Allocate(1)
	assert.Error(t, err)
}

func TestReleaseMakesSectorsReusable(t *testing.T) {
	a := freemap.NewBitsetAllocator(4)

	s, err := a.Allocate(3)
	require.NoError(t, err)

	freeBefore := a.Free()
	a.Release(s, 3)
	assert.Equal(t, freeBefore+3, a.Free())

	s2, err := a.Allocate(3)
	require.NoError(t, err)
	assert.Equal(t, s, s2)
}

func TestReleaseSectorZeroPanics(t *testing.T) {
	a := freemap.NewBitsetAllocator(4)
	assert.Panics(t, func() { a.Release(device.Nil, 1) })
}

func TestReleaseUnallocatedSectorPanics(t *testing.T) {
	a := freemap.NewBitsetAllocator(4)
	assert.Panics(t, func() { a.Release(3, 1) })
}

func TestMarkAllocatedIsIdempotentAndReservesTheSector(t *testing.T) {
	a := freemap.NewBitsetAllocator(16)

	a.MarkAllocated(7)
	assert.True(t, a.IsAllocated(7))

	freeBefore := a.Free()
	a.MarkAllocated(7)
	assert.Equal(t, freeBefore, a.Free())
}
