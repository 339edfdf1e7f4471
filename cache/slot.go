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

package cache

import (
	"fmt"
	"sync/atomic"

	"github.com/jacobsa/syncutil"

	"github.com/jacobsa/diskfs/device"
)

// residencyKey identifies what a slot currently holds: a sector on a
// particular device. Two different Device values with the same Sector
// number are different residencies (spec.md I1: a sector is resident in
// at most one slot, where "a sector" means "a (device, sector) pair").
type residencyKey struct {
	dev    device.Device
	sector device.Sector
}

// slot is one cache residency: a fixed 512-byte frame plus the metadata
// spec.md §3 requires (resident sector, dirty flag, reference bit) and the
// per-slot lock guarding all of it.
//
// GUARDED_BY(mu): hasResident, resident, dirty, frame. referenced is an
// atomic instead: the clock sweep (cache/clock.go) reads and clears it
// while only Cache.structMu is held, never this slot's own lock, so it
// can never take part in a structMu-then-mu lock-order inversion against
// the eviction path (which always takes mu first and only reaches
// structMu, if at all, afterward).
type slot struct {
	idx int // fixed at construction; this slot's position in Cache.slots.

	mu syncutil.InvariantMutex

	hasResident bool
	resident    residencyKey
	dirty       bool
	referenced  atomic.Bool
	frame       [device.SectorSize]byte
}

func newSlot(idx int) *slot {
	s := &slot{idx: idx}
	s.mu = syncutil.NewInvariantMutex(s.checkInvariants)
	return s
}

// checkInvariants enforces spec.md I2: an empty slot is never dirty and
// never referenced.
//
// LOCKS_REQUIRED(mu) (InvariantMutex calls this itself around Lock/Unlock).
func (s *slot) checkInvariants() {
	if !s.hasResident && (s.dirty || s.referenced.Load()) {
		panic(fmt.Sprintf(
			"cache: slot %d: empty slot has dirty=%v referenced=%v", s.idx, s.dirty, s.referenced.Load()))
	}
}

// markEmpty clears a slot back to its unoccupied state. LOCKS_REQUIRED(mu).
func (s *slot) markEmpty() {
	s.hasResident = false
	s.resident = residencyKey{}
	s.dirty = false
	s.referenced.Store(false)
	for i := range s.frame {
		s.frame[i] = 0
	}
}
