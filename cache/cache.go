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

// Package cache implements the fixed-capacity, write-back sector buffer
// cache described in spec.md §4.1: N slots, clock-sweep (second-chance)
// eviction, and byte-granular Read/Write/Flush keyed by (device, sector,
// offset, length).
package cache

import (
	"fmt"
	"log"
	"sync"

	"github.com/jacobsa/diskfs/device"
)

// DefaultCapacity is the reference design's slot count (spec.md §2).
const DefaultCapacity = 64

// Cache is a capacity-bounded, write-back sector cache sitting in front of
// one or more block devices. The zero value is not usable; construct with
// New.
type Cache struct {
	logger *log.Logger

	// structMu is the "structure-wide short critical section" of spec.md
	// §4.1: it guards only index and hand, never the contents of a slot's
	// frame. The lock order is always slot-mu-then-structMu, never the
	// reverse: evictLocked (called with a slot's mu held) acquires
	// structMu via publish/unpublish, but nothing that holds structMu
	// ever acquires a slot's mu (selectVictim reads/clears the referenced
	// bit via atomics instead of the slot lock, precisely so this holds).
	structMu sync.Mutex
	index    map[residencyKey]int // GUARDED_BY(structMu)
	hand     int                  // GUARDED_BY(structMu)

	slots []*slot
}

// New allocates a Cache with the given number of slots. logger may be nil,
// in which case cache activity is not logged (matching the teacher's
// debug-logger idiom: a nil/discard logger is always safe to call).
func New(capacity int, logger *log.Logger) *Cache {
	if capacity <= 0 {
		panic(fmt.Sprintf("cache: New: capacity must be positive, got %d", capacity))
	}

	registerMetrics()

	c := &Cache{
		logger: logger,
		index:  make(map[residencyKey]int, capacity),
		slots:  make([]*slot, capacity),
	}
	for i := range c.slots {
		c.slots[i] = newSlot(i)
	}

	return c
}

func (c *Cache) logf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

// Destroy releases the cache's slots. Callers must have flushed any dirty
// data they care about first; Destroy does not write anything back.
func (c *Cache) Destroy() {
	c.structMu.Lock()
	defer c.structMu.Unlock()

	c.index = nil
	c.slots = nil
}

// lookupOrSelectVictim returns the slot that should service key: the
// resident slot on a hit, or a just-selected victim on a miss. It only
// takes structMu, never a slot lock, per the lookup phase of spec.md
// §4.1's two-phase lookup → lock → recheck pattern.
//
// On a miss it immediately reserves the chosen victim for key in the
// index, before releasing structMu and before any device I/O happens.
// Without this, two goroutines racing to load the same never-before-
// resident key would both observe a miss and — since the clock hand
// advances between lookups — typically pick two different victim slots,
// each publishing key to its own slot once its I/O completed. That
// leaves one of the two slots resident for key with no index entry
// pointing at it: an orphaned slot violating spec.md I1 ("a sector is
// resident in at most one slot"), not the narrower same-slot race
// spec.md's own "known hazard" note excuses. Reserving eagerly makes a
// second concurrent miss for key see a hit here instead, so it blocks on
// the same slot's lock and rechecks against it rather than loading a
// second, unreachable copy.
func (c *Cache) lookupOrSelectVictim(key residencyKey) (s *slot, hit bool) {
	c.structMu.Lock()
	defer c.structMu.Unlock()

	if idx, ok := c.index[key]; ok {
		return c.slots[idx], true
	}

	s = c.selectVictim()
	c.index[key] = s.idx
	return s, false
}

// publish records that key now resides in slot s.idx. REQUIRES: s.mu held.
func (c *Cache) publish(key residencyKey, s *slot) {
	c.structMu.Lock()
	defer c.structMu.Unlock()
	c.index[key] = s.idx
}

// unpublish removes key from the index, if it still points at slot s.
func (c *Cache) unpublish(key residencyKey, s *slot) {
	c.structMu.Lock()
	defer c.structMu.Unlock()
	if idx, ok := c.index[key]; ok && c.slots[idx] == s {
		delete(c.index, key)
	}
}

// evictLocked writes back s's frame if dirty and clears its residency, so
// it can be reused for a different sector. REQUIRES: s.mu held.
func (c *Cache) evictLocked(s *slot) error {
	if !s.hasResident {
		return nil
	}

	if s.dirty {
		if err := s.resident.dev.WriteSector(s.resident.sector, s.frame[:]); err != nil {
			// Abort eviction: the slot remains resident and dirty, per
			// spec.md's failure semantics.
			c.logf("evict slot %d: write back %v failed: %v", s.idx, s.resident.sector, err)
			return fmt.Errorf("cache: evict: write back %v: %w", s.resident.sector, err)
		}
		writebacks.Inc()
	}

	c.logf("evict slot %d: was resident %v, dirty=%v", s.idx, s.resident.sector, s.dirty)
	c.unpublish(s.resident, s)
	s.markEmpty()
	evictions.Inc()
	return nil
}

// Read copies length bytes starting at offset within sector into dst.
func (c *Cache) Read(dev device.Device, sector device.Sector, dst []byte, length, offset int) error {
	if err := checkRange(length, offset); err != nil {
		return err
	}

	key := residencyKey{dev, sector}
	s, hit := c.lookupOrSelectVictim(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if hit && c.recheckHit(key, s) {
		hits.Inc()
		s.referenced.Store(true)
		copy(dst, s.frame[offset:offset+length])
		return nil
	}

	// Miss: s may already hold someone else's sector (either because we
	// chose it as a victim, or because we raced and lost the recheck on
	// what looked like a hit). Evict it, then load the sector we want.
	if err := c.evictLocked(s); err != nil {
		return err
	}

	if err := dev.ReadSector(sector, s.frame[:]); err != nil {
		return fmt.Errorf("cache: Read: load sector %v: %w", sector, err)
	}

	s.hasResident = true
	s.resident = key
	s.referenced.Store(true)
	c.publish(key, s)
	misses.Inc()

	copy(dst, s.frame[offset:offset+length])
	return nil
}

// Write copies length bytes from src into sector's frame at offset.
func (c *Cache) Write(dev device.Device, sector device.Sector, src []byte, length, offset int) error {
	if err := checkRange(length, offset); err != nil {
		return err
	}

	key := residencyKey{dev, sector}
	s, hit := c.lookupOrSelectVictim(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if hit && c.recheckHit(key, s) {
		hits.Inc()
		copy(s.frame[offset:offset+length], src[:length])
		s.dirty = true
		s.referenced.Store(true)
		return nil
	}

	if err := c.evictLocked(s); err != nil {
		return err
	}

	fullSector := offset == 0 && length == device.SectorSize
	if !fullSector {
		// Untouched bytes must retain their on-disk values, so the prior
		// contents have to be read first (spec.md §4.1).
		if err := dev.ReadSector(sector, s.frame[:]); err != nil {
			return fmt.Errorf("cache: Write: load sector %v: %w", sector, err)
		}
	}

	copy(s.frame[offset:offset+length], src[:length])

	s.hasResident = true
	s.resident = key
	s.dirty = true
	s.referenced.Store(true)
	c.publish(key, s)
	misses.Inc()

	return nil
}

// recheckHit re-validates, with s already locked, that key is still
// resident in s. It folds spec.md's "recheck" step into a single helper
// shared by Read and Write.
func (c *Cache) recheckHit(key residencyKey, s *slot) bool {
	return s.hasResident && s.resident == key
}

// Flush writes every dirty slot whose resident device is dev back to dev,
// clearing the dirty flag on success. It acquires every slot's lock in
// ascending index order, the one place in this package where more than
// one slot lock is held at once (spec.md §4.1, §5).
func (c *Cache) Flush(dev device.Device) error {
	for _, s := range c.slots {
		s.mu.Lock()
	}
	defer func() {
		for i := len(c.slots) - 1; i >= 0; i-- {
			c.slots[i].mu.Unlock()
		}
	}()

	var firstErr error
	for _, s := range c.slots {
		if !s.hasResident || s.resident.dev != dev || !s.dirty {
			continue
		}
		if err := dev.WriteSector(s.resident.sector, s.frame[:]); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("cache: Flush: write back %v: %w", s.resident.sector, err)
			}
			continue
		}
		s.dirty = false
		writebacks.Inc()
	}

	return firstErr
}

func checkRange(length, offset int) error {
	if offset < 0 || length < 0 || offset+length > device.SectorSize {
		return fmt.Errorf(
			"cache: invalid range: offset=%d length=%d (sector size %d)",
			offset, length, device.SectorSize)
	}
	return nil
}
