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

package inode

import (
	"fmt"
	"sync"

	"github.com/jacobsa/syncutil"

	"github.com/jacobsa/diskfs/cache"
	"github.com/jacobsa/diskfs/device"
	"github.com/jacobsa/diskfs/freemap"
)

// key identifies one on-disk inode: a sector on a particular device.
type key struct {
	dev    device.Device
	sector device.Sector
}

// Registry tracks the set of currently-open inode handles, ensuring at
// most one Handle exists per (device, sector) pair no matter how many
// times callers Open the same inode (spec.md J2).
type Registry struct {
	cache   *cache.Cache
	freemap freemap.Allocator

	// mu guards only handles: registration and lookup. Everything else
	// about a Handle — open_count, removed, deny_write_count, length, and
	// the pointer tree — is owned by that Handle's own growthMu, matching
	// the teacher's per-inode-lock idiom rather than one repo-wide lock.
	mu      sync.Mutex
	handles map[key]*Handle
}

// NewRegistry returns a Registry whose inodes are read and written
// through c, with data sectors allocated from fm.
func NewRegistry(c *cache.Cache, fm freemap.Allocator) *Registry {
	return &Registry{
		cache:   c,
		freemap: fm,
		handles: make(map[key]*Handle),
	}
}

// Create writes a zeroed on-disk inode record at sector on dev with the
// requested initial length, allocating the singly- and doubly-indirect
// outer sectors (always present from creation, per spec.md §4.2) plus
// enough data and inner-indirect sectors to cover length. It reports
// whether creation succeeded; on failure the caller is responsible for
// reclaiming sector itself.
func (reg *Registry) Create(dev device.Device, sector device.Sector, length int64) (bool, error) {
	if length > FSLimit {
		return false, ErrTooLarge
	}

	var r record

	singly, err := reg.freemap.Allocate(1)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrNoSpace, err)
	}
	if err := zeroSector(reg.cache, dev, singly); err != nil {
		reg.freemap.Release(singly, 1)
		return false, err
	}
	r.singlyIndirect = singly

	doubly, err := reg.freemap.Allocate(1)
	if err != nil {
		reg.freemap.Release(singly, 1)
		return false, fmt.Errorf("%w: %v", ErrNoSpace, err)
	}
	if err := zeroSector(reg.cache, dev, doubly); err != nil {
		reg.freemap.Release(singly, 1)
		reg.freemap.Release(doubly, 1)
		return false, err
	}
	r.doublyIndirect = doubly

	if err := extend(reg.cache, dev, reg.freemap, &r, length); err != nil {
		reg.freemap.Release(singly, 1)
		reg.freemap.Release(doubly, 1)
		return false, err
	}

	buf := make([]byte, device.SectorSize)
	r.encode(buf)
	if err := reg.cache.Write(dev, sector, buf, device.SectorSize, 0); err != nil {
		return false, fmt.Errorf("inode: Create: write record: %w", err)
	}

	return true, nil
}

// Open returns the Handle for (dev, sector), creating it — with
// open_count 1 — if no handle for that inode currently exists, or
// incrementing open_count on the existing one otherwise (spec.md J2).
func (reg *Registry) Open(dev device.Device, sector device.Sector) *Handle {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	k := key{dev, sector}
	if h, ok := reg.handles[k]; ok {
		return reg.Reopen(h)
	}

	h := &Handle{
		registry: reg,
		dev:      dev,
		sector:   sector,
	}
	h.growthMu = syncutil.NewInvariantMutex(h.checkInvariants)
	h.openCount = 1
	reg.handles[k] = h
	return h
}

// Reopen increments h's open_count, recording another concurrent opener
// of the same already-open inode.
func (reg *Registry) Reopen(h *Handle) *Handle {
	h.growthMu.Lock()
	h.openCount++
	h.growthMu.Unlock()
	return h
}

// Close decrements h's open_count; at zero it removes h from the
// registry, and if h was marked removed, releases every sector the inode
// owns — data, indirect, and the inode's own sector — back to the
// allocator.
func (reg *Registry) Close(h *Handle) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	h.growthMu.Lock()
	h.openCount--
	last := h.openCount == 0
	removed := h.removed
	h.growthMu.Unlock()

	if !last {
		return nil
	}

	delete(reg.handles, key{h.dev, h.sector})

	if !removed {
		return nil
	}

	return reg.releaseAll(h)
}

// releaseAll walks h's pointer tree and returns every sector it names to
// the free-sector allocator, then releases the inode's own sector
// (spec.md §4.2, "deferred delete").
func (reg *Registry) releaseAll(h *Handle) error {
	sectors, err := walkTree(reg.cache, h.dev, h.sector)
	if err != nil {
		return err
	}
	for _, s := range sectors {
		reg.freemap.Release(s, 1)
	}
	reg.freemap.Release(h.sector, 1)
	return nil
}

// UsedSectors returns every physical sector currently attributed to the
// on-disk inode at (dev, sector): the inode's own sector plus every
// indirect and data sector its pointer tree names. It exists for
// callers — like a short-lived command-line session — that need to
// reconstruct which sectors are in use without a persisted free-sector
// map of their own.
func UsedSectors(c *cache.Cache, dev device.Device, sector device.Sector) ([]device.Sector, error) {
	sectors, err := walkTree(c, dev, sector)
	if err != nil {
		return nil, err
	}
	return append(sectors, sector), nil
}

// walkTree reads the inode record at sector and returns every indirect
// and data sector its pointer tree currently names. A zero pointer
// anywhere in the tree is skipped as unallocated.
func walkTree(c *cache.Cache, dev device.Device, sector device.Sector) ([]device.Sector, error) {
	var buf [device.SectorSize]byte
	if err := c.Read(dev, sector, buf[:], device.SectorSize, 0); err != nil {
		return nil, fmt.Errorf("inode: walkTree: read record: %w", err)
	}
	r, err := decodeRecord(buf[:])
	if err != nil {
		return nil, err
	}

	var sectors []device.Sector

	for _, d := range r.direct {
		if d != device.Nil {
			sectors = append(sectors, d)
		}
	}

	if r.singlyIndirect != device.Nil {
		for i := 0; i < pointersPerSector; i++ {
			d, err := readPointer(c, dev, r.singlyIndirect, i)
			if err != nil {
				return nil, err
			}
			if d != device.Nil {
				sectors = append(sectors, d)
			}
		}
		sectors = append(sectors, r.singlyIndirect)
	}

	if r.doublyIndirect != device.Nil {
		for k := 0; k < pointersPerSector; k++ {
			inner, err := readPointer(c, dev, r.doublyIndirect, k)
			if err != nil {
				return nil, err
			}
			if inner == device.Nil {
				continue
			}
			for i := 0; i < pointersPerSector; i++ {
				d, err := readPointer(c, dev, inner, i)
				if err != nil {
					return nil, err
				}
				if d != device.Nil {
					sectors = append(sectors, d)
				}
			}
			sectors = append(sectors, inner)
		}
		sectors = append(sectors, r.doublyIndirect)
	}

	return sectors, nil
}
