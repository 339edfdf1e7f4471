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

	"github.com/jacobsa/diskfs/cache"
	"github.com/jacobsa/diskfs/device"
	"github.com/jacobsa/diskfs/freemap"
)

func zeroSector(c *cache.Cache, dev device.Device, s device.Sector) error {
	var zero [device.SectorSize]byte
	return c.Write(dev, s, zero[:], device.SectorSize, 0)
}

// rollback remembers every sector allocated during one extend call so they
// can be released back to fm if the call ultimately fails (spec.md §4.2
// step 3: "abort extension, roll back by releasing the sectors allocated
// in this call").
type rollback struct {
	fm      freemap.Allocator
	sectors []device.Sector
}

func (rb *rollback) record(s device.Sector) {
	rb.sectors = append(rb.sectors, s)
}

func (rb *rollback) release() {
	for _, s := range rb.sectors {
		rb.fm.Release(s, 1)
	}
}

// extend grows r's allocated data-sector range from sectorCount(r.length)
// up to sectorCount(targetLength), allocating one data sector per new
// logical index (and, the first time a doubly-indirect outer bucket is
// touched, the inner indirect sector for that bucket). r.singlyIndirect
// and r.doublyIndirect must already be allocated; those outer sectors are
// created once, at inode creation time, and never reallocated here.
//
// On success r.length is set to targetLength. On failure every sector
// allocated during this call is released and r is left with its original
// length.
func extend(c *cache.Cache, dev device.Device, fm freemap.Allocator, r *record, targetLength int64) error {
	if targetLength > FSLimit {
		return ErrTooLarge
	}
	if targetLength <= r.length {
		return nil
	}

	have := sectorCount(r.length)
	want := sectorCount(targetLength)

	rb := &rollback{fm: fm}

	for i := have; i < want; i++ {
		if err := extendOne(c, dev, fm, r, i, rb); err != nil {
			rb.release()
			return err
		}
	}

	r.length = targetLength
	return nil
}

func extendOne(c *cache.Cache, dev device.Device, fm freemap.Allocator, r *record, i int64, rb *rollback) error {
	loc := locate(i)

	switch loc.level {
	case 0:
		ds, err := allocateZeroed(c, dev, fm, rb)
		if err != nil {
			return err
		}
		r.direct[loc.directIndex] = ds
		return nil

	case 1:
		ds, err := allocateZeroed(c, dev, fm, rb)
		if err != nil {
			return err
		}
		return writePointer(c, dev, r.singlyIndirect, loc.singlyIndex, ds)

	default: // level 2
		inner := device.Nil
		if loc.doublyInner == 0 {
			ii, err := allocateZeroed(c, dev, fm, rb)
			if err != nil {
				return err
			}
			if err := writePointer(c, dev, r.doublyIndirect, loc.doublyOuter, ii); err != nil {
				return err
			}
			inner = ii
		} else {
			var err error
			inner, err = readPointer(c, dev, r.doublyIndirect, loc.doublyOuter)
			if err != nil {
				return err
			}
			if inner == device.Nil {
				return fmt.Errorf("inode: extend: missing inner indirect sector for outer bucket %d", loc.doublyOuter)
			}
		}

		ds, err := allocateZeroed(c, dev, fm, rb)
		if err != nil {
			return err
		}
		return writePointer(c, dev, inner, loc.doublyInner, ds)
	}
}

func allocateZeroed(c *cache.Cache, dev device.Device, fm freemap.Allocator, rb *rollback) (device.Sector, error) {
	s, err := fm.Allocate(1)
	if err != nil {
		return device.Nil, fmt.Errorf("%w: %v", ErrNoSpace, err)
	}
	rb.record(s)

	if err := zeroSector(c, dev, s); err != nil {
		return device.Nil, fmt.Errorf("inode: extend: zero sector %v: %w", s, err)
	}

	return s, nil
}
