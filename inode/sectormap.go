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
	"encoding/binary"
	"fmt"

	"github.com/jacobsa/diskfs/cache"
	"github.com/jacobsa/diskfs/device"
)

// readPointer returns the idx-th 4-byte sector id stored in the indirect
// sector named by 'in', read at byte offset idx*4 (never idx itself — this
// is the fix for the source's pointer-sized-vs-index-sized offset bug
// documented in spec.md §8.8).
func readPointer(c *cache.Cache, dev device.Device, in device.Sector, idx int) (device.Sector, error) {
	var buf [4]byte
	if err := c.Read(dev, in, buf[:], 4, idx*4); err != nil {
		return device.Nil, fmt.Errorf("inode: readPointer: %w", err)
	}
	return device.Sector(binary.LittleEndian.Uint32(buf[:])), nil
}

// writePointer stores value as the idx-th 4-byte sector id in the
// indirect sector named by 'in'.
func writePointer(c *cache.Cache, dev device.Device, in device.Sector, idx int, value device.Sector) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(value))
	if err := c.Write(dev, in, buf[:], 4, idx*4); err != nil {
		return fmt.Errorf("inode: writePointer: %w", err)
	}
	return nil
}

// locate classifies logical sector index i per the table in spec.md §4.2.
type location struct {
	level int // 0 = direct, 1 = singly indirect, 2 = doubly indirect

	directIndex int // level 0

	singlyIndex int // level 1: offset within the singly-indirect sector

	doublyOuter int // level 2: offset within the doubly-indirect sector
	doublyInner int // level 2: offset within the inner indirect sector
}

func locate(i int64) location {
	switch {
	case i < DirectCount:
		return location{level: 0, directIndex: int(i)}
	case i < DirectCount+singlyIndirectCapacity:
		return location{level: 1, singlyIndex: int(i - DirectCount)}
	case i < MaxSectors:
		j := i - DirectCount - singlyIndirectCapacity
		return location{level: 2, doublyOuter: int(j / pointersPerSector), doublyInner: int(j % pointersPerSector)}
	default:
		panic(fmt.Sprintf("inode: locate: sector index %d exceeds MaxSectors %d", i, MaxSectors))
	}
}

// resolve returns the physical data sector currently mapped to logical
// sector i, or device.Nil if i is within r's allocated range but the
// pointer tree has no entry for it (which should not happen for
// i < sectorCount(r.length), per invariant J4).
func resolve(c *cache.Cache, dev device.Device, r record, i int64) (device.Sector, error) {
	loc := locate(i)

	switch loc.level {
	case 0:
		return r.direct[loc.directIndex], nil

	case 1:
		if r.singlyIndirect == device.Nil {
			return device.Nil, nil
		}
		return readPointer(c, dev, r.singlyIndirect, loc.singlyIndex)

	default: // level 2
		if r.doublyIndirect == device.Nil {
			return device.Nil, nil
		}
		inner, err := readPointer(c, dev, r.doublyIndirect, loc.doublyOuter)
		if err != nil || inner == device.Nil {
			return device.Nil, err
		}
		return readPointer(c, dev, inner, loc.doublyInner)
	}
}
