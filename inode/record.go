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

// Package inode implements the extensible multi-level inode described in
// spec.md §4.2: an on-disk record (exactly one sector) mapping logical
// byte offsets to physical data sectors through a 124-entry direct table,
// one singly-indirect sector, and one doubly-indirect sector, with all
// I/O routed through a cache.Cache.
package inode

import (
	"encoding/binary"
	"fmt"

	"github.com/jacobsa/diskfs/device"
)

const (
	// magic is written into every on-disk record so corruption (or reading
	// a sector that was never an inode) can be detected.
	magic uint32 = 0x494e4f44

	// DirectCount is the number of direct pointers held inline in the
	// record (spec.md §6).
	DirectCount = 124

	// pointersPerSector is how many 4-byte sector ids fit in one sector;
	// it is the fan-out of both the singly- and doubly-indirect levels.
	pointersPerSector = device.SectorSize / 4 // 128

	// singlyIndirectCapacity is the number of logical sectors reachable
	// through the singly-indirect pointer.
	singlyIndirectCapacity = pointersPerSector // 128

	// doublyIndirectCapacity is the number of logical sectors reachable
	// through the doubly-indirect pointer.
	doublyIndirectCapacity = pointersPerSector * pointersPerSector // 16384

	// MaxSectors is the largest logical sector index (exclusive) a fully
	// grown inode can address (spec.md §4.2's sector-map table: 16636).
	MaxSectors = DirectCount + singlyIndirectCapacity + doublyIndirectCapacity

	// FSLimit is the largest length in bytes an inode may reach: 2^23
	// bytes minus the inode record's own sector (spec.md GLOSSARY).
	FSLimit = (1 << 23) - device.SectorSize

	directTableBytes  = DirectCount * 4 // 496
	offSinglyIndirect = directTableBytes
	offDoublyIndirect = offSinglyIndirect + 4
	offLength         = offDoublyIndirect + 4
	offMagic          = offLength + 4
)

// record is the in-memory decoding of a 512-byte on-disk inode record.
type record struct {
	direct         [DirectCount]device.Sector
	singlyIndirect device.Sector
	doublyIndirect device.Sector
	length         int64
}

// decodeRecord parses buf (which must be exactly device.SectorSize bytes)
// into a record, returning ErrCorrupt if the magic field does not match.
func decodeRecord(buf []byte) (record, error) {
	if len(buf) != device.SectorSize {
		return record{}, fmt.Errorf("inode: decodeRecord: buf has length %d, want %d", len(buf), device.SectorSize)
	}

	if got := binary.LittleEndian.Uint32(buf[offMagic:]); got != magic {
		return record{}, fmt.Errorf("%w: got %#x, want %#x", ErrCorrupt, got, magic)
	}

	var r record
	for i := 0; i < DirectCount; i++ {
		r.direct[i] = device.Sector(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	r.singlyIndirect = device.Sector(binary.LittleEndian.Uint32(buf[offSinglyIndirect:]))
	r.doublyIndirect = device.Sector(binary.LittleEndian.Uint32(buf[offDoublyIndirect:]))
	r.length = int64(binary.LittleEndian.Uint32(buf[offLength:]))

	return r, nil
}

// encode serializes r into buf, which must be exactly device.SectorSize
// bytes long.
func (r record) encode(buf []byte) {
	if len(buf) != device.SectorSize {
		panic(fmt.Sprintf("inode: encode: buf has length %d, want %d", len(buf), device.SectorSize))
	}

	for i := 0; i < DirectCount; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(r.direct[i]))
	}
	binary.LittleEndian.PutUint32(buf[offSinglyIndirect:], uint32(r.singlyIndirect))
	binary.LittleEndian.PutUint32(buf[offDoublyIndirect:], uint32(r.doublyIndirect))
	binary.LittleEndian.PutUint32(buf[offLength:], uint32(r.length))
	binary.LittleEndian.PutUint32(buf[offMagic:], magic)
}

// sectorCount returns the number of logical data sectors a file of the
// given length currently spans.
func sectorCount(length int64) int64 {
	if length <= 0 {
		return 0
	}
	return (length + device.SectorSize - 1) / device.SectorSize
}
