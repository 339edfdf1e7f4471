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

package device

import (
	"fmt"
	"sync"
)

// MemoryDevice is a Device backed by a plain Go map, for tests and for
// exercising the cache/inode packages without touching a real file. It
// grows sparsely: an unwritten sector reads back as all zero bytes.
type MemoryDevice struct {
	mu      sync.Mutex
	sectors map[Sector]*[SectorSize]byte
}

// NewMemoryDevice returns an empty MemoryDevice.
func NewMemoryDevice() *MemoryDevice {
	return &MemoryDevice{
		sectors: make(map[Sector]*[SectorSize]byte),
	}
}

func (d *MemoryDevice) ReadSector(s Sector, dst []byte) error {
	if len(dst) != SectorSize {
		return fmt.Errorf("device: ReadSector: dst has length %d, want %d", len(dst), SectorSize)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if frame, ok := d.sectors[s]; ok {
		copy(dst, frame[:])
	} else {
		for i := range dst {
			dst[i] = 0
		}
	}

	return nil
}

func (d *MemoryDevice) WriteSector(s Sector, src []byte) error {
	if len(src) != SectorSize {
		return fmt.Errorf("device: WriteSector: src has length %d, want %d", len(src), SectorSize)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	frame, ok := d.sectors[s]
	if !ok {
		frame = new([SectorSize]byte)
		d.sectors[s] = frame
	}
	copy(frame[:], src)

	return nil
}

// BypassRead returns the current contents of a sector without going
// through any cache, for use by tests asserting on-disk state directly
// (spec.md P2/P3).
func (d *MemoryDevice) BypassRead(s Sector) [SectorSize]byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	if frame, ok := d.sectors[s]; ok {
		return *frame
	}
	return [SectorSize]byte{}
}
