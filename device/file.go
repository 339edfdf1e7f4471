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
	"os"
	"sync"

	"github.com/detailyang/go-fallocate"
)

// FileDevice is a Device backed by a single regular file on the host
// filesystem, addressed by sector number. The backing file is pre-extended
// to its full sector count at creation time with fallocate, so that later
// writes never implicitly grow the file (and so that sparse-file
// allocation failures surface at FileDevice creation, not mid-write).
type FileDevice struct {
	mu sync.Mutex
	f  *os.File
}

// NewFileDevice opens (creating if necessary) path as a FileDevice capable
// of addressing sectorCount sectors, pre-allocating the backing storage.
func NewFileDevice(path string, sectorCount int) (*FileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("device: open %s: %w", path, err)
	}

	size := int64(sectorCount) * SectorSize
	if err := fallocate.Fallocate(f, 0, size); err != nil {
		f.Close()
		return nil, fmt.Errorf("device: fallocate %s to %d bytes: %w", path, size, err)
	}

	return &FileDevice{f: f}, nil
}

func (d *FileDevice) ReadSector(s Sector, dst []byte) error {
	if len(dst) != SectorSize {
		return fmt.Errorf("device: ReadSector: dst has length %d, want %d", len(dst), SectorSize)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.f.ReadAt(dst, int64(s)*SectorSize)
	if err != nil {
		return fmt.Errorf("device: read sector %v: %w", s, err)
	}

	return nil
}

func (d *FileDevice) WriteSector(s Sector, src []byte) error {
	if len(src) != SectorSize {
		return fmt.Errorf("device: WriteSector: src has length %d, want %d", len(src), SectorSize)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.f.WriteAt(src, int64(s)*SectorSize)
	if err != nil {
		return fmt.Errorf("device: write sector %v: %w", s, err)
	}

	return nil
}

// Close releases the backing file descriptor. Callers must have flushed
// any cache sitting in front of this device first.
func (d *FileDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.f.Close()
}
