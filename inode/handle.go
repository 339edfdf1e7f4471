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

	"github.com/jacobsa/syncutil"

	"github.com/jacobsa/diskfs/device"
)

// Handle is an in-memory reference to one on-disk inode record. Multiple
// Handles never exist for the same (device, sector) pair — Registry.Open
// hands out the same *Handle to every concurrent opener and tracks
// openCount instead (spec.md J2).
type Handle struct {
	registry *Registry
	dev      device.Device
	sector   device.Sector

	// growthMu is this inode's single mutual-exclusion point: it
	// serializes implicit growth (spec.md §5's "growth lock") and guards
	// every other piece of mutable handle state, checking J1
	// (0 <= denyWriteCount <= openCount) around every lock and unlock.
	growthMu syncutil.InvariantMutex

	openCount      int  // GUARDED_BY(growthMu)
	removed        bool // GUARDED_BY(growthMu)
	denyWriteCount int  // GUARDED_BY(growthMu)
}

func (h *Handle) checkInvariants() {
	if h.openCount < 0 {
		panic(fmt.Sprintf("inode: handle for sector %v: open_count %d < 0", h.sector, h.openCount))
	}
	if h.denyWriteCount < 0 || h.denyWriteCount > h.openCount {
		panic(fmt.Sprintf(
			"inode: handle for sector %v: deny_write_count %d out of range [0, %d]",
			h.sector, h.denyWriteCount, h.openCount))
	}
}

func (h *Handle) readRecord() (record, error) {
	var buf [device.SectorSize]byte
	if err := h.registry.cache.Read(h.dev, h.sector, buf[:], device.SectorSize, 0); err != nil {
		return record{}, fmt.Errorf("inode: read record: %w", err)
	}
	return decodeRecord(buf[:])
}

func (h *Handle) writeRecord(r record) error {
	buf := make([]byte, device.SectorSize)
	r.encode(buf)
	if err := h.registry.cache.Write(h.dev, h.sector, buf, device.SectorSize, 0); err != nil {
		return fmt.Errorf("inode: write record: %w", err)
	}
	return nil
}

// Remove marks h for deletion: its sectors are released when the last
// opener calls Close (spec.md's deferred-delete rule, and the fix for the
// source's uninitialized-success bug in the syscall that used to drive
// this — Remove has no failure path and always applies, never leaving an
// indeterminate result).
func (h *Handle) Remove() {
	h.growthMu.Lock()
	h.removed = true
	h.growthMu.Unlock()
}

// DenyWrite increments deny_write_count; while positive, WriteAt is a
// no-op. Used by executable loaders bracketing a region they don't want
// mutated out from under them.
func (h *Handle) DenyWrite() {
	h.growthMu.Lock()
	h.denyWriteCount++
	h.growthMu.Unlock()
}

// AllowWrite reverses one DenyWrite.
func (h *Handle) AllowWrite() {
	h.growthMu.Lock()
	h.denyWriteCount--
	h.growthMu.Unlock()
}

// Length returns the inode's current length.
func (h *Handle) Length() (int64, error) {
	h.growthMu.RLock()
	defer h.growthMu.RUnlock()

	r, err := h.readRecord()
	if err != nil {
		return 0, err
	}
	return r.length, nil
}

// ReadAt copies into dst starting at the given byte offset, returning the
// number of bytes actually read. A read that starts at or beyond the
// inode's current length returns (0, nil); a read that extends past the
// current length is truncated to it (spec.md §4.2's "out-of-range access"
// edge case).
func (h *Handle) ReadAt(dst []byte, offset int64) (int, error) {
	h.growthMu.RLock()
	defer h.growthMu.RUnlock()

	r, err := h.readRecord()
	if err != nil {
		return 0, err
	}

	if offset >= r.length {
		return 0, nil
	}

	want := int64(len(dst))
	if offset+want > r.length {
		want = r.length - offset
	}

	var read int64
	for read < want {
		i := (offset + read) / device.SectorSize
		within := int((offset + read) % device.SectorSize)
		chunk := device.SectorSize - within
		if int64(chunk) > want-read {
			chunk = int(want - read)
		}

		s, err := resolve(h.registry.cache, h.dev, r, i)
		if err != nil {
			return int(read), err
		}

		if s == device.Nil {
			for j := 0; j < chunk; j++ {
				dst[int(read)+j] = 0
			}
		} else if err := h.registry.cache.Read(h.dev, s, dst[read:read+int64(chunk)], chunk, within); err != nil {
			return int(read), err
		}

		read += int64(chunk)
	}

	return int(read), nil
}

// WriteAt copies from src into the inode starting at the given byte
// offset, returning the number of bytes actually written. If
// deny_write_count > 0 it returns (0, nil) immediately without touching
// anything. If the write would extend past the current length, the inode
// is grown first (spec.md §4.2's growth protocol); if growth fails,
// WriteAt returns (0, err) without having copied any bytes.
func (h *Handle) WriteAt(src []byte, offset int64) (int, error) {
	h.growthMu.Lock()
	defer h.growthMu.Unlock()

	if h.denyWriteCount > 0 {
		return 0, nil
	}

	r, err := h.readRecord()
	if err != nil {
		return 0, err
	}

	end := offset + int64(len(src))
	if end > r.length {
		if err := extend(h.registry.cache, h.dev, h.registry.freemap, &r, end); err != nil {
			return 0, err
		}
		if err := h.writeRecord(r); err != nil {
			return 0, err
		}
	}

	var written int64
	n := int64(len(src))
	for written < n {
		i := (offset + written) / device.SectorSize
		within := int((offset + written) % device.SectorSize)
		chunk := device.SectorSize - within
		if int64(chunk) > n-written {
			chunk = int(n - written)
		}

		s, err := resolve(h.registry.cache, h.dev, r, i)
		if err != nil {
			return int(written), err
		}
		if s == device.Nil {
			return int(written), fmt.Errorf("inode: WriteAt: no data sector mapped for logical index %d", i)
		}

		if err := h.registry.cache.Write(h.dev, s, src[written:written+int64(chunk)], chunk, within); err != nil {
			return int(written), err
		}

		written += int64(chunk)
	}

	return int(written), nil
}
