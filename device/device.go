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

// Package device defines the synchronous block device abstraction that the
// cache and inode packages build on. Sector size is fixed at compile time;
// there is no support for variable sector sizes.
package device

import "fmt"

// SectorSize is the fixed size, in bytes, of a single sector. It applies to
// every Device and to every on-disk structure built on top of one.
const SectorSize = 512

// Sector identifies a single sector on a Device. Sector 0 is reserved and is
// never a valid data sector; allocators must never hand it out.
type Sector uint32

// Nil is the reserved, never-allocated sector id.
const Nil Sector = 0

func (s Sector) String() string {
	return fmt.Sprintf("sector(%d)", uint32(s))
}

// Device is a synchronous block device: whole-sector reads and writes, each
// moving exactly SectorSize bytes. Implementations must be safe for
// concurrent use: the cache package's per-slot locking serializes access
// to one slot, but misses and write-backs in different slots can call the
// same Device from several goroutines at once. MemoryDevice and FileDevice
// each guard themselves with a mutex.
type Device interface {
	// ReadSector copies exactly SectorSize bytes from sector s into dst.
	// len(dst) must be SectorSize.
	ReadSector(s Sector, dst []byte) error

	// WriteSector copies exactly SectorSize bytes from src to sector s.
	// len(src) must be SectorSize.
	WriteSector(s Sector, src []byte) error
}
