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

// Package freemap provides the free-sector bitmap allocator that the inode
// package uses to reserve and release data and indirect sectors. It is an
// external collaborator of the inode module, not part of the cache/inode
// core; only its interface is load-bearing for that core.
package freemap

import "github.com/jacobsa/diskfs/device"

// Allocator reserves and releases contiguous ranges of sectors. The inode
// package only ever requests a single sector at a time, but Allocator's
// contract supports ranges for other callers (e.g. a future directory
// layer allocating a run of sectors for a large directory).
type Allocator interface {
	// Allocate reserves count previously-free sectors and returns the id
	// of the first one; the rest are not assumed to be contiguous by any
	// caller in this module. Returns an error if the request cannot be
	// satisfied; BitsetAllocator fails unless count contiguous free
	// sectors are available.
	Allocate(count int) (first device.Sector, err error)

	// Release returns count sectors starting at first to the free pool.
	// Releasing an already-free sector is a programming error.
	Release(first device.Sector, count int)
}
