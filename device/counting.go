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

import "sync/atomic"

// CountingDevice wraps a Device and counts the number of reads and writes
// that reach it, for tests that need to assert a cache hit issued no
// device I/O (spec.md §8 scenario 1).
type CountingDevice struct {
	Device

	reads  int64
	writes int64
}

// NewCountingDevice wraps dev, starting both counters at zero.
func NewCountingDevice(dev Device) *CountingDevice {
	return &CountingDevice{Device: dev}
}

func (d *CountingDevice) ReadSector(s Sector, dst []byte) error {
	atomic.AddInt64(&d.reads, 1)
	return d.Device.ReadSector(s, dst)
}

func (d *CountingDevice) WriteSector(s Sector, src []byte) error {
	atomic.AddInt64(&d.writes, 1)
	return d.Device.WriteSector(s, src)
}

// Reads returns the number of ReadSector calls observed so far.
func (d *CountingDevice) Reads() int64 { return atomic.LoadInt64(&d.reads) }

// Writes returns the number of WriteSector calls observed so far.
func (d *CountingDevice) Writes() int64 { return atomic.LoadInt64(&d.writes) }
