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

package main

import (
	"fmt"

	"github.com/jacobsa/diskfs/cache"
	"github.com/jacobsa/diskfs/device"
	"github.com/jacobsa/diskfs/freemap"
	"github.com/jacobsa/diskfs/inode"
)

// session bundles the storage core layers wired up against one image
// file. The free-sector map is always rebuilt fresh at sector 0 only
// (reserved) plus whatever the caller tells it is in use via --sector
// flags; diskctl is a harness for exercising cache/inode, not a
// persistent-metadata filesystem tool.
type session struct {
	dev *device.FileDevice
	c   *cache.Cache
	fm  *freemap.BitsetAllocator
	reg *inode.Registry
}

// openSession opens the image and, when knownInode is non-zero, walks
// that inode's existing pointer tree to reconcile the freshly built
// allocator with sectors a prior invocation already committed — without
// this, a write that grows an inode created in an earlier process could
// hand out a sector number already in use by that same inode.
func openSession(knownInode device.Sector) (*session, error) {
	dev, err := device.NewFileDevice(imagePath, imageSectors)
	if err != nil {
		return nil, err
	}

	c := cache.New(cacheCapacity, logger)
	fm := freemap.NewBitsetAllocator(uint(imageSectors))
	reg := inode.NewRegistry(c, fm)

	if knownInode != device.Nil {
		used, err := inode.UsedSectors(c, dev, knownInode)
		if err != nil {
			return nil, fmt.Errorf("diskctl: reconciling sectors used by %v: %w", knownInode, err)
		}
		for _, s := range used {
			fm.MarkAllocated(s)
		}
	}

	return &session{dev: dev, c: c, fm: fm, reg: reg}, nil
}

func (s *session) close() error {
	if err := s.c.Flush(s.dev); err != nil {
		return err
	}
	return s.dev.Close()
}
