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

import "errors"

// ErrCorrupt is returned when an on-disk inode record's magic field does
// not match, i.e. the sector does not actually hold an inode.
var ErrCorrupt = errors.New("inode: corrupt record (magic mismatch)")

// ErrNoSpace is returned when the free-sector allocator cannot satisfy an
// allocation needed by create or by implicit growth.
var ErrNoSpace = errors.New("inode: no space")

// ErrTooLarge is returned when an operation would grow a file past
// FSLimit.
var ErrTooLarge = errors.New("inode: file would exceed size limit")
