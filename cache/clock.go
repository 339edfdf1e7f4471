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

package cache

// selectVictim runs the second-chance clock sweep described in spec.md
// §4.1 and returns the chosen slot, unlocked. It advances the hand before
// returning so that a second concurrent miss is likely to land on a
// different slot (spec.md's documented race, which degrades gracefully to
// a recheck-hit rather than corrupting anything).
//
// selectVictim reads and clears referenced via atomic ops on the slot
// itself, never that slot's own mu: the sweep runs entirely under
// c.structMu, and taking a slot lock here too would let one goroutine
// hold structMu and block on a slot lock while another holds that same
// slot's lock (inside evictLocked) and blocks on structMu (inside
// unpublish) — an AB-BA deadlock. Using an atomic for referenced instead
// means structMu and a slot's mu are never acquired while the other is
// held, in either order.
//
// REQUIRES: c.structMu is held by the caller.
func (c *Cache) selectVictim() *slot {
	n := len(c.slots)

	allReferenced := true
	for _, s := range c.slots {
		if !s.referenced.Load() {
			allReferenced = false
			break
		}
	}

	if allReferenced {
		for _, s := range c.slots {
			s.referenced.Store(false)
		}
		c.hand = 0
	}

	victim := c.hand
	for c.slots[victim].referenced.Load() {
		victim = (victim + 1) % n
	}

	c.hand = (victim + 1) % n
	return c.slots[victim]
}
