/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package bridge

import (
	"errors"

	"hostbridge.io/hostbridge/pkg/stats"
)

var (
	ErrBadHandle       = errors.New("bad or stale handle")
	ErrPermanentHandle = errors.New("release a permanent handle")
	ErrBorrowExhausted = errors.New("borrow region exhausted")
)

// Handle is the only representation of a host reference inside the sandbox.
type Handle int32

// Handle space layout, low to high: the borrow region [0, BorrowCapacity)
// filled downward, four reserved singletons, then dynamic handles.
// Everything below DynamicBase is permanent and never enters the free list.
const (
	BorrowCapacity = 64

	HandleUndefined Handle = BorrowCapacity
	HandleNull      Handle = BorrowCapacity + 1
	HandleTrue      Handle = BorrowCapacity + 2
	HandleFalse     Handle = BorrowCapacity + 3

	DynamicBase Handle = BorrowCapacity + 4
)

const noFreeSlot Handle = -1

// Undefined is the host value behind HandleUndefined. HandleNull resolves to
// untyped nil.
var Undefined interface{} = undefinedType{}

type undefinedType struct{}

func (undefinedType) String() string { return "undefined" }

// slot is one entry of the dynamic handle table. A free slot keeps the
// handle of the next free slot, threading the free list through the array.
type slot struct {
	ref  interface{}
	next Handle
	free bool
}

// HandleTable maps integer handles to host references. The dynamic part is an
// append-only-growable slot array with a free list rooted at nextFree; the
// borrow region is a LIFO stack for call-scoped references.
type HandleTable struct {
	slots    []slot
	nextFree Handle

	borrow   [BorrowCapacity]interface{}
	borrowSP int

	stats *stats.BridgeStats
}

func NewHandleTable(s *stats.BridgeStats) *HandleTable {
	return &HandleTable{
		nextFree: noFreeSlot,
		borrowSP: BorrowCapacity,
		stats:    s,
	}
}

// Allocate stores ref and returns a fresh dynamic handle. Reuses the free
// list head if any, otherwise appends a slot. Never fails.
func (t *HandleTable) Allocate(ref interface{}) Handle {
	t.stats.HandleAllocate.Inc(1)
	t.stats.HandleLive.Inc(1)

	if t.nextFree != noFreeSlot {
		h := t.nextFree
		s := &t.slots[h-DynamicBase]
		t.nextFree = s.next
		s.ref = ref
		s.free = false
		return h
	}

	t.slots = append(t.slots, slot{ref: ref})
	return DynamicBase + Handle(len(t.slots)-1)
}

// Resolve returns the reference behind h without consuming it.
func (t *HandleTable) Resolve(h Handle) (interface{}, error) {
	switch {
	case h >= 0 && h < BorrowCapacity:
		if int(h) < t.borrowSP {
			return nil, ErrBadHandle
		}
		return t.borrow[h], nil
	case h == HandleUndefined:
		return Undefined, nil
	case h == HandleNull:
		return nil, nil
	case h == HandleTrue:
		return true, nil
	case h == HandleFalse:
		return false, nil
	}

	i := int(h - DynamicBase)
	if i < 0 || i >= len(t.slots) || t.slots[i].free {
		return nil, ErrBadHandle
	}
	return t.slots[i].ref, nil
}

// Release returns the reference behind h and puts the slot back on the free
// list. The sandbox may clone and re-release singleton handles arbitrarily
// often, so releasing a singleton just resolves it; releasing any other
// permanent handle is a programmer error.
func (t *HandleTable) Release(h Handle) (interface{}, error) {
	if h < DynamicBase {
		if h >= HandleUndefined {
			return t.Resolve(h)
		}
		return nil, ErrPermanentHandle
	}

	i := int(h - DynamicBase)
	if i < 0 || i >= len(t.slots) || t.slots[i].free {
		return nil, ErrBadHandle
	}

	s := &t.slots[i]
	ref := s.ref
	s.ref = nil
	s.free = true
	s.next = t.nextFree
	t.nextFree = h

	t.stats.HandleRelease.Inc(1)
	t.stats.HandleLive.Dec(1)

	return ref, nil
}

// Clone re-resolves h and allocates a fresh handle to the same reference.
// Singleton handles are stable, cloning them returns the same handle.
func (t *HandleTable) Clone(h Handle) (Handle, error) {
	ref, err := t.Resolve(h)
	if err != nil {
		return 0, err
	}
	if h >= HandleUndefined && h < DynamicBase {
		return h, nil
	}
	return t.Allocate(ref), nil
}

// Borrow pushes ref onto the borrow stack, growing toward lower indices.
// Borrowed handles must not outlive the pass-through call that created them.
func (t *HandleTable) Borrow(ref interface{}) (Handle, error) {
	if t.borrowSP == 0 {
		return 0, ErrBorrowExhausted
	}

	t.borrowSP--
	t.borrow[t.borrowSP] = ref

	if depth := int64(BorrowCapacity - t.borrowSP); depth > t.stats.BorrowPeak.Value() {
		t.stats.BorrowPeak.Update(depth)
	}

	return Handle(t.borrowSP), nil
}

// BorrowMark returns the current borrow stack pointer, to be restored with
// ReleaseBorrowed at the end of the call, on every exit path.
func (t *HandleTable) BorrowMark() int {
	return t.borrowSP
}

// ReleaseBorrowed pops the borrow stack back to mark unconditionally.
func (t *HandleTable) ReleaseBorrowed(mark int) {
	for i := t.borrowSP; i < mark && i < BorrowCapacity; i++ {
		t.borrow[i] = nil
	}
	if mark > BorrowCapacity {
		mark = BorrowCapacity
	}
	if mark > t.borrowSP {
		t.borrowSP = mark
	}
}

// LiveCount returns the number of live dynamic handles, for leak checks.
func (t *HandleTable) LiveCount() int {
	n := 0
	for i := range t.slots {
		if !t.slots[i].free {
			n++
		}
	}
	return n
}
