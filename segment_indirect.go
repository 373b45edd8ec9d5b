// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package segqueue

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// indirectSlot packs a slot's sequence and its uintptr-sized value into one
// 128-bit word (lo=sequence, hi=value), so publish/claim is a single CAS
// instead of the two-step CAS-then-release-store [slot] needs for arbitrary
// T. Reused by QueuePtr, which stores pointer bits in hi.
type indirectSlot struct {
	entry atomix.Uint128
	_     [64 - 16]byte
}

// indirectSegment is the QueueIndirect/QueuePtr counterpart of segment[T],
// identical in its head/tail/freeze/next protocol but with a packed slot.
type indirectSegment struct {
	_      pad
	head   atomix.Int32
	_      pad
	tail   atomix.Int32
	_      pad
	frozen atomix.Bool
	next   atomic.Pointer[indirectSegment]
	slots  [segmentCapacity]indirectSlot
}

func newIndirectSegment() *indirectSegment {
	s := new(indirectSegment)
	s.init()
	return s
}

func (s *indirectSegment) init() {
	for i := range s.slots {
		s.slots[i].entry.StoreRelaxed(uint64(uint32(i)), 0)
	}
	s.head.StoreRelaxed(0)
	s.tail.StoreRelaxed(0)
	s.frozen.StoreRelaxed(false)
	s.next.Store(nil)
}

// tryEnqueue publishes v with a single DWCAS on the slot's packed entry:
// claiming ownership and storing the value happen in the same atomic
// operation, instead of the separate CAS-on-tail-then-release-store-value
// two-step [segment] needs for arbitrary T. tail itself is only a relaxed
// hint for locating the next slot; a winning CAS helps advance it for
// whichever other producer is waiting on it next.
func (s *indirectSegment) tryEnqueue(v uintptr) bool {
	sw := spin.Wait{}
	for {
		t := s.tail.LoadAcquire()
		slotPtr := &s.slots[t&slotMask]
		seqLo, valHi := slotPtr.entry.LoadAcquire()
		diff := int32(seqLo) - t

		switch {
		case diff == 0:
			if slotPtr.entry.CompareAndSwapAcqRel(seqLo, valHi, uint64(uint32(t+1)), uint64(v)) {
				s.tail.CompareAndSwapRelaxed(t, t+1)
				return true
			}
		case diff < 0:
			return false
		}
		sw.Once()
	}
}

// tryDequeue claims the oldest slot with a single DWCAS on the slot's
// packed entry, which simultaneously takes the value and hands the slot
// back for the next round.
func (s *indirectSegment) tryDequeue() (uintptr, bool) {
	sw := spin.Wait{}
	for {
		h := s.head.LoadAcquire()
		slotPtr := &s.slots[h&slotMask]
		seqLo, valHi := slotPtr.entry.LoadAcquire()
		diff := int32(seqLo) - (h + 1)

		if diff == 0 {
			if slotPtr.entry.CompareAndSwapAcqRel(seqLo, valHi, uint64(uint32(h+segmentCapacity)), 0) {
				s.head.CompareAndSwapRelaxed(h, h+1)
				return uintptr(valHi), true
			}
			sw.Once()
			continue
		}
		if diff < 0 {
			if s.observablyEmpty(h) {
				return 0, false
			}
			sw.Once()
			continue
		}
		sw.Once()
	}
}

// drain discards every remaining item via tryDequeue. Unlike segment[T],
// no extra settle-wait is needed once this returns: claiming a slot and
// publishing into it are the same atomic DWCAS here, so there is no
// window where a slot is claimed but its value has not yet landed for a
// concurrent reclaimer to race against.
func (s *indirectSegment) drain() {
	for {
		if _, ok := s.tryDequeue(); ok {
			continue
		}
		return
	}
}

func (s *indirectSegment) tryPeekEmpty() bool {
	sw := spin.Wait{}
	for {
		h := s.head.LoadAcquire()
		slotPtr := &s.slots[h&slotMask]
		seqLo, _ := slotPtr.entry.LoadAcquire()
		diff := int32(seqLo) - (h + 1)
		if diff == 0 {
			return false
		}
		if diff < 0 {
			return s.observablyEmpty(h)
		}
		sw.Once()
	}
}

func (s *indirectSegment) observablyEmpty(h int32) bool {
	frozen := s.frozen.LoadAcquire()
	t := s.tail.LoadAcquire()
	if t-h <= 0 {
		return true
	}
	if frozen && (t-freezeOffset-h) <= 0 {
		return true
	}
	return false
}

func (s *indirectSegment) ensureFrozen() {
	if s.frozen.LoadAcquire() {
		return
	}
	s.frozen.StoreRelease(true)
	s.tail.AddAcqRel(freezeOffset)
}
