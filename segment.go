// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package segqueue

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// segmentCapacity is the fixed number of slots in every segment. Must be
// a power of two so that index and generation can be split with a mask.
const segmentCapacity = 1024

// slotMask isolates the ring index from a head/tail counter.
const slotMask = segmentCapacity - 1

// freezeOffset is added to tail exactly once when a segment is frozen.
// It must exceed any possible outstanding producer's expected tail by
// more than segmentCapacity so that no racing producer's CAS can still
// succeed after the freeze: every slot's sequence is at most
// head+segmentCapacity, which stays strictly below tail+freezeOffset.
const freezeOffset = 2 * segmentCapacity

// slot is one ring cell. sequence is the sole coordination word; value is
// touched only by the goroutine that currently owns the slot via a
// successful head/tail CAS.
type slot[T any] struct {
	sequence atomix.Int32
	value    T
}

// segment is a fixed-capacity Vyukov-style bounded MPMC ring, extended
// with a freeze flag and a next link so a chain of segments can present
// as a single unbounded queue. Exclusively owned by the Queue while
// linked into the chain; transferred to the pool once drained.
type segment[T any] struct {
	_     pad
	head  atomix.Int32
	_     pad
	tail  atomix.Int32
	_     pad
	frozen atomix.Bool
	next  atomic.Pointer[segment[T]]
	slots [segmentCapacity]slot[T]
}

// newSegment allocates and initializes a fresh segment.
func newSegment[T any]() *segment[T] {
	s := new(segment[T])
	s.init()
	return s
}

// init resets a segment to its just-allocated state: every slot's
// sequence set to its own index, head and tail zero, unfrozen, unlinked.
// After this returns a pooled segment is indistinguishable from a new
// one, which is what makes pool reuse safe.
func (s *segment[T]) init() {
	for i := range s.slots {
		s.slots[i].sequence.StoreRelaxed(int32(i))
		var zero T
		s.slots[i].value = zero
	}
	s.head.StoreRelaxed(0)
	s.tail.StoreRelaxed(0)
	s.frozen.StoreRelaxed(false)
	s.next.Store(nil)
}

// tryEnqueue attempts to publish v into the next free slot.
// Returns false exactly when the segment is full or frozen; never blocks
// beyond a bounded spin behind a producer that is mid-publish on a
// different slot racing for the same tail value.
func (s *segment[T]) tryEnqueue(v T) bool {
	sw := spin.Wait{}
	for {
		t := s.tail.LoadAcquire()
		slotPtr := &s.slots[t&slotMask]
		seq := slotPtr.sequence.LoadAcquire()
		diff := seq - t

		switch {
		case diff == 0:
			if s.tail.CompareAndSwapAcqRel(t, t+1) {
				slotPtr.value = v
				slotPtr.sequence.StoreRelease(t + 1)
				return true
			}
		case diff < 0:
			return false
		}
		sw.Once()
	}
}

// tryDequeue attempts to take ownership of and return the oldest
// unconsumed slot. Returns false exactly when the segment is observably
// empty given the current head, tail, and frozen state.
func (s *segment[T]) tryDequeue() (T, bool) {
	sw := spin.Wait{}
	for {
		h := s.head.LoadAcquire()
		slotPtr := &s.slots[h&slotMask]
		seq := slotPtr.sequence.LoadAcquire()
		diff := seq - (h + 1)

		if diff == 0 {
			if s.head.CompareAndSwapAcqRel(h, h+1) {
				v := slotPtr.value
				var zero T
				slotPtr.value = zero
				slotPtr.sequence.StoreRelease(h + segmentCapacity)
				return v, true
			}
			sw.Once()
			continue
		}
		if diff < 0 {
			if s.observablyEmpty(h) {
				var zero T
				return zero, false
			}
			sw.Once()
			continue
		}
		sw.Once()
	}
}

// drain discards every remaining item via tryDequeue, then waits for any
// slot claimed by a concurrent dequeuer — on the queue's current head
// segment, a real TryDequeue caller can win a slot's head CAS and not yet
// have reached the point of releasing it — to settle before returning.
// Such a claim may predate the drain, so the wait covers the last
// segmentCapacity head positions, [head-segmentCapacity, head), not only
// the ones taken here. Only once every one of those slots shows its
// post-release sequence is it safe for the caller to reinitialize the
// segment's slots: otherwise a straggler's delayed value write could land
// on a segment already handed back out for an unrelated enqueue.
func (s *segment[T]) drain() {
	for {
		if _, ok := s.tryDequeue(); ok {
			continue
		}
		break
	}

	sw := spin.Wait{}
	end := s.head.LoadAcquire()
	// Positions below zero stand for slots never taken since init, whose
	// initial sequence (their index) equals i+segmentCapacity.
	for i := end - segmentCapacity; i != end; i++ {
		want := i + segmentCapacity
		for s.slots[i&slotMask].sequence.LoadAcquire() != want {
			sw.Once()
		}
	}
}

// tryPeekEmpty reports whether the segment has nothing left to dequeue,
// without taking ownership of a slot. Used by IsEmpty's chain walk.
func (s *segment[T]) tryPeekEmpty() bool {
	sw := spin.Wait{}
	for {
		h := s.head.LoadAcquire()
		slotPtr := &s.slots[h&slotMask]
		seq := slotPtr.sequence.LoadAcquire()
		diff := seq - (h + 1)
		if diff == 0 {
			return false
		}
		if diff < 0 {
			return s.observablyEmpty(h)
		}
		sw.Once()
	}
}

// observablyEmpty implements the emptiness test of spec.md §4.1: sample
// frozen and tail; if tail - head <= 0 (accounting for a possible freeze
// offset), the segment is empty for head value h. Otherwise a producer is
// mid-publish on a slot this caller does not own and the caller should
// keep spinning rather than declare emptiness.
func (s *segment[T]) observablyEmpty(h int32) bool {
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

// ensureFrozen idempotently freezes the segment, permanently preventing
// further enqueues. Safe to call only while holding the queue's
// cross-segment lock.
func (s *segment[T]) ensureFrozen() {
	if s.frozen.LoadAcquire() {
		return
	}
	s.frozen.StoreRelease(true)
	s.tail.AddAcqRel(freezeOffset)
}

// slotCount returns the number of occupied slots implied by a (head,
// tail) pair sampled under spec.md §4.3's consistent-snapshot rules.
// tail may or may not have freezeOffset applied; both cases collapse to
// the same arithmetic since masking removes the offset's effect on the
// low bits and the two terminal checks handle the exact-zero cases.
func slotCount(head, tail int32) int {
	if head == tail || head == tail-freezeOffset {
		return 0
	}
	mh := head & slotMask
	mt := tail & slotMask
	if mh < mt {
		return int(mt - mh)
	}
	return segmentCapacity - int(mh) + int(mt)
}
