// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package segqueue

import (
	"sync"
	"sync/atomic"

	"code.hybscloud.com/spin"
)

// QueueIndirect is the uintptr-valued sibling of Queue[T]: same unbounded
// segment-chain algorithm, but each slot publishes with a single DWCAS
// (sequence and value packed into one atomix.Uint128) since a uintptr fits
// in a machine word. Suited to index/handle-based work: free lists, slab
// offsets, buffer-pool tickets.
type QueueIndirect struct {
	_                pad
	headSegment      atomic.Pointer[indirectSegment]
	_                pad
	tailSegment      atomic.Pointer[indirectSegment]
	_                pad
	crossSegmentLock sync.Mutex
	pool             []*indirectSegment
}

// NewIndirect constructs an empty QueueIndirect with one initial segment.
func NewIndirect() *QueueIndirect {
	first := newIndirectSegment()
	q := &QueueIndirect{}
	q.headSegment.Store(first)
	q.tailSegment.Store(first)
	return q
}

func (q *QueueIndirect) acquireSegment() *indirectSegment {
	if n := len(q.pool); n > 0 {
		s := q.pool[n-1]
		q.pool = q.pool[:n-1]
		return s
	}
	return newIndirectSegment()
}

func (q *QueueIndirect) releaseSegment(s *indirectSegment) {
	s.init()
	q.pool = append(q.pool, s)
}

// Enqueue appends elem to the queue. Never fails.
func (q *QueueIndirect) Enqueue(elem uintptr) {
	sw := spin.Wait{}
	for {
		tail := q.tailSegment.Load()
		if tail.tryEnqueue(elem) {
			return
		}
		tail = q.tailSegment.Load()
		if tail.tryEnqueue(elem) {
			return
		}

		q.crossSegmentLock.Lock()
		if q.tailSegment.Load() == tail {
			tail.ensureFrozen()
			next := q.acquireSegment()
			tail.next.Store(next)
			q.tailSegment.Store(next)
		}
		q.crossSegmentLock.Unlock()
		sw.Once()
	}
}

// TryDequeue removes and returns the oldest element, or ErrEmpty.
func (q *QueueIndirect) TryDequeue() (uintptr, error) {
	sw := spin.Wait{}
	for {
		head := q.headSegment.Load()
		if v, ok := head.tryDequeue(); ok {
			return v, nil
		}
		if head.next.Load() == nil {
			return 0, ErrEmpty
		}

		head = q.headSegment.Load()
		if v, ok := head.tryDequeue(); ok {
			return v, nil
		}
		if head.next.Load() == nil {
			return 0, ErrEmpty
		}
		if v, ok := head.tryDequeue(); ok {
			return v, nil
		}

		q.crossSegmentLock.Lock()
		if q.headSegment.Load() == head {
			if next := head.next.Load(); next != nil {
				q.headSegment.Store(next)
				q.releaseSegment(head)
			}
		}
		q.crossSegmentLock.Unlock()
		sw.Once()
	}
}

// IsEmpty reports whether the queue currently has no elements.
func (q *QueueIndirect) IsEmpty() bool {
	seg := q.headSegment.Load()
	for {
		if !seg.tryPeekEmpty() {
			return false
		}
		next := seg.next.Load()
		if next == nil {
			if seg.next.Load() == nil {
				return true
			}
			continue
		}
		seg = next
	}
}

// Count returns a consistent snapshot of the number of queued elements.
func (q *QueueIndirect) Count() int {
	for {
		h := q.headSegment.Load()
		t := q.tailSegment.Load()

		if h == t {
			hh1, ht1 := h.head.LoadAcquire(), h.tail.LoadAcquire()
			hh2, ht2 := h.head.LoadAcquire(), h.tail.LoadAcquire()
			if q.headSegment.Load() == h && q.tailSegment.Load() == t &&
				hh1 == hh2 && ht1 == ht2 {
				return slotCount(hh1, ht1)
			}
			continue
		}

		if h.next.Load() == t {
			hh1, ht1 := h.head.LoadAcquire(), h.tail.LoadAcquire()
			th1, tt1 := t.head.LoadAcquire(), t.tail.LoadAcquire()
			hh2, ht2 := h.head.LoadAcquire(), h.tail.LoadAcquire()
			th2, tt2 := t.head.LoadAcquire(), t.tail.LoadAcquire()
			if q.headSegment.Load() == h && q.tailSegment.Load() == t &&
				hh1 == hh2 && ht1 == ht2 && th1 == th2 && tt1 == tt2 {
				return slotCount(hh1, ht1) + slotCount(th1, tt1)
			}
			continue
		}

		if n := q.countLongChain(h, t); n >= 0 {
			return n
		}
	}
}

func (q *QueueIndirect) countLongChain(h, t *indirectSegment) int {
	q.crossSegmentLock.Lock()
	defer q.crossSegmentLock.Unlock()

	if q.headSegment.Load() != h || q.tailSegment.Load() != t {
		return -1
	}

	total := slotCount(h.head.LoadAcquire(), h.tail.LoadAcquire())
	for seg := h.next.Load(); seg != nil && seg != t; seg = seg.next.Load() {
		total += segmentCapacity
	}
	total += slotCount(t.head.LoadAcquire(), t.tail.LoadAcquire())
	return total
}

// Clear discards all contents, retaining one segment and pooling the
// rest. Values are drained through the normal dequeue path rather than
// simply discarded in place, settling any concurrent producer or
// consumer race before a segment's slots are reinitialized and handed
// back out for unrelated use.
func (q *QueueIndirect) Clear() {
	q.crossSegmentLock.Lock()
	defer q.crossSegmentLock.Unlock()

	tail := q.tailSegment.Load()
	tail.ensureFrozen()

	for seg := q.headSegment.Load(); seg != nil; {
		next := seg.next.Load()
		seg.drain()
		q.releaseSegment(seg)
		seg = next
	}

	fresh := q.acquireSegment()
	q.headSegment.Store(fresh)
	q.tailSegment.Store(fresh)
}
