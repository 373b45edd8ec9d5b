// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package segqueue

import (
	"sync"
	"sync/atomic"

	"code.hybscloud.com/spin"
)

// Queue is an unbounded, multi-producer/multi-consumer FIFO queue of T
// values, built from a chain of fixed-capacity segments.
//
// Enqueue and TryDequeue are lock-free in steady state. A mutex is taken
// only on the rare structural transitions: appending a new tail segment,
// retiring a drained head segment, pool push/pop, and the worst-case
// paths of Count and Clear. Safe for concurrent use by any number of
// producer and consumer goroutines.
//
// Per-producer FIFO order is preserved: items enqueued by a single
// goroutine are dequeued in that order. Order across different producers,
// and across different consumers, is unspecified.
type Queue[T any] struct {
	_            pad
	headSegment  atomic.Pointer[segment[T]]
	_            pad
	tailSegment  atomic.Pointer[segment[T]]
	_            pad
	crossSegmentLock sync.Mutex
	pool         []*segment[T]
}

// Option configures a Queue at construction time.
type Option[T any] func(*queueConfig[T])

type queueConfig[T any] struct {
	prewarm int
}

// WithPrewarmedSegments pushes n extra segments into the pool at
// construction, before any Enqueue call. Useful when a caller knows it
// is about to absorb a large burst and wants to avoid the allocations
// that would otherwise happen the first time the chain grows to cover
// that burst.
func WithPrewarmedSegments[T any](n int) Option[T] {
	return func(c *queueConfig[T]) {
		c.prewarm = n
	}
}

// New constructs an empty Queue with one initial segment.
func New[T any](opts ...Option[T]) *Queue[T] {
	var cfg queueConfig[T]
	for _, opt := range opts {
		opt(&cfg)
	}

	first := newSegment[T]()
	q := &Queue[T]{}
	q.headSegment.Store(first)
	q.tailSegment.Store(first)

	for i := 0; i < cfg.prewarm; i++ {
		q.pool = append(q.pool, newSegment[T]())
	}
	return q
}

// acquireSegment pops a reusable segment from the pool, or allocates a
// fresh one if the pool is empty. Must be called while holding
// crossSegmentLock.
func (q *Queue[T]) acquireSegment() *segment[T] {
	if n := len(q.pool); n > 0 {
		s := q.pool[n-1]
		q.pool = q.pool[:n-1]
		return s
	}
	return newSegment[T]()
}

// releaseSegment reinitializes s and pushes it onto the pool. Must be
// called while holding crossSegmentLock.
func (q *Queue[T]) releaseSegment(s *segment[T]) {
	s.init()
	q.pool = append(q.pool, s)
}

// Enqueue appends item to the queue. Never fails and never blocks
// indefinitely; it may spin briefly behind another goroutine's in-flight
// structural transition.
func (q *Queue[T]) Enqueue(item T) {
	sw := spin.Wait{}
	for {
		tail := q.tailSegment.Load()
		if tail.tryEnqueue(item) {
			return
		}

		// Reload and retry once more before taking the lock: another
		// producer may already be in the process of linking a new
		// tail segment.
		tail = q.tailSegment.Load()
		if tail.tryEnqueue(item) {
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

// TryDequeue removes and returns the oldest item. Returns ErrEmpty if the
// queue currently has nothing to return; never blocks.
func (q *Queue[T]) TryDequeue() (T, error) {
	sw := spin.Wait{}
	for {
		head := q.headSegment.Load()
		if v, ok := head.tryDequeue(); ok {
			return v, nil
		}
		if head.next.Load() == nil {
			var zero T
			return zero, ErrEmpty
		}

		// Re-read and retry twice more: an enqueue may have landed in
		// this exact head segment between our observations, and we
		// must not discard a segment that still has a reachable item.
		head = q.headSegment.Load()
		if v, ok := head.tryDequeue(); ok {
			return v, nil
		}
		if head.next.Load() == nil {
			var zero T
			return zero, ErrEmpty
		}
		if v, ok := head.tryDequeue(); ok {
			return v, nil
		}

		q.crossSegmentLock.Lock()
		if q.headSegment.Load() == head {
			next := head.next.Load()
			if next != nil {
				q.headSegment.Store(next)
				q.releaseSegment(head)
			}
		}
		q.crossSegmentLock.Unlock()
		sw.Once()
	}
}

// IsEmpty reports whether the queue currently has no items, taking a
// consistent snapshot across the whole segment chain rather than just
// the head segment.
func (q *Queue[T]) IsEmpty() bool {
	seg := q.headSegment.Load()
	for {
		if !seg.tryPeekEmpty() {
			return false
		}
		next := seg.next.Load()
		if next == nil {
			// Close the race where a producer linked a new segment
			// between the peek above and this check.
			if seg.next.Load() == nil {
				return true
			}
			continue
		}
		seg = next
	}
}

// Count returns a consistent snapshot of the number of items currently
// in the queue. Not linearizable against every individual concurrent
// Enqueue/TryDequeue — only against some point during its own execution.
func (q *Queue[T]) Count() int {
	for {
		h := q.headSegment.Load()
		t := q.tailSegment.Load()

		if h == t {
			hh1 := h.head.LoadAcquire()
			ht1 := h.tail.LoadAcquire()
			hh2 := h.head.LoadAcquire()
			ht2 := h.tail.LoadAcquire()
			if q.headSegment.Load() == h && q.tailSegment.Load() == t &&
				hh1 == hh2 && ht1 == ht2 {
				return slotCount(hh1, ht1)
			}
			continue
		}

		if h.next.Load() == t {
			hh1 := h.head.LoadAcquire()
			ht1 := h.tail.LoadAcquire()
			th1 := t.head.LoadAcquire()
			tt1 := t.tail.LoadAcquire()
			hh2 := h.head.LoadAcquire()
			ht2 := h.tail.LoadAcquire()
			th2 := t.head.LoadAcquire()
			tt2 := t.tail.LoadAcquire()
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

// countLongChain handles spec.md §4.3 case C: a chain of three or more
// segments between head and tail inclusive. Returns -1 if the snapshot
// taken under the lock turns out to be unstable and the caller should
// retry from the top.
func (q *Queue[T]) countLongChain(h, t *segment[T]) int {
	q.crossSegmentLock.Lock()
	defer q.crossSegmentLock.Unlock()

	if q.headSegment.Load() != h || q.tailSegment.Load() != t {
		return -1
	}

	total := slotCount(h.head.LoadAcquire(), h.tail.LoadAcquire())
	for seg := h.next.Load(); seg != nil && seg != t; seg = seg.next.Load() {
		// Every interior segment is frozen-full by construction: a
		// segment is only ever linked as someone's next after being
		// frozen, and its head never advances again once it stops
		// being the active head segment.
		total += segmentCapacity
	}
	total += slotCount(t.head.LoadAcquire(), t.tail.LoadAcquire())
	return total
}

// Clear discards all contents, retaining one segment and pooling the
// rest. Values are drained through the normal dequeue path rather than
// simply discarded in place: a concurrent producer or consumer may have
// already won a CAS on a segment Clear is about to reclaim, and draining
// settles that race before the segment's slots are reinitialized and
// handed back out for unrelated use.
func (q *Queue[T]) Clear() {
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
