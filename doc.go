// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package segqueue implements an unbounded, multi-producer/multi-consumer
// FIFO queue built from a chain of fixed-capacity lock-free ring-buffer
// segments.
//
// # Algorithm
//
// Each segment is a Vyukov-style bounded MPMC ring of 1024 slots. A slot's
// sequence number is the sole coordination word between producers and
// consumers: a producer claims a slot by CAS-ing tail forward when the
// slot's sequence equals the expected tail, then publishes the value and
// release-stores the sequence one past that; a consumer does the mirror
// image on head. No per-slot lock, no ABA-prone raw pointer swap.
//
// When a segment fills, the producer that discovers this freezes it
// (permanently, exactly once, by pushing its tail far enough past the
// capacity boundary that no racing producer's CAS can land) and links a
// fresh or pooled segment in as the new tail. Consumers drain a segment
// completely, then advance the head of the chain to that segment's next
// and return the drained segment to the pool. The pool is a plain
// mutex-guarded stack, not a sync.Pool, because sync.Pool's entries may be
// cleared by the garbage collector between cycles, which would silently
// turn a steady-state workload into one that allocates a fresh segment
// every so often instead of reusing one.
//
// Queue[T] publishes arbitrary values with the two-step CAS-then-release
// protocol above. QueueIndirect and QueuePtr store a uintptr or
// unsafe.Pointer instead, which is small enough to pack alongside its
// slot's sequence number into one 128-bit word and publish with a single
// double-width CAS, so claiming a slot and storing or taking its value are
// one atomic step; the segment's tail or head counter is then advanced
// with a separate CAS.
//
// # Usage
//
// A work-distribution pipeline with any number of producers and workers:
//
//	q := segqueue.New[Job]()
//
//	go func() {
//		for job := range incoming {
//			q.Enqueue(job)
//		}
//	}()
//
//	for i := 0; i < workerCount; i++ {
//		go func() {
//			for {
//				job, err := q.TryDequeue()
//				if segqueue.IsErrEmpty(err) {
//					time.Sleep(time.Millisecond)
//					continue
//				}
//				process(job)
//			}
//		}()
//	}
//
// Event aggregation, where a caller periodically drains whatever has
// accumulated without blocking:
//
//	for {
//		v, err := q.TryDequeue()
//		if segqueue.IsErrEmpty(err) {
//			break
//		}
//		batch = append(batch, v)
//	}
//
// IsEmpty and Count take a consistent snapshot of the whole segment chain,
// not just the head segment, so they remain accurate once a queue has
// grown past one segment. Neither is linearizable against every
// individual concurrent Enqueue or TryDequeue; both observe the queue at
// some point during their own execution, which is the usual contract for
// a concurrent collection's size.
//
// # Choosing a flavor
//
// Use Queue[T] for anything that does not fit in a machine word, or where
// the simplicity of a generic API outweighs the single-step slot publish
// of the word-sized flavors. Use QueueIndirect for index- or handle-based values (slab
// offsets, free-list tickets, buffer-pool handles) and QueuePtr for
// zero-copy pointer handoff between goroutines that already agree on
// ownership transfer.
//
// # Testing under -race
//
// Some properties of this package's lock-free core synchronize through
// acquire/release orderings on one field while another field is read
// without an intervening happens-before edge the race detector can see —
// the segment's sequence protocol is correct by the C11/Go memory model
// but looks, to the detector's per-address tracking, like a race on
// fields it did not observe being ordered. Tests that would otherwise
// flag these check [RaceEnabled] and skip.
package segqueue
