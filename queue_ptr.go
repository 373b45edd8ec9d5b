// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package segqueue

import "unsafe"

// QueuePtr is the unsafe.Pointer-valued sibling of Queue[T], for zero-copy
// transfer of pointers between goroutines without boxing them into an
// interface. It shares QueueIndirect's segment chain and DWCAS slot
// protocol; a pointer's bits round-trip through uintptr exactly, so no
// separate segment implementation is needed.
type QueuePtr struct {
	q *QueueIndirect
}

// NewPtr constructs an empty QueuePtr with one initial segment.
func NewPtr() *QueuePtr {
	return &QueuePtr{q: NewIndirect()}
}

// Enqueue appends p to the queue. Never fails.
func (q *QueuePtr) Enqueue(p unsafe.Pointer) {
	q.q.Enqueue(uintptr(p))
}

// TryDequeue removes and returns the oldest pointer, or ErrEmpty.
func (q *QueuePtr) TryDequeue() (unsafe.Pointer, error) {
	v, err := q.q.TryDequeue()
	if err != nil {
		return nil, err
	}
	return *(*unsafe.Pointer)(unsafe.Pointer(&v)), nil
}

// IsEmpty reports whether the queue currently has no elements.
func (q *QueuePtr) IsEmpty() bool {
	return q.q.IsEmpty()
}

// Count returns a consistent snapshot of the number of queued elements.
func (q *QueuePtr) Count() int {
	return q.q.Count()
}

// Clear discards all contents, retaining one segment and pooling the rest.
func (q *QueuePtr) Clear() {
	q.q.Clear()
}
