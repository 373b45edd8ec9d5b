// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package segqueue

import "unsafe"

// Collection is the common shape implemented by Queue[T], QueueIndirect,
// and QueuePtr, minus the element type, which differs per flavor. It exists
// so code that only needs Count/IsEmpty/Clear can stay agnostic to which
// flavor it was handed.
type Collection interface {
	IsEmpty() bool
	Count() int
	Clear()
}

// IndirectCollection is the uintptr-valued enqueue/dequeue surface,
// satisfied by *QueueIndirect.
type IndirectCollection interface {
	Collection
	Enqueue(elem uintptr)
	TryDequeue() (uintptr, error)
}

// PtrCollection is the unsafe.Pointer-valued enqueue/dequeue surface,
// satisfied by *QueuePtr.
type PtrCollection interface {
	Collection
	Enqueue(p unsafe.Pointer)
	TryDequeue() (unsafe.Pointer, error)
}

var (
	_ IndirectCollection = (*QueueIndirect)(nil)
	_ PtrCollection      = (*QueuePtr)(nil)
)
