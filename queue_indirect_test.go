// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package segqueue_test

import (
	"errors"
	"testing"

	"github.com/kavalab/segqueue"
)

func TestQueueIndirectBasic(t *testing.T) {
	q := segqueue.NewIndirect()

	for i := range uintptr(10) {
		q.Enqueue(i + 100)
	}
	if n := q.Count(); n != 10 {
		t.Fatalf("Count: got %d, want 10", n)
	}
	for i := range uintptr(10) {
		v, err := q.TryDequeue()
		if err != nil {
			t.Fatalf("TryDequeue(%d): %v", i, err)
		}
		if v != i+100 {
			t.Fatalf("TryDequeue(%d): got %d, want %d", i, v, i+100)
		}
	}
	if _, err := q.TryDequeue(); !errors.Is(err, segqueue.ErrEmpty) {
		t.Fatalf("TryDequeue on empty: got %v, want ErrEmpty", err)
	}
}

// TestQueueIndirectWrapAround exercises the freeze-and-link boundary for
// the DWCAS-packed slot representation.
func TestQueueIndirectWrapAround(t *testing.T) {
	const n = 1024*3 + 7
	q := segqueue.NewIndirect()

	for i := range uintptr(n) {
		q.Enqueue(i)
	}
	for i := range uintptr(n) {
		v, err := q.TryDequeue()
		if err != nil {
			t.Fatalf("TryDequeue(%d): %v", i, err)
		}
		if v != i {
			t.Fatalf("TryDequeue(%d): got %d, want %d", i, v, i)
		}
	}
	if !q.IsEmpty() {
		t.Fatalf("IsEmpty after drain: got false, want true")
	}
}

func TestQueueIndirectZeroValue(t *testing.T) {
	q := segqueue.NewIndirect()
	q.Enqueue(0)
	v, err := q.TryDequeue()
	if err != nil {
		t.Fatalf("TryDequeue: %v", err)
	}
	if v != 0 {
		t.Fatalf("TryDequeue: got %d, want 0", v)
	}
}

func TestQueueIndirectClear(t *testing.T) {
	q := segqueue.NewIndirect()
	for i := range uintptr(50) {
		q.Enqueue(i)
	}
	q.Clear()
	if !q.IsEmpty() {
		t.Fatalf("IsEmpty after Clear: got false, want true")
	}
	if n := q.Count(); n != 0 {
		t.Fatalf("Count after Clear: got %d, want 0", n)
	}
}

var _ segqueue.IndirectCollection = (*segqueue.QueueIndirect)(nil)
